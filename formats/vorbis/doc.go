// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis emitter content into an audio.Source.
//
// Decoding is backed by github.com/jfreymuth/oggvorbis, which already
// produces interleaved float32 in [-1, 1], so samples pass through without
// conversion. Channel count and sample rate come from the file. Encoding
// is not supported.
//
//	f, _ := os.Open("ambience.ogg")
//	source, err := vorbis.Decoder{}.Decode(f)
//
// Reads are truncated to whole frames; asking for fewer samples than one
// frame returns zero. Condition the decoded content for the spatializer
// with audspace.NewEmitterFeed.
package vorbis
