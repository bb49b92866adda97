// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF emitter content into an audio.Source.
//
// Parsing is backed by github.com/go-audio/aiff. Only 16-bit PCM files are
// accepted; samples are converted to interleaved float32 in [-1, 1], with
// channel count and sample rate taken from the COMM chunk. The parser
// needs an io.ReadSeeker, so plain readers are buffered in memory first.
// Encoding is not supported.
//
//	f, _ := os.Open("impact.aiff")
//	source, err := aiff.Decoder{}.Decode(f)
//
// Decode fails with ErrNotAiffFile when the stream is not an AIFF
// container, ErrUnsupportedAiffChunks when the container is valid but its
// chunks yield no usable stream description, ErrOnlyPCM16bitSupported for
// other bit depths, and ErrUnsupportedAiffLayout when no PCM format can be
// derived. Condition the decoded content for the spatializer with
// audspace.NewEmitterFeed.
package aiff
