// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 emitter content into an audio.Source.
//
// Decoding is backed by github.com/hajimehoshi/go-mp3, which always emits
// 16-bit stereo PCM; the source converts that to interleaved float32 in
// [-1, 1]. The sample rate comes from the file. Encoding is not supported.
//
//	f, _ := os.Open("ambience.mp3")
//	source, err := mp3.Decoder{}.Decode(f)
//
// Decoded content is rarely in the shape the spatializer wants. Condition
// it with audspace.NewEmitterFeed, which resamples and folds to mono as
// needed:
//
//	feed := audspace.NewEmitterFeed(source, 48000, audspace.FeedOptions{Loop: true})
package mp3
