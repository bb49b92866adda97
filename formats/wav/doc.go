// SPDX-License-Identifier: EPL-2.0

// Package wav provides WAV emitter-content decoding and 16-bit PCM
// writing.
//
// Decoding is built on github.com/go-audio/wav and supports PCM content at
// 16, 24 and 32 bits per sample, any channel count and sample rate. The
// decoder returns an audio.Source yielding interleaved float32 samples in
// [-1.0, 1.0].
//
// # Decoding
//
//	f, _ := os.Open("footsteps.wav")
//	source, err := wav.Decoder{}.Decode(f)
//	if err != nil {
//	    // handle error
//	}
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// go-audio needs seekable input. Files and bytes.Reader qualify; anything
// else is read fully into memory first.
//
// # Writing
//
// WriteWAV16 writes interleaved 16-bit PCM with the canonical 44-byte
// header. It is mainly useful for dumping rendered output in tests and
// examples:
//
//	pcm := []int16{100, -100, 200, -200}
//	f, _ := os.Create("out.wav")
//	wav.WriteWAV16(f, 48000, 1, pcm)
package wav
