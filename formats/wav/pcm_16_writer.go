// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/audspace/utils"
)

// WriteFloat32 converts interleaved float32 samples in [-1, 1] to 16-bit
// PCM and writes them as a WAV file. Handy for dumping rendered output.
func WriteFloat32(w io.Writer, sampleRate, channels int, samples []float32) error {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = utils.Float32ToInt16(s)
	}
	return WriteWAV16(w, sampleRate, channels, pcm)
}

// WriteWAV16 writes interleaved 16-bit PCM as a canonical 44-byte-header
// WAV file. pcm holds channels interleaved samples; its length must be a
// multiple of channels.
func WriteWAV16(w io.Writer, sampleRate, channels int, pcm []int16) error {
	if channels < 1 {
		return fmt.Errorf("WriteWAV16: %d channels", channels)
	}
	if len(pcm)%channels != 0 {
		return fmt.Errorf("WriteWAV16: %d samples not a multiple of %d channels", len(pcm), channels)
	}

	const bitsPerSample = 16
	byteRate := uint32(sampleRate) * uint32(channels) * bitsPerSample / 8
	blockAlign := uint16(channels) * bitsPerSample / 8
	dataSize := uint32(len(pcm) * 2)
	riffSize := 36 + dataSize

	header := make([]byte, 44)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], riffSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("%w", err)
	}
	if len(pcm) == 0 {
		return nil
	}

	// Convert in chunks to bound the scratch buffer on large content.
	const chunkSize = 8192
	buf := make([]byte, min(len(pcm), chunkSize)*2)

	for i := 0; i < len(pcm); i += chunkSize {
		end := min(i+chunkSize, len(pcm))
		chunk := pcm[i:end]
		buf = buf[:len(chunk)*2]

		for j, s := range chunk {
			binary.LittleEndian.PutUint16(buf[j*2:j*2+2], uint16(s))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}
