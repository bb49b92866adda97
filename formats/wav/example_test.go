// SPDX-License-Identifier: EPL-2.0

package wav_test

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ik5/audspace/formats/wav"
)

// Example demonstrates a write-then-decode round trip.
func Example() {
	pcm := []int16{100, -100, 200, -200, 300, -300}

	file := new(bytes.Buffer)
	if err := wav.WriteWAV16(file, 8000, 1, pcm); err != nil {
		fmt.Println("write:", err)
		return
	}

	src, err := wav.Decoder{}.Decode(bytes.NewReader(file.Bytes()))
	if err != nil {
		fmt.Println("decode:", err)
		return
	}

	buf := make([]float32, 16)
	n, err := src.ReadSamples(buf)
	if err != nil && err != io.EOF {
		fmt.Println("read:", err)
		return
	}

	fmt.Printf("rate: %d Hz, channels: %d, samples: %d\n",
		src.SampleRate(), src.Channels(), n)
	// Output: rate: 8000 Hz, channels: 1, samples: 6
}
