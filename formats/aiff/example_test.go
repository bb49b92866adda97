// SPDX-License-Identifier: EPL-2.0

package aiff_test

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ik5/audspace/formats/aiff"
)

// ExampleDecoder_Decode opens AIFF emitter content and reads PCM samples
// from it.
func ExampleDecoder_Decode() {
	f, err := os.Open("impact.aif")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	src, err := aiff.Decoder{}.Decode(f)
	if err != nil {
		if errors.Is(err, aiff.ErrOnlyPCM16bitSupported) {
			log.Fatal("re-export the file as 16-bit PCM")
		}
		log.Fatal(err)
	}
	defer src.Close()

	fmt.Printf("rate: %d Hz, channels: %d\n", src.SampleRate(), src.Channels())

	buf := make([]float32, 4096)
	n, err := src.ReadSamples(buf)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("read %d samples\n", n)
}
