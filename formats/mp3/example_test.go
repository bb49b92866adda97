// SPDX-License-Identifier: EPL-2.0

package mp3_test

import (
	"fmt"
	"log"
	"os"

	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/formats/mp3"
)

// ExampleDecoder_Decode opens MP3 emitter content and reads PCM samples
// from it.
func ExampleDecoder_Decode() {
	f, err := os.Open("ambience.mp3")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	src, err := mp3.Decoder{}.Decode(f)
	if err != nil {
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

// ExampleDecoder_Decode_mono downmixes stereo MP3 content for a mono
// emitter feed.
func ExampleDecoder_Decode_mono() {
	f, err := os.Open("ambience.mp3")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	src, err := mp3.Decoder{}.Decode(f)
	if err != nil {
		log.Fatal(err)
	}

	mono := audio.NewMonoMixer(src)
	defer mono.Close()

	fmt.Printf("channels: %d\n", mono.Channels())
}
