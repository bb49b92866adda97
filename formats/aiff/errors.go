// SPDX-License-Identifier: EPL-2.0

package aiff

import "errors"

var (
	// ErrNotAiffFile means the stream does not carry an AIFF container.
	ErrNotAiffFile = errors.New("not an AIFF file")

	// ErrOnlyPCM16bitSupported rejects sample depths other than 16-bit PCM.
	ErrOnlyPCM16bitSupported = errors.New("only 16-bit PCM AIFF is supported")

	// ErrUnsupportedAiffChunks means the container is valid but its chunks
	// did not yield a usable stream description.
	ErrUnsupportedAiffChunks = errors.New("unsupported or malformed AIFF chunks")

	// ErrUnsupportedAiffLayout means the decoder could not derive a PCM
	// format from the file.
	ErrUnsupportedAiffLayout = errors.New("unsupported AIFF layout")
)
