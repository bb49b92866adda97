// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize      = errors.New("dst size must be multiple of channels")
	ErrInvalidFrameSize    = errors.New("frame size must be positive")
	ErrInvalidBlockSize    = errors.New("max block frames must be positive")
	ErrInvalidChannelCount = errors.New("channel count must be positive")
)
