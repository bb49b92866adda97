// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 converts one [-1, 1] sample to 16-bit PCM, clamping
// anything outside the range. The symmetric 32767 scale keeps -1.0 from
// overflowing.
func Float32ToInt16(x float32) int16 {
	switch {
	case x > 1:
		x = 1
	case x < -1:
		x = -1
	}
	return int16(x * 32767)
}
