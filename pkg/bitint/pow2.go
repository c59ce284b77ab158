// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size FFTs and
audio blocks. Every function is allocation-free and constant time.

	size := bitint.NextPowerOfTwo(1000) // 1024
	order := bitint.Log2(size)          // 10
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive
// sizes return 1.
//
// size-1 keeps exact powers of two unchanged: 8-1 = 0b0111 has length 3,
// and 1<<3 is 8 again.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the exponent of a power of two, or -1 if n is not one.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
