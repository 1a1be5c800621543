package util

import (
	"math"

	"github.com/holiman/uint256"
)

// SafeAdd returns a+b and checks for overflow
func SafeAdd(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// SafeSub returns a-b and checks for underflow
func SafeSub(a, b uint64) (uint64, bool) {
	if a < b {
		return 0, false
	}
	return a - b, true
}

// SafeAdd256 returns a+b as a new value, the second return value is false
// if the sum overflows the 256-bit range.
func SafeAdd256(a, b *uint256.Int) (*uint256.Int, bool) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	return sum, !overflow
}

// SafeSub256 returns a-b as a new value, the second return value is false
// if a < b.
func SafeSub256(a, b *uint256.Int) (*uint256.Int, bool) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	return diff, !underflow
}
