package util

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSafeAdd(t *testing.T) {
	t.Parallel()

	t.Run("OK", func(t *testing.T) {
		cases := []struct {
			a      uint64
			b      uint64
			result uint64
		}{
			{0, 0, 0},
			{0, 1, 1},
			{1, 0, 1},
			{1, 1, 2},
			{math.MaxUint32, math.MaxUint32, 0x01_fffffffe},
			{math.MaxUint64, 0, math.MaxUint64},
			{0, math.MaxUint64, math.MaxUint64},
			{math.MaxUint64 - 1, 1, math.MaxUint64},
			{1, math.MaxUint64 - 1, math.MaxUint64},
		}

		for _, tt := range cases {
			result, ok := SafeAdd(tt.a, tt.b)
			if !ok {
				t.Errorf("unexpected overflow for %x + %x = %x", tt.a, tt.b, tt.result)
				continue
			}
			if result != tt.result {
				t.Errorf("%x + %x = %x (expected %x)", tt.a, tt.b, result, tt.result)
			}
		}
	})

	t.Run("overflow", func(t *testing.T) {
		cases := []struct {
			a uint64
			b uint64
		}{
			{math.MaxUint64, 1},
			{1, math.MaxUint64},
			{math.MaxUint64 - 1, 2},
			{math.MaxUint64, math.MaxUint64},
		}

		for _, tt := range cases {
			if result, ok := SafeAdd(tt.a, tt.b); ok {
				t.Errorf("expected overflow for %x + %x got %x", tt.a, tt.b, result)
			}
		}
	})
}

func TestSafeSub(t *testing.T) {
	t.Parallel()

	t.Run("OK", func(t *testing.T) {
		cases := []struct {
			a      uint64
			b      uint64
			result uint64
		}{
			{0, 0, 0},
			{1, 1, 0},
			{2, 1, 1},
			{math.MaxUint64, 1, math.MaxUint64 - 1},
			{math.MaxUint64, math.MaxUint64 - 1, 1},
			{math.MaxUint64, math.MaxUint64, 0},
		}

		for _, tt := range cases {
			result, ok := SafeSub(tt.a, tt.b)
			if !ok {
				t.Errorf("unexpected underflow for %x - %x", tt.a, tt.b)
				continue
			}
			require.Equal(t, tt.result, result, "%x - %x = %x", tt.a, tt.b, result)
		}
	})

	t.Run("underflow", func(t *testing.T) {
		cases := []struct {
			a uint64
			b uint64
		}{
			{0, 1},
			{1, 2},
			{0, math.MaxUint64},
			{math.MaxUint64 - 1, math.MaxUint64},
		}

		for _, tt := range cases {
			if result, ok := SafeSub(tt.a, tt.b); ok {
				t.Errorf("expected underflow for %x - %x got %x", tt.a, tt.b, result)
			}
		}
	})
}

func TestSafeAdd256(t *testing.T) {
	t.Parallel()

	maxU256 := new(uint256.Int).Not(uint256.NewInt(0))

	t.Run("OK", func(t *testing.T) {
		cases := []struct {
			a      *uint256.Int
			b      *uint256.Int
			result *uint256.Int
		}{
			{uint256.NewInt(0), uint256.NewInt(0), uint256.NewInt(0)},
			{uint256.NewInt(1), uint256.NewInt(2), uint256.NewInt(3)},
			{uint256.NewInt(math.MaxUint64), uint256.NewInt(1), new(uint256.Int).Lsh(uint256.NewInt(1), 64)},
			{new(uint256.Int).Sub(maxU256, uint256.NewInt(1)), uint256.NewInt(1), maxU256},
		}

		for x, tt := range cases {
			sum, ok := SafeAdd256(tt.a, tt.b)
			require.True(t, ok, "unexpected overflow for test case %d", x)
			require.Equal(t, tt.result, sum)
		}
	})

	t.Run("overflow", func(t *testing.T) {
		cases := []struct {
			a *uint256.Int
			b *uint256.Int
		}{
			{maxU256, uint256.NewInt(1)},
			{uint256.NewInt(1), maxU256},
			{maxU256, maxU256},
		}

		for x, tt := range cases {
			_, ok := SafeAdd256(tt.a, tt.b)
			require.False(t, ok, "expected overflow for test case %d", x)
		}
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		a, b := uint256.NewInt(7), uint256.NewInt(8)
		sum, ok := SafeAdd256(a, b)
		require.True(t, ok)
		require.Equal(t, uint256.NewInt(15), sum)
		require.Equal(t, uint256.NewInt(7), a)
		require.Equal(t, uint256.NewInt(8), b)
	})
}

func TestSafeSub256(t *testing.T) {
	t.Parallel()

	maxU256 := new(uint256.Int).Not(uint256.NewInt(0))

	t.Run("OK", func(t *testing.T) {
		cases := []struct {
			a      *uint256.Int
			b      *uint256.Int
			result *uint256.Int
		}{
			{uint256.NewInt(0), uint256.NewInt(0), uint256.NewInt(0)},
			{uint256.NewInt(3), uint256.NewInt(1), uint256.NewInt(2)},
			{maxU256, maxU256, uint256.NewInt(0)},
			{new(uint256.Int).Lsh(uint256.NewInt(1), 64), uint256.NewInt(1), uint256.NewInt(math.MaxUint64)},
		}

		for x, tt := range cases {
			diff, ok := SafeSub256(tt.a, tt.b)
			require.True(t, ok, "unexpected underflow for test case %d", x)
			require.Equal(t, tt.result, diff)
		}
	})

	t.Run("underflow", func(t *testing.T) {
		cases := []struct {
			a *uint256.Int
			b *uint256.Int
		}{
			{uint256.NewInt(0), uint256.NewInt(1)},
			{uint256.NewInt(1), maxU256},
			{new(uint256.Int).Sub(maxU256, uint256.NewInt(1)), maxU256},
		}

		for x, tt := range cases {
			_, ok := SafeSub256(tt.a, tt.b)
			require.False(t, ok, "expected underflow for test case %d", x)
		}
	})
}
