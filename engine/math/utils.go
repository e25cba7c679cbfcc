package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// MipExtent returns the size of a texture dimension at the given mip level,
// never less than 1.
func MipExtent[T constraints.Unsigned](base T, level int) T {
	return Max(base>>uint(level), 1)
}

// MipChainLength returns how many levels a full chain down to 1x1 has.
func MipChainLength[T constraints.Unsigned](width, height T) int {
	n := 1
	for d := Max(width, height); d > 1; d >>= 1 {
		n++
	}
	return n
}
