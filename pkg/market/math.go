package market

import "math"

// Checked arithmetic for fee and expiration computation. Every overflow
// surfaces as ErrOverflow at the call site instead of wrapping.

func mulU64(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	product := a * b
	if product/a != b {
		return 0, false
	}
	return product, true
}

func mulI64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	product := a * b
	if product/a != b {
		return 0, false
	}
	return product, true
}

func addI64(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}

// pow10 returns 10^exp, refusing exponents past the uint64 range.
func pow10(exp uint8) (uint64, bool) {
	if exp > 19 {
		return 0, false
	}
	result := uint64(1)
	for i := uint8(0); i < exp; i++ {
		result *= 10
	}
	return result, true
}
