package math

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// All committed prices and amounts are 18-decimal fixed-point integers.
const (
	PriceDecimals = 18

	// BasisPointMax is the denominator for bin step and fee parameters.
	BasisPointMax = 10_000

	// binSearchBound limits BinOfPrice to bin ids in [-1e6, 1e6].
	binSearchBound = 1_000_000
)

var (
	// Scale is 10^18, the fixed-point representation of 1.0.
	Scale = sdkmath.NewIntWithDecimal(1, PriceDecimals)

	basisPointMax = sdkmath.NewInt(BasisPointMax)
)

// PriceOfBin returns (1 + binStep/10000)^binID at 18-decimal scale.
// Bin 0 is exactly Scale; negative ids are computed as the reciprocal
// of the positive power so price(-n) * price(n) ~= Scale.
// A zero bin step is a caller contract violation.
func PriceOfBin(binID int32, binStepBps uint16) sdkmath.Int {
	if binStepBps == 0 {
		panic(fmt.Sprintf("bin step must be positive, got %d", binStepBps))
	}
	if binID == 0 {
		return Scale
	}

	base := Scale.Add(sdkmath.NewInt(int64(binStepBps)).Mul(Scale).Quo(basisPointMax))

	exp := int64(binID)
	if exp < 0 {
		exp = -exp
	}

	// Exponentiation by squaring, rescaling after every multiply.
	result := Scale
	power := base
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(power).Quo(Scale)
		}
		exp >>= 1
		if exp > 0 {
			power = power.Mul(power).Quo(Scale)
		}
	}

	if binID < 0 {
		result = Scale.Mul(Scale).Quo(result)
	}
	return result
}

// BinOfPrice returns the bin id whose price is closest to the given
// price, searching [-1e6, 1e6] by binary search. Exact matches return
// immediately; ties between two equally close bins resolve to the
// lower id. Non-positive prices are a caller contract violation.
func BinOfPrice(price sdkmath.Int, binStepBps uint16) int32 {
	if price.IsNil() || !price.IsPositive() {
		panic("price must be positive")
	}

	low, high := int32(-binSearchBound), int32(binSearchBound)
	bestID := int32(0)
	bestDiff := sdkmath.Int{}

	for low <= high {
		mid := low + (high-low)/2
		midPrice := PriceOfBin(mid, binStepBps)

		diff := midPrice.Sub(price)
		if diff.IsNegative() {
			diff = diff.Neg()
		}
		if bestDiff.IsNil() || diff.LT(bestDiff) || (diff.Equal(bestDiff) && mid < bestID) {
			bestDiff = diff
			bestID = mid
		}

		switch {
		case midPrice.LT(price):
			low = mid + 1
		case midPrice.GT(price):
			high = mid - 1
		default:
			return mid
		}
	}
	return bestID
}

// IntSqrt returns the integer square root (floor) of v.
// Negative input is a caller contract violation.
func IntSqrt(v sdkmath.Int) sdkmath.Int {
	if v.IsNegative() {
		panic("sqrt of negative value")
	}
	if v.IsZero() {
		return sdkmath.ZeroInt()
	}
	return sdkmath.NewIntFromBigInt(new(big.Int).Sqrt(v.BigInt()))
}

// RelativeDiff returns |a - b| * Scale / b, the magnitude of the move
// from b to a at 18-decimal scale. Zero b yields zero.
func RelativeDiff(a, b sdkmath.Int) sdkmath.Int {
	if b.IsZero() {
		return sdkmath.ZeroInt()
	}
	diff := a.Sub(b)
	if diff.IsNegative() {
		diff = diff.Neg()
	}
	return diff.Mul(Scale).Quo(b)
}
