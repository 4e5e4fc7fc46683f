package liquidity

import (
	sdkmath "cosmossdk.io/math"

	binmath "binsim/internal/math"
	"binsim/internal/state"
)

// SharesForDeposit computes the LP shares issued for a deposit into a
// bin at the given price. For the first deposit into an empty bin the
// issue is the geometric mean of the two asset values (asset A valued
// in B units via the bin price); a single-sided first deposit issues
// that side's value directly. Subsequent deposits issue shares at the
// minimum contribution ratio over the sides the bin already holds, so
// lopsided deposits cannot extract value from existing holders.
func SharesForDeposit(amounts state.Amounts, price sdkmath.Int, existing *state.BinState) sdkmath.Int {
	if amounts.IsNegative() {
		return sdkmath.ZeroInt()
	}

	if existing == nil || existing.TotalLPShares.IsZero() {
		return initialShares(amounts, price)
	}

	ratio := sdkmath.Int{}
	if existing.Reserves.A.IsPositive() {
		ratio = amounts.A.Mul(binmath.Scale).Quo(existing.Reserves.A)
	}
	if existing.Reserves.B.IsPositive() {
		r := amounts.B.Mul(binmath.Scale).Quo(existing.Reserves.B)
		if ratio.IsNil() || r.LT(ratio) {
			ratio = r
		}
	}
	if ratio.IsNil() || !ratio.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return existing.TotalLPShares.Mul(ratio).Quo(binmath.Scale)
}

func initialShares(amounts state.Amounts, price sdkmath.Int) sdkmath.Int {
	valueA := amounts.A.Mul(price).Quo(binmath.Scale)
	valueB := amounts.B

	switch {
	case valueA.IsPositive() && valueB.IsPositive():
		return binmath.IntSqrt(valueA.Mul(valueB))
	case valueA.IsPositive():
		return valueA
	case valueB.IsPositive():
		return valueB
	default:
		return sdkmath.ZeroInt()
	}
}

// RemoveAmounts returns the reserves paid out for burning the given
// shares: the share-proportional slice of each side. Burning every
// outstanding share returns the full reserves exactly.
func RemoveAmounts(shares sdkmath.Int, bin state.BinState) state.Amounts {
	if !shares.IsPositive() || !bin.TotalLPShares.IsPositive() {
		return state.ZeroAmounts()
	}
	if shares.GTE(bin.TotalLPShares) {
		return bin.Reserves
	}
	return state.Amounts{
		A: bin.Reserves.A.Mul(shares).Quo(bin.TotalLPShares),
		B: bin.Reserves.B.Mul(shares).Quo(bin.TotalLPShares),
	}
}
