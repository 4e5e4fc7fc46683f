package swap

import (
	sdkmath "cosmossdk.io/math"

	binmath "binsim/internal/math"
	"binsim/internal/state"
)

// Direction selects which asset is being sold into the pool.
type Direction string

const (
	// DirectionAForB sells asset A for asset B, walking toward higher bins.
	DirectionAForB Direction = "a_for_b"
	// DirectionBForA sells asset B for asset A, walking toward lower bins.
	DirectionBForA Direction = "b_for_a"
)

// MaxBinHops bounds the walk away from the starting active bin. A walk
// that exceeds it stops with whatever output has accrued.
const MaxBinHops = 100

// BinTrade records the portion of a swap filled by one bin.
type BinTrade struct {
	BinID     int32
	AmountIn  sdkmath.Int
	AmountOut sdkmath.Int
}

// Result is the outcome of a simulated swap. SlippageExceeded and
// HopBoundReached are advisory; the simulation itself never errors.
type Result struct {
	AmountOut        sdkmath.Int
	AmountInConsumed sdkmath.Int
	PriceImpact      sdkmath.Int // 1e18 scale, relative move from the start price
	EffectivePrice   sdkmath.Int // amountIn/amountOut at 1e18 scale, zero when no output
	AffectedBins     []BinTrade
	NewActiveBinID   int32
	SlippageExceeded bool
	HopBoundReached  bool
}

// Simulate walks the pool's bins from the active bin in the swap
// direction, filling against each bin with the in-bin constant-product
// rule out = outputReserve*in/(availableReserve+in), where the
// available reserve is the bin's input-side asset. A bin whose
// input-side reserve is exhausted advances the walk; bins with no
// input-side reserve are skipped. The pool is not mutated.
func Simulate(pool *state.PoolState, amountIn sdkmath.Int, dir Direction, slippageTolerance sdkmath.Int) Result {
	res := Result{
		AmountOut:        sdkmath.ZeroInt(),
		AmountInConsumed: sdkmath.ZeroInt(),
		PriceImpact:      sdkmath.ZeroInt(),
		EffectivePrice:   sdkmath.ZeroInt(),
		NewActiveBinID:   pool.ActiveBinID,
	}
	if !amountIn.IsPositive() {
		return res
	}

	step := int32(1)
	if dir == DirectionBForA {
		step = -1
	}

	startBinID := pool.ActiveBinID
	currentBinID := startBinID
	remaining := amountIn

	for remaining.IsPositive() {
		if hops := currentBinID - startBinID; hops > MaxBinHops || hops < -MaxBinHops {
			res.HopBoundReached = true
			break
		}

		bin, ok := pool.Bins[currentBinID]
		if !ok {
			currentBinID += step
			continue
		}

		available, output := sideReserves(bin, dir)
		if !available.IsPositive() || !output.IsPositive() {
			// A bin that cannot produce output fills nothing; consuming
			// input against it would strand user funds.
			currentBinID += step
			continue
		}

		inHere := sdkmath.MinInt(remaining, available)
		outHere := output.Mul(inHere).Quo(available.Add(inHere))

		res.AffectedBins = append(res.AffectedBins, BinTrade{
			BinID:     bin.BinID,
			AmountIn:  inHere,
			AmountOut: outHere,
		})
		res.AmountOut = res.AmountOut.Add(outHere)
		res.AmountInConsumed = res.AmountInConsumed.Add(inHere)
		remaining = remaining.Sub(inHere)

		if inHere.Equal(available) {
			currentBinID += step
		}
	}

	res.NewActiveBinID = endBinID(currentBinID, startBinID, step, res.HopBoundReached)

	startPrice := binmath.PriceOfBin(startBinID, pool.Metadata.BinStepBps)
	endPrice := binmath.PriceOfBin(res.NewActiveBinID, pool.Metadata.BinStepBps)
	res.PriceImpact = binmath.RelativeDiff(endPrice, startPrice)

	if res.AmountOut.IsPositive() {
		res.EffectivePrice = amountIn.Mul(binmath.Scale).Quo(res.AmountOut)
	}
	if !slippageTolerance.IsNil() && res.PriceImpact.GT(slippageTolerance) {
		res.SlippageExceeded = true
	}
	return res
}

func sideReserves(bin state.BinState, dir Direction) (available, output sdkmath.Int) {
	if dir == DirectionBForA {
		return bin.Reserves.B, bin.Reserves.A
	}
	return bin.Reserves.A, bin.Reserves.B
}

// endBinID clamps the walk cursor back inside the hop bound so the new
// active bin is always a bin the walk actually visited.
func endBinID(current, start, step int32, bounded bool) int32 {
	if bounded {
		return start + step*MaxBinHops
	}
	return current
}

// Apply mutates the pool's bins per the recorded bin trades: each
// bin's input-side reserve loses the consumed input and its output-side
// reserve loses the produced output. Callers re-derive totals and
// validate before committing.
func Apply(pool *state.PoolState, trades []BinTrade, dir Direction) {
	for _, trade := range trades {
		bin, ok := pool.Bins[trade.BinID]
		if !ok {
			continue
		}
		if dir == DirectionBForA {
			bin.Reserves.B = bin.Reserves.B.Sub(trade.AmountIn)
			bin.Reserves.A = bin.Reserves.A.Sub(trade.AmountOut)
		} else {
			bin.Reserves.A = bin.Reserves.A.Sub(trade.AmountIn)
			bin.Reserves.B = bin.Reserves.B.Sub(trade.AmountOut)
		}
		pool.Bins[trade.BinID] = bin
	}
}
