package swap

import (
	"testing"

	sdkmath "cosmossdk.io/math"

	binmath "binsim/internal/math"
	"binsim/internal/state"
	"binsim/internal/testutil"
)

func TestSimulateSingleBinFill(t *testing.T) {
	pool := testutil.TestPool("ETH-USDC-25", 0, []int32{-1, 0, 1}, testutil.Unit(100))

	amountIn := testutil.Unit(10)
	res := Simulate(pool, amountIn, DirectionAForB, sdkmath.Int{})

	// out = 100 * 10 / (100 + 10)
	wantOut := testutil.Unit(100).Mul(amountIn).Quo(testutil.Unit(110))
	if !res.AmountOut.Equal(wantOut) {
		t.Errorf("amount out = %s, want %s", res.AmountOut, wantOut)
	}
	if !res.AmountInConsumed.Equal(amountIn) {
		t.Errorf("consumed = %s, want %s", res.AmountInConsumed, amountIn)
	}
	if len(res.AffectedBins) != 1 || res.AffectedBins[0].BinID != 0 {
		t.Errorf("affected bins = %+v, want single trade in bin 0", res.AffectedBins)
	}
	if res.NewActiveBinID != 0 {
		t.Errorf("active bin moved to %d on a partial fill", res.NewActiveBinID)
	}
	if res.HopBoundReached {
		t.Error("hop bound flagged on a single-bin fill")
	}
}

func TestSimulateOutputMonotonicInInput(t *testing.T) {
	pool := testutil.TestPool("ETH-USDC-25", 0, []int32{-2, -1, 0, 1, 2}, testutil.Unit(100))

	prev := sdkmath.ZeroInt()
	for _, n := range []int64{1, 5, 20, 80, 200} {
		res := Simulate(pool, testutil.Unit(n), DirectionAForB, sdkmath.Int{})
		if res.AmountOut.LT(prev) {
			t.Errorf("amountIn %d: output %s below previous %s", n, res.AmountOut, prev)
		}
		prev = res.AmountOut
	}
}

func TestSimulateZeroLiquidity(t *testing.T) {
	pool := testutil.TestPool("ETH-USDC-25", 0, nil, sdkmath.ZeroInt())

	res := Simulate(pool, testutil.Unit(10), DirectionAForB, sdkmath.Int{})
	if !res.AmountOut.IsZero() {
		t.Errorf("amount out = %s, want 0", res.AmountOut)
	}
	if !res.EffectivePrice.IsZero() {
		t.Errorf("effective price = %s, want 0 when nothing filled", res.EffectivePrice)
	}
	if !res.HopBoundReached {
		t.Error("walking an empty pool should hit the hop bound")
	}
}

// doubleSidedPool seeds every listed bin with both assets so the walk
// can fill across several bins in either direction.
func doubleSidedPool(binIDs []int32, perSide sdkmath.Int) *state.PoolState {
	pool := testutil.TestPool("ETH-USDC-25", 0, nil, sdkmath.ZeroInt())
	for _, id := range binIDs {
		pool.Bins[id] = state.BinState{
			BinID:         id,
			Reserves:      state.NewAmounts(perSide, perSide),
			TotalLPShares: perSide,
			Price:         binmath.PriceOfBin(id, pool.Metadata.BinStepBps),
			IsActive:      id == 0,
		}
	}
	pool.RecomputeTotals()
	return pool
}

func TestSimulateCrossesBins(t *testing.T) {
	pool := doubleSidedPool([]int32{0, 1, 2}, testutil.Unit(10))

	res := Simulate(pool, testutil.Unit(25), DirectionAForB, sdkmath.Int{})
	if len(res.AffectedBins) != 3 {
		t.Fatalf("touched %d bins, want 3", len(res.AffectedBins))
	}
	for i, trade := range res.AffectedBins {
		if trade.BinID != int32(i) {
			t.Errorf("trade %d in bin %d, want ascending from the active bin", i, trade.BinID)
		}
	}
	// 10 in bins 0 and 1, the remaining 5 in bin 2.
	if !res.AffectedBins[2].AmountIn.Equal(testutil.Unit(5)) {
		t.Errorf("final bin consumed %s, want %s", res.AffectedBins[2].AmountIn, testutil.Unit(5))
	}
	if res.NewActiveBinID != 2 {
		t.Errorf("active bin = %d, want 2", res.NewActiveBinID)
	}
	if res.HopBoundReached {
		t.Error("hop bound flagged on a fully filled walk")
	}
}

func TestSimulateDirectionBForAWalksDown(t *testing.T) {
	pool := doubleSidedPool([]int32{-2, -1, 0}, testutil.Unit(10))

	res := Simulate(pool, testutil.Unit(25), DirectionBForA, sdkmath.Int{})
	if len(res.AffectedBins) != 3 {
		t.Fatalf("touched %d bins, want 3", len(res.AffectedBins))
	}
	for i := 1; i < len(res.AffectedBins); i++ {
		if res.AffectedBins[i].BinID >= res.AffectedBins[i-1].BinID {
			t.Errorf("walk not descending: %v", res.AffectedBins)
		}
	}
	if res.NewActiveBinID != -2 {
		t.Errorf("active bin = %d, want -2", res.NewActiveBinID)
	}
}

func TestSimulateHopBound(t *testing.T) {
	// Liquidity only in the active bin; a large order exhausts it and
	// then walks empty bins until the bound.
	pool := testutil.TestPool("ETH-USDC-25", 0, []int32{0}, testutil.Unit(1))

	res := Simulate(pool, testutil.Unit(1000), DirectionAForB, sdkmath.Int{})
	if !res.HopBoundReached {
		t.Fatal("expected hop bound to be reached")
	}
	if res.NewActiveBinID != MaxBinHops {
		t.Errorf("new active bin = %d, want clamped to %d", res.NewActiveBinID, MaxBinHops)
	}
	if res.AmountInConsumed.GTE(testutil.Unit(1000)) {
		t.Error("bounded walk should leave input unconsumed")
	}
}

func TestSimulateSkipsBinsWithoutOutput(t *testing.T) {
	pool := doubleSidedPool([]int32{0, 2}, testutil.Unit(10))
	// Bin 1 holds only the input-side asset: it cannot pay out, so the
	// walk must pass over it without consuming input there.
	pool.Bins[1] = state.BinState{
		BinID:         1,
		Reserves:      state.NewAmounts(testutil.Unit(10), sdkmath.ZeroInt()),
		TotalLPShares: testutil.Unit(10),
		Price:         binmath.PriceOfBin(1, pool.Metadata.BinStepBps),
	}
	pool.RecomputeTotals()

	res := Simulate(pool, testutil.Unit(15), DirectionAForB, sdkmath.Int{})
	for _, trade := range res.AffectedBins {
		if trade.BinID == 1 {
			t.Errorf("bin without output-side reserves was filled: %+v", trade)
		}
	}
	// The walk continues past bin 1 into bin 2.
	last := res.AffectedBins[len(res.AffectedBins)-1]
	if last.BinID != 2 {
		t.Errorf("walk ended in bin %d, want 2", last.BinID)
	}
	if !res.AmountInConsumed.Equal(testutil.Unit(15)) {
		t.Errorf("consumed %s, want the full input", res.AmountInConsumed)
	}
}

func TestSimulatePriceImpactAndSlippageFlag(t *testing.T) {
	pool := testutil.TestPool("ETH-USDC-25", 0, []int32{0, 1, 2, 3, 4, 5}, testutil.Unit(1))

	res := Simulate(pool, testutil.Unit(4), DirectionAForB, sdkmath.Int{})
	if !res.PriceImpact.IsPositive() {
		t.Fatal("multi-bin walk should report positive price impact")
	}

	tight := binmath.Scale.QuoRaw(100_000) // 0.001%
	res = Simulate(pool, testutil.Unit(4), DirectionAForB, tight)
	if !res.SlippageExceeded {
		t.Error("tight tolerance should flag slippage")
	}

	loose := binmath.Scale // 100%
	res = Simulate(pool, testutil.Unit(4), DirectionAForB, loose)
	if res.SlippageExceeded {
		t.Error("loose tolerance should not flag slippage")
	}
}

func TestApplyDeductsBothSides(t *testing.T) {
	pool := testutil.TestPool("ETH-USDC-25", 0, []int32{0}, testutil.Unit(100))

	res := Simulate(pool, testutil.Unit(10), DirectionAForB, sdkmath.Int{})
	before := pool.Bins[0].Reserves
	Apply(pool, res.AffectedBins, DirectionAForB)
	after := pool.Bins[0].Reserves

	// Input side grows from the caller's perspective but Apply only
	// removes what the walk consumed and produced.
	if !after.A.Equal(before.A.Sub(res.AmountInConsumed)) {
		t.Errorf("A side: got %s, want %s", after.A, before.A.Sub(res.AmountInConsumed))
	}
	if !after.B.Equal(before.B.Sub(res.AmountOut)) {
		t.Errorf("B side: got %s, want %s", after.B, before.B.Sub(res.AmountOut))
	}
}

func TestSimulateDoesNotMutatePool(t *testing.T) {
	pool := testutil.TestPool("ETH-USDC-25", 0, []int32{-1, 0, 1}, testutil.Unit(100))
	before := pool.Clone()

	Simulate(pool, testutil.Unit(50), DirectionAForB, sdkmath.Int{})

	for id, bin := range before.Bins {
		if !pool.Bins[id].Reserves.Equal(bin.Reserves) {
			t.Errorf("bin %d reserves changed during simulation", id)
		}
	}
}
