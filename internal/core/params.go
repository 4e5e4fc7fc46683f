package core

import (
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"

	"binsim/internal/liquidity"
	"binsim/internal/swap"
)

// DistributionHint asks an operation to spread a deposit across a bin
// range instead of a single bin.
type DistributionHint struct {
	CenterBinID         *int32 // nil: the pool's active bin
	BinCount            int
	Strategy            liquidity.Strategy
	ConcentrationFactor float64
	CustomWeights       []float64
}

// CreatePoolParams describes a createPool request.
type CreatePoolParams struct {
	AssetA           string
	AssetB           string
	BinStepBps       uint16
	BaseFactor       uint16
	ProtocolShareBps uint16
	ActiveBinID      int32

	// Initial deposit, optional. Distributed around the active bin.
	AmountA      sdkmath.Int
	AmountB      sdkmath.Int
	Distribution *DistributionHint

	Deadline time.Time
}

// AddLiquidityParams describes an addLiquidity request. With a
// Distribution hint the deposit is spread across bins; otherwise it
// lands in BinID (nil: the active bin).
type AddLiquidityParams struct {
	PoolID       string
	AmountA      sdkmath.Int
	AmountB      sdkmath.Int
	AmountAMin   sdkmath.Int
	AmountBMin   sdkmath.Int
	BinID        *int32
	Distribution *DistributionHint
	Deadline     time.Time
}

// BinShares names a share amount to burn in one bin.
type BinShares struct {
	BinID  int32
	Shares sdkmath.Int
}

// RemoveLiquidityParams describes a removeLiquidity request.
type RemoveLiquidityParams struct {
	PoolID     string
	Burns      []BinShares
	AmountAMin sdkmath.Int
	AmountBMin sdkmath.Int
	Deadline   time.Time
}

// SwapParams describes a swap request. SlippageTolerance is a
// 1e18-scaled relative price move; nil uses the 5% default.
type SwapParams struct {
	PoolID            string
	AmountIn          sdkmath.Int
	Direction         swap.Direction
	AmountOutMin      sdkmath.Int
	SlippageTolerance sdkmath.Int
	Deadline          time.Time
}

func (p CreatePoolParams) record() map[string]string {
	m := map[string]string{
		"asset_a":       p.AssetA,
		"asset_b":       p.AssetB,
		"bin_step_bps":  strconv.FormatUint(uint64(p.BinStepBps), 10),
		"active_bin_id": strconv.FormatInt(int64(p.ActiveBinID), 10),
	}
	if !p.AmountA.IsNil() && p.AmountA.IsPositive() {
		m["amount_a"] = p.AmountA.String()
	}
	if !p.AmountB.IsNil() && p.AmountB.IsPositive() {
		m["amount_b"] = p.AmountB.String()
	}
	return m
}

func (p AddLiquidityParams) record() map[string]string {
	m := map[string]string{
		"pool_id":  p.PoolID,
		"amount_a": intString(p.AmountA),
		"amount_b": intString(p.AmountB),
	}
	if p.BinID != nil {
		m["bin_id"] = strconv.FormatInt(int64(*p.BinID), 10)
	}
	if p.Distribution != nil {
		m["strategy"] = string(p.Distribution.Strategy)
		m["bin_count"] = strconv.Itoa(p.Distribution.BinCount)
	}
	return m
}

func (p RemoveLiquidityParams) record() map[string]string {
	total := sdkmath.ZeroInt()
	for _, b := range p.Burns {
		if !b.Shares.IsNil() {
			total = total.Add(b.Shares)
		}
	}
	return map[string]string{
		"pool_id":      p.PoolID,
		"bins":         strconv.Itoa(len(p.Burns)),
		"total_shares": total.String(),
	}
}

func (p SwapParams) record() map[string]string {
	return map[string]string{
		"pool_id":   p.PoolID,
		"amount_in": intString(p.AmountIn),
		"direction": string(p.Direction),
	}
}

func intString(v sdkmath.Int) string {
	if v.IsNil() {
		return "0"
	}
	return v.String()
}
