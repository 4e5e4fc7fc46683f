package liquidity

import (
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"

	binmath "binsim/internal/math"
	"binsim/internal/state"
)

// Strategy selects the weight curve used to spread liquidity across bins.
type Strategy string

const (
	StrategyUniform      Strategy = "uniform"
	StrategyConcentrated Strategy = "concentrated"
	StrategyWide         Strategy = "wide"
	StrategyAsymmetric   Strategy = "asymmetric"
	StrategyCustom       Strategy = "custom"
)

// weightScale fixes normalized float weights to integer fractions
// before any committed amount math.
const weightScale = 1_000_000

// DefaultConcentrationFactor is used when a concentrated config leaves
// the factor unset.
const DefaultConcentrationFactor = 0.8

// DistributionConfig describes how to spread a deposit across bins.
type DistributionConfig struct {
	CenterBinID         int32
	BinCount            int
	Strategy            Strategy
	ConcentrationFactor float64   // concentrated only, (0,1]
	CustomWeights       []float64 // custom only, length must equal BinCount
}

// Weights computes the normalized weight vector for the config. The
// result always sums to 1 (within float tolerance); index 0 is the
// lowest bin id of the range.
func Weights(cfg DistributionConfig) ([]float64, error) {
	if cfg.BinCount <= 0 {
		return nil, fmt.Errorf("bin count must be positive, got %d", cfg.BinCount)
	}

	n := cfg.BinCount
	half := n / 2
	raw := make([]float64, n)

	switch cfg.Strategy {
	case StrategyUniform, "":
		for i := range raw {
			raw[i] = 1
		}

	case StrategyConcentrated:
		factor := cfg.ConcentrationFactor
		if factor == 0 {
			factor = DefaultConcentrationFactor
		}
		if factor < 0 || factor > 1 {
			return nil, fmt.Errorf("concentration factor %g outside (0,1]", factor)
		}
		sigma := (1 - factor) * float64(n) / 4
		for i := range raw {
			d := float64(i - half)
			if sigma == 0 {
				// Fully concentrated: everything lands on the center bin.
				if i == half {
					raw[i] = 1
				}
				continue
			}
			raw[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		}

	case StrategyWide:
		for i := range raw {
			d := math.Abs(float64(i - half))
			raw[i] = 0.5 + d/float64(n)
		}

	case StrategyAsymmetric:
		maxOff := float64(half)
		if maxOff == 0 {
			maxOff = 1
		}
		for i := range raw {
			d := float64(i - half)
			if d <= 0 {
				raw[i] = math.Max(0.1, 1-(-d/maxOff)*0.5)
			} else {
				raw[i] = math.Max(0.05, 1-(d/maxOff)*0.8)
			}
		}

	case StrategyCustom:
		if len(cfg.CustomWeights) != n {
			return nil, fmt.Errorf("custom weights length %d != bin count %d", len(cfg.CustomWeights), n)
		}
		for i, w := range cfg.CustomWeights {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("custom weight %d is invalid: %g", i, w)
			}
			raw[i] = w
		}

	default:
		return nil, fmt.Errorf("unknown distribution strategy %q", cfg.Strategy)
	}

	sum := 0.0
	for _, w := range raw {
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("strategy %q produced no positive weight", cfg.Strategy)
	}
	for i := range raw {
		raw[i] /= sum
	}
	return raw, nil
}

// Allocate splits the deposit amounts into one bin's share. The weight
// is fixed to a 1e6-scale integer fraction first, so allocations are
// exact integer math on the totals. Bins below the center receive only
// asset A, bins above only asset B, and the center bin both.
func Allocate(totalA, totalB sdkmath.Int, weight float64, binID, centerBinID int32) state.Amounts {
	frac := sdkmath.NewInt(int64(weight * weightScale))
	if frac.IsNegative() {
		frac = sdkmath.ZeroInt()
	}
	scale := sdkmath.NewInt(weightScale)

	out := state.ZeroAmounts()
	switch {
	case binID < centerBinID:
		out.A = totalA.Mul(frac).Quo(scale)
	case binID > centerBinID:
		out.B = totalB.Mul(frac).Quo(scale)
	default:
		out.A = totalA.Mul(frac).Quo(scale)
		out.B = totalB.Mul(frac).Quo(scale)
	}
	return out
}

// Distribute produces BinCount contiguous bins centered on
// CenterBinID (center bias rounds down for even counts), each carrying
// its allocation and freshly issued LP shares. Bins that end up with
// zero reserves are dropped from the result.
func Distribute(totalA, totalB sdkmath.Int, cfg DistributionConfig, binStepBps uint16) ([]state.BinState, error) {
	if totalA.IsNegative() || totalB.IsNegative() {
		return nil, fmt.Errorf("deposit amounts must be non-negative")
	}
	weights, err := Weights(cfg)
	if err != nil {
		return nil, err
	}

	startBin := cfg.CenterBinID - int32(cfg.BinCount/2)
	bins := make([]state.BinState, 0, cfg.BinCount)
	for i, w := range weights {
		binID := startBin + int32(i)
		amounts := Allocate(totalA, totalB, w, binID, cfg.CenterBinID)
		if amounts.IsZero() {
			continue
		}
		price := binmath.PriceOfBin(binID, binStepBps)
		shares := SharesForDeposit(amounts, price, nil)
		if !shares.IsPositive() {
			// Dust allocation too small to issue shares.
			continue
		}
		bins = append(bins, state.BinState{
			BinID:         binID,
			Reserves:      amounts,
			TotalLPShares: shares,
			Price:         price,
			IsActive:      binID == cfg.CenterBinID,
		})
	}
	return bins, nil
}

// OptimalBinRange returns up to maxBins evenly spaced bin ids covering
// the price range [lower, upper].
func OptimalBinRange(lower, upper sdkmath.Int, binStepBps uint16, maxBins int) ([]int32, error) {
	if !lower.IsPositive() || !upper.IsPositive() {
		return nil, fmt.Errorf("price bounds must be positive")
	}
	if lower.GT(upper) {
		return nil, fmt.Errorf("lower price exceeds upper price")
	}
	if maxBins <= 0 {
		return nil, fmt.Errorf("max bins must be positive")
	}

	lowBin := binmath.BinOfPrice(lower, binStepBps)
	highBin := binmath.BinOfPrice(upper, binStepBps)
	span := int(highBin-lowBin) + 1
	if span <= maxBins {
		out := make([]int32, 0, span)
		for id := lowBin; id <= highBin; id++ {
			out = append(out, id)
		}
		return out, nil
	}

	out := make([]int32, 0, maxBins)
	step := float64(span-1) / float64(maxBins-1)
	prev := int32(math.MinInt32)
	for i := 0; i < maxBins; i++ {
		id := lowBin + int32(math.Round(float64(i)*step))
		if id == prev {
			continue
		}
		out = append(out, id)
		prev = id
	}
	return out, nil
}
