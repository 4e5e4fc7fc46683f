// Package scenario builds named pool setups for seeding the store.
package scenario

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"binsim/internal/liquidity"
	"binsim/internal/state"
)

// GeneratorConfig describes one generated pool scenario.
type GeneratorConfig struct {
	Name        string
	Description string

	AssetA           string
	AssetB           string
	BinStepBps       uint16
	BaseFactor       uint16
	ProtocolShareBps uint16

	ActiveBinID         int32
	BinCount            int
	Strategy            liquidity.Strategy
	ConcentrationFactor float64

	// Total liquidity spread over the range.
	TotalA sdkmath.Int
	TotalB sdkmath.Int

	// SeedUserID, when set, owns every generated bin's shares.
	SeedUserID string
}

// Generate produces a loadable scenario from the config using the
// distribution engine, so generated share totals always satisfy the
// store's bin invariants.
func Generate(cfg GeneratorConfig) (state.PoolScenario, error) {
	if cfg.AssetA == "" || cfg.AssetB == "" {
		return state.PoolScenario{}, fmt.Errorf("scenario %q: asset identifiers must be set", cfg.Name)
	}
	if cfg.BinStepBps == 0 {
		return state.PoolScenario{}, fmt.Errorf("scenario %q: bin step must be positive", cfg.Name)
	}
	baseFactor := cfg.BaseFactor
	if baseFactor == 0 {
		baseFactor = 10_000
	}

	bins, err := liquidity.Distribute(cfg.TotalA, cfg.TotalB, liquidity.DistributionConfig{
		CenterBinID:         cfg.ActiveBinID,
		BinCount:            cfg.BinCount,
		Strategy:            cfg.Strategy,
		ConcentrationFactor: cfg.ConcentrationFactor,
	}, cfg.BinStepBps)
	if err != nil {
		return state.PoolScenario{}, fmt.Errorf("scenario %q: %w", cfg.Name, err)
	}

	sc := state.PoolScenario{
		Name:        cfg.Name,
		Description: cfg.Description,
		PoolID:      fmt.Sprintf("%s-%s-%d", cfg.AssetA, cfg.AssetB, cfg.BinStepBps),
		Metadata: state.PoolMetadata{
			AssetA:           cfg.AssetA,
			AssetB:           cfg.AssetB,
			BinStepBps:       cfg.BinStepBps,
			BaseFactor:       baseFactor,
			ProtocolShareBps: cfg.ProtocolShareBps,
		},
		ActiveBinID: cfg.ActiveBinID,
	}
	var seedShares []state.ScenarioShare
	for _, bin := range bins {
		sc.Bins = append(sc.Bins, state.ScenarioBin{
			BinID:    bin.BinID,
			Reserves: bin.Reserves,
			LPShares: bin.TotalLPShares,
		})
		if cfg.SeedUserID != "" {
			seedShares = append(seedShares, state.ScenarioShare{
				BinID:    bin.BinID,
				LPShares: bin.TotalLPShares,
			})
		}
	}
	if len(seedShares) > 0 {
		sc.Positions = []state.ScenarioPosition{{
			UserID: cfg.SeedUserID,
			Shares: seedShares,
		}}
	}
	return sc, nil
}

// Presets returns the built-in scenarios: one pool per distribution
// shape plus a thin low-liquidity pool.
func Presets() ([]state.PoolScenario, error) {
	unit := sdkmath.NewIntWithDecimal(1, 18)

	configs := []GeneratorConfig{
		{
			Name:        "balanced_eth_usdc",
			Description: "uniform liquidity around the current price",
			AssetA:      "ETH", AssetB: "USDC",
			BinStepBps: 25, ProtocolShareBps: 1000,
			ActiveBinID: 0, BinCount: 11,
			Strategy: liquidity.StrategyUniform,
			TotalA:   unit.MulRaw(100), TotalB: unit.MulRaw(100),
			SeedUserID: "seed-lp-1",
		},
		{
			Name:        "concentrated_eth_usdt",
			Description: "tight gaussian peak at the active bin",
			AssetA:      "ETH", AssetB: "USDT",
			BinStepBps: 10, ProtocolShareBps: 1000,
			ActiveBinID: 0, BinCount: 21,
			Strategy:            liquidity.StrategyConcentrated,
			ConcentrationFactor: 0.8,
			TotalA:              unit.MulRaw(200), TotalB: unit.MulRaw(200),
			SeedUserID: "seed-lp-1",
		},
		{
			Name:        "wide_btc_usdc",
			Description: "edge-weighted spread for volatile pairs",
			AssetA:      "BTC", AssetB: "USDC",
			BinStepBps: 50, ProtocolShareBps: 1000,
			ActiveBinID: 0, BinCount: 31,
			Strategy: liquidity.StrategyWide,
			TotalA:   unit.MulRaw(50), TotalB: unit.MulRaw(50),
			SeedUserID: "seed-lp-2",
		},
		{
			Name:        "asymmetric_sol_usdc",
			Description: "directional bias: deeper liquidity below the price",
			AssetA:      "SOL", AssetB: "USDC",
			BinStepBps: 20, ProtocolShareBps: 1000,
			ActiveBinID: 0, BinCount: 15,
			Strategy: liquidity.StrategyAsymmetric,
			TotalA:   unit.MulRaw(80), TotalB: unit.MulRaw(40),
			SeedUserID: "seed-lp-2",
		},
		{
			Name:        "low_liquidity_arb_usdc",
			Description: "thin pool for exhaustion and hop-bound behavior",
			AssetA:      "ARB", AssetB: "USDC",
			BinStepBps: 100, ProtocolShareBps: 1000,
			ActiveBinID: 0, BinCount: 3,
			Strategy: liquidity.StrategyUniform,
			TotalA:   unit.QuoRaw(100), TotalB: unit.QuoRaw(100),
			SeedUserID: "seed-lp-3",
		},
	}

	out := make([]state.PoolScenario, 0, len(configs))
	for _, cfg := range configs {
		sc, err := Generate(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}
