package config

import (
	"fmt"
	"time"

	"binsim/internal/state"
)

// Config is the explicit simulation configuration. There is no global
// config cache: every component receives the values it needs through
// its constructor.
type Config struct {
	// FailureRate is the base probability that an operation draws a
	// simulated failure, in [0,1].
	FailureRate float64

	// LatencyMean is the average simulated confirmation delay. Zero
	// disables the latency wait entirely.
	LatencyMean time.Duration

	// MaxTransactions caps the transaction log; zero means unbounded.
	MaxTransactions int

	// EnableRealisticGas randomizes gas price in 1-10 gwei. When off,
	// gas price is a constant 1 wei.
	EnableRealisticGas bool

	// EnablePriceImpact computes price impact on swaps. When off,
	// impact is reported as zero and slippage never trips.
	EnablePriceImpact bool

	// EnableSlippageSimulation aborts swaps whose simulated price
	// impact exceeds the caller's tolerance.
	EnableSlippageSimulation bool

	// EnablePersistence turns on the Postgres snapshot store.
	EnablePersistence bool

	// PersistenceKey names the snapshot row this instance saves to.
	PersistenceKey string

	// AutoPersist runs the background autosave worker.
	AutoPersist bool

	// AutoPersistInterval is the autosave period.
	AutoPersistInterval time.Duration

	// Seed feeds every random generator; 0 means derive from the clock.
	Seed int64

	// InitialScenarios are loaded into the store at startup.
	InitialScenarios []state.PoolScenario
}

// Default is the standard simulation profile: visible failure and
// latency behavior for exercising client code.
func Default() Config {
	return Config{
		FailureRate:              0.05,
		LatencyMean:              time.Second,
		MaxTransactions:          10_000,
		EnableRealisticGas:       true,
		EnablePriceImpact:        true,
		EnableSlippageSimulation: true,
		PersistenceKey:           "binsim",
		AutoPersistInterval:      30 * time.Second,
	}
}

// Development keeps faults visible but shortens the latency wait.
func Development() Config {
	cfg := Default()
	cfg.FailureRate = 0.1
	cfg.LatencyMean = 500 * time.Millisecond
	return cfg
}

// Testing disables all stochastic behavior so tests are deterministic.
func Testing() Config {
	cfg := Default()
	cfg.FailureRate = 0
	cfg.LatencyMean = 0
	cfg.EnableRealisticGas = false
	cfg.Seed = 1
	return cfg
}

// Staging mirrors production-like rates with moderate latency.
func Staging() Config {
	cfg := Default()
	cfg.FailureRate = 0.02
	cfg.LatencyMean = 750 * time.Millisecond
	return cfg
}

// Engine returns the simulation settings in snapshot form, stamped
// onto the state store so saved snapshots record the configuration
// they were produced under.
func (c Config) Engine() state.EngineConfig {
	return state.EngineConfig{
		FailureRate:              c.FailureRate,
		LatencyMean:              c.LatencyMean,
		MaxTransactions:          c.MaxTransactions,
		EnableRealisticGas:       c.EnableRealisticGas,
		EnablePriceImpact:        c.EnablePriceImpact,
		EnableSlippageSimulation: c.EnableSlippageSimulation,
		Seed:                     c.Seed,
	}
}

// Validate checks value ranges and returns advisory warnings for
// suspicious but legal combinations.
func (c Config) Validate() ([]string, error) {
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return nil, fmt.Errorf("failure rate %g outside [0,1]", c.FailureRate)
	}
	if c.LatencyMean < 0 {
		return nil, fmt.Errorf("latency mean must be non-negative, got %s", c.LatencyMean)
	}
	if c.MaxTransactions < 0 {
		return nil, fmt.Errorf("max transactions must be non-negative, got %d", c.MaxTransactions)
	}
	if c.AutoPersistInterval < 0 {
		return nil, fmt.Errorf("autosave interval must be non-negative, got %s", c.AutoPersistInterval)
	}

	var warnings []string
	if c.EnableSlippageSimulation && c.FailureRate == 0 {
		warnings = append(warnings, "slippage simulation enabled but failure rate is zero")
	}
	if c.EnableSlippageSimulation && !c.EnablePriceImpact {
		warnings = append(warnings, "slippage simulation enabled but price impact is disabled; slippage will never trip")
	}
	if c.EnablePersistence && c.PersistenceKey == "" {
		warnings = append(warnings, "persistence enabled without a persistence key")
	}
	if c.AutoPersist && !c.EnablePersistence {
		warnings = append(warnings, "autosave enabled but persistence is disabled")
	}
	if c.FailureRate > 0.5 {
		warnings = append(warnings, fmt.Sprintf("failure rate %g will fail most operations", c.FailureRate))
	}
	return warnings, nil
}
