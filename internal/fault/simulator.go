package fault

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
)

// Deterministic trigger thresholds. Requests crossing them always fail
// with the same kind, regardless of the random draw, so extreme inputs
// are reproducible in tests.
var (
	// largeAmount: deposits above 1e18 base units trip InsufficientBalance.
	largeAmount = sdkmath.NewIntWithDecimal(1, 18)
	// largeSwap: swap inputs above 1e17 base units trip SlippageExceeded.
	largeSwap = sdkmath.NewIntWithDecimal(1, 17)
	// nearDeadline: deadlines within 30s trip DeadlineExceeded.
	nearDeadline = 30 * time.Second
)

// OpConfig is the failure policy for one operation.
type OpConfig struct {
	FailureRate  float64
	Distribution map[Kind]float64
}

// Scenario is a named environment that reshapes failure behavior:
// per-operation overrides plus global condition multipliers.
type Scenario struct {
	Name               string
	Description        string
	Operations         map[string]OpConfig
	NetworkInstability bool
	HighGasPrices      bool
	LowLiquidity       bool
}

// Simulator draws simulated failures for operations. All randomness
// comes from the injected generator, so a fixed seed replays the same
// fault sequence.
type Simulator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	ops      map[string]OpConfig
	scenario *Scenario
	now      func() time.Time
	msgIndex int
}

// NewSimulator builds a simulator with the default per-operation
// policies at the given base failure rate.
func NewSimulator(failureRate float64, rng *rand.Rand) *Simulator {
	return &Simulator{
		rng: rng,
		ops: defaultOpConfigs(failureRate),
		now: time.Now,
	}
}

func defaultOpConfigs(rate float64) map[string]OpConfig {
	return map[string]OpConfig{
		"swap": {
			FailureRate: rate,
			Distribution: map[Kind]float64{
				KindSlippageExceeded:      0.4,
				KindInsufficientLiquidity: 0.3,
				KindNetworkError:          0.2,
				KindDeadlineExceeded:      0.1,
			},
		},
		"addLiquidity": {
			FailureRate: rate,
			Distribution: map[Kind]float64{
				KindInsufficientBalance: 0.4,
				KindSlippageExceeded:    0.25,
				KindNetworkError:        0.2,
				KindGasEstimationFailed: 0.15,
			},
		},
		"removeLiquidity": {
			FailureRate: rate,
			Distribution: map[Kind]float64{
				KindInsufficientLiquidity: 0.4,
				KindNetworkError:          0.3,
				KindGasEstimationFailed:   0.3,
			},
		},
		"createPool": {
			FailureRate: rate,
			Distribution: map[Kind]float64{
				KindNetworkError:        0.5,
				KindGasEstimationFailed: 0.5,
			},
		},
	}
}

// SetRate overrides the failure rate for one operation.
func (s *Simulator) SetRate(op string, rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("failure rate %g outside [0,1]", rate)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.ops[op]
	cfg.FailureRate = rate
	s.ops[op] = cfg
	return nil
}

// SetDistribution overrides the kind distribution for one operation.
func (s *Simulator) SetDistribution(op string, dist map[Kind]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.ops[op]
	cfg.Distribution = dist
	s.ops[op] = cfg
}

// LoadScenario activates a scenario; ClearScenario reverts to the base
// policies.
func (s *Simulator) LoadScenario(sc Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := sc
	s.scenario = &copied
}

func (s *Simulator) ClearScenario() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenario = nil
}

// SetClock overrides the time source (tests).
func (s *Simulator) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Check evaluates the failure policy for one operation request.
// Deterministic triggers are checked before the random draw; they fire
// regardless of configured rates. Returns nil when the operation should
// proceed.
func (s *Simulator) Check(op string, req Request) *Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deterministic(op, req); err != nil {
		return err
	}

	cfg, ok := s.ops[op]
	if sc := s.scenario; sc != nil {
		if scCfg, scOk := sc.Operations[op]; scOk {
			cfg, ok = scCfg, true
		}
	}
	if !ok || cfg.FailureRate <= 0 {
		return nil
	}

	rate := s.scaledRate(op, cfg.FailureRate)
	if s.rng.Float64() >= rate {
		return nil
	}

	kind := s.drawKind(cfg.Distribution)
	return New(kind, op, s.nextMessage(kind)).WithContext("pool_id", req.PoolID)
}

func (s *Simulator) deterministic(op string, req Request) *Error {
	if !req.AmountA.IsNil() && req.AmountA.GT(largeAmount) {
		return New(KindInsufficientBalance, op, "insufficient balance for requested amount").
			WithContext("amount_a", req.AmountA.String())
	}
	if !req.AmountB.IsNil() && req.AmountB.GT(largeAmount) {
		return New(KindInsufficientBalance, op, "insufficient balance for requested amount").
			WithContext("amount_b", req.AmountB.String())
	}
	if !req.AmountIn.IsNil() && req.AmountIn.GT(largeSwap) {
		return New(KindSlippageExceeded, op, "swap too large, slippage tolerance exceeded").
			WithContext("amount_in", req.AmountIn.String())
	}
	if !req.Deadline.IsZero() {
		remaining := req.Deadline.Sub(s.now())
		if remaining >= 0 && remaining < nearDeadline {
			return New(KindDeadlineExceeded, op, "deadline too close to execute").
				WithContext("deadline", req.Deadline.Format(time.RFC3339))
		}
	}
	return nil
}

// scaledRate applies the active scenario's global condition multipliers.
func (s *Simulator) scaledRate(op string, rate float64) float64 {
	sc := s.scenario
	if sc == nil {
		return rate
	}
	if sc.NetworkInstability {
		rate *= 1.5
	}
	if sc.HighGasPrices && (op == "addLiquidity" || op == "createPool") {
		rate *= 1.3
	}
	if sc.LowLiquidity && op == "swap" {
		rate *= 2.0
	}
	if rate > 1 {
		rate = 1
	}
	return rate
}

// drawKind samples the distribution by cumulative weight, falling back
// to NetworkError when weights do not cover the draw.
func (s *Simulator) drawKind(dist map[Kind]float64) Kind {
	if len(dist) == 0 {
		return KindNetworkError
	}
	total := 0.0
	for _, w := range dist {
		total += w
	}
	if total <= 0 {
		return KindNetworkError
	}

	draw := s.rng.Float64() * total
	acc := 0.0
	for _, kind := range kindOrder {
		w, ok := dist[kind]
		if !ok {
			continue
		}
		acc += w
		if draw < acc {
			return kind
		}
	}
	return KindNetworkError
}

// kindOrder fixes iteration order so a seeded generator always draws
// the same kind sequence.
var kindOrder = []Kind{
	KindNetworkError,
	KindGasEstimationFailed,
	KindInsufficientBalance,
	KindSlippageExceeded,
	KindDeadlineExceeded,
	KindInsufficientLiquidity,
	KindPoolNotFound,
	KindInvalidBinRange,
}

var messages = map[Kind][]string{
	KindNetworkError: {
		"connection to node lost",
		"rpc request timed out",
		"peer reset connection",
	},
	KindGasEstimationFailed: {
		"gas estimation reverted",
		"fee oracle unavailable",
	},
	KindInsufficientBalance: {
		"account balance below requested amount",
	},
	KindSlippageExceeded: {
		"price moved beyond slippage tolerance",
	},
	KindDeadlineExceeded: {
		"transaction deadline passed before inclusion",
	},
	KindInsufficientLiquidity: {
		"not enough liquidity in range",
	},
	KindPoolNotFound: {
		"pool does not exist",
	},
	KindInvalidBinRange: {
		"bin range outside supported bounds",
	},
}

func (s *Simulator) nextMessage(kind Kind) string {
	opts := messages[kind]
	if len(opts) == 0 {
		return string(kind)
	}
	s.msgIndex++
	return opts[s.msgIndex%len(opts)]
}

// Scenarios returns the predefined fault environments.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        "network_instability",
			Description: "degraded connectivity: every operation fails often with transient errors",
			Operations: map[string]OpConfig{
				"swap":            {FailureRate: 0.3, Distribution: map[Kind]float64{KindNetworkError: 0.7, KindDeadlineExceeded: 0.3}},
				"addLiquidity":    {FailureRate: 0.3, Distribution: map[Kind]float64{KindNetworkError: 0.8, KindGasEstimationFailed: 0.2}},
				"removeLiquidity": {FailureRate: 0.3, Distribution: map[Kind]float64{KindNetworkError: 0.8, KindGasEstimationFailed: 0.2}},
				"createPool":      {FailureRate: 0.3, Distribution: map[Kind]float64{KindNetworkError: 1.0}},
			},
			NetworkInstability: true,
		},
		{
			Name:        "low_liquidity",
			Description: "thin pools: swaps fail on liquidity and slippage",
			Operations: map[string]OpConfig{
				"swap": {FailureRate: 0.25, Distribution: map[Kind]float64{KindInsufficientLiquidity: 0.6, KindSlippageExceeded: 0.4}},
			},
			LowLiquidity: true,
		},
		{
			Name:        "high_gas_environment",
			Description: "congested chain: gas estimation fails on liquidity operations",
			Operations: map[string]OpConfig{
				"addLiquidity":    {FailureRate: 0.2, Distribution: map[Kind]float64{KindGasEstimationFailed: 0.7, KindNetworkError: 0.3}},
				"removeLiquidity": {FailureRate: 0.2, Distribution: map[Kind]float64{KindGasEstimationFailed: 0.7, KindNetworkError: 0.3}},
				"createPool":      {FailureRate: 0.2, Distribution: map[Kind]float64{KindGasEstimationFailed: 1.0}},
			},
			HighGasPrices: true,
		},
		{
			Name:        "stable_environment",
			Description: "healthy conditions: failures are rare",
			Operations: map[string]OpConfig{
				"swap":            {FailureRate: 0.01, Distribution: map[Kind]float64{KindNetworkError: 1.0}},
				"addLiquidity":    {FailureRate: 0.01, Distribution: map[Kind]float64{KindNetworkError: 1.0}},
				"removeLiquidity": {FailureRate: 0.01, Distribution: map[Kind]float64{KindNetworkError: 1.0}},
				"createPool":      {FailureRate: 0.01, Distribution: map[Kind]float64{KindNetworkError: 1.0}},
			},
		},
	}
}

// ScenarioByName looks up a predefined scenario.
func ScenarioByName(name string) (Scenario, bool) {
	for _, sc := range Scenarios() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}
