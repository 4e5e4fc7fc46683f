package core

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"binsim/internal/config"
	"binsim/internal/fault"
	"binsim/internal/liquidity"
	binmath "binsim/internal/math"
	"binsim/internal/observability"
	"binsim/internal/state"
	"binsim/internal/swap"
)

// firstBlockNumber is the simulated chain height before any operation.
const firstBlockNumber = 1_000_000

// defaultSlippageTolerance is 5% at 1e18 scale.
var defaultSlippageTolerance = binmath.Scale.QuoRaw(20)

var gasBase = map[state.TxKind]uint64{
	state.TxCreatePool:      300_000,
	state.TxAddLiquidity:    200_000,
	state.TxRemoveLiquidity: 150_000,
	state.TxSwap:            100_000,
}

// Processor orchestrates the four mutating operations against the
// store: deadline check, fault draw, simulated latency, state mutation,
// and an immutable transaction record for both outcomes.
type Processor struct {
	cfg     config.Config
	store   *state.Store
	faults  *fault.Simulator
	log     zerolog.Logger
	metrics *observability.Metrics

	mu          sync.Mutex
	rng         *rand.Rand
	blockNumber uint64
	now         func() time.Time
}

// NewProcessor wires a processor. metrics may be nil.
func NewProcessor(
	cfg config.Config,
	store *state.Store,
	faults *fault.Simulator,
	rng *rand.Rand,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Processor {
	store.SetConfig(cfg.Engine())
	return &Processor{
		cfg:         cfg,
		store:       store,
		faults:      faults,
		log:         log,
		metrics:     metrics,
		rng:         rng,
		blockNumber: firstBlockNumber,
		now:         time.Now,
	}
}

// SetClock overrides the time source (tests).
func (p *Processor) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

// PoolID derives the canonical pool identifier for an asset pair and
// bin step.
func PoolID(assetA, assetB string, binStepBps uint16) string {
	return fmt.Sprintf("%s-%s-%d", assetA, assetB, binStepBps)
}

// CreatePool creates a pool, optionally seeding it with a distributed
// initial deposit credited to the caller.
func (p *Processor) CreatePool(ctx context.Context, userID string, params CreatePoolParams) (*state.Transaction, error) {
	start := p.clock()
	poolID := PoolID(params.AssetA, params.AssetB, params.BinStepBps)
	record := params.record()

	fail := func(err error) (*state.Transaction, error) {
		return p.fail(state.TxCreatePool, userID, poolID, record, start, err)
	}

	req := fault.Request{
		PoolID:   poolID,
		AmountA:  params.AmountA,
		AmountB:  params.AmountB,
		Deadline: params.Deadline,
	}
	if err := p.begin(ctx, "createPool", req, params.Deadline); err != nil {
		return fail(err)
	}

	if params.AssetA == "" || params.AssetB == "" {
		return fail(fmt.Errorf("asset identifiers must be set"))
	}
	if params.BinStepBps == 0 {
		return fail(fmt.Errorf("bin step must be positive"))
	}
	if p.store.HasPool(poolID) {
		return fail(fmt.Errorf("pool %s already exists", poolID))
	}

	baseFactor := params.BaseFactor
	if baseFactor == 0 {
		baseFactor = 10_000
	}
	now := p.clock()
	pool := &state.PoolState{
		PoolID: poolID,
		Metadata: state.PoolMetadata{
			AssetA:           params.AssetA,
			AssetB:           params.AssetB,
			BinStepBps:       params.BinStepBps,
			BaseFactor:       baseFactor,
			ProtocolShareBps: params.ProtocolShareBps,
		},
		Bins:         make(map[int32]state.BinState),
		ActiveBinID:  params.ActiveBinID,
		ProtocolFees: state.ZeroAmounts(),
		Volume24h:    sdkmath.ZeroInt(),
		CreatedAt:    now,
		LastUpdated:  now,
	}

	var pos *state.UserPosition
	if params.Distribution != nil {
		dc := liquidity.DistributionConfig{
			CenterBinID:         params.ActiveBinID,
			BinCount:            params.Distribution.BinCount,
			Strategy:            params.Distribution.Strategy,
			ConcentrationFactor: params.Distribution.ConcentrationFactor,
			CustomWeights:       params.Distribution.CustomWeights,
		}
		if params.Distribution.CenterBinID != nil {
			dc.CenterBinID = *params.Distribution.CenterBinID
		}
		bins, err := liquidity.Distribute(orZero(params.AmountA), orZero(params.AmountB), dc, params.BinStepBps)
		if err != nil {
			return fail(err)
		}
		pos = &state.UserPosition{
			UserID:       userID,
			PoolID:       poolID,
			BinPositions: make(map[int32]state.BinPosition),
			CreatedAt:    now,
			LastUpdated:  now,
		}
		for _, bin := range bins {
			pool.Bins[bin.BinID] = bin
			pos.BinPositions[bin.BinID] = state.BinPosition{
				BinID:      bin.BinID,
				LPShares:   bin.TotalLPShares,
				Underlying: bin.Reserves,
				FeesEarned: state.ZeroAmounts(),
				EntryPrice: bin.Price,
				EntryTime:  now,
			}
		}
		if len(pos.BinPositions) == 0 {
			pos = nil
		}
	}

	// The active bin must exist even when it received no liquidity.
	if _, ok := pool.Bins[pool.ActiveBinID]; !ok {
		pool.Bins[pool.ActiveBinID] = state.BinState{
			BinID:         pool.ActiveBinID,
			Reserves:      state.ZeroAmounts(),
			TotalLPShares: sdkmath.ZeroInt(),
			Price:         binmath.PriceOfBin(pool.ActiveBinID, params.BinStepBps),
			IsActive:      true,
		}
	}

	if err := p.store.Commit(pool, pos); err != nil {
		return fail(err)
	}

	events := []state.Event{{
		Type: "PoolCreated",
		Data: map[string]string{
			"pool_id":       poolID,
			"asset_a":       params.AssetA,
			"asset_b":       params.AssetB,
			"bin_step_bps":  fmt.Sprintf("%d", params.BinStepBps),
			"active_bin_id": fmt.Sprintf("%d", params.ActiveBinID),
		},
	}}
	return p.succeed(state.TxCreatePool, userID, poolID, record, start, events), nil
}

// AddLiquidity deposits into one bin or, with a distribution hint,
// across a bin range. Missing bins are created, inactive unless their
// id equals the pool's active bin id.
func (p *Processor) AddLiquidity(ctx context.Context, userID string, params AddLiquidityParams) (*state.Transaction, error) {
	start := p.clock()
	record := params.record()

	fail := func(err error) (*state.Transaction, error) {
		return p.fail(state.TxAddLiquidity, userID, params.PoolID, record, start, err)
	}

	req := fault.Request{
		PoolID:   params.PoolID,
		AmountA:  params.AmountA,
		AmountB:  params.AmountB,
		Deadline: params.Deadline,
	}
	if err := p.begin(ctx, "addLiquidity", req, params.Deadline); err != nil {
		return fail(err)
	}

	pool, ok := p.store.GetPool(params.PoolID)
	if !ok {
		return fail(fault.New(fault.KindPoolNotFound, "addLiquidity", "pool does not exist").
			WithContext("pool_id", params.PoolID))
	}

	amountA, amountB := orZero(params.AmountA), orZero(params.AmountB)
	if amountA.IsNegative() || amountB.IsNegative() {
		return fail(fmt.Errorf("deposit amounts must be non-negative"))
	}
	if amountA.IsZero() && amountB.IsZero() {
		return fail(fmt.Errorf("deposit requires at least one positive amount"))
	}

	now := p.clock()
	pos, found := p.store.GetPosition(userID, params.PoolID)
	if !found {
		pos = &state.UserPosition{
			UserID:       userID,
			PoolID:       params.PoolID,
			BinPositions: make(map[int32]state.BinPosition),
			CreatedAt:    now,
			LastUpdated:  now,
		}
	}

	deposited := state.ZeroAmounts()
	if params.Distribution != nil {
		dc := liquidity.DistributionConfig{
			CenterBinID:         pool.ActiveBinID,
			BinCount:            params.Distribution.BinCount,
			Strategy:            params.Distribution.Strategy,
			ConcentrationFactor: params.Distribution.ConcentrationFactor,
			CustomWeights:       params.Distribution.CustomWeights,
		}
		if params.Distribution.CenterBinID != nil {
			dc.CenterBinID = *params.Distribution.CenterBinID
		}
		weights, err := liquidity.Weights(dc)
		if err != nil {
			return fail(err)
		}
		startBin := dc.CenterBinID - int32(dc.BinCount/2)
		for i, w := range weights {
			binID := startBin + int32(i)
			alloc := liquidity.Allocate(amountA, amountB, w, binID, dc.CenterBinID)
			if alloc.IsZero() {
				continue
			}
			added, ok := p.depositIntoBin(pool, pos, binID, alloc, now)
			if !ok {
				continue
			}
			deposited = deposited.Add(added)
		}
		if deposited.IsZero() {
			return fail(fmt.Errorf("deposit too small to issue shares in any bin"))
		}
	} else {
		binID := pool.ActiveBinID
		if params.BinID != nil {
			binID = *params.BinID
		}
		added, ok := p.depositIntoBin(pool, pos, binID, state.NewAmounts(amountA, amountB), now)
		if !ok {
			return fail(fmt.Errorf("deposit too small to issue shares"))
		}
		deposited = added
	}

	if !orZero(params.AmountAMin).IsZero() && deposited.A.LT(params.AmountAMin) {
		return fail(fault.New(fault.KindSlippageExceeded, "addLiquidity", "deposited amount below minimum").
			WithContext("deposited_a", deposited.A.String()))
	}
	if !orZero(params.AmountBMin).IsZero() && deposited.B.LT(params.AmountBMin) {
		return fail(fault.New(fault.KindSlippageExceeded, "addLiquidity", "deposited amount below minimum").
			WithContext("deposited_b", deposited.B.String()))
	}

	pool.LastUpdated = now
	pos.LastUpdated = now
	if err := p.store.Commit(pool, pos); err != nil {
		return fail(err)
	}

	events := []state.Event{{
		Type: "LiquidityAdded",
		Data: map[string]string{
			"pool_id":  params.PoolID,
			"user_id":  userID,
			"amount_a": deposited.A.String(),
			"amount_b": deposited.B.String(),
		},
	}}
	return p.succeed(state.TxAddLiquidity, userID, params.PoolID, record, start, events), nil
}

// depositIntoBin updates pool and position for one bin deposit. It
// reports false when the deposit is too small to issue any shares, in
// which case nothing is changed.
func (p *Processor) depositIntoBin(pool *state.PoolState, pos *state.UserPosition, binID int32, amounts state.Amounts, now time.Time) (state.Amounts, bool) {
	bin, exists := pool.Bins[binID]
	if !exists {
		bin = state.BinState{
			BinID:         binID,
			Reserves:      state.ZeroAmounts(),
			TotalLPShares: sdkmath.ZeroInt(),
			Price:         binmath.PriceOfBin(binID, pool.Metadata.BinStepBps),
			IsActive:      binID == pool.ActiveBinID,
		}
	}

	shares := liquidity.SharesForDeposit(amounts, bin.Price, &bin)
	if !shares.IsPositive() {
		return state.ZeroAmounts(), false
	}

	bin.Reserves = bin.Reserves.Add(amounts)
	bin.TotalLPShares = bin.TotalLPShares.Add(shares)
	pool.Bins[binID] = bin

	bp, held := pos.BinPositions[binID]
	if !held {
		bp = state.BinPosition{
			BinID:      binID,
			LPShares:   sdkmath.ZeroInt(),
			Underlying: state.ZeroAmounts(),
			FeesEarned: state.ZeroAmounts(),
			EntryPrice: bin.Price,
			EntryTime:  now,
		}
	}
	bp.LPShares = bp.LPShares.Add(shares)
	bp.Underlying = bp.Underlying.Add(amounts)
	pos.BinPositions[binID] = bp

	return amounts, true
}

// RemoveLiquidity burns shares per bin and pays out the proportional
// reserves. Any single over-burn aborts the whole operation with no
// state change. Emptied bins are deleted unless they are the active
// bin; an emptied position is removed.
func (p *Processor) RemoveLiquidity(ctx context.Context, userID string, params RemoveLiquidityParams) (*state.Transaction, error) {
	start := p.clock()
	record := params.record()

	fail := func(err error) (*state.Transaction, error) {
		return p.fail(state.TxRemoveLiquidity, userID, params.PoolID, record, start, err)
	}

	req := fault.Request{PoolID: params.PoolID, Deadline: params.Deadline}
	if err := p.begin(ctx, "removeLiquidity", req, params.Deadline); err != nil {
		return fail(err)
	}

	pool, ok := p.store.GetPool(params.PoolID)
	if !ok {
		return fail(fault.New(fault.KindPoolNotFound, "removeLiquidity", "pool does not exist").
			WithContext("pool_id", params.PoolID))
	}
	pos, ok := p.store.GetPosition(userID, params.PoolID)
	if !ok {
		return fail(fault.New(fault.KindInsufficientLiquidity, "removeLiquidity", "no position in pool").
			WithContext("pool_id", params.PoolID))
	}
	if len(params.Burns) == 0 {
		return fail(fmt.Errorf("no bins specified"))
	}

	now := p.clock()
	withdrawn := state.ZeroAmounts()
	for _, burn := range params.Burns {
		if burn.Shares.IsNil() || !burn.Shares.IsPositive() {
			return fail(fmt.Errorf("burn shares must be positive for bin %d", burn.BinID))
		}
		bin, exists := pool.Bins[burn.BinID]
		if !exists {
			return fail(fault.New(fault.KindInvalidBinRange, "removeLiquidity", "bin does not exist").
				WithContext("bin_id", fmt.Sprintf("%d", burn.BinID)))
		}
		bp, held := pos.BinPositions[burn.BinID]
		if !held || bp.LPShares.LT(burn.Shares) {
			return fail(fault.New(fault.KindInsufficientLiquidity, "removeLiquidity", "burn exceeds held shares").
				WithContext("bin_id", fmt.Sprintf("%d", burn.BinID)))
		}

		out := liquidity.RemoveAmounts(burn.Shares, bin)
		sharesBefore := bp.LPShares

		bin.Reserves = bin.Reserves.Sub(out)
		bin.TotalLPShares = bin.TotalLPShares.Sub(burn.Shares)
		if bin.TotalLPShares.IsZero() && bin.BinID != pool.ActiveBinID {
			delete(pool.Bins, bin.BinID)
		} else {
			pool.Bins[bin.BinID] = bin
		}

		removedUnderlying := state.Amounts{
			A: bp.Underlying.A.Mul(burn.Shares).Quo(sharesBefore),
			B: bp.Underlying.B.Mul(burn.Shares).Quo(sharesBefore),
		}
		bp.LPShares = bp.LPShares.Sub(burn.Shares)
		if bp.LPShares.IsZero() {
			delete(pos.BinPositions, burn.BinID)
		} else {
			bp.Underlying = bp.Underlying.Sub(removedUnderlying)
			pos.BinPositions[burn.BinID] = bp
		}

		withdrawn = withdrawn.Add(out)
	}

	if !orZero(params.AmountAMin).IsZero() && withdrawn.A.LT(params.AmountAMin) {
		return fail(fault.New(fault.KindSlippageExceeded, "removeLiquidity", "withdrawn amount below minimum").
			WithContext("withdrawn_a", withdrawn.A.String()))
	}
	if !orZero(params.AmountBMin).IsZero() && withdrawn.B.LT(params.AmountBMin) {
		return fail(fault.New(fault.KindSlippageExceeded, "removeLiquidity", "withdrawn amount below minimum").
			WithContext("withdrawn_b", withdrawn.B.String()))
	}

	pool.LastUpdated = now
	pos.LastUpdated = now
	if err := p.store.Commit(pool, pos); err != nil {
		return fail(err)
	}

	events := []state.Event{{
		Type: "LiquidityRemoved",
		Data: map[string]string{
			"pool_id":  params.PoolID,
			"user_id":  userID,
			"amount_a": withdrawn.A.String(),
			"amount_b": withdrawn.B.String(),
		},
	}}
	return p.succeed(state.TxRemoveLiquidity, userID, params.PoolID, record, start, events), nil
}

// Swap runs the simulation walk against the pool, applies the fee
// curve, and commits the consumed reserves, the new active bin, and
// the volume update.
func (p *Processor) Swap(ctx context.Context, userID string, params SwapParams) (*state.Transaction, error) {
	start := p.clock()
	record := params.record()

	fail := func(err error) (*state.Transaction, error) {
		return p.fail(state.TxSwap, userID, params.PoolID, record, start, err)
	}

	req := fault.Request{
		PoolID:   params.PoolID,
		AmountIn: params.AmountIn,
		Deadline: params.Deadline,
	}
	if err := p.begin(ctx, "swap", req, params.Deadline); err != nil {
		return fail(err)
	}

	pool, ok := p.store.GetPool(params.PoolID)
	if !ok {
		return fail(fault.New(fault.KindPoolNotFound, "swap", "pool does not exist").
			WithContext("pool_id", params.PoolID))
	}
	amountIn := orZero(params.AmountIn)
	if !amountIn.IsPositive() {
		return fail(fmt.Errorf("swap amount must be positive"))
	}

	feeBps := int64(pool.Metadata.SwapFeeBps())
	fee := amountIn.MulRaw(feeBps).QuoRaw(binmath.BasisPointMax)
	protocolFee := fee.MulRaw(int64(pool.Metadata.ProtocolShareBps)).QuoRaw(binmath.BasisPointMax)
	lpFee := fee.Sub(protocolFee)
	netIn := amountIn.Sub(fee)

	tolerance := params.SlippageTolerance
	if tolerance.IsNil() {
		tolerance = defaultSlippageTolerance
	}

	result := swap.Simulate(pool, netIn, params.Direction, tolerance)
	if !p.cfg.EnablePriceImpact {
		result.PriceImpact = sdkmath.ZeroInt()
		result.SlippageExceeded = false
	}
	if p.cfg.EnableSlippageSimulation && result.SlippageExceeded {
		return fail(fault.New(fault.KindSlippageExceeded, "swap", "price impact above tolerance").
			WithContext("price_impact", result.PriceImpact.String()))
	}
	if !orZero(params.AmountOutMin).IsZero() && result.AmountOut.LT(params.AmountOutMin) {
		return fail(fault.New(fault.KindSlippageExceeded, "swap", "output below minimum").
			WithContext("amount_out", result.AmountOut.String()))
	}

	now := p.clock()
	swap.Apply(pool, result.AffectedBins, params.Direction)

	// LP fees accrue to the starting active bin's input side; bins
	// without shares cannot hold reserves, so route to protocol fees
	// instead.
	oldActive := pool.Bins[pool.ActiveBinID]
	if lpFee.IsPositive() {
		if oldActive.TotalLPShares.IsPositive() {
			if params.Direction == swap.DirectionBForA {
				oldActive.Reserves.B = oldActive.Reserves.B.Add(lpFee)
			} else {
				oldActive.Reserves.A = oldActive.Reserves.A.Add(lpFee)
			}
			pool.Bins[pool.ActiveBinID] = oldActive
		} else {
			protocolFee = protocolFee.Add(lpFee)
		}
	}
	if protocolFee.IsPositive() {
		if params.Direction == swap.DirectionBForA {
			pool.ProtocolFees.B = pool.ProtocolFees.B.Add(protocolFee)
		} else {
			pool.ProtocolFees.A = pool.ProtocolFees.A.Add(protocolFee)
		}
	}

	for _, trade := range result.AffectedBins {
		if bin, exists := pool.Bins[trade.BinID]; exists {
			ts := now
			bin.LastSwapAt = &ts
			pool.Bins[trade.BinID] = bin
		}
	}

	if result.NewActiveBinID != pool.ActiveBinID {
		if bin, exists := pool.Bins[pool.ActiveBinID]; exists {
			bin.IsActive = false
			pool.Bins[pool.ActiveBinID] = bin
		}
		next, exists := pool.Bins[result.NewActiveBinID]
		if !exists {
			next = state.BinState{
				BinID:         result.NewActiveBinID,
				Reserves:      state.ZeroAmounts(),
				TotalLPShares: sdkmath.ZeroInt(),
				Price:         binmath.PriceOfBin(result.NewActiveBinID, pool.Metadata.BinStepBps),
			}
		}
		next.IsActive = true
		pool.Bins[result.NewActiveBinID] = next
		pool.ActiveBinID = result.NewActiveBinID
	}

	pool.Volume24h = pool.Volume24h.Add(amountIn)
	pool.LastUpdated = now
	if err := p.store.Commit(pool); err != nil {
		return fail(err)
	}

	if p.metrics != nil {
		p.metrics.SwapBinsCrossed.Observe(float64(len(result.AffectedBins)))
		if result.HopBoundReached {
			p.metrics.SwapHopBound.Inc()
		}
	}

	events := []state.Event{{
		Type: "Swap",
		Data: map[string]string{
			"pool_id":       params.PoolID,
			"user_id":       userID,
			"direction":     string(params.Direction),
			"amount_in":     amountIn.String(),
			"amount_out":    result.AmountOut.String(),
			"price_impact":  result.PriceImpact.String(),
			"active_bin_id": fmt.Sprintf("%d", pool.ActiveBinID),
		},
	}}
	return p.succeed(state.TxSwap, userID, params.PoolID, record, start, events), nil
}

// begin runs the shared front half of every operation: deadline
// fail-fast, fault draw, then the cancellable latency wait.
func (p *Processor) begin(ctx context.Context, op string, req fault.Request, deadline time.Time) error {
	if !deadline.IsZero() && deadline.Before(p.clock()) {
		return fault.New(fault.KindDeadlineExceeded, op, "deadline already passed").
			WithContext("deadline", deadline.Format(time.RFC3339))
	}
	if err := p.faults.Check(op, req); err != nil {
		return err
	}
	return p.simulateLatency(ctx)
}

// simulateLatency waits for a jittered confirmation delay in
// [mean/2, 3*mean/2], aborting promptly on context cancellation.
func (p *Processor) simulateLatency(ctx context.Context) error {
	mean := p.cfg.LatencyMean
	if mean <= 0 {
		return nil
	}
	delay := mean/2 + time.Duration(p.randInt63n(int64(mean)+1))
	if p.metrics != nil {
		p.metrics.LatencyWait.Observe(delay.Seconds())
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Processor) fail(kind state.TxKind, userID, poolID string, record map[string]string, start time.Time, err error) (*state.Transaction, error) {
	faultLabel := "error"
	if fe, ok := err.(*fault.Error); ok {
		faultLabel = string(fe.Kind)
	}

	tx := &state.Transaction{
		ID:     uuid.NewString(),
		Kind:   kind,
		UserID: userID,
		PoolID: poolID,
		Params: record,
		Result: state.TxResult{
			Success:  false,
			GasPrice: sdkmath.ZeroInt(),
			Error:    err.Error(),
		},
		Timestamp: p.clock(),
	}
	p.store.AppendTransaction(*tx)

	if p.metrics != nil {
		p.metrics.TxFailed.WithLabelValues(string(kind), faultLabel).Inc()
		p.metrics.TxDuration.WithLabelValues(string(kind)).Observe(p.clock().Sub(start).Seconds())
	}
	p.log.Warn().
		Str("kind", string(kind)).
		Str("pool_id", poolID).
		Str("user_id", userID).
		Str("fault", faultLabel).
		Err(err).
		Msg("operation failed")
	return tx, err
}

func (p *Processor) succeed(kind state.TxKind, userID, poolID string, record map[string]string, start time.Time, events []state.Event) *state.Transaction {
	gas := p.estimateGas(kind)
	tx := &state.Transaction{
		ID:     uuid.NewString(),
		Kind:   kind,
		UserID: userID,
		PoolID: poolID,
		Params: record,
		Result: state.TxResult{
			Success:     true,
			GasUsed:     gas,
			GasPrice:    p.gasPrice(),
			BlockNumber: p.nextBlock(),
			Events:      events,
		},
		Timestamp: p.clock(),
	}
	p.store.AppendTransaction(*tx)

	if p.metrics != nil {
		p.metrics.TxProcessed.WithLabelValues(string(kind)).Inc()
		p.metrics.TxDuration.WithLabelValues(string(kind)).Observe(p.clock().Sub(start).Seconds())
		p.metrics.GasUsedTotal.WithLabelValues(string(kind)).Add(float64(gas))
		p.metrics.BlockNumber.Set(float64(tx.Result.BlockNumber))
		p.metrics.Pools.Set(float64(p.store.PoolCount()))
		p.metrics.Positions.Set(float64(p.store.PositionCount()))
		p.metrics.TransactionsLog.Set(float64(len(p.store.Transactions(0))))
	}
	p.log.Info().
		Str("kind", string(kind)).
		Str("pool_id", poolID).
		Str("user_id", userID).
		Uint64("block", tx.Result.BlockNumber).
		Uint64("gas_used", gas).
		Msg("operation applied")
	return tx
}

// estimateGas returns the per-operation base cost with ±10% variance.
func (p *Processor) estimateGas(kind state.TxKind) uint64 {
	base := gasBase[kind]
	return base * uint64(90+p.randIntn(21)) / 100
}

// gasPrice draws 1-10 gwei under realistic gas, else a constant 1 wei.
func (p *Processor) gasPrice() sdkmath.Int {
	if !p.cfg.EnableRealisticGas {
		return sdkmath.OneInt()
	}
	gwei := int64(1 + p.randIntn(10))
	return sdkmath.NewInt(gwei).MulRaw(1_000_000_000)
}

func (p *Processor) nextBlock() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blockNumber++
	return p.blockNumber
}

func (p *Processor) clock() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now()
}

func (p *Processor) randIntn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

func (p *Processor) randInt63n(n int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Int63n(n)
}

func orZero(v sdkmath.Int) sdkmath.Int {
	if v.IsNil() {
		return sdkmath.ZeroInt()
	}
	return v
}
