package state

import (
	"fmt"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
)

// ValidationError reports invariant violations found in an entity.
type ValidationError struct {
	Entity string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s failed validation: %s", e.Entity, strings.Join(e.Issues, "; "))
}

// ValidationResult collects hard errors and advisory warnings.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err converts the result into a *ValidationError, nil when valid.
func (r *ValidationResult) Err(entity string) error {
	if r.IsValid() {
		return nil
	}
	return &ValidationError{Entity: entity, Issues: r.Errors}
}

// ValidatePool checks every pool-level invariant: identifier presence,
// bin consistency, the single-active-bin rule, aggregate equality, and
// timestamp ordering.
func ValidatePool(p *PoolState) *ValidationResult {
	res := &ValidationResult{}
	if p == nil {
		res.errorf("pool is nil")
		return res
	}
	if p.PoolID == "" {
		res.errorf("pool id is empty")
	}
	if p.Metadata.AssetA == "" || p.Metadata.AssetB == "" {
		res.errorf("pool %s: asset identifiers must be set", p.PoolID)
	}
	if p.Metadata.BinStepBps == 0 {
		res.errorf("pool %s: bin step must be positive", p.PoolID)
	}

	activeCount := 0
	total := ZeroAmounts()
	for id, bin := range p.Bins {
		if bin.BinID != id {
			res.errorf("pool %s: bin key %d does not match bin id %d", p.PoolID, id, bin.BinID)
		}
		validateBin(p.PoolID, bin, res)
		if bin.IsActive {
			activeCount++
			if bin.BinID != p.ActiveBinID {
				res.errorf("pool %s: bin %d is flagged active but active bin id is %d",
					p.PoolID, bin.BinID, p.ActiveBinID)
			}
		}
		total = total.Add(bin.Reserves)
	}

	if activeCount != 1 {
		res.errorf("pool %s: expected exactly one active bin, found %d", p.PoolID, activeCount)
	}
	if _, ok := p.Bins[p.ActiveBinID]; !ok {
		res.errorf("pool %s: active bin %d does not exist", p.PoolID, p.ActiveBinID)
	}

	if !p.TotalReserves.Equal(total) {
		res.errorf("pool %s: total reserves (%s, %s) do not match bin sum (%s, %s)",
			p.PoolID, p.TotalReserves.A, p.TotalReserves.B, total.A, total.B)
	}
	if p.ProtocolFees.IsNegative() {
		res.errorf("pool %s: protocol fees are negative", p.PoolID)
	}
	if p.Volume24h.IsNegative() {
		res.errorf("pool %s: 24h volume is negative", p.PoolID)
	}

	if p.LastUpdated.Before(p.CreatedAt) {
		res.errorf("pool %s: last updated %s precedes created %s",
			p.PoolID, p.LastUpdated.Format(time.RFC3339), p.CreatedAt.Format(time.RFC3339))
	}
	if p.CreatedAt.After(time.Now().Add(time.Minute)) {
		res.warnf("pool %s: created timestamp is in the future", p.PoolID)
	}
	return res
}

func validateBin(poolID string, bin BinState, res *ValidationResult) {
	if bin.Reserves.IsNegative() {
		res.errorf("pool %s bin %d: negative reserves", poolID, bin.BinID)
	}
	if bin.TotalLPShares.IsNegative() {
		res.errorf("pool %s bin %d: negative LP shares", poolID, bin.BinID)
	}
	if !bin.Price.IsPositive() {
		res.errorf("pool %s bin %d: price must be positive", poolID, bin.BinID)
	}

	hasReserves := !bin.Reserves.IsZero()
	hasShares := bin.TotalLPShares.IsPositive()
	if hasReserves && !hasShares {
		res.errorf("pool %s bin %d: reserves present without LP shares", poolID, bin.BinID)
	}
	if hasShares && !hasReserves {
		res.errorf("pool %s bin %d: LP shares present without reserves", poolID, bin.BinID)
	}
}

// ValidatePosition checks a user position: non-negative components and
// aggregate fields equal to the component sums.
func ValidatePosition(u *UserPosition) *ValidationResult {
	res := &ValidationResult{}
	if u == nil {
		res.errorf("position is nil")
		return res
	}
	if u.UserID == "" || u.PoolID == "" {
		res.errorf("position must carry user and pool ids")
	}

	shares := u.TotalShares
	underlying := u.TotalUnderlying
	sumShares := sdkmath.ZeroInt()
	sumUnderlying := ZeroAmounts()
	sumFees := ZeroAmounts()

	for id, bp := range u.BinPositions {
		if bp.BinID != id {
			res.errorf("position %s/%s: bin key %d does not match bin id %d",
				u.UserID, u.PoolID, id, bp.BinID)
		}
		if bp.LPShares.IsNegative() {
			res.errorf("position %s/%s bin %d: negative shares", u.UserID, u.PoolID, id)
		}
		if bp.Underlying.IsNegative() {
			res.errorf("position %s/%s bin %d: negative underlying", u.UserID, u.PoolID, id)
		}
		if bp.FeesEarned.IsNegative() {
			res.errorf("position %s/%s bin %d: negative fees", u.UserID, u.PoolID, id)
		}
		if bp.EntryPrice.IsNil() || !bp.EntryPrice.IsPositive() {
			res.errorf("position %s/%s bin %d: entry price must be positive", u.UserID, u.PoolID, id)
		}
		sumShares = sumShares.Add(bp.LPShares)
		sumUnderlying = sumUnderlying.Add(bp.Underlying)
		sumFees = sumFees.Add(bp.FeesEarned)
	}

	if !shares.Equal(sumShares) {
		res.errorf("position %s/%s: total shares %s != component sum %s",
			u.UserID, u.PoolID, shares, sumShares)
	}
	if !underlying.Equal(sumUnderlying) {
		res.errorf("position %s/%s: total underlying (%s, %s) != component sum (%s, %s)",
			u.UserID, u.PoolID, underlying.A, underlying.B, sumUnderlying.A, sumUnderlying.B)
	}
	if !u.TotalFees.Equal(sumFees) {
		res.errorf("position %s/%s: total fees (%s, %s) != component sum (%s, %s)",
			u.UserID, u.PoolID, u.TotalFees.A, u.TotalFees.B, sumFees.A, sumFees.B)
	}
	if u.LastUpdated.Before(u.CreatedAt) {
		res.errorf("position %s/%s: last updated precedes created", u.UserID, u.PoolID)
	}
	return res
}
