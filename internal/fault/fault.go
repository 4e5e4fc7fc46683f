package fault

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

// Kind enumerates every simulated failure the engine can produce.
// The set is closed: callers can switch on it exhaustively.
type Kind string

const (
	KindNetworkError          Kind = "NetworkError"
	KindGasEstimationFailed   Kind = "GasEstimationFailed"
	KindInsufficientBalance   Kind = "InsufficientBalance"
	KindSlippageExceeded      Kind = "SlippageExceeded"
	KindDeadlineExceeded      Kind = "DeadlineExceeded"
	KindInsufficientLiquidity Kind = "InsufficientLiquidity"
	KindPoolNotFound          Kind = "PoolNotFound"
	KindInvalidBinRange       Kind = "InvalidBinRange"
)

// Retryable reports whether retrying the same request could succeed.
// Transient infrastructure kinds are retryable; request-shape and
// state-dependent kinds are not.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetworkError, KindGasEstimationFailed:
		return true
	default:
		return false
	}
}

// Error is a simulated operation failure.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Context map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

// New builds a simulated failure for the given operation.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WithContext attaches a key/value pair for diagnostics.
func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// Request carries the operation parameters the simulator inspects for
// deterministic triggers.
type Request struct {
	PoolID   string
	AmountA  sdkmath.Int
	AmountB  sdkmath.Int
	AmountIn sdkmath.Int
	Deadline time.Time
}
