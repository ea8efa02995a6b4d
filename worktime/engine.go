package worktime

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultQueryTimeout bounds every store read issued by the engine.
const DefaultQueryTimeout = 5 * time.Second

// =============================================================================
// ENGINE - Composes calendar, accrual and store reads into balance views
// =============================================================================

// Engine computes balances. It holds no state between calls: settings and
// entries are read fresh for every view.
type Engine struct {
	Store        Store
	Logger       *zap.Logger
	QueryTimeout time.Duration
	Clock        func() time.Time
}

func NewEngine(store Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Store:        store,
		Logger:       logger,
		QueryTimeout: DefaultQueryTimeout,
		Clock:        time.Now,
	}
}

// Today returns the engine's current date.
func (e *Engine) Today() Date {
	if e.Clock == nil {
		return Today()
	}
	return DateOf(e.Clock())
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// read runs one store call under the query timeout and turns any failure
// into a DataAccessError.
func (e *Engine) read(ctx context.Context, op string, fn func(context.Context) error) error {
	if e.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.QueryTimeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		e.logger().Error("ledger read failed", zap.String("op", op), zap.Error(err))
		return &DataAccessError{Op: op, Err: err}
	}
	return nil
}

func (e *Engine) loadSettings(ctx context.Context, userID UserID) (*UserSettings, error) {
	var settings *UserSettings
	err := e.read(ctx, "load settings", func(ctx context.Context) error {
		var err error
		settings, err = e.Store.GetSettings(ctx, userID)
		return err
	})
	return settings, err
}

func (e *Engine) sumHours(ctx context.Context, op string, filter EntryFilter) (decimal.Decimal, error) {
	total := decimal.Zero
	err := e.read(ctx, op, func(ctx context.Context) error {
		var err error
		total, err = e.Store.SumHours(ctx, filter)
		return err
	})
	return total, err
}

// degrade logs why a view could not be computed and returns its status.
func (e *Engine) degrade(view string, userID UserID, cause error) Status {
	e.logger().Warn("balance view degraded",
		zap.String("view", view),
		zap.Int64("user_id", int64(userID)),
		zap.Error(cause),
	)
	return statusFor(cause)
}

// checkSettings validates the divisor every ratio view relies on.
func checkSettings(s *UserSettings) error {
	if s == nil {
		return ErrMissingSettings
	}
	if !s.HasUsableDailyTarget() {
		return ErrDegenerateDivisor
	}
	return nil
}
