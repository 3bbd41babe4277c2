// Package analytics holds the baseline, revenue decomposition, decision, tracking
// and outcome evaluation engines.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/chrisdamba/profitlens/internal/lock"
	"github.com/chrisdamba/profitlens/internal/logging"
	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/output"
	"github.com/chrisdamba/profitlens/internal/repositories"
)

// Option customises an engine at construction.
type Option func(*base)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithDestination publishes engine events to d.
func WithDestination(d output.Destination) Option {
	return func(b *base) { b.dest = d }
}

// WithLocker sets the locker used to serialise per-item and per-decision writes.
func WithLocker(l lock.Locker) Option {
	return func(b *base) { b.locker = l }
}

// base is the state every engine shares. None of it is mutated after construction.
type base struct {
	store  *repositories.Store
	cfg    models.AnalyticsConfig
	logger *slog.Logger
	now    func() time.Time
	dest   output.Destination
	locker lock.Locker
}

func newBase(store *repositories.Store, cfg models.AnalyticsConfig, logger *slog.Logger, engine string, opts []Option) base {
	if logger == nil {
		logger = logging.Discard()
	}
	b := base{
		store:  store,
		cfg:    cfg,
		logger: logger.With("engine", engine),
		now:    time.Now,
		locker: lock.NewKeyedMutex(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// publish sends an event to the configured destination. Failures are logged and
// never fail the operation that produced the event.
func (b *base) publish(topic string, event interface{}) {
	if err := output.Publish(b.dest, topic, event); err != nil {
		b.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// withLock runs fn while holding the lock for key.
func (b *base) withLock(ctx context.Context, key string, fn func() error) error {
	unlock, err := b.locker.Lock(ctx, key)
	if err != nil {
		return models.NewComputationError("acquire lock "+key, err)
	}
	defer unlock()
	return fn()
}

// Engines wires every engine against one store.
type Engines struct {
	Baselines *BaselineEngine
	Insights  *InsightEngine
	Decisions *DecisionEngine
	Tracker   *Tracker
	Evaluator *Evaluator
}

func New(store *repositories.Store, cfg models.AnalyticsConfig, logger *slog.Logger, opts ...Option) *Engines {
	return &Engines{
		Baselines: NewBaselineEngine(store, cfg, logger, opts...),
		Insights:  NewInsightEngine(store, cfg, logger, opts...),
		Decisions: NewDecisionEngine(store, cfg, logger, opts...),
		Tracker:   NewTracker(store, cfg, logger, opts...),
		Evaluator: NewEvaluator(store, cfg, logger, opts...),
	}
}
