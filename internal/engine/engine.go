// Package engine runs the periodic alert evaluation cycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pricealert/internal/metrics"
	"pricealert/internal/models"
	"pricealert/internal/prices"
	"pricealert/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrCycleInProgress is returned when a cycle is requested while another is still running.
var ErrCycleInProgress = errors.New("evaluation cycle already in progress")

// Store is the persistence the cycle reads from and commits to.
type Store interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	AlertsForUsers(ctx context.Context, userIDs []string) (map[string][]*models.Alert, error)
	CommitCycle(ctx context.Context, triggered, checked []string, at time.Time) error
}

// PriceFetcher resolves every symbol set of a cycle.
type PriceFetcher interface {
	FetchAll(ctx context.Context, sets prices.SymbolSets, log *zap.Logger) map[string]float64
}

// SnapshotPublisher receives the cycle's prices for the read path.
type SnapshotPublisher interface {
	Publish(ctx context.Context, prices map[string]float64) error
}

// CycleReport summarises one run.
type CycleReport struct {
	Users     int
	Due       int
	Symbols   int
	Resolved  int
	Triggered []string
	Duration  time.Duration
}

// Engine wires the cycle's stages together.
type Engine struct {
	store     Store
	fetcher   PriceFetcher
	snapshots SnapshotPublisher
	evaluator *Evaluator
	policies  models.TierPolicies
	now       func() time.Time
	log       *zap.Logger

	running sync.Mutex
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(store Store, fetcher PriceFetcher, snapshots SnapshotPublisher, evaluator *Evaluator,
	policies models.TierPolicies, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		fetcher:   fetcher,
		snapshots: snapshots,
		evaluator: evaluator,
		policies:  policies,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunCycle performs one evaluation pass. last_checked_at only advances, together with the
// deletion of triggered alerts, if the final commit succeeds; any earlier failure leaves
// every user due again for the next cycle.
func (e *Engine) RunCycle(ctx context.Context) (CycleReport, error) {
	if !e.running.TryLock() {
		metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		return CycleReport{}, ErrCycleInProgress
	}
	defer e.running.Unlock()

	ctx, span := tracing.Tracer().Start(ctx, "RunCycle")
	defer span.End()

	now := e.now()
	report, err := e.run(ctx, now)
	report.Duration = e.now().Sub(now)
	metrics.CycleDuration.Observe(report.Duration.Seconds())

	span.SetAttributes(
		attribute.Int("cycle.due_users", report.Due),
		attribute.Int("cycle.symbols", report.Symbols),
		attribute.Int("cycle.triggered", len(report.Triggered)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		e.log.Error("Evaluation cycle aborted", zap.Error(err))
		return report, err
	}

	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	e.log.Info("Evaluation cycle completed",
		zap.Int("users", report.Users),
		zap.Int("due", report.Due),
		zap.Int("symbols", report.Symbols),
		zap.Int("resolved", report.Resolved),
		zap.Int("triggered", len(report.Triggered)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (e *Engine) run(ctx context.Context, now time.Time) (CycleReport, error) {
	var report CycleReport

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("load users: %w", err)
	}
	report.Users = len(users)

	due := SelectDue(users, now, e.policies)
	report.Due = len(due)
	metrics.DueUsers.Set(float64(len(due)))
	if len(due) == 0 {
		return report, nil
	}

	ids := make([]string, len(due))
	for i, u := range due {
		ids[i] = u.ID
	}
	alertsByUser, err := e.store.AlertsForUsers(ctx, ids)
	if err != nil {
		return report, fmt.Errorf("load alerts: %w", err)
	}

	sets := Aggregate(alertsByUser)
	report.Symbols = sets.Len()

	priceMap := map[string]float64{}
	if sets.Len() > 0 {
		fetchCtx, span := tracing.Tracer().Start(ctx, "FetchPrices")
		priceMap = e.fetcher.FetchAll(fetchCtx, sets, e.log)
		span.SetAttributes(attribute.Int("prices.resolved", len(priceMap)))
		span.End()
	}
	report.Resolved = len(priceMap)

	if len(priceMap) > 0 && e.snapshots != nil {
		if err := e.snapshots.Publish(ctx, priceMap); err != nil {
			e.log.Warn("Failed to publish price snapshot", zap.Error(err))
		}
	}

	evalCtx, span := tracing.Tracer().Start(ctx, "EvaluateAlerts")
	for _, u := range due {
		report.Triggered = append(report.Triggered, e.evaluator.Evaluate(evalCtx, u, alertsByUser[u.ID], priceMap)...)
	}
	span.End()

	commitCtx, span := tracing.Tracer().Start(ctx, "CommitCycle")
	defer span.End()
	if err := e.store.CommitCycle(commitCtx, report.Triggered, ids, now); err != nil {
		return report, fmt.Errorf("commit cycle: %w", err)
	}
	return report, nil
}
