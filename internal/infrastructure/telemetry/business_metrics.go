package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides application metrics for the party feed.
// It tracks submissions, moderation activity, going toggles, and sign-ins.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	partySubmittedTotal *Counter
	partyModeratedTotal *Counter
	goingToggleTotal    *Counter
	magicLinkTotal      *Counter

	// Gauge metrics (point-in-time values)
	partiesPendingCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	moderationProvider ModerationMetricsProvider
}

// ModerationMetricsProvider provides review queue data for periodic metrics
// collection. This interface allows the telemetry layer to query the queue
// without depending on the party domain directly.
type ModerationMetricsProvider interface {
	// GetPendingPartyCount returns the number of parties awaiting review
	GetPendingPartyCount(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter              metric.Meter
	Logger             *zap.Logger
	CollectInterval    time.Duration // Default: 1 minute
	ModerationProvider ModerationMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:              cfg.Meter,
		logger:             logger,
		stopChan:           make(chan struct{}),
		moderationProvider: cfg.ModerationProvider,
	}

	// Initialize counter metrics
	var err error

	// Party metrics
	bm.partySubmittedTotal, err = NewCounter(
		cfg.Meter,
		"parties_submitted_total",
		"Total number of parties submitted for review",
		"{parties}",
	)
	if err != nil {
		return nil, err
	}

	bm.partyModeratedTotal, err = NewCounter(
		cfg.Meter,
		"parties_moderated_total",
		"Total number of moderation decisions",
		"{parties}",
	)
	if err != nil {
		return nil, err
	}

	// Going metrics
	bm.goingToggleTotal, err = NewCounter(
		cfg.Meter,
		"going_toggles_total",
		"Total number of going toggles",
		"{toggles}",
	)
	if err != nil {
		return nil, err
	}

	// Auth metrics
	bm.magicLinkTotal, err = NewCounter(
		cfg.Meter,
		"magic_links_total",
		"Total number of magic link events",
		"{links}",
	)
	if err != nil {
		return nil, err
	}

	// Review queue gauge
	bm.partiesPendingCount, err = NewGauge(
		cfg.Meter,
		"parties_pending_count",
		"Number of parties awaiting review",
		"{parties}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// ModerationDecision represents the outcome of a review for metrics labeling.
type ModerationDecision string

const (
	ModerationApproved ModerationDecision = "approved"
	ModerationRejected ModerationDecision = "rejected"
)

// RecordPartySubmitted records a party submission event.
// This should be called from the application layer when a party is created.
func (bm *BusinessMetrics) RecordPartySubmitted(ctx context.Context, day string) {
	bm.partySubmittedTotal.Inc(ctx,
		AttrPartyDay.String(day),
	)
}

// RecordModeration records an approve or reject decision.
func (bm *BusinessMetrics) RecordModeration(ctx context.Context, decision ModerationDecision) {
	bm.partyModeratedTotal.Inc(ctx,
		AttrPartyStatus.String(string(decision)),
	)
}

// RecordGoingToggle records a going toggle and its resulting direction.
func (bm *BusinessMetrics) RecordGoingToggle(ctx context.Context, nowGoing bool) {
	bm.goingToggleTotal.Inc(ctx,
		AttrGoing.Bool(nowGoing),
	)
}

// MagicLinkEvent represents a stage of the magic link flow for metrics labeling.
type MagicLinkEvent string

const (
	MagicLinkIssued   MagicLinkEvent = "issued"
	MagicLinkVerified MagicLinkEvent = "verified"
	MagicLinkRejected MagicLinkEvent = "rejected"
)

// RecordMagicLink records a magic link lifecycle event.
func (bm *BusinessMetrics) RecordMagicLink(ctx context.Context, event MagicLinkEvent) {
	bm.magicLinkTotal.Inc(ctx,
		AttrAuthEvent.String(string(event)),
	)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects the pending review count every interval (default: 1 minute).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectModerationMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectModerationMetrics(ctx)
		}
	}
}

// collectModerationMetrics collects the pending review gauge.
func (bm *BusinessMetrics) collectModerationMetrics(ctx context.Context) {
	if bm.moderationProvider == nil {
		bm.logger.Debug("No moderation provider configured, skipping pending count collection")
		return
	}

	count, err := bm.moderationProvider.GetPendingPartyCount(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get pending party count", zap.Error(err))
		return
	}

	bm.partiesPendingCount.Record(ctx, count)
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
