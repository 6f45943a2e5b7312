package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a nil meter is passed to a metrics constructor.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// TaxonomyMetrics counts the integrity signals the taxonomy services emit:
// traversals cut at the depth bound, association ids dropped during sync and
// parent assignments refused because of a cycle.
type TaxonomyMetrics struct {
	truncations     *Counter
	droppedIDs      *Counter
	cycleRejections *Counter
	syncDuration    *Histogram
}

// NewTaxonomyMetrics registers the taxonomy instruments on meter.
func NewTaxonomyMetrics(meter metric.Meter) (*TaxonomyMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   TaxonomyMetrics
		err error
	)
	if m.truncations, err = NewCounter(meter,
		"taxonomy_traversal_truncated_total",
		"Category graph walks stopped at the depth bound",
		"{walks}"); err != nil {
		return nil, err
	}
	if m.droppedIDs, err = NewCounter(meter,
		"taxonomy_association_dropped_ids_total",
		"Unknown ids dropped while syncing news/category associations",
		"{ids}"); err != nil {
		return nil, err
	}
	if m.cycleRejections, err = NewCounter(meter,
		"taxonomy_cycle_rejections_total",
		"Parent assignments refused because they would close a cycle",
		"{rejections}"); err != nil {
		return nil, err
	}
	if m.syncDuration, err = NewHistogram(meter,
		"taxonomy_association_sync_duration_seconds",
		"Duration of association sync transactions",
		0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1); err != nil {
		return nil, err
	}
	return &m, nil
}

// TraversalTruncated records a walk stopped at the depth bound.
func (m *TaxonomyMetrics) TraversalTruncated(ctx context.Context, op string, categoryID int64) {
	m.truncations.Inc(ctx, attribute.String("op", op))
}

// IDsDropped records ids removed from an association sync.
func (m *TaxonomyMetrics) IDsDropped(ctx context.Context, side string, count int) {
	if count <= 0 {
		return
	}
	m.droppedIDs.Add(ctx, int64(count), attribute.String("side", side))
}

// CycleRejected records a refused parent assignment.
func (m *TaxonomyMetrics) CycleRejected(ctx context.Context) {
	m.cycleRejections.Inc(ctx)
}

// SyncCompleted records how long an association sync took.
func (m *TaxonomyMetrics) SyncCompleted(ctx context.Context, side string, d time.Duration) {
	m.syncDuration.RecordDuration(ctx, d, attribute.String("side", side))
}
