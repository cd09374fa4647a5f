package observability

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// Metric names.
const (
	MetricOutcomes = "domguard.dispatch.outcomes"
	MetricDuration = "domguard.dispatch.duration"
)

// Attribute keys shared by spans and metrics.
const (
	AttrCycleID   = attribute.Key("domguard.cycle_id")
	AttrAction    = attribute.Key("domguard.action")
	AttrSource    = attribute.Key("domguard.source")
	AttrOrigin    = attribute.Key("domguard.origin")
	AttrSucceeded = attribute.Key("domguard.succeeded")
	AttrRule      = attribute.Key("domguard.rule")
	AttrIntent    = attribute.Key("domguard.intent")
	AttrState     = attribute.Key("domguard.state")
)

// OutcomeAttributes describes an outcome for spans.
func OutcomeAttributes(o dispatch.Outcome) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCycleID.String(o.CycleID),
		AttrAction.String(string(o.ActionID)),
		AttrSource.String(string(o.Source)),
		AttrSucceeded.Bool(o.Succeeded),
		AttrState.String(string(o.FinalState())),
	}
}

// DispatchMetrics records dispatch outcomes.
type DispatchMetrics struct {
	outcomes metric.Int64Counter
	duration metric.Float64Histogram
}

// NewDispatchMetrics creates the dispatch instruments on meter.
func NewDispatchMetrics(meter metric.Meter) (*DispatchMetrics, error) {
	outcomes, err := meter.Int64Counter(MetricOutcomes,
		metric.WithDescription("Dispatch cycles by source and success"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Dispatch cycle duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &DispatchMetrics{outcomes: outcomes, duration: duration}, nil
}

// RecordOutcome counts an outcome and records its duration.
func (m *DispatchMetrics) RecordOutcome(ctx context.Context, o dispatch.Outcome) {
	attrs := metric.WithAttributes(
		AttrSource.String(string(o.Source)),
		AttrSucceeded.Bool(o.Succeeded),
		AttrAction.String(string(o.ActionID)),
	)
	m.outcomes.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(o.Duration.Microseconds())/1000, attrs)
}

// OutcomeCounts sums the outcome counter by "source/succeeded".
func OutcomeCounts(rm metricdata.ResourceMetrics) map[string]int64 {
	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != MetricOutcomes {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				src, _ := dp.Attributes.Value(AttrSource)
				succeeded, _ := dp.Attributes.Value(AttrSucceeded)
				key := src.AsString() + "/" + strconv.FormatBool(succeeded.AsBool())
				counts[key] += dp.Value
			}
		}
	}
	return counts
}
