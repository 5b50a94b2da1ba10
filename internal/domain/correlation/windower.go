package correlation

import (
	"sort"
	"time"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// Windower buckets both streams into fixed-width half-open time windows
// [start, start+width) and aggregates telemetry per (window, resource,
// device, store).
type Windower struct {
	width time.Duration
}

// NewWindower creates a windower with the given window width.
func NewWindower(width time.Duration) *Windower {
	if width <= 0 {
		width = time.Hour
	}
	return &Windower{width: width}
}

// WindowFor floors a timestamp to the start of its window.
func (w *Windower) WindowFor(t time.Time) time.Time {
	return t.UTC().Truncate(w.width)
}

type aggregateKey struct {
	window      int64
	resourceID  string
	deviceID    string
	storeNumber string
}

// AggregateTelemetry groups events by (window, normalized resource,
// device, store), summing tokens, counting calls and averaging response
// time. Identifiers are canonicalized on the way in; negative numeric
// fields are coerced to zero rather than rejected.
func (w *Windower) AggregateTelemetry(events []entity.TelemetryEvent) []entity.TelemetryAggregate {
	type accum struct {
		tokens        int64
		calls         int64
		responseTotal float64
	}

	groups := make(map[aggregateKey]*accum)
	for _, ev := range events {
		window := w.WindowFor(ev.Timestamp)
		key := aggregateKey{
			window:      window.Unix(),
			resourceID:  NormalizeResourceID(ev.ResourceID),
			deviceID:    NormalizeAttributionID(ev.DeviceID),
			storeNumber: NormalizeAttributionID(ev.StoreNumber),
		}

		acc, ok := groups[key]
		if !ok {
			acc = &accum{}
			groups[key] = acc
		}

		tokens := ev.TokensUsed
		if tokens < 0 {
			tokens = 0
		}
		responseTime := ev.ResponseTimeMs
		if responseTime < 0 {
			responseTime = 0
		}

		acc.tokens += tokens
		acc.calls++
		acc.responseTotal += responseTime
	}

	aggregates := make([]entity.TelemetryAggregate, 0, len(groups))
	for key, acc := range groups {
		agg := entity.TelemetryAggregate{
			Window:      time.Unix(key.window, 0).UTC(),
			ResourceID:  key.resourceID,
			DeviceID:    key.deviceID,
			StoreNumber: key.storeNumber,
			TotalTokens: acc.tokens,
			APICalls:    acc.calls,
		}
		if acc.calls > 0 {
			agg.AvgResponseTimeMs = acc.responseTotal / float64(acc.calls)
		}
		aggregates = append(aggregates, agg)
	}

	sort.Slice(aggregates, func(i, j int) bool {
		a, b := aggregates[i], aggregates[j]
		if !a.Window.Equal(b.Window) {
			return a.Window.Before(b.Window)
		}
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.DeviceID != b.DeviceID {
			return a.DeviceID < b.DeviceID
		}
		return a.StoreNumber < b.StoreNumber
	})

	return aggregates
}

// WindowedCost pairs a cost event with its time window. Cost rows are not
// aggregated within a window; one row per resource/day is expected
// upstream.
type WindowedCost struct {
	Window time.Time
	Event  entity.CostEvent
}

// WindowCosts applies the same flooring to cost usage timestamps and
// canonicalizes resource identifiers.
func (w *Windower) WindowCosts(events []entity.CostEvent) []WindowedCost {
	windowed := make([]WindowedCost, 0, len(events))
	for _, ev := range events {
		ev.ResourceID = NormalizeResourceID(ev.ResourceID)
		if ev.Cost < 0 {
			ev.Cost = 0
		}
		if ev.UsageQuantity < 0 {
			ev.UsageQuantity = 0
		}
		windowed = append(windowed, WindowedCost{
			Window: w.WindowFor(ev.UsageDate),
			Event:  ev,
		})
	}
	return windowed
}
