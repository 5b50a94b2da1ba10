package correlation

import (
	"sort"
	"time"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// Correlate inner-joins telemetry aggregates with windowed cost records
// on the exact (window, resource) key. There is no fuzzy or
// nearest-window fallback: both streams are floored to the same width, so
// mismatched windows legitimately produce zero correlated groups. Either
// input being empty yields an empty result.
//
// When more than one cost row lands on a key, the first one carries the
// group total and categorization; duplicates are not summed since the
// upstream emits one cost row per resource and day.
func Correlate(aggregates []entity.TelemetryAggregate, costs []WindowedCost) []entity.CorrelatedGroup {
	if len(aggregates) == 0 || len(costs) == 0 {
		return nil
	}

	type joinKey struct {
		window     int64
		resourceID string
	}

	costIndex := make(map[joinKey]entity.CostEvent)
	for _, wc := range costs {
		key := joinKey{window: wc.Window.Unix(), resourceID: wc.Event.ResourceID}
		if _, ok := costIndex[key]; !ok {
			costIndex[key] = wc.Event
		}
	}

	grouped := make(map[joinKey][]entity.TelemetryAggregate)
	for _, agg := range aggregates {
		key := joinKey{window: agg.Window.Unix(), resourceID: agg.ResourceID}
		if _, ok := costIndex[key]; !ok {
			continue
		}
		grouped[key] = append(grouped[key], agg)
	}

	groups := make([]entity.CorrelatedGroup, 0, len(grouped))
	for key, members := range grouped {
		groups = append(groups, entity.CorrelatedGroup{
			Window:     time.Unix(key.window, 0).UTC(),
			ResourceID: key.resourceID,
			Cost:       costIndex[key],
			Members:    members,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].Window.Equal(groups[j].Window) {
			return groups[i].Window.Before(groups[j].Window)
		}
		return groups[i].ResourceID < groups[j].ResourceID
	})

	return groups
}
