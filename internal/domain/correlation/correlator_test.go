package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

func TestCorrelate(t *testing.T) {
	t.Parallel()

	window := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	aggs := []entity.TelemetryAggregate{
		{Window: window, ResourceID: "ep-1", DeviceID: "pos-1", StoreNumber: "100", TotalTokens: 600, APICalls: 6},
		{Window: window, ResourceID: "ep-1", DeviceID: "pos-2", StoreNumber: "100", TotalTokens: 400, APICalls: 4},
		{Window: window, ResourceID: "ep-2", DeviceID: "pos-1", StoreNumber: "100", TotalTokens: 10, APICalls: 1},
	}
	costs := []WindowedCost{
		{Window: window, Event: entity.CostEvent{ResourceID: "ep-1", Cost: 10}},
	}

	t.Run("inner join on window and resource", func(t *testing.T) {
		t.Parallel()
		groups := Correlate(aggs, costs)
		require.Len(t, groups, 1)
		require.Equal(t, "ep-1", groups[0].ResourceID)
		require.Equal(t, window, groups[0].Window)
		require.Equal(t, 10.0, groups[0].Cost.Cost)
		require.Len(t, groups[0].Members, 2)
		require.Equal(t, int64(1000), groups[0].TotalTokens())
		require.Equal(t, int64(10), groups[0].TotalAPICalls())
	})

	t.Run("empty inputs", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, Correlate(nil, costs))
		require.Nil(t, Correlate(aggs, nil))
	})

	t.Run("window mismatch produces no groups", func(t *testing.T) {
		t.Parallel()
		shifted := []WindowedCost{
			{Window: window.Add(time.Hour), Event: entity.CostEvent{ResourceID: "ep-1", Cost: 10}},
		}
		require.Empty(t, Correlate(aggs, shifted))
	})

	t.Run("first cost row wins on duplicate key", func(t *testing.T) {
		t.Parallel()
		dup := []WindowedCost{
			{Window: window, Event: entity.CostEvent{ResourceID: "ep-1", Cost: 10, MeterName: "first"}},
			{Window: window, Event: entity.CostEvent{ResourceID: "ep-1", Cost: 99, MeterName: "second"}},
		}
		groups := Correlate(aggs, dup)
		require.Len(t, groups, 1)
		require.Equal(t, 10.0, groups[0].Cost.Cost)
		require.Equal(t, "first", groups[0].Cost.MeterName)
	})
}
