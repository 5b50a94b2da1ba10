package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

func TestWindowerWindowFor(t *testing.T) {
	t.Parallel()

	w := NewWindower(time.Hour)
	ts := time.Date(2026, 3, 5, 14, 37, 12, 0, time.UTC)
	require.Equal(t, time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC), w.WindowFor(ts))

	w30 := NewWindower(30 * time.Minute)
	require.Equal(t, time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC), w30.WindowFor(ts))

	// Non-positive widths fall back to an hour.
	wBad := NewWindower(0)
	require.Equal(t, time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC), wBad.WindowFor(ts))
}

func TestWindowerAggregateTelemetry(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	w := NewWindower(time.Hour)

	t.Run("groups by window resource device store", func(t *testing.T) {
		t.Parallel()
		events := []entity.TelemetryEvent{
			{Timestamp: base.Add(5 * time.Minute), ResourceID: "ep-1", DeviceID: "pos-1", StoreNumber: "100", TokensUsed: 300, ResponseTimeMs: 100},
			{Timestamp: base.Add(50 * time.Minute), ResourceID: "ep-1", DeviceID: "pos-1", StoreNumber: "100", TokensUsed: 100, ResponseTimeMs: 300},
			{Timestamp: base.Add(10 * time.Minute), ResourceID: "ep-1", DeviceID: "pos-2", StoreNumber: "100", TokensUsed: 50, ResponseTimeMs: 80},
			{Timestamp: base.Add(90 * time.Minute), ResourceID: "ep-1", DeviceID: "pos-1", StoreNumber: "100", TokensUsed: 10, ResponseTimeMs: 10},
		}

		aggs := w.AggregateTelemetry(events)
		require.Len(t, aggs, 3)

		first := aggs[0]
		require.Equal(t, base, first.Window)
		require.Equal(t, "pos-1", first.DeviceID)
		require.Equal(t, int64(400), first.TotalTokens)
		require.Equal(t, int64(2), first.APICalls)
		require.InDelta(t, 200.0, first.AvgResponseTimeMs, 1e-9)

		// Second window carries only the late event.
		last := aggs[2]
		require.Equal(t, base.Add(time.Hour), last.Window)
		require.Equal(t, int64(10), last.TotalTokens)
	})

	t.Run("normalizes identifiers and clamps negatives", func(t *testing.T) {
		t.Parallel()
		events := []entity.TelemetryEvent{
			{Timestamp: base, ResourceID: "accounts/x/EP-9", DeviceID: "null", StoreNumber: "", TokensUsed: -50, ResponseTimeMs: -1},
		}

		aggs := w.AggregateTelemetry(events)
		require.Len(t, aggs, 1)
		require.Equal(t, "ep-9", aggs[0].ResourceID)
		require.Equal(t, entity.UnknownID, aggs[0].DeviceID)
		require.Equal(t, entity.UnknownID, aggs[0].StoreNumber)
		require.Equal(t, int64(0), aggs[0].TotalTokens)
		require.Equal(t, int64(1), aggs[0].APICalls)
		require.Zero(t, aggs[0].AvgResponseTimeMs)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, w.AggregateTelemetry(nil))
	})
}

func TestWindowerWindowCosts(t *testing.T) {
	t.Parallel()

	w := NewWindower(time.Hour)
	events := []entity.CostEvent{
		{ResourceID: "arn:aws:bedrock:us-east-1:1:model/EP-1", UsageDate: time.Date(2026, 3, 5, 14, 45, 0, 0, time.UTC), Cost: -2, UsageQuantity: -1},
		{ResourceID: "ep-2", UsageDate: time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC), Cost: 3.5, UsageQuantity: 700},
	}

	windowed := w.WindowCosts(events)
	require.Len(t, windowed, 2)
	require.Equal(t, time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC), windowed[0].Window)
	require.Equal(t, "ep-1", windowed[0].Event.ResourceID)
	require.Zero(t, windowed[0].Event.Cost)
	require.Zero(t, windowed[0].Event.UsageQuantity)
	require.Equal(t, 3.5, windowed[1].Event.Cost)
}
