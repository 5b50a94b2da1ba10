package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

func historyRecord(cost float64, tokens, calls int64) entity.AllocatedRecord {
	return entity.AllocatedRecord{
		DeviceID:       "pos-1",
		StoreNumber:    "100",
		DeviceStoreKey: "pos-1_100",
		AllocatedCost:  cost,
		TokensUsed:     tokens,
		APICalls:       calls,
	}
}

func TestBuildCostModels(t *testing.T) {
	t.Parallel()

	t.Run("too few samples", func(t *testing.T) {
		t.Parallel()
		historical := []entity.AllocatedRecord{
			historyRecord(1, 100, 1),
			historyRecord(2, 200, 2),
			historyRecord(3, 300, 3),
			historyRecord(4, 400, 4),
		}
		require.Empty(t, BuildCostModels(historical))
	})

	t.Run("zero cost variance", func(t *testing.T) {
		t.Parallel()
		historical := make([]entity.AllocatedRecord, 5)
		for i := range historical {
			historical[i] = historyRecord(2, int64(100*(i+1)), int64(i+1))
		}
		require.Empty(t, BuildCostModels(historical))
	})

	t.Run("token correlated history", func(t *testing.T) {
		t.Parallel()
		historical := []entity.AllocatedRecord{
			historyRecord(1, 100, 1),
			historyRecord(2, 200, 2),
			historyRecord(3, 300, 3),
			historyRecord(4, 400, 4),
			historyRecord(5, 500, 5),
		}
		models := BuildCostModels(historical)
		require.Len(t, models, 1)

		model := models["pos-1_100"]
		require.InDelta(t, 1.0, model.TokenCoefficient, 1e-9)
		require.InDelta(t, 0.01, model.AvgCostPerToken, 1e-9)
		require.InDelta(t, 3.0, model.HistoricalAvg, 1e-9)
	})
}

func TestPredictCosts(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	usage := func(device, store string, tokens int64) entity.TelemetryEvent {
		return entity.TelemetryEvent{Timestamp: now, DeviceID: device, StoreNumber: store, TokensUsed: tokens}
	}

	t.Run("empty inputs", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, PredictCosts(nil, []entity.TelemetryEvent{usage("pos-1", "100", 10)}))
		require.Nil(t, PredictCosts(map[string]CostModel{"pos-1_100": {}}, nil))
	})

	t.Run("token coefficient preferred", func(t *testing.T) {
		t.Parallel()
		models := map[string]CostModel{
			"pos-1_100": {TokenCoefficient: 0.9, CallCoefficient: 0.9, AvgCostPerToken: 0.01, AvgCostPerCall: 1, HistoricalAvg: 3},
		}
		predictions := PredictCosts(models, []entity.TelemetryEvent{
			usage("pos-1", "100", 600),
			usage("pos-1", "100", 400),
		})
		require.InDelta(t, 10.0, predictions["pos-1_100"], 1e-9)
	})

	t.Run("call coefficient fallback", func(t *testing.T) {
		t.Parallel()
		models := map[string]CostModel{
			"pos-1_100": {TokenCoefficient: 0.1, CallCoefficient: 0.8, AvgCostPerCall: 0.1, HistoricalAvg: 3},
		}
		predictions := PredictCosts(models, []entity.TelemetryEvent{
			usage("pos-1", "100", 10),
			usage("pos-1", "100", 10),
			usage("pos-1", "100", 10),
		})
		require.InDelta(t, 0.3, predictions["pos-1_100"], 1e-9)
	})

	t.Run("historical mean fallback and unmodeled devices skipped", func(t *testing.T) {
		t.Parallel()
		models := map[string]CostModel{
			"pos-1_100": {TokenCoefficient: 0.1, CallCoefficient: 0.1, HistoricalAvg: 3},
		}
		predictions := PredictCosts(models, []entity.TelemetryEvent{
			usage("pos-1", "100", 10),
			usage("pos-9", "100", 10),
		})
		require.Len(t, predictions, 1)
		require.InDelta(t, 3.0, predictions["pos-1_100"], 1e-9)
	})

	t.Run("never negative", func(t *testing.T) {
		t.Parallel()
		models := map[string]CostModel{
			"pos-1_100": {TokenCoefficient: 0.1, CallCoefficient: 0.1, HistoricalAvg: -5},
		}
		predictions := PredictCosts(models, []entity.TelemetryEvent{usage("pos-1", "100", 10)})
		require.Zero(t, predictions["pos-1_100"])
	})
}
