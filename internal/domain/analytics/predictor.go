package analytics

import (
	"math"

	"github.com/retailops/finops-correlator/internal/domain/correlation"
	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// minModelSamples is the minimum number of historical records needed to
// fit a per-device cost model.
const minModelSamples = 5

// CostModel is a simple per-device linear model relating usage to
// allocated cost.
type CostModel struct {
	TokenCoefficient float64 `json:"token_coefficient"`
	CallCoefficient  float64 `json:"call_coefficient"`
	AvgCostPerToken  float64 `json:"avg_cost_per_token"`
	AvgCostPerCall   float64 `json:"avg_cost_per_call"`
	HistoricalAvg    float64 `json:"historical_avg"`
}

// BuildCostModels fits a cost model per device/store combination from
// historical allocations. Combinations with fewer than five samples or
// no cost variance are skipped.
func BuildCostModels(historical []entity.AllocatedRecord) map[string]CostModel {
	grouped := make(map[string][]entity.AllocatedRecord)
	for _, r := range historical {
		grouped[r.DeviceStoreKey] = append(grouped[r.DeviceStoreKey], r)
	}

	models := make(map[string]CostModel)
	for key, group := range grouped {
		if len(group) < minModelSamples {
			continue
		}

		costs := make([]float64, len(group))
		tokens := make([]float64, len(group))
		calls := make([]float64, len(group))
		var costSum, tokenSum, callSum float64
		for i, r := range group {
			costs[i] = r.AllocatedCost
			tokens[i] = float64(r.TokensUsed)
			calls[i] = float64(r.APICalls)
			costSum += r.AllocatedCost
			tokenSum += float64(r.TokensUsed)
			callSum += float64(r.APICalls)
		}
		if sampleStdDev(costs) == 0 {
			continue
		}

		models[key] = CostModel{
			TokenCoefficient: pearson(tokens, costs),
			CallCoefficient:  pearson(calls, costs),
			AvgCostPerToken:  costSum / max1(tokenSum),
			AvgCostPerCall:   costSum / max1(callSum),
			HistoricalAvg:    mean(costs),
		}
	}
	return models
}

// PredictCosts applies the fitted models to an unallocated usage batch
// and returns a predicted cost per device/store key. Token correlation
// is preferred when it exceeds 0.5, then call correlation; otherwise the
// historical average carries the prediction. Predictions are never
// negative.
func PredictCosts(models map[string]CostModel, current []entity.TelemetryEvent) map[string]float64 {
	if len(models) == 0 || len(current) == 0 {
		return nil
	}

	type usage struct {
		tokens float64
		calls  float64
	}
	grouped := make(map[string]*usage)
	for _, ev := range current {
		key := correlation.NormalizeAttributionID(ev.DeviceID) + "_" + correlation.NormalizeAttributionID(ev.StoreNumber)
		u, ok := grouped[key]
		if !ok {
			u = &usage{}
			grouped[key] = u
		}
		u.tokens += float64(ev.TokensUsed)
		u.calls++
	}

	predictions := make(map[string]float64)
	for key, u := range grouped {
		model, ok := models[key]
		if !ok {
			continue
		}

		var prediction float64
		switch {
		case model.TokenCoefficient > 0.5:
			prediction = u.tokens * model.AvgCostPerToken
		case model.CallCoefficient > 0.5:
			prediction = u.calls * model.AvgCostPerCall
		default:
			prediction = model.HistoricalAvg
		}
		predictions[key] = math.Max(prediction, 0)
	}
	return predictions
}
