package analytics

import (
	"github.com/retailops/finops-correlator/internal/domain/correlation"
	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// OptimizeAllocationMethod inspects a batch's usage distribution and
// recommends the allocation method most likely to attribute it fairly.
// The returned reason is meant for logs.
//
// Decision order: a majority of unknown devices forces equal allocation;
// high token dispersion prefers token-based; high call-count dispersion
// prefers usage-based; everything else falls through to proportional.
// Dispersion is measured as sample variance over mean.
func OptimizeAllocationMethod(telemetry []entity.TelemetryEvent, costs []entity.CostEvent) (entity.AllocationMethod, string) {
	if len(telemetry) == 0 || len(costs) == 0 {
		return entity.AllocationEqual, "no data to analyze"
	}

	tokens := make([]float64, len(telemetry))
	devices := make(map[string]struct{})
	callsPerCombo := make(map[string]float64)
	var unknownCount int

	for i, ev := range telemetry {
		tokens[i] = float64(ev.TokensUsed)
		device := correlation.NormalizeAttributionID(ev.DeviceID)
		store := correlation.NormalizeAttributionID(ev.StoreNumber)
		devices[device] = struct{}{}
		callsPerCombo[device+"_"+store]++
		if device == entity.UnknownID {
			unknownCount++
		}
	}

	tokenMean := mean(tokens)
	tokenCV := sampleVariance(tokens) / max1(tokenMean)

	callCounts := make([]float64, 0, len(callsPerCombo))
	for _, c := range callsPerCombo {
		callCounts = append(callCounts, c)
	}
	callCV := sampleVariance(callCounts) / max1(mean(callCounts))

	unknownRatio := float64(unknownCount) / float64(len(telemetry))

	switch {
	case unknownRatio > 0.5:
		return entity.AllocationEqual, "high ratio of unknown devices"
	case tokenCV > 2.0 && tokenMean > 0:
		return entity.AllocationTokenBased, "high token usage variance between devices"
	case callCV > 1.5:
		return entity.AllocationUsageBased, "high API call variance between devices"
	case len(devices) > 10:
		return entity.AllocationProportional, "large number of devices with moderate variance"
	default:
		return entity.AllocationProportional, "balanced usage patterns"
	}
}

func max1(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}
