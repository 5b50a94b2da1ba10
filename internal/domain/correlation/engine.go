package correlation

import (
	"log/slog"
	"time"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// Engine runs the full correlation pipeline over one telemetry batch and
// one cost batch: window, join, allocate, enrich, validate. It is a pure
// transform over its inputs; reruns with the same inputs produce the
// same allocation.
type Engine struct {
	windower *Windower
	enricher *Enricher
	log      *slog.Logger
}

// NewEngine creates an engine with the given window width.
func NewEngine(windowWidth time.Duration, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		windower: NewWindower(windowWidth),
		enricher: NewEnricher(time.Now),
		log:      log,
	}
}

// Run correlates telemetry with cost records and allocates each
// window/resource group's cost under the given method. An empty input on
// either side returns an empty result; a non-empty join miss is logged
// as a warning since it usually points at a window configuration issue.
func (e *Engine) Run(
	telemetry []entity.TelemetryEvent,
	costs []entity.CostEvent,
	method entity.AllocationMethod,
) ([]entity.AllocatedRecord, entity.CorrelationSummary) {
	e.log.Info("starting correlation",
		"telemetry_records", len(telemetry),
		"cost_records", len(costs),
		"method", string(method))

	if len(telemetry) == 0 || len(costs) == 0 {
		e.log.Info("no data to correlate")
		return nil, summarize(nil, method)
	}

	aggregates := e.windower.AggregateTelemetry(telemetry)
	windowedCosts := e.windower.WindowCosts(costs)

	groups := Correlate(aggregates, windowedCosts)
	if len(groups) == 0 {
		e.log.Warn("no window/resource overlap between telemetry and cost streams",
			"telemetry_aggregates", len(aggregates),
			"cost_rows", len(windowedCosts))
		return nil, summarize(nil, method)
	}
	e.log.Info("correlated groups found", "groups", len(groups))

	var records []entity.AllocatedRecord
	for _, group := range groups {
		allocated := Allocate(group, method)
		for i := range allocated {
			e.enricher.Enrich(&allocated[i])
		}
		if !ConservationHolds(allocated, group.Cost.Cost) {
			// A bug in allocation math, flagged for validation rather
			// than aborting the run.
			e.log.Warn("cost conservation violated",
				"window", group.Window,
				"resource_id", group.ResourceID,
				"total_cost", group.Cost.Cost)
		}
		records = append(records, allocated...)
	}

	summary := summarize(records, method)
	e.log.Info("correlation complete",
		"allocated_records", len(records),
		"total_allocated_cost", summary.TotalAllocatedCost)
	return records, summary
}

// summarize computes run-level statistics over the allocation output.
func summarize(records []entity.AllocatedRecord, method entity.AllocationMethod) entity.CorrelationSummary {
	summary := entity.CorrelationSummary{
		AllocationMethod: method,
		CostByStore:      make(map[string]float64),
		CostByShift:      make(map[string]float64),
		CostByModel:      make(map[string]float64),
	}
	if len(records) == 0 {
		return summary
	}

	devices := make(map[string]struct{})
	stores := make(map[string]struct{})
	var unknownDevices, unknownStores int
	var confidenceSum, accuracySum, utilizationSum float64

	for _, r := range records {
		summary.TotalAllocatedCost += r.AllocatedCost
		devices[r.DeviceID] = struct{}{}
		stores[r.StoreNumber] = struct{}{}
		if r.IsUnknownDevice {
			unknownDevices++
		}
		if r.IsUnknownStore {
			unknownStores++
		}
		confidenceSum += r.Confidence
		accuracySum += r.Accuracy
		utilizationSum += r.Utilization
		summary.CostByStore[r.StoreNumber] += r.AllocatedCost
		summary.CostByShift[r.ShiftCategory] += r.AllocatedCost
		summary.CostByModel[r.ModelFamily] += r.AllocatedCost
	}

	n := float64(len(records))
	summary.TotalRecords = len(records)
	summary.UniqueDevices = len(devices)
	summary.UniqueStores = len(stores)
	summary.UnknownDevicePercent = float64(unknownDevices) / n * 100
	summary.UnknownStorePercent = float64(unknownStores) / n * 100
	summary.AvgConfidence = confidenceSum / n
	summary.AvgAccuracy = accuracySum / n
	summary.AvgUtilization = utilizationSum / n
	return summary
}
