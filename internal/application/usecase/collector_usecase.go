package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/retailops/finops-correlator/internal/domain/analytics"
	"github.com/retailops/finops-correlator/internal/domain/correlation"
	"github.com/retailops/finops-correlator/internal/domain/entity"
	"github.com/retailops/finops-correlator/internal/domain/repository"
	"github.com/retailops/finops-correlator/internal/shared/types"
)

// CollectorUseCase drives one collection cycle: fetch telemetry and cost
// batches for the lookback window, correlate and allocate them, and
// persist the output. It also owns the scheduled loop.
type CollectorUseCase struct {
	cfg           types.Config
	telemetryRepo repository.TelemetryRepository
	costRepo      repository.CostRepository
	storageRepo   repository.StorageRepository
	engine        *correlation.Engine
	log           *slog.Logger
	clock         clockwork.Clock
	dryRun        bool
}

// NewCollectorUseCase creates a new collector use case.
func NewCollectorUseCase(
	cfg types.Config,
	telemetryRepo repository.TelemetryRepository,
	costRepo repository.CostRepository,
	storageRepo repository.StorageRepository,
	engine *correlation.Engine,
	log *slog.Logger,
	clock clockwork.Clock,
	dryRun bool,
) *CollectorUseCase {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CollectorUseCase{
		cfg:           cfg,
		telemetryRepo: telemetryRepo,
		costRepo:      costRepo,
		storageRepo:   storageRepo,
		engine:        engine,
		log:           log,
		clock:         clock,
		dryRun:        dryRun,
	}
}

// RunOnce executes a single collection cycle and returns the run summary.
// An empty telemetry or cost batch skips the cycle without error; a
// permission failure aborts it so the operator can fix IAM instead of
// silently producing empty runs.
func (uc *CollectorUseCase) RunOnce(ctx context.Context) (*entity.CorrelationSummary, error) {
	end := uc.clock.Now().UTC()
	start := end.Add(-uc.cfg.Lookback())
	uc.log.Info("collection cycle starting", "start", start, "end", end)

	telemetry, err := uc.telemetryRepo.FetchTelemetry(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching telemetry: %w", err)
	}

	costs, err := uc.costRepo.FetchCosts(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching costs: %w", err)
	}

	telemetryStats := entity.SummarizeTelemetry(telemetry)
	costStats := entity.SummarizeCosts(costs, start, end)
	uc.log.Debug("batches fetched",
		"telemetry_records", telemetryStats.TotalRecords,
		"total_tokens", telemetryStats.TotalTokens,
		"success_rate", telemetryStats.SuccessRate,
		"cost_records", len(costs),
		"total_cost", costStats.TotalCost,
		"unique_resources", costStats.UniqueResources)

	if len(telemetry) == 0 || len(costs) == 0 {
		uc.log.Info("nothing to correlate this cycle",
			"telemetry_records", len(telemetry),
			"cost_records", len(costs))
		summary := entity.CorrelationSummary{AllocationMethod: uc.allocationMethod(nil, nil)}
		return &summary, nil
	}

	method := uc.allocationMethod(telemetry, costs)
	records, summary := uc.engine.Run(telemetry, costs, method)
	uc.runAnalytics(telemetry, costs, records)

	if uc.dryRun {
		uc.log.Info("dry run, skipping storage", "allocated_records", len(records))
		return &summary, nil
	}

	if _, err := uc.storageRepo.StoreRawTelemetry(ctx, telemetry); err != nil {
		return nil, fmt.Errorf("storing raw telemetry: %w", err)
	}
	if _, err := uc.storageRepo.StoreRawCosts(ctx, costs); err != nil {
		return nil, fmt.Errorf("storing raw costs: %w", err)
	}
	if len(records) > 0 {
		keys, err := uc.storageRepo.StoreAllocatedRecords(ctx, records)
		if err != nil {
			return nil, fmt.Errorf("storing allocated records: %w", err)
		}
		uc.log.Info("allocation output stored", "objects", len(keys))
	}

	return &summary, nil
}

// RunScheduled runs collection cycles on the configured interval until the
// context is cancelled. A failed cycle is logged and the loop continues,
// except for permission failures which are not recoverable without
// operator action.
func (uc *CollectorUseCase) RunScheduled(ctx context.Context) error {
	uc.log.Info("scheduler starting", "interval", uc.cfg.Interval())

	ticker := uc.clock.NewTicker(uc.cfg.Interval())
	defer ticker.Stop()

	for {
		if _, err := uc.RunOnce(ctx); err != nil {
			if errors.Is(err, types.ErrPermissionDenied) {
				return err
			}
			uc.log.Error("collection cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			uc.log.Info("scheduler stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}

// runAnalytics mines the cycle's batches for operator insight: usage
// patterns, rate anomalies against those patterns, intra-store cost
// spillover, decay-weighted correlation and next-cycle cost predictions.
// Results are logged, not persisted; they are recomputed per cycle.
func (uc *CollectorUseCase) runAnalytics(
	telemetry []entity.TelemetryEvent,
	costs []entity.CostEvent,
	records []entity.AllocatedRecord,
) {
	now := uc.clock.Now().UTC()

	patterns := analytics.AnalyzeUsagePatterns(telemetry, uc.cfg.PatternLookbackDays, now)
	uc.log.Debug("usage patterns mined", "devices", len(patterns))

	anomalies := analytics.DetectAnomalies(telemetry, patterns)
	for _, a := range anomalies {
		uc.log.Warn("usage anomaly detected",
			"device_id", a.DeviceID,
			"store_number", a.StoreNumber,
			"type", a.AnomalyType,
			"severity", a.Severity,
			"token_deviation", a.TokenDeviationRatio)
	}

	for _, store := range analytics.AnalyzeSpillover(records) {
		for _, pair := range store.Pairs {
			uc.log.Info("cost spillover between devices",
				"store_number", store.StoreNumber,
				"device1", pair.Device1,
				"device2", pair.Device2,
				"correlation", pair.Correlation,
				"relationship", pair.Relationship)
		}
	}

	decayed := analytics.DecayWeightedCorrelation(telemetry, costs, uc.cfg.DecayHours, now)
	uc.log.Debug("decay-weighted correlation computed", "records", len(decayed))

	models := analytics.BuildCostModels(records)
	if len(models) > 0 {
		var predictedTotal float64
		for _, p := range analytics.PredictCosts(models, telemetry) {
			predictedTotal += p
		}
		uc.log.Debug("next-cycle cost predicted",
			"models", len(models),
			"predicted_total", predictedTotal)
	}
}

// allocationMethod resolves the method for this cycle, consulting the
// optimizer when auto-selection is enabled.
func (uc *CollectorUseCase) allocationMethod(telemetry []entity.TelemetryEvent, costs []entity.CostEvent) entity.AllocationMethod {
	configured, err := entity.ParseAllocationMethod(uc.cfg.AllocationMethod)
	if err != nil {
		// Config validation rejects bad names before we get here.
		configured = entity.AllocationProportional
	}
	if !uc.cfg.AutoSelectMethod {
		return configured
	}
	method, reason := analytics.OptimizeAllocationMethod(telemetry, costs)
	uc.log.Info("allocation method auto-selected", "method", string(method), "reason", reason)
	return method
}
