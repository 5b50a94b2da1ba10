package repository

import (
	"context"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// StorageRepository persists one run's output, partitioned by date. The
// engine depends on nothing about the physical layout beyond one logical
// write per run.
type StorageRepository interface {
	StoreAllocatedRecords(ctx context.Context, records []entity.AllocatedRecord) ([]string, error)
	StoreRawTelemetry(ctx context.Context, events []entity.TelemetryEvent) (string, error)
	StoreRawCosts(ctx context.Context, events []entity.CostEvent) (string, error)
}
