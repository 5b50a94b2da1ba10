package repository

import (
	"context"
	"time"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// TelemetryRepository supplies gateway telemetry for a bounded lookback
// window. Implementations retry transient faults with bounded backoff and
// degrade to an empty batch; permission failures are fatal and surfaced
// as types.ErrPermissionDenied.
type TelemetryRepository interface {
	FetchTelemetry(ctx context.Context, start, end time.Time) ([]entity.TelemetryEvent, error)
}
