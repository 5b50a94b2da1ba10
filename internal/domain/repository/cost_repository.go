package repository

import (
	"context"
	"time"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// CostRepository supplies metered billing records for a bounded lookback
// window, grouped by resource and day. On throttling it returns an empty
// batch so the scheduled run is skipped and retried next cycle.
type CostRepository interface {
	FetchCosts(ctx context.Context, start, end time.Time) ([]entity.CostEvent, error)
}
