package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/retailops/finops-correlator/internal/domain/correlation"
	"github.com/retailops/finops-correlator/internal/domain/entity"
	"github.com/retailops/finops-correlator/internal/shared/types"
)

type fakeTelemetryRepo struct {
	mu     sync.Mutex
	events []entity.TelemetryEvent
	err    error
	calls  int
}

func (f *fakeTelemetryRepo) FetchTelemetry(_ context.Context, _, _ time.Time) ([]entity.TelemetryEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.events, f.err
}

func (f *fakeTelemetryRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCostRepo struct {
	events []entity.CostEvent
	err    error
}

func (f *fakeCostRepo) FetchCosts(_ context.Context, _, _ time.Time) ([]entity.CostEvent, error) {
	return f.events, f.err
}

type fakeStorageRepo struct {
	mu             sync.Mutex
	allocated      []entity.AllocatedRecord
	rawTelemetry   int
	rawCosts       int
	allocatedCalls int
	err            error
}

func (f *fakeStorageRepo) StoreAllocatedRecords(_ context.Context, records []entity.AllocatedRecord) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.allocatedCalls++
	f.allocated = append(f.allocated, records...)
	return []string{"key.json", "key.csv"}, nil
}

func (f *fakeStorageRepo) StoreRawTelemetry(_ context.Context, _ []entity.TelemetryEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.rawTelemetry++
	return "raw.json", nil
}

func (f *fakeStorageRepo) StoreRawCosts(_ context.Context, _ []entity.CostEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.rawCosts++
	return "costs.json", nil
}

func testConfig() types.Config {
	cfg := types.DefaultConfig()
	cfg.LogGroupName = "/aws/gateway/telemetry"
	cfg.Bucket = "finops-test"
	return cfg
}

func testBatches(window time.Time) ([]entity.TelemetryEvent, []entity.CostEvent) {
	telemetry := []entity.TelemetryEvent{
		{Timestamp: window.Add(5 * time.Minute), ResourceID: "ep-1", DeviceID: "pos-1", StoreNumber: "100", TokensUsed: 600},
		{Timestamp: window.Add(10 * time.Minute), ResourceID: "ep-1", DeviceID: "pos-2", StoreNumber: "100", TokensUsed: 400},
	}
	costs := []entity.CostEvent{
		{ResourceID: "ep-1", UsageDate: window.Add(30 * time.Minute), Cost: 10},
	}
	return telemetry, costs
}

func TestCollectorRunOnce(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC)
	window := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	cfg := testConfig()

	t.Run("happy path stores output", func(t *testing.T) {
		t.Parallel()
		telemetry, costs := testBatches(window)
		storage := &fakeStorageRepo{}
		uc := NewCollectorUseCase(cfg,
			&fakeTelemetryRepo{events: telemetry},
			&fakeCostRepo{events: costs},
			storage,
			correlation.NewEngine(cfg.WindowWidth(), nil),
			nil,
			clockwork.NewFakeClockAt(now),
			false)

		summary, err := uc.RunOnce(context.Background())
		require.NoError(t, err)
		require.Equal(t, 2, summary.TotalRecords)
		require.InDelta(t, 10.0, summary.TotalAllocatedCost, 1e-9)

		require.Equal(t, 1, storage.rawTelemetry)
		require.Equal(t, 1, storage.rawCosts)
		require.Equal(t, 1, storage.allocatedCalls)
		require.Len(t, storage.allocated, 2)
	})

	t.Run("empty telemetry skips cycle", func(t *testing.T) {
		t.Parallel()
		_, costs := testBatches(window)
		storage := &fakeStorageRepo{}
		uc := NewCollectorUseCase(cfg,
			&fakeTelemetryRepo{},
			&fakeCostRepo{events: costs},
			storage,
			correlation.NewEngine(cfg.WindowWidth(), nil),
			nil,
			clockwork.NewFakeClockAt(now),
			false)

		summary, err := uc.RunOnce(context.Background())
		require.NoError(t, err)
		require.Zero(t, summary.TotalRecords)
		require.Zero(t, storage.rawTelemetry)
		require.Zero(t, storage.allocatedCalls)
	})

	t.Run("permission failure propagates", func(t *testing.T) {
		t.Parallel()
		uc := NewCollectorUseCase(cfg,
			&fakeTelemetryRepo{err: types.ErrPermissionDenied},
			&fakeCostRepo{},
			&fakeStorageRepo{},
			correlation.NewEngine(cfg.WindowWidth(), nil),
			nil,
			clockwork.NewFakeClockAt(now),
			false)

		_, err := uc.RunOnce(context.Background())
		require.ErrorIs(t, err, types.ErrPermissionDenied)
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		t.Parallel()
		telemetry, costs := testBatches(window)
		storage := &fakeStorageRepo{}
		uc := NewCollectorUseCase(cfg,
			&fakeTelemetryRepo{events: telemetry},
			&fakeCostRepo{events: costs},
			storage,
			correlation.NewEngine(cfg.WindowWidth(), nil),
			nil,
			clockwork.NewFakeClockAt(now),
			true)

		summary, err := uc.RunOnce(context.Background())
		require.NoError(t, err)
		require.Equal(t, 2, summary.TotalRecords)
		require.Zero(t, storage.rawTelemetry)
		require.Zero(t, storage.allocatedCalls)
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		t.Parallel()
		telemetry, costs := testBatches(window)
		boom := errors.New("bucket gone")
		uc := NewCollectorUseCase(cfg,
			&fakeTelemetryRepo{events: telemetry},
			&fakeCostRepo{events: costs},
			&fakeStorageRepo{err: boom},
			correlation.NewEngine(cfg.WindowWidth(), nil),
			nil,
			clockwork.NewFakeClockAt(now),
			false)

		_, err := uc.RunOnce(context.Background())
		require.ErrorIs(t, err, boom)
	})

	t.Run("auto select overrides configured method", func(t *testing.T) {
		t.Parallel()
		autoCfg := testConfig()
		autoCfg.AutoSelectMethod = true
		autoCfg.AllocationMethod = "equal"

		// The 600/400 token split has high dispersion, so the optimizer
		// picks token-based over the configured equal method.
		telemetry, costs := testBatches(window)
		uc := NewCollectorUseCase(autoCfg,
			&fakeTelemetryRepo{events: telemetry},
			&fakeCostRepo{events: costs},
			&fakeStorageRepo{},
			correlation.NewEngine(autoCfg.WindowWidth(), nil),
			nil,
			clockwork.NewFakeClockAt(now),
			false)

		summary, err := uc.RunOnce(context.Background())
		require.NoError(t, err)
		require.Equal(t, entity.AllocationTokenBased, summary.AllocationMethod)
	})
}

func TestCollectorRunScheduled(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC)
	cfg := testConfig()

	t.Run("runs on the interval until cancelled", func(t *testing.T) {
		t.Parallel()
		clock := clockwork.NewFakeClockAt(now)
		telemetryRepo := &fakeTelemetryRepo{}
		uc := NewCollectorUseCase(cfg,
			telemetryRepo,
			&fakeCostRepo{},
			&fakeStorageRepo{},
			correlation.NewEngine(cfg.WindowWidth(), nil),
			nil,
			clock,
			false)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- uc.RunScheduled(ctx) }()

		// First cycle runs immediately, then the loop waits on the ticker.
		clock.BlockUntil(1)
		require.Eventually(t, func() bool { return telemetryRepo.callCount() == 1 },
			time.Second, time.Millisecond)

		clock.Advance(cfg.Interval())
		require.Eventually(t, func() bool { return telemetryRepo.callCount() == 2 },
			time.Second, time.Millisecond)

		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("permission failure stops the loop", func(t *testing.T) {
		t.Parallel()
		uc := NewCollectorUseCase(cfg,
			&fakeTelemetryRepo{err: types.ErrPermissionDenied},
			&fakeCostRepo{},
			&fakeStorageRepo{},
			correlation.NewEngine(cfg.WindowWidth(), nil),
			nil,
			clockwork.NewFakeClockAt(now),
			false)

		err := uc.RunScheduled(context.Background())
		require.ErrorIs(t, err, types.ErrPermissionDenied)
	})
}
