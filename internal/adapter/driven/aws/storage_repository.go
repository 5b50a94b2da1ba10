package aws

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/retailops/finops-correlator/internal/domain/entity"
	"github.com/retailops/finops-correlator/internal/domain/repository"
	"github.com/retailops/finops-correlator/internal/shared/types"
)

// StorageRepositoryImpl persists run output to S3 under date-partitioned
// prefixes (YYYY/MM/DD). Allocated records are written twice, as JSON for
// downstream pipelines and as CSV for ad-hoc inspection.
type StorageRepositoryImpl struct {
	client *s3.Client
	cfg    types.Config
	log    *slog.Logger
	now    func() time.Time
}

// NewStorageRepository creates an S3-backed storage repository.
func NewStorageRepository(awsCfg aws.Config, cfg types.Config, log *slog.Logger) repository.StorageRepository {
	if log == nil {
		log = slog.Default()
	}
	return &StorageRepositoryImpl{
		client: s3.NewFromConfig(awsCfg),
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// StoreAllocatedRecords writes the allocation output and returns the
// object keys written.
func (r *StorageRepositoryImpl) StoreAllocatedRecords(ctx context.Context, records []entity.AllocatedRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	ts := r.now().UTC()

	jsonKey := fmt.Sprintf("%s/%s/correlated-data-%s.json",
		r.cfg.DataPrefix, ts.Format("2006/01/02"), ts.Format("150405"))
	jsonBody, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encoding allocated records: %w", err)
	}
	if err := r.putObject(ctx, jsonKey, jsonBody, "application/json"); err != nil {
		return nil, err
	}

	csvKey := fmt.Sprintf("%s/%s/correlated-data-%s.csv",
		r.cfg.DataPrefix, ts.Format("2006/01/02"), ts.Format("150405"))
	csvBody, err := recordsCSV(records)
	if err != nil {
		return nil, fmt.Errorf("encoding allocated records as csv: %w", err)
	}
	if err := r.putObject(ctx, csvKey, csvBody, "text/csv"); err != nil {
		return nil, err
	}

	summaryKey := fmt.Sprintf("%s/%s/device-summary-%s.json",
		r.cfg.DataPrefix, ts.Format("2006/01/02"), ts.Format("150405"))
	summaryBody, err := json.Marshal(deviceSummaries(records))
	if err != nil {
		return nil, fmt.Errorf("encoding device summaries: %w", err)
	}
	if err := r.putObject(ctx, summaryKey, summaryBody, "application/json"); err != nil {
		return nil, err
	}

	r.log.Info("allocated records stored",
		"bucket", r.cfg.Bucket,
		"records", len(records),
		"json_key", jsonKey,
		"csv_key", csvKey)
	return []string{jsonKey, csvKey, summaryKey}, nil
}

// deviceSummary is the per-device rollup written alongside the full
// allocation output for cheap downstream lookups.
type deviceSummary struct {
	DeviceID      string  `json:"device_id"`
	StoreNumber   string  `json:"store_number"`
	AllocatedCost float64 `json:"allocated_cost"`
	TokensUsed    int64   `json:"tokens_used"`
	APICalls      int64   `json:"api_calls"`
	Records       int     `json:"records"`
}

func deviceSummaries(records []entity.AllocatedRecord) []deviceSummary {
	index := make(map[string]*deviceSummary)
	keys := make([]string, 0)
	for _, rec := range records {
		s, ok := index[rec.DeviceStoreKey]
		if !ok {
			s = &deviceSummary{DeviceID: rec.DeviceID, StoreNumber: rec.StoreNumber}
			index[rec.DeviceStoreKey] = s
			keys = append(keys, rec.DeviceStoreKey)
		}
		s.AllocatedCost += rec.AllocatedCost
		s.TokensUsed += rec.TokensUsed
		s.APICalls += rec.APICalls
		s.Records++
	}

	sort.Strings(keys)
	out := make([]deviceSummary, 0, len(index))
	for _, k := range keys {
		out = append(out, *index[k])
	}
	return out
}

// StoreRawTelemetry archives the fetched telemetry batch for replay and
// audit.
func (r *StorageRepositoryImpl) StoreRawTelemetry(ctx context.Context, events []entity.TelemetryEvent) (string, error) {
	if len(events) == 0 {
		return "", nil
	}
	ts := r.now().UTC()
	key := fmt.Sprintf("%s/%s/telemetry-%s.json",
		r.cfg.RawTelemetryPrefix, ts.Format("2006/01/02"), ts.Format("150405"))

	body, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("encoding telemetry events: %w", err)
	}
	if err := r.putObject(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// StoreRawCosts archives the fetched cost batch.
func (r *StorageRepositoryImpl) StoreRawCosts(ctx context.Context, events []entity.CostEvent) (string, error) {
	if len(events) == 0 {
		return "", nil
	}
	ts := r.now().UTC()
	key := fmt.Sprintf("%s/%s/costs-%s.json",
		r.cfg.CostDataPrefix, ts.Format("2006/01/02"), ts.Format("150405"))

	body, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("encoding cost events: %w", err)
	}
	if err := r.putObject(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

func (r *StorageRepositoryImpl) putObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		if isAccessDenied(err) {
			return fmt.Errorf("%w: s3 put to %s/%s", types.ErrPermissionDenied, r.cfg.Bucket, key)
		}
		return fmt.Errorf("storing s3://%s/%s: %w", r.cfg.Bucket, key, err)
	}
	return nil
}

func recordsCSV(records []entity.AllocatedRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"window", "resource_id", "device_id", "store_number",
		"allocated_cost", "total_cost", "allocation_method",
		"tokens_used", "api_calls", "avg_response_time_ms",
		"cost_type", "model_family", "shift_category",
		"confidence", "accuracy", "utilization",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, rec := range records {
		row := []string{
			rec.Window.Format(time.RFC3339),
			rec.ResourceID,
			rec.DeviceID,
			rec.StoreNumber,
			formatFloat(rec.AllocatedCost),
			formatFloat(rec.TotalCost),
			string(rec.AllocationMethod),
			strconv.FormatInt(rec.TokensUsed, 10),
			strconv.FormatInt(rec.APICalls, 10),
			formatFloat(rec.AvgResponseTimeMs),
			rec.CostType,
			rec.ModelFamily,
			rec.ShiftCategory,
			formatFloat(rec.Confidence),
			formatFloat(rec.Accuracy),
			formatFloat(rec.Utilization),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
