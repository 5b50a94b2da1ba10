package aws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwlTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/retailops/finops-correlator/internal/domain/entity"
	"github.com/retailops/finops-correlator/internal/domain/repository"
	"github.com/retailops/finops-correlator/internal/shared/types"
)

const (
	queryPollInterval = 2 * time.Second
	queryMaxWait      = 2 * time.Minute
	queryResultLimit  = 10000
)

// TelemetryRepositoryImpl fetches gateway telemetry from CloudWatch Logs
// Insights. Transient query failures are retried with exponential backoff
// and the repository degrades to an empty batch if retries are exhausted;
// access denials abort immediately.
type TelemetryRepositoryImpl struct {
	client *cloudwatchlogs.Client
	cfg    types.Config
	log    *slog.Logger
}

// NewTelemetryRepository creates a telemetry repository backed by
// CloudWatch Logs Insights.
func NewTelemetryRepository(awsCfg aws.Config, cfg types.Config, log *slog.Logger) repository.TelemetryRepository {
	if log == nil {
		log = slog.Default()
	}
	return &TelemetryRepositoryImpl{
		client: cloudwatchlogs.NewFromConfig(awsCfg),
		cfg:    cfg,
		log:    log,
	}
}

// FetchTelemetry runs an Insights query over the lookback window and
// parses the result rows into telemetry events.
func (r *TelemetryRepositoryImpl) FetchTelemetry(ctx context.Context, start, end time.Time) ([]entity.TelemetryEvent, error) {
	query := r.buildQuery()
	r.log.Debug("running telemetry query",
		"log_group", r.cfg.LogGroupName,
		"start", start,
		"end", end)

	var results [][]cwlTypes.ResultField
	operation := func() error {
		var err error
		results, err = r.runQuery(ctx, query, start, end)
		if err != nil {
			if isAccessDenied(err) {
				return backoff.Permanent(fmt.Errorf("%w: %s", types.ErrPermissionDenied, err))
			}
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(r.cfg.MaxRetryAttempts)),
		ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, types.ErrPermissionDenied) {
			return nil, err
		}
		// Degraded mode: one missed cycle is cheaper than a crash loop.
		r.log.Error("telemetry query failed after retries, returning empty batch", "error", err)
		return nil, nil
	}

	events := make([]entity.TelemetryEvent, 0, len(results))
	for _, row := range results {
		events = append(events, r.parseRow(row))
	}
	r.log.Info("telemetry fetched", "records", len(events))
	return events, nil
}

// buildQuery assembles the Insights query from the configured field names
// and optional filter expression.
func (r *TelemetryRepositoryImpl) buildQuery() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fields @timestamp, request_id, %s, %s, api_name, resource_id, status_code, response_time_ms, tokens_used",
		r.cfg.DeviceIDField, r.cfg.StoreNumField)
	if r.cfg.TelemetryFilter != "" {
		fmt.Fprintf(&b, " | filter %s", r.cfg.TelemetryFilter)
	}
	fmt.Fprintf(&b, " | sort @timestamp desc | limit %d", queryResultLimit)
	return b.String()
}

func (r *TelemetryRepositoryImpl) runQuery(ctx context.Context, query string, start, end time.Time) ([][]cwlTypes.ResultField, error) {
	startOutput, err := r.client.StartQuery(ctx, &cloudwatchlogs.StartQueryInput{
		LogGroupName: aws.String(r.cfg.LogGroupName),
		QueryString:  aws.String(query),
		StartTime:    aws.Int64(start.Unix()),
		EndTime:      aws.Int64(end.Unix()),
	})
	if err != nil {
		return nil, fmt.Errorf("starting insights query: %w", err)
	}

	deadline := time.Now().Add(queryMaxWait)
	for {
		output, err := r.client.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{
			QueryId: startOutput.QueryId,
		})
		if err != nil {
			return nil, fmt.Errorf("polling insights query: %w", err)
		}

		switch output.Status {
		case cwlTypes.QueryStatusComplete:
			return output.Results, nil
		case cwlTypes.QueryStatusFailed, cwlTypes.QueryStatusCancelled:
			return nil, fmt.Errorf("insights query ended with status %s", output.Status)
		case cwlTypes.QueryStatusTimeout:
			// Partial results are still usable for this cycle.
			r.log.Warn("insights query timed out, using partial results", "rows", len(output.Results))
			return output.Results, nil
		}

		if time.Now().After(deadline) {
			r.log.Warn("insights query exceeded wait budget, using partial results", "rows", len(output.Results))
			return output.Results, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(queryPollInterval):
		}
	}
}

// parseRow converts one Insights result row. Missing attribution fields
// become "unknown" and unparsable numerics become zero so one bad log
// line cannot poison the batch.
func (r *TelemetryRepositoryImpl) parseRow(row []cwlTypes.ResultField) entity.TelemetryEvent {
	fields := make(map[string]string, len(row))
	for _, f := range row {
		fields[aws.ToString(f.Field)] = aws.ToString(f.Value)
	}

	event := entity.TelemetryEvent{
		RequestID:   fields["request_id"],
		DeviceID:    stringOr(fields[r.cfg.DeviceIDField], entity.UnknownID),
		StoreNumber: stringOr(fields[r.cfg.StoreNumField], entity.UnknownID),
		APIName:     fields["api_name"],
		ResourceID:  stringOr(fields["resource_id"], entity.UnknownID),
	}

	if ts, err := time.Parse("2006-01-02 15:04:05.000", fields["@timestamp"]); err == nil {
		event.Timestamp = ts.UTC()
	} else if ts, err := time.Parse(time.RFC3339, fields["@timestamp"]); err == nil {
		event.Timestamp = ts.UTC()
	}

	event.StatusCode = int(parseFloat(fields["status_code"]))
	event.ResponseTimeMs = parseFloat(fields["response_time_ms"])
	event.TokensUsed = int64(parseFloat(fields["tokens_used"]))
	return event
}

func stringOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}
