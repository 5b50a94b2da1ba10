package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ceTypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/retailops/finops-correlator/internal/domain/correlation"
	"github.com/retailops/finops-correlator/internal/domain/entity"
	"github.com/retailops/finops-correlator/internal/domain/repository"
	"github.com/retailops/finops-correlator/internal/shared/types"
)

// CostRepositoryImpl fetches per-resource billing data from Cost
// Explorer. Throttling degrades to an empty batch so the scheduled run is
// skipped and retried next cycle; access denials are fatal.
type CostRepositoryImpl struct {
	client *costexplorer.Client
	cfg    types.Config
	log    *slog.Logger
}

// NewCostRepository creates a cost repository backed by Cost Explorer.
// Cost Explorer only exists in us-east-1.
func NewCostRepository(awsCfg aws.Config, cfg types.Config, log *slog.Logger) repository.CostRepository {
	if log == nil {
		log = slog.Default()
	}
	regional := awsCfg.Copy()
	regional.Region = "us-east-1"
	return &CostRepositoryImpl{
		client: costexplorer.NewFromConfig(regional),
		cfg:    cfg,
		log:    log,
	}
}

// FetchCosts queries daily per-resource cost and usage for the configured
// services, paginating until the result set is exhausted.
func (r *CostRepositoryImpl) FetchCosts(ctx context.Context, start, end time.Time) ([]entity.CostEvent, error) {
	// Cost Explorer granularity is daily; widen sub-day ranges to the
	// covering day so the window is never empty.
	startDate := start.UTC().Truncate(24 * time.Hour)
	endDate := end.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)

	input := &costexplorer.GetCostAndUsageWithResourcesInput{
		TimePeriod: &ceTypes.DateInterval{
			Start: aws.String(startDate.Format("2006-01-02")),
			End:   aws.String(endDate.Format("2006-01-02")),
		},
		Granularity: ceTypes.GranularityDaily,
		Metrics:     []string{"UnblendedCost", "UsageQuantity"},
		GroupBy: []ceTypes.GroupDefinition{
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("RESOURCE_ID")},
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("USAGE_TYPE")},
		},
		Filter: &ceTypes.Expression{
			Dimensions: &ceTypes.DimensionValues{
				Key:    ceTypes.DimensionService,
				Values: r.cfg.CostServices,
			},
		},
	}

	var events []entity.CostEvent
	for {
		output, err := r.client.GetCostAndUsageWithResources(ctx, input)
		if err != nil {
			if isAccessDenied(err) {
				return nil, fmt.Errorf("%w: cost explorer", types.ErrPermissionDenied)
			}
			if isThrottled(err) {
				r.log.Warn("cost explorer throttled, skipping this cycle", "error", err)
				return nil, nil
			}
			return nil, fmt.Errorf("fetching cost data: %w", err)
		}

		for _, result := range output.ResultsByTime {
			usageDate, _ := time.Parse("2006-01-02", aws.ToString(result.TimePeriod.Start))
			for _, group := range result.Groups {
				events = append(events, r.parseGroup(group, usageDate))
			}
		}

		if output.NextPageToken == nil {
			break
		}
		input.NextPageToken = output.NextPageToken
	}

	r.log.Info("cost data fetched", "records", len(events), "services", r.cfg.CostServices)
	return events, nil
}

func (r *CostRepositoryImpl) parseGroup(group ceTypes.Group, usageDate time.Time) entity.CostEvent {
	resourceID := entity.UnknownID
	usageType := ""
	if len(group.Keys) > 0 {
		resourceID = correlation.NormalizeResourceID(group.Keys[0])
	}
	if len(group.Keys) > 1 {
		usageType = group.Keys[1]
	}

	event := entity.CostEvent{
		ResourceID: resourceID,
		UsageDate:  usageDate.UTC(),
		MeterName:  usageType,
	}
	if len(r.cfg.CostServices) > 0 {
		event.ServiceName = r.cfg.CostServices[0]
	}

	if metric, ok := group.Metrics["UnblendedCost"]; ok {
		event.Cost = parseMetric(metric.Amount)
		event.Currency = aws.ToString(metric.Unit)
	}
	if metric, ok := group.Metrics["UsageQuantity"]; ok {
		event.UsageQuantity = parseMetric(metric.Amount)
	}

	categorizeUsageType(&event)
	if event.UsageQuantity > 0 {
		event.CostPerUnit = event.Cost / event.UsageQuantity
	}
	return event
}

// categorizeUsageType derives the cost type, token direction and model
// family from the billing usage type string.
func categorizeUsageType(event *entity.CostEvent) {
	usage := strings.ToLower(event.MeterName)

	switch {
	case strings.Contains(usage, "token"):
		event.CostType = "token"
		switch {
		case strings.Contains(usage, "input"):
			event.TokenType = "input"
		case strings.Contains(usage, "output"):
			event.TokenType = "output"
		}
	case strings.Contains(usage, "request") || strings.Contains(usage, "invocation"):
		event.CostType = "request"
	case strings.Contains(usage, "provisioned") || strings.Contains(usage, "commitment"):
		event.CostType = "provisioned"
	default:
		event.CostType = "other"
	}

	event.ModelFamily = modelFamily(usage)
}

func modelFamily(usage string) string {
	switch {
	case strings.Contains(usage, "claude"):
		return "claude"
	case strings.Contains(usage, "titan"):
		return "titan"
	case strings.Contains(usage, "llama"):
		return "llama"
	case strings.Contains(usage, "mistral"):
		return "mistral"
	case strings.Contains(usage, "nova"):
		return "nova"
	default:
		return "other"
	}
}

func parseMetric(amount *string) float64 {
	f, err := strconv.ParseFloat(aws.ToString(amount), 64)
	if err != nil {
		return 0
	}
	return f
}
