package entity

import "time"

// CostEvent represents one metered billing record for a resource, as
// returned by the cost source at daily granularity.
type CostEvent struct {
	ResourceID    string    `json:"resource_id"`
	UsageDate     time.Time `json:"usage_date"`
	Cost          float64   `json:"cost"`
	UsageQuantity float64   `json:"usage_quantity"`
	Currency      string    `json:"currency"`
	MeterName     string    `json:"meter_name"`
	ServiceName   string    `json:"service_name"`

	// Derived categorization, filled by the cost source.
	CostType    string  `json:"cost_type"`
	TokenType   string  `json:"token_type,omitempty"`
	ModelFamily string  `json:"model_family"`
	CostPerUnit float64 `json:"cost_per_unit"`
}

// IsTokenBased reports whether the meter bills per token.
func (c CostEvent) IsTokenBased() bool {
	return c.TokenType != ""
}

// CostSummary captures batch-level cost statistics for operator output.
type CostSummary struct {
	TotalCost       float64            `json:"total_cost"`
	TotalUsage      float64            `json:"total_usage"`
	UniqueResources int                `json:"unique_resources"`
	CostByType      map[string]float64 `json:"cost_by_type"`
	CostByModel     map[string]float64 `json:"cost_by_model"`
	PeriodStart     time.Time          `json:"period_start"`
	PeriodEnd       time.Time          `json:"period_end"`
}

// SummarizeCosts computes batch statistics over raw cost events for the
// given collection period.
func SummarizeCosts(events []CostEvent, start, end time.Time) CostSummary {
	summary := CostSummary{
		CostByType:  make(map[string]float64),
		CostByModel: make(map[string]float64),
		PeriodStart: start,
		PeriodEnd:   end,
	}

	resources := make(map[string]struct{})
	for _, ev := range events {
		summary.TotalCost += ev.Cost
		summary.TotalUsage += ev.UsageQuantity
		resources[ev.ResourceID] = struct{}{}
		summary.CostByType[ev.CostType] += ev.Cost
		summary.CostByModel[ev.ModelFamily] += ev.Cost
	}
	summary.UniqueResources = len(resources)
	return summary
}
