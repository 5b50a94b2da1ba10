package entity

import (
	"fmt"
	"time"
)

// AllocationMethod selects the policy used to split a shared cost across
// the device/store combinations active in one window/resource group.
type AllocationMethod string

const (
	AllocationProportional AllocationMethod = "proportional"
	AllocationEqual        AllocationMethod = "equal"
	AllocationUsageBased   AllocationMethod = "usage-based"
	AllocationTokenBased   AllocationMethod = "token-based"
)

// ParseAllocationMethod validates a configured method name.
func ParseAllocationMethod(s string) (AllocationMethod, error) {
	switch AllocationMethod(s) {
	case AllocationProportional, AllocationEqual, AllocationUsageBased, AllocationTokenBased:
		return AllocationMethod(s), nil
	}
	return "", fmt.Errorf("invalid allocation method: %q", s)
}

// CorrelatedGroup holds every telemetry aggregate that matched one
// (window, resource) cost record. Cost and its categorization are shared
// by all members of the group.
type CorrelatedGroup struct {
	Window     time.Time
	ResourceID string
	Cost       CostEvent
	Members    []TelemetryAggregate
}

// TotalTokens sums token usage across the group's members.
func (g CorrelatedGroup) TotalTokens() int64 {
	var total int64
	for _, m := range g.Members {
		total += m.TotalTokens
	}
	return total
}

// TotalAPICalls sums API calls across the group's members.
func (g CorrelatedGroup) TotalAPICalls() int64 {
	var total int64
	for _, m := range g.Members {
		total += m.APICalls
	}
	return total
}

// AllocatedRecord is the engine's output row: one device/store combination
// with its share of the group cost and the derived quality features.
type AllocatedRecord struct {
	Window            time.Time        `json:"window"`
	ResourceID        string           `json:"resource_id"`
	DeviceID          string           `json:"device_id"`
	StoreNumber       string           `json:"store_number"`
	DeviceStoreKey    string           `json:"device_store_key"`
	AllocatedCost     float64          `json:"allocated_cost"`
	TotalCost         float64          `json:"total_cost"`
	AllocationMethod  AllocationMethod `json:"allocation_method"`
	TokensUsed        int64            `json:"tokens_used"`
	APICalls          int64            `json:"api_calls"`
	AvgResponseTimeMs float64          `json:"avg_response_time_ms"`
	TokenShare        float64          `json:"token_share"`
	APICallShare      float64          `json:"api_call_share"`
	CostType          string           `json:"cost_type"`
	ModelFamily       string           `json:"model_family"`
	MeterName         string           `json:"meter_name"`
	Currency          string           `json:"currency"`

	// Enrichment features.
	CorrelationTimestamp   time.Time `json:"correlation_timestamp"`
	IsUnknownDevice        bool      `json:"is_unknown_device"`
	IsUnknownStore         bool      `json:"is_unknown_store"`
	HasCompleteAttribution bool      `json:"has_complete_attribution"`
	CostPerToken           float64   `json:"cost_per_token"`
	CostPerAPICall         float64   `json:"cost_per_api_call"`
	Hour                   int       `json:"hour"`
	DayOfWeek              string    `json:"day_of_week"`
	IsBusinessHours        bool      `json:"is_business_hours"`
	IsWeekday              bool      `json:"is_weekday"`
	ShiftCategory          string    `json:"shift_category"`
	Confidence             float64   `json:"confidence"`
	Accuracy               float64   `json:"accuracy"`
	Utilization            float64   `json:"utilization"`
}

// CorrelationSummary aggregates one run's allocation output for logging
// and the CLI summary table.
type CorrelationSummary struct {
	TotalRecords         int                `json:"total_records"`
	TotalAllocatedCost   float64            `json:"total_allocated_cost"`
	UniqueDevices        int                `json:"unique_devices"`
	UniqueStores         int                `json:"unique_stores"`
	UnknownDevicePercent float64            `json:"unknown_device_percent"`
	UnknownStorePercent  float64            `json:"unknown_store_percent"`
	AvgConfidence        float64            `json:"avg_confidence"`
	AvgAccuracy          float64            `json:"avg_accuracy"`
	AvgUtilization       float64            `json:"avg_utilization"`
	AllocationMethod     AllocationMethod   `json:"allocation_method"`
	CostByStore          map[string]float64 `json:"cost_by_store"`
	CostByShift          map[string]float64 `json:"cost_by_shift"`
	CostByModel          map[string]float64 `json:"cost_by_model"`
}
