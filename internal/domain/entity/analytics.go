package entity

import "time"

// DeviceUsagePattern summarizes a device's usage behavior over a lookback
// period, recomputed per analysis request.
type DeviceUsagePattern struct {
	DeviceID            string  `json:"device_id"`
	StoreNumber         string  `json:"store_number"`
	AvgTokensPerHour    float64 `json:"avg_tokens_per_hour"`
	AvgAPICallsPerHour  float64 `json:"avg_api_calls_per_hour"`
	PeakHours           []int   `json:"peak_hours"`
	UsageConsistency    float64 `json:"usage_consistency_score"`
	CostEfficiencyScore float64 `json:"cost_efficiency_score"`
}

// Anomaly severity and type labels.
const (
	AnomalySpike = "usage_spike"
	AnomalyDrop  = "usage_drop"

	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// AnomalyRecord flags a device whose current usage rate deviates sharply
// from its learned pattern.
type AnomalyRecord struct {
	DeviceID              string  `json:"device_id"`
	StoreNumber           string  `json:"store_number"`
	AnomalyType           string  `json:"anomaly_type"`
	TokenDeviationRatio   float64 `json:"token_deviation_ratio"`
	CallDeviationRatio    float64 `json:"call_deviation_ratio"`
	CurrentTokensPerHour  float64 `json:"current_tokens_per_hour"`
	ExpectedTokensPerHour float64 `json:"expected_tokens_per_hour"`
	Severity              string  `json:"severity"`
}

// SpilloverPair records a strongly correlated cost relationship between
// two devices in the same store.
type SpilloverPair struct {
	Device1      string  `json:"device1"`
	Device2      string  `json:"device2"`
	Correlation  float64 `json:"correlation"`
	Relationship string  `json:"relationship"`
}

// StoreSpillover is the per-store spillover analysis result.
type StoreSpillover struct {
	StoreNumber    string          `json:"store_number"`
	DeviceCount    int             `json:"device_count"`
	Pairs          []SpilloverPair `json:"spillover_pairs"`
	TotalStoreCost float64         `json:"total_store_cost"`
	AvgDeviceCost  float64         `json:"avg_device_cost"`
}

// DecayWeightedRecord is the output of the recency-weighted correlation:
// one device/store combination merged with resource cost on a coarse
// hourly bucket, with exponential decay applied per event.
type DecayWeightedRecord struct {
	Bucket         time.Time `json:"bucket"`
	DeviceID       string    `json:"device_id"`
	StoreNumber    string    `json:"store_number"`
	ResourceID     string    `json:"resource_id"`
	WeightedTokens float64   `json:"weighted_tokens"`
	WeightedCalls  float64   `json:"weighted_calls"`
	WeightedCost   float64   `json:"weighted_cost"`
	WeightedUsage  float64   `json:"weighted_usage"`
}
