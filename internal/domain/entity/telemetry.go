package entity

import "time"

// UnknownID is the sentinel used when a device or store identifier is
// missing from the upstream telemetry.
const UnknownID = "unknown"

// TelemetryEvent represents a single API call observed by the gateway,
// tagged with the device and store that issued it.
type TelemetryEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	RequestID      string    `json:"request_id,omitempty"`
	DeviceID       string    `json:"device_id"`
	StoreNumber    string    `json:"store_number"`
	APIName        string    `json:"api_name,omitempty"`
	ResourceID     string    `json:"resource_id"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs float64   `json:"response_time_ms"`
	TokensUsed     int64     `json:"tokens_used"`
}

// TelemetryAggregate is one row per (window, resource, device, store):
// the windowed reduction of raw telemetry used as the join input.
type TelemetryAggregate struct {
	Window            time.Time `json:"window"`
	ResourceID        string    `json:"resource_id"`
	DeviceID          string    `json:"device_id"`
	StoreNumber       string    `json:"store_number"`
	TotalTokens       int64     `json:"total_tokens"`
	APICalls          int64     `json:"api_calls"`
	AvgResponseTimeMs float64   `json:"avg_response_time_ms"`
}

// DeviceStoreKey returns the composite attribution key for the aggregate.
func (a TelemetryAggregate) DeviceStoreKey() string {
	return a.DeviceID + "_" + a.StoreNumber
}

// TelemetrySummary captures batch-level statistics for operator output.
type TelemetrySummary struct {
	TotalRecords      int     `json:"total_records"`
	UniqueDevices     int     `json:"unique_devices"`
	UniqueStores      int     `json:"unique_stores"`
	TotalTokens       int64   `json:"total_tokens"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	SuccessRate       float64 `json:"success_rate"`
}

// SummarizeTelemetry computes batch statistics over raw telemetry. A
// status code below 400 counts as success.
func SummarizeTelemetry(events []TelemetryEvent) TelemetrySummary {
	summary := TelemetrySummary{TotalRecords: len(events)}
	if len(events) == 0 {
		return summary
	}

	devices := make(map[string]struct{})
	stores := make(map[string]struct{})
	var responseTotal float64
	var successes int
	for _, ev := range events {
		devices[ev.DeviceID] = struct{}{}
		stores[ev.StoreNumber] = struct{}{}
		summary.TotalTokens += ev.TokensUsed
		responseTotal += ev.ResponseTimeMs
		if ev.StatusCode < 400 {
			successes++
		}
	}

	n := float64(len(events))
	summary.UniqueDevices = len(devices)
	summary.UniqueStores = len(stores)
	summary.AvgResponseTimeMs = responseTotal / n
	summary.SuccessRate = float64(successes) / n
	return summary
}
