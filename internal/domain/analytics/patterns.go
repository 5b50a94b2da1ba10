package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/retailops/finops-correlator/internal/domain/correlation"
	"github.com/retailops/finops-correlator/internal/domain/entity"
)

type comboKey struct {
	deviceID    string
	storeNumber string
}

// AnalyzeUsagePatterns mines the per-device usage behavior within a
// lookback period: hourly token histograms, peak hours (top quintile by
// token volume), a consistency score from the coefficient of variation
// and a token-per-call efficiency score. Combinations with unknown
// device or store are skipped since they cannot be attributed.
func AnalyzeUsagePatterns(events []entity.TelemetryEvent, lookbackDays int, now time.Time) []entity.DeviceUsagePattern {
	if len(events) == 0 {
		return nil
	}

	cutoff := now.UTC().AddDate(0, 0, -lookbackDays)
	grouped := make(map[comboKey][]entity.TelemetryEvent)
	for _, ev := range events {
		if ev.Timestamp.Before(cutoff) {
			continue
		}
		key := comboKey{
			deviceID:    correlation.NormalizeAttributionID(ev.DeviceID),
			storeNumber: correlation.NormalizeAttributionID(ev.StoreNumber),
		}
		if key.deviceID == entity.UnknownID || key.storeNumber == entity.UnknownID {
			continue
		}
		grouped[key] = append(grouped[key], ev)
	}

	patterns := make([]entity.DeviceUsagePattern, 0, len(grouped))
	for key, group := range grouped {
		patterns = append(patterns, analyzeDevicePattern(key, group))
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].StoreNumber != patterns[j].StoreNumber {
			return patterns[i].StoreNumber < patterns[j].StoreNumber
		}
		return patterns[i].DeviceID < patterns[j].DeviceID
	})
	return patterns
}

func analyzeDevicePattern(key comboKey, events []entity.TelemetryEvent) entity.DeviceUsagePattern {
	hourlyTokens := make(map[int]float64)
	activeHours := make(map[int64]struct{})
	var totalTokens int64

	for _, ev := range events {
		ts := ev.Timestamp.UTC()
		hourlyTokens[ts.Hour()] += float64(ev.TokensUsed)
		activeHours[ts.Truncate(time.Hour).Unix()] = struct{}{}
		totalTokens += ev.TokensUsed
	}

	hours := float64(len(activeHours))
	if hours < 1 {
		hours = 1
	}

	totals := make([]float64, 0, len(hourlyTokens))
	for _, t := range hourlyTokens {
		totals = append(totals, t)
	}

	peakThreshold := quantile(totals, 0.8)
	var peakHours []int
	for hour, t := range hourlyTokens {
		if t >= peakThreshold {
			peakHours = append(peakHours, hour)
		}
	}
	sort.Ints(peakHours)

	tokenCV := sampleStdDev(totals) / (mean(totals) + 1)
	consistency := math.Max(0, 1-tokenCV)

	tokensPerCall := float64(totalTokens) / float64(maxInt(len(events), 1))
	efficiency := math.Min(tokensPerCall/1000.0, 1.0)

	return entity.DeviceUsagePattern{
		DeviceID:            key.deviceID,
		StoreNumber:         key.storeNumber,
		AvgTokensPerHour:    float64(totalTokens) / hours,
		AvgAPICallsPerHour:  float64(len(events)) / hours,
		PeakHours:           peakHours,
		UsageConsistency:    consistency,
		CostEfficiencyScore: efficiency,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
