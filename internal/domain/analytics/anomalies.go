package analytics

import (
	"math"
	"time"

	"github.com/retailops/finops-correlator/internal/domain/correlation"
	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// Deviation thresholds for flagging anomalous usage, relative to the
// learned per-hour averages.
const (
	anomalyThreshold      = 2.0
	highSeverityThreshold = 5.0
)

// DetectAnomalies compares each device's current hourly token and call
// rates against its learned pattern and flags deviations beyond 200 %.
// Devices without a learned pattern are skipped.
func DetectAnomalies(current []entity.TelemetryEvent, patterns []entity.DeviceUsagePattern) []entity.AnomalyRecord {
	if len(current) == 0 || len(patterns) == 0 {
		return nil
	}

	patternLookup := make(map[comboKey]entity.DeviceUsagePattern, len(patterns))
	for _, p := range patterns {
		patternLookup[comboKey{deviceID: p.DeviceID, storeNumber: p.StoreNumber}] = p
	}

	grouped := make(map[comboKey][]entity.TelemetryEvent)
	for _, ev := range current {
		key := comboKey{
			deviceID:    correlation.NormalizeAttributionID(ev.DeviceID),
			storeNumber: correlation.NormalizeAttributionID(ev.StoreNumber),
		}
		grouped[key] = append(grouped[key], ev)
	}

	var anomalies []entity.AnomalyRecord
	for key, group := range grouped {
		pattern, ok := patternLookup[key]
		if !ok {
			continue
		}

		activeHours := make(map[int64]struct{})
		var totalTokens int64
		for _, ev := range group {
			activeHours[ev.Timestamp.UTC().Truncate(time.Hour).Unix()] = struct{}{}
			totalTokens += ev.TokensUsed
		}
		hours := float64(len(activeHours))
		if hours < 1 {
			hours = 1
		}

		currentTokensPerHour := float64(totalTokens) / hours
		currentCallsPerHour := float64(len(group)) / hours

		tokenDeviation := math.Abs(currentTokensPerHour-pattern.AvgTokensPerHour) / max1(pattern.AvgTokensPerHour)
		callDeviation := math.Abs(currentCallsPerHour-pattern.AvgAPICallsPerHour) / max1(pattern.AvgAPICallsPerHour)

		if tokenDeviation <= anomalyThreshold && callDeviation <= anomalyThreshold {
			continue
		}

		anomalyType := entity.AnomalyDrop
		if currentTokensPerHour > pattern.AvgTokensPerHour {
			anomalyType = entity.AnomalySpike
		}
		severity := entity.SeverityMedium
		if math.Max(tokenDeviation, callDeviation) > highSeverityThreshold {
			severity = entity.SeverityHigh
		}

		anomalies = append(anomalies, entity.AnomalyRecord{
			DeviceID:              key.deviceID,
			StoreNumber:           key.storeNumber,
			AnomalyType:           anomalyType,
			TokenDeviationRatio:   tokenDeviation,
			CallDeviationRatio:    callDeviation,
			CurrentTokensPerHour:  currentTokensPerHour,
			ExpectedTokensPerHour: pattern.AvgTokensPerHour,
			Severity:              severity,
		})
	}

	return anomalies
}
