package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/retailops/finops-correlator/internal/domain/correlation"
	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// DecayWeightedCorrelation is the recency-weighted alternative to hard
// windowing: each event is weighted by exp(-age_hours/decayHours) before
// summation, then device/store usage and resource cost are merged on a
// coarse hourly bucket of their latest activity. Used when recency
// should dominate over a fixed window boundary.
func DecayWeightedCorrelation(
	telemetry []entity.TelemetryEvent,
	costs []entity.CostEvent,
	decayHours float64,
	now time.Time,
) []entity.DecayWeightedRecord {
	if len(telemetry) == 0 || len(costs) == 0 || decayHours <= 0 {
		return nil
	}
	now = now.UTC()

	type weightedUsage struct {
		deviceID    string
		storeNumber string
		tokens      float64
		calls       float64
		latest      time.Time
	}
	usageByCombo := make(map[comboKey]*weightedUsage)
	for _, ev := range telemetry {
		key := comboKey{
			deviceID:    correlation.NormalizeAttributionID(ev.DeviceID),
			storeNumber: correlation.NormalizeAttributionID(ev.StoreNumber),
		}
		u, ok := usageByCombo[key]
		if !ok {
			u = &weightedUsage{deviceID: key.deviceID, storeNumber: key.storeNumber}
			usageByCombo[key] = u
		}
		w := decayWeight(ev.Timestamp, now, decayHours)
		u.tokens += float64(ev.TokensUsed) * w
		u.calls += w
		if ev.Timestamp.After(u.latest) {
			u.latest = ev.Timestamp
		}
	}

	type weightedCost struct {
		resourceID string
		cost       float64
		usage      float64
		latest     time.Time
	}
	costByResource := make(map[string]*weightedCost)
	for _, ev := range costs {
		resource := correlation.NormalizeResourceID(ev.ResourceID)
		c, ok := costByResource[resource]
		if !ok {
			c = &weightedCost{resourceID: resource}
			costByResource[resource] = c
		}
		w := decayWeight(ev.UsageDate, now, decayHours)
		c.cost += ev.Cost * w
		c.usage += ev.UsageQuantity * w
		if ev.UsageDate.After(c.latest) {
			c.latest = ev.UsageDate
		}
	}

	costByBucket := make(map[int64][]*weightedCost)
	for _, c := range costByResource {
		bucket := c.latest.UTC().Truncate(time.Hour).Unix()
		costByBucket[bucket] = append(costByBucket[bucket], c)
	}

	var records []entity.DecayWeightedRecord
	for _, u := range usageByCombo {
		bucket := u.latest.UTC().Truncate(time.Hour)
		for _, c := range costByBucket[bucket.Unix()] {
			records = append(records, entity.DecayWeightedRecord{
				Bucket:         bucket,
				DeviceID:       u.deviceID,
				StoreNumber:    u.storeNumber,
				ResourceID:     c.resourceID,
				WeightedTokens: u.tokens,
				WeightedCalls:  u.calls,
				WeightedCost:   c.cost,
				WeightedUsage:  c.usage,
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Bucket.Equal(b.Bucket) {
			return a.Bucket.Before(b.Bucket)
		}
		if a.DeviceID != b.DeviceID {
			return a.DeviceID < b.DeviceID
		}
		return a.ResourceID < b.ResourceID
	})
	return records
}

func decayWeight(ts, now time.Time, decayHours float64) float64 {
	ageHours := now.Sub(ts).Hours()
	return math.Exp(-ageHours / decayHours)
}
