package analytics

import (
	"math"
	"sort"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// spilloverThreshold is the minimum absolute Pearson correlation for a
// device pair to be reported.
const spilloverThreshold = 0.7

// AnalyzeSpillover looks for devices in the same store whose allocated
// costs move together across time windows. Per-device cost series are
// aligned on the windows both devices were active in; pairs need at
// least two common windows to correlate. Stores with a single device
// are skipped.
func AnalyzeSpillover(records []entity.AllocatedRecord) []entity.StoreSpillover {
	if len(records) == 0 {
		return nil
	}

	type deviceSeries map[int64]float64
	byStore := make(map[string]map[string]deviceSeries)
	for _, r := range records {
		if r.StoreNumber == entity.UnknownID || r.DeviceID == entity.UnknownID {
			continue
		}
		devices, ok := byStore[r.StoreNumber]
		if !ok {
			devices = make(map[string]deviceSeries)
			byStore[r.StoreNumber] = devices
		}
		series, ok := devices[r.DeviceID]
		if !ok {
			series = make(deviceSeries)
			devices[r.DeviceID] = series
		}
		series[r.Window.Unix()] += r.AllocatedCost
	}

	var results []entity.StoreSpillover
	for store, devices := range byStore {
		if len(devices) < 2 {
			continue
		}

		names := make([]string, 0, len(devices))
		for name := range devices {
			names = append(names, name)
		}
		sort.Strings(names)

		var pairs []entity.SpilloverPair
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				r, ok := alignedPearson(devices[names[i]], devices[names[j]])
				if !ok || math.Abs(r) <= spilloverThreshold {
					continue
				}
				relationship := "positive"
				if r < 0 {
					relationship = "negative"
				}
				pairs = append(pairs, entity.SpilloverPair{
					Device1:      names[i],
					Device2:      names[j],
					Correlation:  r,
					Relationship: relationship,
				})
			}
		}

		var totalCost float64
		deviceTotals := make([]float64, 0, len(devices))
		for _, series := range devices {
			var sum float64
			for _, cost := range series {
				sum += cost
			}
			totalCost += sum
			deviceTotals = append(deviceTotals, sum)
		}

		results = append(results, entity.StoreSpillover{
			StoreNumber:    store,
			DeviceCount:    len(devices),
			Pairs:          pairs,
			TotalStoreCost: totalCost,
			AvgDeviceCost:  mean(deviceTotals),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StoreNumber < results[j].StoreNumber
	})
	return results
}

// alignedPearson correlates two window-indexed cost series over their
// common windows.
func alignedPearson(a, b map[int64]float64) (float64, bool) {
	common := make([]int64, 0, len(a))
	for w := range a {
		if _, ok := b[w]; ok {
			common = append(common, w)
		}
	}
	if len(common) < 2 {
		return 0, false
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	xs := make([]float64, len(common))
	ys := make([]float64, len(common))
	for i, w := range common {
		xs[i] = a[w]
		ys[i] = b[w]
	}
	return pearson(xs, ys), true
}
