package correlation

import (
	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// groupTotals carries the denominators shared by every member of one
// correlated group.
type groupTotals struct {
	cost        float64
	totalTokens int64
	totalCalls  int64
	memberCount int
}

// shareFunc computes one member's share of the group cost. Each
// allocation method has its own function so the fallback rules stay
// colocated with the variant they belong to.
type shareFunc func(member entity.TelemetryAggregate, totals groupTotals) float64

func equalShare(_ entity.TelemetryAggregate, totals groupTotals) float64 {
	if totals.memberCount == 0 {
		return 0
	}
	return 1.0 / float64(totals.memberCount)
}

// tokenShare allocates by token proportion. The fallback is per member:
// a member with zero tokens falls back to the equal share even when other
// members of the same group are allocated proportionally.
func tokenShare(member entity.TelemetryAggregate, totals groupTotals) float64 {
	if totals.totalTokens > 0 && member.TotalTokens > 0 {
		return float64(member.TotalTokens) / float64(totals.totalTokens)
	}
	return equalShare(member, totals)
}

// usageShare allocates by API call proportion, with the same per-member
// equal fallback as tokenShare.
func usageShare(member entity.TelemetryAggregate, totals groupTotals) float64 {
	if totals.totalCalls > 0 && member.APICalls > 0 {
		return float64(member.APICalls) / float64(totals.totalCalls)
	}
	return equalShare(member, totals)
}

func shareFuncFor(method entity.AllocationMethod) shareFunc {
	switch method {
	case entity.AllocationEqual:
		return equalShare
	case entity.AllocationUsageBased:
		return usageShare
	case entity.AllocationProportional, entity.AllocationTokenBased:
		return tokenShare
	default:
		return tokenShare
	}
}

// Allocate distributes a correlated group's total cost across its
// device/store combinations under the given method. A group total of
// zero or less allocates zero to every member; this is the only place a
// division by zero is structurally possible and it is guarded here.
func Allocate(group entity.CorrelatedGroup, method entity.AllocationMethod) []entity.AllocatedRecord {
	totals := groupTotals{
		cost:        group.Cost.Cost,
		totalTokens: group.TotalTokens(),
		totalCalls:  group.TotalAPICalls(),
		memberCount: len(group.Members),
	}
	share := shareFuncFor(method)

	records := make([]entity.AllocatedRecord, 0, len(group.Members))
	for _, member := range group.Members {
		var allocated float64
		if totals.cost > 0 {
			allocated = share(member, totals) * totals.cost
		}

		record := entity.AllocatedRecord{
			Window:            group.Window,
			ResourceID:        group.ResourceID,
			DeviceID:          member.DeviceID,
			StoreNumber:       member.StoreNumber,
			DeviceStoreKey:    member.DeviceStoreKey(),
			AllocatedCost:     allocated,
			TotalCost:         totals.cost,
			AllocationMethod:  method,
			TokensUsed:        member.TotalTokens,
			APICalls:          member.APICalls,
			AvgResponseTimeMs: member.AvgResponseTimeMs,
			CostType:          group.Cost.CostType,
			ModelFamily:       group.Cost.ModelFamily,
			MeterName:         group.Cost.MeterName,
			Currency:          group.Cost.Currency,
		}
		if totals.totalTokens > 0 {
			record.TokenShare = float64(member.TotalTokens) / float64(totals.totalTokens)
		}
		if totals.totalCalls > 0 {
			record.APICallShare = float64(member.APICalls) / float64(totals.totalCalls)
		}
		records = append(records, record)
	}

	return records
}

// ConservationTolerance is the relative tolerance within which a group's
// allocated costs must sum to its metered total.
const ConservationTolerance = 0.01

// ConservationHolds verifies the conservation law for one group's
// allocation output against its original total cost.
func ConservationHolds(records []entity.AllocatedRecord, totalCost float64) bool {
	var allocated float64
	for _, r := range records {
		allocated += r.AllocatedCost
	}
	if totalCost <= 0 {
		return allocated == 0
	}
	variance := (totalCost - allocated) / totalCost
	if variance < 0 {
		variance = -variance
	}
	return variance <= ConservationTolerance
}
