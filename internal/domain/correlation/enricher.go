package correlation

import (
	"math"
	"time"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// Shift category labels, aligned with retail store operations.
const (
	ShiftMorning = "Morning"
	ShiftEvening = "Evening"
	ShiftNight   = "Night"
)

// confidenceFactor is one step of the confidence heuristic: an ordered
// (predicate, factor) pair. Order matters because clamping happens only
// once at the end.
type confidenceFactor struct {
	applies func(r *entity.AllocatedRecord) bool
	factor  float64
}

var confidenceFactors = []confidenceFactor{
	{func(r *entity.AllocatedRecord) bool { return r.IsUnknownDevice }, 0.6},
	{func(r *entity.AllocatedRecord) bool { return r.IsUnknownStore }, 0.8},
	{func(r *entity.AllocatedRecord) bool { return r.TokensUsed == 0 }, 0.5},
	{func(r *entity.AllocatedRecord) bool { return r.HasCompleteAttribution }, 1.1},
	{func(r *entity.AllocatedRecord) bool { return r.TokensUsed > 100 }, 1.05},
}

// Enricher derives the quality, attribution and time-of-day features of
// allocated records.
type Enricher struct {
	now func() time.Time
}

// NewEnricher creates an enricher stamping records with the given clock.
func NewEnricher(now func() time.Time) *Enricher {
	if now == nil {
		now = time.Now
	}
	return &Enricher{now: now}
}

// Enrich fills the derived fields of a record in place.
func (e *Enricher) Enrich(r *entity.AllocatedRecord) {
	r.CorrelationTimestamp = e.now().UTC()

	r.IsUnknownDevice = r.DeviceID == entity.UnknownID
	r.IsUnknownStore = r.StoreNumber == entity.UnknownID
	r.HasCompleteAttribution = !r.IsUnknownDevice && !r.IsUnknownStore

	if r.TokensUsed > 0 {
		r.CostPerToken = r.AllocatedCost / float64(r.TokensUsed)
	} else {
		r.CostPerToken = 0
	}
	if r.APICalls > 0 {
		r.CostPerAPICall = r.AllocatedCost / float64(r.APICalls)
	} else {
		r.CostPerAPICall = 0
	}

	window := r.Window.UTC()
	r.Hour = window.Hour()
	r.DayOfWeek = window.Weekday().String()
	r.IsBusinessHours = r.Hour >= 9 && r.Hour <= 17
	r.IsWeekday = window.Weekday() >= time.Monday && window.Weekday() <= time.Friday
	r.ShiftCategory = shiftCategory(r.Hour)

	r.Confidence = e.confidence(r)
	r.Accuracy = e.accuracy(r)
	r.Utilization = e.utilization(r)
}

func shiftCategory(hour int) string {
	switch {
	case hour >= 6 && hour < 14:
		return ShiftMorning
	case hour >= 14 && hour < 22:
		return ShiftEvening
	default:
		return ShiftNight
	}
}

// confidence applies the ordered multiplicative factors and clamps the
// result to 1.0. The chain can exceed 1.0 before the final clamp; there
// is deliberately no lower clamp.
func (e *Enricher) confidence(r *entity.AllocatedRecord) float64 {
	confidence := 1.0
	for _, f := range confidenceFactors {
		if f.applies(r) {
			confidence *= f.factor
		}
	}
	return math.Min(confidence, 1.0)
}

// accuracy scores how trustworthy the allocation method's split is for
// this record. Token-based allocation earns its score only when tokens
// were actually tracked.
func (e *Enricher) accuracy(r *entity.AllocatedRecord) float64 {
	accuracy := 1.0
	switch {
	case r.AllocationMethod == entity.AllocationTokenBased && r.TokensUsed > 0:
		accuracy = 0.95
	case r.AllocationMethod == entity.AllocationProportional:
		accuracy = 0.90
	case r.AllocationMethod == entity.AllocationUsageBased:
		accuracy = 0.80
	case r.AllocationMethod == entity.AllocationEqual:
		accuracy = 0.70
	}

	if r.IsUnknownDevice {
		accuracy *= 0.7
	}
	if r.IsUnknownStore {
		accuracy *= 0.9
	}
	return accuracy
}

// utilization averages the call-rate and token-volume factors, each
// capped at 1 (10 calls and 1000 tokens saturate their factor).
func (e *Enricher) utilization(r *entity.AllocatedRecord) float64 {
	callFactor := math.Min(float64(r.APICalls)/10.0, 1.0)
	tokenFactor := math.Min(float64(r.TokensUsed)/1000.0, 1.0)
	return (callFactor + tokenFactor) / 2.0
}
