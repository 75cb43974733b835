package reverse

import (
	"math"
	"sort"
	"time"

	"github.com/polyinsider/scout/internal/store"
)

type exposureEvent struct {
	at    time.Time
	delta float64
}

// nearPeakShare is the fraction of the peak at which an open counts as
// running at the exposure cap.
const nearPeakShare = 0.8

// PeakExposure sweeps open and close events and returns the largest total of
// simultaneously open position sizes. A buy opens exposure until its exit
// timestamp (or forever when it has none); a sell releases exposure. Closes
// at the same instant are applied before opens.
func PeakExposure(trades []store.Trade) float64 {
	var peak float64
	for _, level := range exposureLevels(trades) {
		peak = math.Max(peak, level)
	}
	return peak
}

// capUsage reports how many opens took total exposure to at least
// nearPeakShare of peak, out of all opens.
func capUsage(trades []store.Trade, peak float64) (hits, opens int) {
	levels := exposureLevels(trades)
	for _, level := range levels {
		if peak > 0 && level >= nearPeakShare*peak {
			hits++
		}
	}
	return hits, len(levels)
}

// exposureLevels returns the total open exposure right after each open.
func exposureLevels(trades []store.Trade) []float64 {
	events := make([]exposureEvent, 0, 2*len(trades))
	for _, t := range trades {
		size, ok := t.SizeValue()
		if !ok || size == 0 {
			continue
		}
		if !t.IsBuy() {
			events = append(events, exposureEvent{at: t.Timestamp, delta: -size})
			continue
		}
		events = append(events, exposureEvent{at: t.Timestamp, delta: size})
		if t.ExitTimestamp != nil && !t.ExitTimestamp.Before(t.Timestamp) {
			events = append(events, exposureEvent{at: *t.ExitTimestamp, delta: -size})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.Before(events[j].at)
		}
		return events[i].delta < events[j].delta
	})

	var cur float64
	var levels []float64
	for _, e := range events {
		cur = math.Max(cur+e.delta, 0)
		if e.delta > 0 {
			levels = append(levels, cur)
		}
	}
	return levels
}
