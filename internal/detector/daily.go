package detector

import (
	"sort"
	"time"

	"github.com/polyinsider/scout/internal/store"
)

const day = 24 * time.Hour

// dayBucket aggregates one UTC calendar day.
type dayBucket struct {
	Day    time.Time
	Trades int
	PnL    float64
	Closed int
}

// bucketDays groups trades by UTC calendar day, sorted ascending.
func bucketDays(trades []store.Trade) []dayBucket {
	byDay := make(map[time.Time]*dayBucket)
	for _, t := range trades {
		d := t.Timestamp.UTC().Truncate(day)
		b, ok := byDay[d]
		if !ok {
			b = &dayBucket{Day: d}
			byDay[d] = b
		}
		b.Trades++
		if pnl, ok := t.PnL(); ok {
			b.PnL += pnl
			b.Closed++
		}
	}

	out := make([]dayBucket, 0, len(byDay))
	for _, b := range byDay {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// longestProfitRun finds the longest run of consecutive calendar days with
// strictly positive net P&L. A missing day breaks the run.
func longestProfitRun(days []dayBucket) (run int, start, end time.Time) {
	cur := 0
	var curStart time.Time
	for i, b := range days {
		if b.PnL <= 0 {
			cur = 0
			continue
		}
		if cur > 0 && !days[i-1].Day.Add(day).Equal(b.Day) {
			cur = 0
		}
		if cur == 0 {
			curStart = b.Day
		}
		cur++
		if cur > run {
			run, start, end = cur, curStart, b.Day
		}
	}
	return run, start, end
}
