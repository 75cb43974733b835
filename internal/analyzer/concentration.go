package analyzer

import (
	"sort"

	"github.com/polyinsider/scout/internal/store"
)

// GroupBy selects the key trades are grouped on for concentration.
type GroupBy string

const (
	ByMarket   GroupBy = "market"
	ByCategory GroupBy = "category"
)

// GroupVolume is one group's share of traded volume.
type GroupVolume struct {
	Key    string  `json:"key"`
	Volume float64 `json:"volume"`
	Share  float64 `json:"share"`
	Trades int     `json:"trades"`
}

// ConcentrationAnalysis measures how unevenly volume is spread across groups.
type ConcentrationAnalysis struct {
	GroupBy     GroupBy       `json:"group_by"`
	Groups      int           `json:"groups"`
	Gini        float64       `json:"gini"`
	HHI         float64       `json:"hhi"`
	TotalVolume float64       `json:"total_volume"`
	Top         []GroupVolume `json:"top"`
}

const topGroups = 5

// Concentration computes the Gini coefficient and HHI of per-group volume.
// Trades without a usable size are skipped; when grouping by category,
// trades without a category are skipped too. Fewer than two groups is
// maximal concentration by construction.
func (a *Analyzer) Concentration(trades []store.Trade, by GroupBy) ConcentrationAnalysis {
	out := ConcentrationAnalysis{GroupBy: by}

	groups := make(map[string]*GroupVolume)
	for _, t := range trades {
		size, ok := t.SizeValue()
		if !ok {
			continue
		}
		key := t.MarketID
		if by == ByCategory {
			if t.Category == nil || *t.Category == "" {
				continue
			}
			key = *t.Category
		}
		g, ok := groups[key]
		if !ok {
			g = &GroupVolume{Key: key}
			groups[key] = g
		}
		g.Volume += size
		g.Trades++
		out.TotalVolume += size
	}

	list := make([]GroupVolume, 0, len(groups))
	for _, g := range groups {
		list = append(list, *g)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Volume != list[j].Volume {
			return list[i].Volume > list[j].Volume
		}
		return list[i].Key < list[j].Key
	})

	volumes := make([]float64, len(list))
	for i := range list {
		if out.TotalVolume > 0 {
			list[i].Share = list[i].Volume / out.TotalVolume
		}
		volumes[i] = list[i].Volume
		out.HHI += list[i].Share * list[i].Share * 10000
	}

	out.Groups = len(list)
	out.Gini = Gini(volumes)
	if len(list) > topGroups {
		out.Top = list[:topGroups]
	} else {
		out.Top = list
	}
	return out
}

// Gini returns the sample-corrected Gini coefficient of volumes in [0, 1].
// The raw coefficient tops out at (n-1)/n; scaling by n/(n-1) lets a single
// dominant group reach 1 regardless of how many groups exist.
func Gini(volumes []float64) float64 {
	n := len(volumes)
	if n < 2 {
		return 1.0
	}
	sorted := append([]float64(nil), volumes...)
	sort.Float64s(sorted)

	var total, weighted float64
	for i, v := range sorted {
		total += v
		weighted += float64(i+1) * v
	}
	if total <= 0 {
		return 0
	}
	nf := float64(n)
	raw := 2*weighted/(nf*total) - (nf+1)/nf
	return Clamp(raw*nf/(nf-1), 0, 1)
}
