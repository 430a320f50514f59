package rfq

import (
	"math"
	"sort"
	"strings"
)

type StatusCount struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type KPIs struct {
	Total         int     `json:"total"`
	Awarded       int     `json:"awarded"`
	Submitted     int     `json:"submitted"`
	Declined      int     `json:"declined"`
	AwardedRatio  float64 `json:"awarded_ratio"`
	DeclinedRatio float64 `json:"declined_ratio"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type PairCount struct {
	Client    string `json:"client"`
	Affiliate string `json:"affiliate"`
	Count     int    `json:"count"`
}

// Result is everything the dashboard charts. Empty is set when there were no
// records to aggregate; the other fields are then zero.
type Result struct {
	Empty           bool          `json:"empty"`
	StatusBreakdown []StatusCount `json:"status_breakdown"`
	KPIs            KPIs          `json:"kpis"`
	MonthlyTrend    []MonthCount  `json:"monthly_trend"`
	ClientAffiliate []PairCount   `json:"client_affiliate"`
}

// Aggregate reduces the filtered records. It is pure and never fails.
func Aggregate(records []Record, p Policy) Result {
	if len(records) == 0 {
		return Result{Empty: true}
	}
	total := len(records)

	res := Result{
		KPIs:         kpis(records, p),
		MonthlyTrend: monthlyTrend(records),
	}

	for _, g := range countBy(records, func(r Record) string { return r.Status }) {
		res.StatusBreakdown = append(res.StatusBreakdown, StatusCount{
			Status:     g.key,
			Count:      g.count,
			Percentage: round2(float64(g.count) / float64(total) * 100),
		})
	}

	type pair struct{ client, affiliate string }
	for _, g := range countBy(records, func(r Record) pair { return pair{r.Client, r.Affiliate} }) {
		res.ClientAffiliate = append(res.ClientAffiliate, PairCount{
			Client:    g.key.client,
			Affiliate: g.key.affiliate,
			Count:     g.count,
		})
	}
	return res
}

func kpis(records []Record, p Policy) KPIs {
	k := KPIs{Total: len(records)}
	for _, r := range records {
		switch strings.ToLower(r.Status) {
		case StatusAwarded:
			k.Awarded++
		case StatusSubmitted:
			k.Submitted++
		case StatusDeclined:
			k.Declined++
		}
	}
	base := k.Total
	if p.RatioBase == RatioBaseSubmitted {
		base = k.Submitted
	}
	k.AwardedRatio = ratio(k.Awarded, base)
	k.DeclinedRatio = ratio(k.Declined, base)
	return k
}

func monthlyTrend(records []Record) []MonthCount {
	counts := make(map[string]int)
	for _, r := range records {
		if r.Date == nil {
			continue
		}
		counts[r.Date.Format("2006-01")]++
	}
	out := make([]MonthCount, 0, len(counts))
	for m, c := range counts {
		out = append(out, MonthCount{Month: m, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

type group[K comparable] struct {
	key   K
	count int
}

// countBy groups records by key, ordered by descending count with ties kept
// in first-seen order.
func countBy[K comparable](records []Record, key func(Record) K) []group[K] {
	pos := make(map[K]int)
	var out []group[K]
	for _, r := range records {
		k := key(r)
		i, ok := pos[k]
		if !ok {
			i = len(out)
			pos[k] = i
			out = append(out, group[K]{key: k})
		}
		out[i].count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

func ratio(n, base int) float64 {
	if base == 0 {
		return 0
	}
	return round2(float64(n) / float64(base) * 100)
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
