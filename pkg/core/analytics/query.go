package analytics

import (
	"sort"
	"time"

	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
)

// CountryNamer resolves a country code to a display name.
type CountryNamer interface {
	CountryName(code string) string
}

// Query projects a link's stats onto the requested range. A nil ls yields
// the empty report.
func Query(ls *domain.LinkStats, r domain.Range, now time.Time, names CountryNamer) domain.AnalyticsReport {
	report := domain.EmptyReport()
	if ls == nil {
		return report
	}
	report.TotalClicks = ls.TotalClicks

	days := window(ls, r, now)
	for _, date := range days {
		day := ls.Daily[date]
		report.Daily = append(report.Daily, domain.DailyPoint{
			Date:    date,
			Total:   day.Total,
			Uniques: day.UniqueCount,
		})
	}

	var countries, referrers []aggregate
	if r == domain.RangeAll {
		countries = fromRollup(ls.Countries)
		referrers = fromRollup(ls.Referrers)
	} else {
		countries = fromDays(ls, days, func(d *domain.DayStats) map[string]*domain.DimensionStats { return d.Countries })
		referrers = fromDays(ls, days, func(d *domain.DayStats) map[string]*domain.DimensionStats { return d.Referrers })
	}

	for _, a := range countries {
		report.Countries = append(report.Countries, domain.CountryPoint{
			Code:    a.key,
			Name:    countryName(names, a.key),
			Total:   a.total,
			Uniques: a.uniques,
		})
	}
	for _, a := range referrers {
		label := a.label
		if label == "" {
			label = a.key
		}
		report.Referrers = append(report.Referrers, domain.ReferrerPoint{
			Source:  a.key,
			Label:   label,
			Total:   a.total,
			Uniques: a.uniques,
		})
	}
	return report
}

// window returns the ascending day keys inside the range. The cutoff comes
// from now, not from the newest day in the data.
func window(ls *domain.LinkStats, r domain.Range, now time.Time) []string {
	cutoff := ""
	if n := r.Days(); n > 0 {
		cutoff = Day(now.Add(-time.Duration(n-1) * 24 * time.Hour))
	}

	days := make([]string, 0, len(ls.Daily))
	for date, day := range ls.Daily {
		if day == nil || date < cutoff {
			continue
		}
		days = append(days, date)
	}
	sort.Strings(days)
	return days
}

type aggregate struct {
	key     string
	label   string
	total   int
	uniques int
}

func fromRollup(m map[string]*domain.DimensionStats) []aggregate {
	out := make([]aggregate, 0, len(m))
	for key, d := range m {
		if d == nil {
			continue
		}
		out = append(out, aggregate{key: key, label: d.Label, total: d.Total, uniques: d.UniqueCount})
	}
	return byTotal(out)
}

type unionBucket struct {
	label    string
	total    int
	seen     map[string]struct{}
	fallback int
}

// fromDays sums totals across the window and unions the fingerprint sets, so a
// visitor seen on several days under the same fingerprint counts once. Buckets
// that only carry a cached count contribute that count as an approximation.
func fromDays(ls *domain.LinkStats, days []string, pick func(*domain.DayStats) map[string]*domain.DimensionStats) []aggregate {
	buckets := map[string]*unionBucket{}
	for _, date := range days {
		for key, d := range pick(ls.Daily[date]) {
			if d == nil {
				continue
			}
			b, ok := buckets[key]
			if !ok {
				b = &unionBucket{label: d.Label, seen: map[string]struct{}{}}
				buckets[key] = b
			}
			if b.label == "" {
				b.label = d.Label
			}
			b.total += d.Total
			if d.Uniques.Present() {
				for _, fp := range d.Uniques.Items() {
					b.seen[fp] = struct{}{}
				}
			} else {
				b.fallback += d.UniqueCount
			}
		}
	}

	out := make([]aggregate, 0, len(buckets))
	for key, b := range buckets {
		out = append(out, aggregate{key: key, label: b.label, total: b.total, uniques: len(b.seen) + b.fallback})
	}
	return byTotal(out)
}

// byTotal orders descending by total; ties keep ascending key order so the
// output is stable for identical input.
func byTotal(a []aggregate) []aggregate {
	sort.Slice(a, func(i, j int) bool { return a[i].key < a[j].key })
	sort.SliceStable(a, func(i, j int) bool { return a[i].total > a[j].total })
	return a
}

func countryName(names CountryNamer, code string) string {
	if names == nil {
		return code
	}
	return names.CountryName(code)
}
