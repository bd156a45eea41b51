package analytics

import "github.com/wadjakorntonsri/linkbio/pkg/core/domain"

// Normalize recomputes every cached uniqueCount that has a raw fingerprint
// set behind it. Totals and the sets themselves are left alone.
func Normalize(doc domain.StatsDocument) {
	for _, ls := range doc {
		if ls == nil {
			continue
		}
		for _, day := range ls.Daily {
			if day == nil {
				continue
			}
			if day.Uniques.Present() {
				day.UniqueCount = day.Uniques.Len()
			}
			normalizeBuckets(day.Countries)
			normalizeBuckets(day.Referrers)
		}
		normalizeBuckets(ls.Countries)
		normalizeBuckets(ls.Referrers)
	}
}

func normalizeBuckets(m map[string]*domain.DimensionStats) {
	for _, d := range m {
		if d != nil && d.Uniques.Present() {
			d.UniqueCount = d.Uniques.Len()
		}
	}
}
