package analytics

import (
	"time"

	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
)

// ApplyClick records one click for linkID into doc and returns the link's
// stats. doc must be non-nil. The caller persists doc as a whole, which keeps
// the link total and the day counters in step.
func ApplyClick(doc domain.StatsDocument, linkID string, click domain.ClickContext, now time.Time) *domain.LinkStats {
	ls, ok := doc[linkID]
	if !ok || ls == nil {
		ls = domain.NewLinkStats()
		doc[linkID] = ls
	}
	ls.TotalClicks++

	today := Day(now)
	day, ok := ls.Daily[today]
	if !ok || day == nil {
		day = domain.NewDayStats()
		ls.Daily[today] = day
	}
	day.Visit(click.Fingerprint)

	code := click.CountryCode
	if code == "" {
		code = domain.UnknownCountry
	}
	bucket(day.Countries, code, "").Visit(click.Fingerprint)
	bucket(ls.Countries, code, "").Visit(click.Fingerprint)

	ref := domain.DirectReferrer
	if click.Referrer != nil {
		ref = *click.Referrer
	}
	key := ref.Key()
	label := ref.Source
	if label == "" {
		label = key
	}
	bucket(day.Referrers, key, label).Visit(click.Fingerprint)
	bucket(ls.Referrers, key, label).Visit(click.Fingerprint)

	ls.LastUserAgent = click.UserAgent
	return ls
}

// bucket finds or creates m[key]. label only applies on creation; an existing
// bucket without a label gets one, but a set label is never replaced.
func bucket(m map[string]*domain.DimensionStats, key, label string) *domain.DimensionStats {
	d, ok := m[key]
	if !ok || d == nil {
		d = domain.NewDimensionStats(label)
		m[key] = d
		return d
	}
	if d.Label == "" {
		d.Label = label
	}
	return d
}
