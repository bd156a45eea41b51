package domain

import "encoding/json"

// StatsDocument is the persisted "stats" resource: link ID -> LinkStats.
type StatsDocument map[string]*LinkStats

// LinkStats holds every counter recorded for one link.
type LinkStats struct {
	TotalClicks   int                        `json:"totalClicks"`
	Daily         map[string]*DayStats       `json:"daily"`     // YYYY-MM-DD (UTC)
	Countries     map[string]*DimensionStats `json:"countries"` // all-time
	Referrers     map[string]*DimensionStats `json:"referrers"` // all-time
	LastUserAgent string                     `json:"lastUserAgent,omitempty"`
}

// DayStats holds the counters of one link for one calendar day.
type DayStats struct {
	Total       int                        `json:"total"`
	Uniques     FingerprintSet             `json:"uniques,omitzero"`
	UniqueCount int                        `json:"uniqueCount"`
	Countries   map[string]*DimensionStats `json:"countries"`
	Referrers   map[string]*DimensionStats `json:"referrers"`
}

// DimensionStats is a country or referrer bucket at day or all-time scope.
type DimensionStats struct {
	Total       int            `json:"total"`
	Uniques     FingerprintSet `json:"uniques,omitzero"`
	UniqueCount int            `json:"uniqueCount"`
	Label       string         `json:"label,omitempty"`
}

func NewLinkStats() *LinkStats {
	return &LinkStats{
		Daily:     map[string]*DayStats{},
		Countries: map[string]*DimensionStats{},
		Referrers: map[string]*DimensionStats{},
	}
}

func NewDayStats() *DayStats {
	return &DayStats{
		Uniques:   NewFingerprintSet(),
		Countries: map[string]*DimensionStats{},
		Referrers: map[string]*DimensionStats{},
	}
}

func NewDimensionStats(label string) *DimensionStats {
	return &DimensionStats{Uniques: NewFingerprintSet(), Label: label}
}

// Visit counts one click for the day. The cached unique count is bumped
// only when fp is new.
func (d *DayStats) Visit(fp string) bool {
	d.Total++
	if !d.Uniques.Add(fp) {
		return false
	}
	d.UniqueCount++
	return true
}

// Visit counts one click by fingerprint fp and reports whether fp was new here.
func (d *DimensionStats) Visit(fp string) bool {
	d.Total++
	added := d.Uniques.Add(fp)
	d.UniqueCount = d.Uniques.Len()
	return added
}

func (s *LinkStats) UnmarshalJSON(b []byte) error {
	type plain LinkStats
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = LinkStats(v)
	if s.Daily == nil {
		s.Daily = map[string]*DayStats{}
	}
	if s.Countries == nil {
		s.Countries = map[string]*DimensionStats{}
	}
	if s.Referrers == nil {
		s.Referrers = map[string]*DimensionStats{}
	}
	return nil
}

// UnmarshalJSON fills a missing uniqueCount from the raw set, so readers can
// always trust the cached value.
func (d *DayStats) UnmarshalJSON(b []byte) error {
	var v struct {
		Total       int                        `json:"total"`
		Uniques     FingerprintSet             `json:"uniques"`
		UniqueCount *int                       `json:"uniqueCount"`
		Countries   map[string]*DimensionStats `json:"countries"`
		Referrers   map[string]*DimensionStats `json:"referrers"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = DayStats{
		Total:       v.Total,
		Uniques:     v.Uniques,
		UniqueCount: cachedCount(v.UniqueCount, v.Uniques),
		Countries:   v.Countries,
		Referrers:   v.Referrers,
	}
	if d.Countries == nil {
		d.Countries = map[string]*DimensionStats{}
	}
	if d.Referrers == nil {
		d.Referrers = map[string]*DimensionStats{}
	}
	return nil
}

func (d *DimensionStats) UnmarshalJSON(b []byte) error {
	var v struct {
		Total       int            `json:"total"`
		Uniques     FingerprintSet `json:"uniques"`
		UniqueCount *int           `json:"uniqueCount"`
		Label       string         `json:"label"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = DimensionStats{
		Total:       v.Total,
		Uniques:     v.Uniques,
		UniqueCount: cachedCount(v.UniqueCount, v.Uniques),
		Label:       v.Label,
	}
	return nil
}

func cachedCount(cached *int, set FingerprintSet) int {
	switch {
	case cached != nil:
		return *cached
	case set.Present():
		return set.Len()
	default:
		return set.hint
	}
}
