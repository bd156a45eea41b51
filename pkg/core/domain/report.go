package domain

// Range selects which days contribute to an analytics report.
type Range string

const (
	Range7Days  Range = "7d"
	Range30Days Range = "30d"
	RangeAll    Range = "all"

	DefaultRange = Range7Days
)

// ParseRange maps a query value to a Range. Empty and unknown values give the default.
func ParseRange(s string) Range {
	switch Range(s) {
	case Range7Days, Range30Days, RangeAll:
		return Range(s)
	default:
		return DefaultRange
	}
}

// Days is the inclusive window length, or 0 for RangeAll.
func (r Range) Days() int {
	switch r {
	case Range7Days:
		return 7
	case Range30Days:
		return 30
	default:
		return 0
	}
}

// AnalyticsReport is the flattened per-link analytics response.
type AnalyticsReport struct {
	TotalClicks int             `json:"totalClicks"`
	Daily       []DailyPoint    `json:"daily"`
	Countries   []CountryPoint  `json:"countries"`
	Referrers   []ReferrerPoint `json:"referrers"`
}

type DailyPoint struct {
	Date    string `json:"date"`
	Total   int    `json:"total"`
	Uniques int    `json:"uniques"`
}

type CountryPoint struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Total   int    `json:"total"`
	Uniques int    `json:"uniques"`
}

type ReferrerPoint struct {
	Source  string `json:"source"`
	Label   string `json:"label"`
	Total   int    `json:"total"`
	Uniques int    `json:"uniques"`
}

// EmptyReport is the response for a link without recorded clicks.
func EmptyReport() AnalyticsReport {
	return AnalyticsReport{
		Daily:     []DailyPoint{},
		Countries: []CountryPoint{},
		Referrers: []ReferrerPoint{},
	}
}
