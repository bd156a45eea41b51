package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintSetAdd(t *testing.T) {
	s := NewFingerprintSet()
	assert.True(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.False(t, s.Add("a"))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.Items())
	assert.True(t, s.Contains("b"))
	assert.False(t, s.Contains("c"))
}

func TestFingerprintSetDecodeDeduplicates(t *testing.T) {
	var s FingerprintSet
	require.NoError(t, json.Unmarshal([]byte(`["x","y","x"]`), &s))
	assert.True(t, s.Present())
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Add("y"))
}

func TestFingerprintSetTolerantDecode(t *testing.T) {
	for _, raw := range []string{`null`, `5`, `"oops"`, `{"a":1}`} {
		var s FingerprintSet
		require.NoError(t, json.Unmarshal([]byte(raw), &s), raw)
		assert.False(t, s.Present(), raw)
		assert.Zero(t, s.Len(), raw)
	}
}

func TestDayStatsDecodeFillsMissingUniqueCount(t *testing.T) {
	var d DayStats
	require.NoError(t, json.Unmarshal([]byte(`{"total":3,"uniques":["a","b"]}`), &d))
	assert.Equal(t, 3, d.Total)
	assert.Equal(t, 2, d.UniqueCount)
	assert.NotNil(t, d.Countries)
	assert.NotNil(t, d.Referrers)
}

func TestDimensionStatsDecodeKeepsCachedCount(t *testing.T) {
	var d DimensionStats
	require.NoError(t, json.Unmarshal([]byte(`{"total":4,"uniqueCount":3,"label":"Google"}`), &d))
	assert.Equal(t, 3, d.UniqueCount)
	assert.False(t, d.Uniques.Present())
	assert.Equal(t, "Google", d.Label)

	require.NoError(t, json.Unmarshal([]byte(`{"total":4,"uniques":7}`), &d))
	assert.Equal(t, 7, d.UniqueCount)
}

func TestLinkStatsDecodeLegacyDocument(t *testing.T) {
	var doc StatsDocument
	raw := `{"l1":{"totalClicks":2,"daily":{"2024-01-01":{"total":2,"uniques":["a"],"uniqueCount":1}}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	ls := doc["l1"]
	require.NotNil(t, ls)
	assert.Equal(t, 2, ls.TotalClicks)
	assert.NotNil(t, ls.Countries)
	assert.NotNil(t, ls.Referrers)
	assert.Equal(t, 1, ls.Daily["2024-01-01"].UniqueCount)
}

func TestAbsentSetIsOmittedOnEncode(t *testing.T) {
	d := DimensionStats{Total: 1, UniqueCount: 1}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":1,"uniqueCount":1}`, string(b))

	d = *NewDimensionStats("")
	d.Visit("a")
	b, err = json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":1,"uniques":["a"],"uniqueCount":1}`, string(b))
}

func TestDayVisitCountsTotalEveryTime(t *testing.T) {
	d := NewDayStats()
	assert.True(t, d.Visit("a"))
	assert.False(t, d.Visit("a"))
	assert.Equal(t, 2, d.Total)
	assert.Equal(t, 1, d.UniqueCount)
}

func TestDayVisitAfterDecodeSkipsKnownFingerprint(t *testing.T) {
	var d DayStats
	require.NoError(t, json.Unmarshal([]byte(`{"total":2,"uniques":["a","b"],"uniqueCount":2}`), &d))
	assert.True(t, d.Uniques.Contains("a"))

	assert.False(t, d.Visit("a"))
	assert.True(t, d.Visit("c"))
	assert.Equal(t, 4, d.Total)
	assert.Equal(t, 3, d.UniqueCount)
	assert.True(t, d.Uniques.Contains("c"))
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want Range
		days int
	}{
		{"", Range7Days, 7},
		{"7d", Range7Days, 7},
		{"30d", Range30Days, 30},
		{"all", RangeAll, 0},
		{"90d", Range7Days, 7},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r := ParseRange(tt.in)
			assert.Equal(t, tt.want, r)
			assert.Equal(t, tt.days, r.Days())
		})
	}
}

func TestReferrerKey(t *testing.T) {
	assert.Equal(t, "example.com", Referrer{Source: "Example", Host: "example.com"}.Key())
	assert.Equal(t, "Example", Referrer{Source: "Example"}.Key())
	assert.Equal(t, DirectKey, DirectReferrer.Key())
}
