// Package geo resolves client IPs to countries and countries to display names.
package geo

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/oschwald/maxminddb-golang"
	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"github.com/wadjakorntonsri/linkbio/pkg/metrics"
	"github.com/wadjakorntonsri/linkbio/pkg/ports"
)

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	RegisteredCountry struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"registered_country"`
}

// MaxMindResolver looks countries up in a GeoLite2/GeoIP2 Country or City database.
type MaxMindResolver struct {
	reader  *maxminddb.Reader
	metrics *metrics.Metrics
}

// OpenMaxMind opens the mmdb file at path.
func OpenMaxMind(path string, m *metrics.Metrics) (*MaxMindResolver, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &MaxMindResolver{reader: reader, metrics: m}, nil
}

// Country returns the upper-case ISO code for ip, or domain.UnknownCountry
// for unparsable, private and unlisted addresses.
func (r *MaxMindResolver) Country(ip string) string {
	start := time.Now()
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if !routable(parsed) {
		r.metrics.RecordGeoLookup("miss", time.Since(start))
		return domain.UnknownCountry
	}

	var rec countryRecord
	if err := r.reader.Lookup(parsed, &rec); err != nil {
		r.metrics.RecordGeoLookup("error", time.Since(start))
		return domain.UnknownCountry
	}

	code := rec.Country.ISOCode
	if code == "" {
		code = rec.RegisteredCountry.ISOCode
	}
	if code == "" {
		r.metrics.RecordGeoLookup("miss", time.Since(start))
		return domain.UnknownCountry
	}
	r.metrics.RecordGeoLookup("hit", time.Since(start))
	return strings.ToUpper(code)
}

// Close closes the GeoIP database.
func (r *MaxMindResolver) Close() error {
	if r.reader != nil {
		return r.reader.Close()
	}
	return nil
}

func routable(ip net.IP) bool {
	return ip != nil &&
		!ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsUnspecified() &&
		!ip.IsLinkLocalUnicast()
}

// UnknownResolver is used when no database is configured.
type UnknownResolver struct{}

func (UnknownResolver) Country(string) string { return domain.UnknownCountry }

var (
	_ ports.GeoResolver = (*MaxMindResolver)(nil)
	_ ports.GeoResolver = UnknownResolver{}
)
