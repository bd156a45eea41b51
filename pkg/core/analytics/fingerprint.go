// Package analytics holds the click-analytics engine: the per-click
// mutation of a stats document, the cache normalizer and the range queries
// behind the admin dashboard. Everything here is pure; storage, clocks and
// geolocation are supplied by the caller.
package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DateLayout is the UTC calendar day format used for daily keys.
const DateLayout = "2006-01-02"

// Day formats t as a UTC calendar day.
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Fingerprint derives the pseudonymous visitor id. The date component makes
// it rotate daily, so a visitor is only recognised within one UTC day.
func Fingerprint(ip, userAgent, date, salt string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{ip, userAgent, date, salt}, "|")))
	return hex.EncodeToString(sum[:])
}
