package domain

import "time"

// Visit is the raw request data seen on a redirect
type Visit struct {
	IP        string
	UserAgent string
	Referer   string
	At        time.Time // arrival; zero means now
}

// Referrer is the classified Referer header
type Referrer struct {
	Source string `json:"source"` // display label
	Host   string `json:"host"`
}

// Key returns the bucket key: the host, or the source when the host is empty.
func (r Referrer) Key() string {
	if r.Host != "" {
		return r.Host
	}
	return r.Source
}

const (
	UnknownCountry = "unknown"
	DirectKey      = "direct"
	DirectLabel    = "Direct"
)

// DirectReferrer is used when a request has no Referer header.
var DirectReferrer = Referrer{Source: DirectLabel, Host: DirectKey}

// ClickContext is everything the recorder needs for one click
type ClickContext struct {
	Fingerprint string
	CountryCode string
	Referrer    *Referrer
	UserAgent   string
}
