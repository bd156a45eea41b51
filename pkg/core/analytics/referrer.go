package analytics

import (
	"net/url"
	"strings"

	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"golang.org/x/net/publicsuffix"
)

// Labels for well-known sites, keyed by registrable domain.
var knownSites = map[string]string{
	"t.co":          "X (Twitter)",
	"twitter.com":   "X (Twitter)",
	"x.com":         "X (Twitter)",
	"facebook.com":  "Facebook",
	"fb.com":        "Facebook",
	"fb.me":         "Facebook",
	"instagram.com": "Instagram",
	"threads.net":   "Threads",
	"linkedin.com":  "LinkedIn",
	"lnkd.in":       "LinkedIn",
	"youtube.com":   "YouTube",
	"youtu.be":      "YouTube",
	"tiktok.com":    "TikTok",
	"reddit.com":    "Reddit",
	"github.com":    "GitHub",
	"whatsapp.com":  "WhatsApp",
	"t.me":          "Telegram",
	"telegram.org":  "Telegram",
	"pinterest.com": "Pinterest",
}

// Labels for sites that live under many country suffixes (google.es, bing.co.uk, ...).
var knownNames = map[string]string{
	"google":     "Google",
	"bing":       "Bing",
	"yahoo":      "Yahoo",
	"yandex":     "Yandex",
	"amazon":     "Amazon",
	"duckduckgo": "DuckDuckGo",
}

// ClassifyReferrer turns a Referer header into a referrer label pair. An empty
// header, or one that literally reads "direct", is direct traffic; any other
// value that is not an absolute URL is kept verbatim as both source and host.
func ClassifyReferrer(header string) domain.Referrer {
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, domain.DirectKey) {
		return domain.DirectReferrer
	}

	u, err := url.Parse(header)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return domain.Referrer{Source: header, Host: header}
	}

	host := strings.ToLower(u.Host)
	source := u.Scheme + "://" + host
	if label, ok := siteLabel(strings.ToLower(u.Hostname())); ok {
		source = label
	}
	return domain.Referrer{Source: source, Host: host}
}

func siteLabel(hostname string) (string, bool) {
	site, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return "", false
	}
	if label, ok := knownSites[site]; ok {
		return label, true
	}
	suffix, _ := publicsuffix.PublicSuffix(hostname)
	name := strings.TrimSuffix(site, "."+suffix)
	label, ok := knownNames[name]
	return label, ok
}
