package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrLinkNotFound       = errors.New("link not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCatalog     = errors.New("invalid catalog")
)

// Link is an outbound link shown on the landing page
type Link struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Categories  []string  `json:"categories"` // category slugs
	Active      bool      `json:"active"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// InCategory reports whether the link is tagged with the category slug.
func (l Link) InCategory(slug string) bool {
	for _, c := range l.Categories {
		if c == slug {
			return true
		}
	}
	return false
}

// Matches does a case-insensitive search over title, description and slug.
func (l Link) Matches(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(l.Title), term) ||
		strings.Contains(strings.ToLower(l.Description), term) ||
		strings.Contains(strings.ToLower(l.Slug), term)
}

// LinkTotal is one row of the admin overview
type LinkTotal struct {
	LinkID      string `json:"linkId"`
	Title       string `json:"title,omitempty"`
	Slug        string `json:"slug,omitempty"`
	TotalClicks int    `json:"totalClicks"`
	Orphaned    bool   `json:"orphaned,omitempty"` // stats kept after link removal
}
