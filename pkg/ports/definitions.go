package ports

import (
	"context"

	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
)

// LinkRepository defines storage operations for the link catalog
type LinkRepository interface {
	ListLinks(ctx context.Context) ([]domain.Link, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetLinkBySlug(ctx context.Context, slug string) (*domain.Link, error)
	GetLinkByID(ctx context.Context, id string) (*domain.Link, error)
	ReplaceCatalog(ctx context.Context, catalog domain.Catalog) error // For migration
}

// StatsRepository stores the click statistics document
type StatsRepository interface {
	LoadStats(ctx context.Context) (domain.StatsDocument, error)
	// UpdateStats runs fn against the current document under the stats lock
	// and persists the result. fn mutates the document in place.
	UpdateStats(ctx context.Context, fn func(domain.StatsDocument) error) (domain.StatsDocument, error)
}

// GeoResolver maps a client IP to an ISO country code or domain.UnknownCountry
type GeoResolver interface {
	Country(ip string) string
}

// CountryNamer maps a country code to a display name
type CountryNamer interface {
	CountryName(code string) string
}

// LinkService defines the catalog operations
type LinkService interface {
	Resolve(ctx context.Context, slug string) (*domain.Link, error)
	ListPublic(ctx context.Context, category, search string) ([]domain.Link, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	Export(ctx context.Context) (domain.Catalog, error)
	Import(ctx context.Context, catalog domain.Catalog) (domain.Catalog, error)
}

// AnalyticsService defines the click analytics operations
type AnalyticsService interface {
	RecordClick(ctx context.Context, linkID string, click domain.ClickContext) (*domain.LinkStats, error)
	Track(ctx context.Context, linkID string, visit domain.Visit) error
	LinkReport(ctx context.Context, linkID string, r domain.Range) (domain.AnalyticsReport, error)
	NormalizeStats(ctx context.Context) error
	Overview(ctx context.Context) ([]domain.LinkTotal, error)
}

// ClickRecorder accepts visits for recording, possibly asynchronously
type ClickRecorder interface {
	Record(ctx context.Context, linkID string, visit domain.Visit)
}
