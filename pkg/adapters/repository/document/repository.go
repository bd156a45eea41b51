// Package document stores the link catalog and the click statistics as JSON
// documents in the kv store, one document per resource.
package document

import (
	"context"

	"github.com/wadjakorntonsri/linkbio/pkg/adapters/kv"
	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"github.com/wadjakorntonsri/linkbio/pkg/ports"
)

// Resource keys
const (
	LinksKey      = "links"
	CategoriesKey = "categories"
	StatsKey      = "stats"
)

type Repository struct {
	store *kv.Store
}

func NewRepository(store *kv.Store) *Repository {
	return &Repository{store: store}
}

func noLinks() []domain.Link { return []domain.Link{} }
func noCategories() []domain.Category { return []domain.Category{} }
func emptyStats() domain.StatsDocument { return domain.StatsDocument{} }

func (r *Repository) ListLinks(ctx context.Context) ([]domain.Link, error) {
	return kv.Read(ctx, r.store, LinksKey, noLinks)
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return kv.Read(ctx, r.store, CategoriesKey, noCategories)
}

func (r *Repository) GetLinkBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	return r.find(ctx, func(l domain.Link) bool { return l.Slug == slug })
}

func (r *Repository) GetLinkByID(ctx context.Context, id string) (*domain.Link, error) {
	return r.find(ctx, func(l domain.Link) bool { return l.ID == id })
}

func (r *Repository) find(ctx context.Context, match func(domain.Link) bool) (*domain.Link, error) {
	links, err := r.ListLinks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range links {
		if match(links[i]) {
			return &links[i], nil
		}
	}
	return nil, domain.ErrLinkNotFound
}

// ReplaceCatalog overwrites both catalog documents. The two writes are not
// atomic with respect to each other.
func (r *Repository) ReplaceCatalog(ctx context.Context, catalog domain.Catalog) error {
	links := catalog.Links
	if links == nil {
		links = noLinks()
	}
	categories := catalog.Categories
	if categories == nil {
		categories = noCategories()
	}
	if err := kv.Write(ctx, r.store, CategoriesKey, categories); err != nil {
		return err
	}
	return kv.Write(ctx, r.store, LinksKey, links)
}

func (r *Repository) LoadStats(ctx context.Context) (domain.StatsDocument, error) {
	doc, err := kv.Read(ctx, r.store, StatsKey, emptyStats)
	if doc == nil && err == nil {
		doc = emptyStats()
	}
	return doc, err
}

func (r *Repository) UpdateStats(ctx context.Context, fn func(domain.StatsDocument) error) (domain.StatsDocument, error) {
	return kv.Update(ctx, r.store, StatsKey, emptyStats, func(doc domain.StatsDocument) (domain.StatsDocument, error) {
		if doc == nil {
			doc = emptyStats()
		}
		return doc, fn(doc)
	})
}

// Ensure interface compliance
var (
	_ ports.LinkRepository  = (*Repository)(nil)
	_ ports.StatsRepository = (*Repository)(nil)
)
