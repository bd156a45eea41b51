package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"github.com/wadjakorntonsri/linkbio/pkg/ports"
)

type LinkService struct {
	repo ports.LinkRepository
	now  func() time.Time
}

func NewLinkService(repo ports.LinkRepository) *LinkService {
	return &LinkService{repo: repo, now: time.Now}
}

// Resolve returns the active link published under slug.
func (s *LinkService) Resolve(ctx context.Context, slug string) (*domain.Link, error) {
	link, err := s.repo.GetLinkBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !link.Active {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

// ListPublic returns active links in display order, optionally narrowed to a
// category slug and a free-text search.
func (s *LinkService) ListPublic(ctx context.Context, category, search string) ([]domain.Link, error) {
	links, err := s.repo.ListLinks(ctx)
	if err != nil {
		return nil, err
	}

	search = strings.TrimSpace(search)
	out := make([]domain.Link, 0, len(links))
	for _, l := range links {
		if !l.Active {
			continue
		}
		if category != "" && !l.InCategory(category) {
			continue
		}
		if search != "" && !l.Matches(search) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *LinkService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *LinkService) Export(ctx context.Context) (domain.Catalog, error) {
	links, err := s.repo.ListLinks(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}
	return domain.Catalog{Links: links, Categories: categories}, nil
}

// Import upserts the given catalog into the stored one. Entries match on ID,
// then on slug; missing IDs, slugs, order and timestamps are filled in.
func (s *LinkService) Import(ctx context.Context, in domain.Catalog) (domain.Catalog, error) {
	current, err := s.Export(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}
	now := s.now().UTC()

	categories := current.Categories
	for _, c := range in.Categories {
		if c.Name == "" && c.Slug == "" {
			return domain.Catalog{}, fmt.Errorf("%w: category without name", domain.ErrInvalidCatalog)
		}
		if c.Slug == "" {
			c.Slug = slugify(c.Name)
		}
		i := lookup(len(categories), c.ID,
			func(i int) bool { return categories[i].ID == c.ID },
			func(i int) bool { return categories[i].Slug == c.Slug })
		c = stampCategory(c, categories, i, now)
		if i < 0 {
			categories = append(categories, c)
		} else {
			categories[i] = c
		}
	}

	links := current.Links
	for _, l := range in.Links {
		if l.URL == "" {
			return domain.Catalog{}, fmt.Errorf("%w: link %q has no url", domain.ErrInvalidCatalog, l.Title)
		}
		if l.Slug == "" {
			l.Slug = slugify(l.Title)
		}
		if l.Slug == "" {
			return domain.Catalog{}, fmt.Errorf("%w: link %q has no slug", domain.ErrInvalidCatalog, l.URL)
		}
		i := lookup(len(links), l.ID,
			func(i int) bool { return links[i].ID == l.ID },
			func(i int) bool { return links[i].Slug == l.Slug })
		if i < 0 {
			if l.ID == "" {
				l.ID = uuid.NewString()
			}
			if l.Order == 0 {
				l.Order = nextOrder(links)
			}
			if l.CreatedAt.IsZero() {
				l.CreatedAt = now
			}
			l.UpdatedAt = now
			links = append(links, l)
			continue
		}
		prev := links[i]
		l.ID = prev.ID
		if l.Order == 0 {
			l.Order = prev.Order
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = prev.CreatedAt
		}
		l.UpdatedAt = now
		links[i] = l
	}

	if err := checkSlugs(len(links), func(i int) string { return links[i].Slug }); err != nil {
		return domain.Catalog{}, err
	}
	if err := checkSlugs(len(categories), func(i int) string { return categories[i].Slug }); err != nil {
		return domain.Catalog{}, err
	}

	out := domain.Catalog{Links: links, Categories: categories}
	if err := s.repo.ReplaceCatalog(ctx, out); err != nil {
		return domain.Catalog{}, err
	}
	return out, nil
}

func stampCategory(c domain.Category, existing []domain.Category, i int, now time.Time) domain.Category {
	if i >= 0 {
		c.ID = existing[i].ID
		if c.CreatedAt.IsZero() {
			c.CreatedAt = existing[i].CreatedAt
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return c
}

func indexOf(n int, match func(int) bool) int {
	for i := 0; i < n; i++ {
		if match(i) {
			return i
		}
	}
	return -1
}

// lookup finds an entry by ID when id is set, and by slug otherwise. An
// unknown ID falls back to the slug.
func lookup(n int, id string, byID, bySlug func(int) bool) int {
	if id != "" {
		if i := indexOf(n, byID); i >= 0 {
			return i
		}
	}
	return indexOf(n, bySlug)
}

func nextOrder(links []domain.Link) int {
	top := 0
	for _, l := range links {
		if l.Order > top {
			top = l.Order
		}
	}
	return top + 1
}

func checkSlugs(n int, slugAt func(int) string) error {
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		slug := slugAt(i)
		if seen[slug] {
			return fmt.Errorf("%w: duplicate slug %q", domain.ErrInvalidCatalog, slug)
		}
		seen[slug] = true
	}
	return nil
}

// slugify lower-cases s and joins its ASCII letters and digits with dashes.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

var _ ports.LinkService = (*LinkService)(nil)
