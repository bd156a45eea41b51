package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wadjakorntonsri/linkbio/pkg/core/analytics"
	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"github.com/wadjakorntonsri/linkbio/pkg/metrics"
	"github.com/wadjakorntonsri/linkbio/pkg/ports"
	"go.uber.org/zap"
)

type AnalyticsService struct {
	links   ports.LinkRepository
	stats   ports.StatsRepository
	geo     ports.GeoResolver
	names   ports.CountryNamer
	salt    string
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type AnalyticsOption func(*AnalyticsService)

func WithGeo(geo ports.GeoResolver) AnalyticsOption {
	return func(s *AnalyticsService) { s.geo = geo }
}

func WithCountryNames(names ports.CountryNamer) AnalyticsOption {
	return func(s *AnalyticsService) { s.names = names }
}

// WithClock replaces time.Now. Tests use it to pin the current day.
func WithClock(now func() time.Time) AnalyticsOption {
	return func(s *AnalyticsService) { s.now = now }
}

func WithLogger(logger *zap.Logger) AnalyticsOption {
	return func(s *AnalyticsService) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) AnalyticsOption {
	return func(s *AnalyticsService) { s.metrics = m }
}

func NewAnalyticsService(links ports.LinkRepository, stats ports.StatsRepository, salt string, opts ...AnalyticsOption) *AnalyticsService {
	s := &AnalyticsService{
		links:  links,
		stats:  stats,
		geo:    unknownGeo{},
		salt:   salt,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type unknownGeo struct{}

func (unknownGeo) Country(string) string { return domain.UnknownCountry }

// RecordClick applies one click to the stats document in a single
// read-modify-write and returns the link's updated stats.
func (s *AnalyticsService) RecordClick(ctx context.Context, linkID string, click domain.ClickContext) (*domain.LinkStats, error) {
	return s.record(ctx, linkID, click, s.now())
}

func (s *AnalyticsService) record(ctx context.Context, linkID string, click domain.ClickContext, now time.Time) (*domain.LinkStats, error) {
	start := time.Now()
	var updated *domain.LinkStats
	_, err := s.stats.UpdateStats(ctx, func(doc domain.StatsDocument) error {
		updated = analytics.ApplyClick(doc, linkID, click, now)
		return nil
	})
	if err != nil {
		s.metrics.RecordClick("error", time.Since(start))
		return nil, fmt.Errorf("record click for %s: %w", linkID, err)
	}
	s.metrics.RecordClick("ok", time.Since(start))
	return updated, nil
}

// Track derives the click context from raw request data and records it
// under the day the visit arrived.
func (s *AnalyticsService) Track(ctx context.Context, linkID string, visit domain.Visit) error {
	now := visit.At
	if now.IsZero() {
		now = s.now()
	}
	ref := analytics.ClassifyReferrer(visit.Referer)
	click := domain.ClickContext{
		Fingerprint: analytics.Fingerprint(visit.IP, visit.UserAgent, analytics.Day(now), s.salt),
		CountryCode: s.geo.Country(visit.IP),
		Referrer:    &ref,
		UserAgent:   visit.UserAgent,
	}
	_, err := s.record(ctx, linkID, click, now)
	return err
}

// LinkReport answers the admin analytics query for one link. A link without
// clicks gets the empty report.
func (s *AnalyticsService) LinkReport(ctx context.Context, linkID string, r domain.Range) (domain.AnalyticsReport, error) {
	doc, err := s.stats.LoadStats(ctx)
	if err != nil {
		return domain.AnalyticsReport{}, fmt.Errorf("load stats: %w", err)
	}
	return analytics.Query(doc[linkID], r, s.now(), s.names), nil
}

// NormalizeStats repairs every cached unique count in the stats document.
func (s *AnalyticsService) NormalizeStats(ctx context.Context) error {
	_, err := s.stats.UpdateStats(ctx, func(doc domain.StatsDocument) error {
		analytics.Normalize(doc)
		return nil
	})
	if err != nil {
		return fmt.Errorf("normalize stats: %w", err)
	}
	s.logger.Info("stats normalized")
	return nil
}

// Overview lists every link with its all-time clicks, most clicked first.
// Stats of links no longer in the catalog are kept and flagged as orphaned.
func (s *AnalyticsService) Overview(ctx context.Context) ([]domain.LinkTotal, error) {
	links, err := s.links.ListLinks(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.stats.LoadStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	out := make([]domain.LinkTotal, 0, len(links))
	known := make(map[string]bool, len(links))
	for _, l := range links {
		known[l.ID] = true
		row := domain.LinkTotal{LinkID: l.ID, Title: l.Title, Slug: l.Slug}
		if ls := doc[l.ID]; ls != nil {
			row.TotalClicks = ls.TotalClicks
		}
		out = append(out, row)
	}
	for id, ls := range doc {
		if known[id] || ls == nil {
			continue
		}
		out = append(out, domain.LinkTotal{LinkID: id, TotalClicks: ls.TotalClicks, Orphaned: true})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LinkID < out[j].LinkID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalClicks > out[j].TotalClicks })
	return out, nil
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)
