package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/linkbio/pkg/adapters/kv"
	"github.com/wadjakorntonsri/linkbio/pkg/adapters/repository/document"
	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"github.com/wadjakorntonsri/linkbio/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type mapGeo map[string]string

func (g mapGeo) Country(ip string) string {
	if c, ok := g[ip]; ok {
		return c
	}
	return domain.UnknownCountry
}

type upperNames struct{}

func (upperNames) CountryName(code string) string { return "country " + code }

func newRepo() *document.Repository {
	return document.NewRepository(kv.NewStore(kv.NewMemoryBackend()))
}

func seed(t *testing.T, repo *document.Repository) {
	t.Helper()
	err := repo.ReplaceCatalog(context.Background(), domain.Catalog{
		Links: []domain.Link{
			{ID: "L2", Title: "Portfolio", Slug: "portfolio", URL: "https://example.com/p", Active: true, Order: 2, Categories: []string{"work"}},
			{ID: "L1", Title: "Blog", Slug: "blog", URL: "https://example.com/b", Active: true, Order: 1, Description: "Notes on Go"},
			{ID: "L3", Title: "Old", Slug: "old", URL: "https://example.com/o", Active: false, Order: 3},
		},
		Categories: []domain.Category{{ID: "C1", Name: "Work", Slug: "work"}},
	})
	require.NoError(t, err)
}

func TestResolve(t *testing.T) {
	repo := newRepo()
	seed(t, repo)
	svc := NewLinkService(repo)
	ctx := context.Background()

	l, err := svc.Resolve(ctx, "blog")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b", l.URL)

	_, err = svc.Resolve(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)

	_, err = svc.Resolve(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestListPublic(t *testing.T) {
	repo := newRepo()
	seed(t, repo)
	svc := NewLinkService(repo)
	ctx := context.Background()

	tests := []struct {
		name     string
		category string
		search   string
		want     []string
	}{
		{"all active in order", "", "", []string{"blog", "portfolio"}},
		{"by category", "work", "", []string{"portfolio"}},
		{"search description", "", "go", []string{"blog"}},
		{"search is case insensitive", "", "PORT", []string{"portfolio"}},
		{"no match", "work", "blog", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := svc.ListPublic(ctx, tt.category, tt.search)
			require.NoError(t, err)
			slugs := []string{}
			for _, l := range links {
				slugs = append(slugs, l.Slug)
			}
			assert.Equal(t, tt.want, slugs)
		})
	}
}

func TestImport(t *testing.T) {
	repo := newRepo()
	seed(t, repo)
	svc := NewLinkService(repo)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	out, err := svc.Import(ctx, domain.Catalog{
		Links: []domain.Link{
			{Title: "My Talks & Slides", URL: "https://example.com/talks", Active: true},
			{Slug: "blog", Title: "Blog (new)", URL: "https://blog.example.com", Active: true},
		},
		Categories: []domain.Category{{Name: "Side Projects"}},
	})
	require.NoError(t, err)
	require.Len(t, out.Links, 4)
	require.Len(t, out.Categories, 2)

	talks, err := repo.GetLinkBySlug(ctx, "my-talks-slides")
	require.NoError(t, err)
	assert.NotEmpty(t, talks.ID)
	assert.Equal(t, 4, talks.Order)
	assert.Equal(t, svc.now(), talks.CreatedAt)

	blog, err := repo.GetLinkBySlug(ctx, "blog")
	require.NoError(t, err)
	assert.Equal(t, "L1", blog.ID, "existing id kept on upsert")
	assert.Equal(t, 1, blog.Order)
	assert.Equal(t, "https://blog.example.com", blog.URL)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "side-projects", cats[1].Slug)
	assert.NotEmpty(t, cats[1].ID)
}

func TestImportRejectsInvalid(t *testing.T) {
	svc := NewLinkService(newRepo())
	ctx := context.Background()

	_, err := svc.Import(ctx, domain.Catalog{Links: []domain.Link{{Title: "x"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidCatalog)

	_, err = svc.Import(ctx, domain.Catalog{Links: []domain.Link{
		{ID: "a", Slug: "same", URL: "https://a"},
		{ID: "b", Slug: "other", URL: "https://b"},
	}})
	require.NoError(t, err)
	_, err = svc.Import(ctx, domain.Catalog{Links: []domain.Link{{ID: "b", Slug: "same", URL: "https://b2"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidCatalog)

	stored, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, stored.Links, 2)
	assert.Equal(t, "https://a", stored.Links[0].URL, "slug owner keeps its data")
	assert.Equal(t, "other", stored.Links[1].Slug)
	assert.Equal(t, "https://b", stored.Links[1].URL)

	_, err = svc.Import(ctx, domain.Catalog{Categories: []domain.Category{
		{ID: "c1", Name: "Work", Slug: "work"},
		{ID: "c2", Name: "Play", Slug: "play"},
	}})
	require.NoError(t, err)
	_, err = svc.Import(ctx, domain.Catalog{Categories: []domain.Category{{ID: "c2", Name: "Play", Slug: "work"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidCatalog)
}

func TestImportMatchesIDBeforeSlug(t *testing.T) {
	svc := NewLinkService(newRepo())
	ctx := context.Background()

	_, err := svc.Import(ctx, domain.Catalog{Links: []domain.Link{
		{ID: "a", Slug: "first", URL: "https://a"},
		{ID: "b", Slug: "second", URL: "https://b"},
	}})
	require.NoError(t, err)

	// b takes a fresh slug; a is untouched
	out, err := svc.Import(ctx, domain.Catalog{Links: []domain.Link{{ID: "b", Slug: "renamed", URL: "https://b2"}}})
	require.NoError(t, err)
	require.Len(t, out.Links, 2)
	assert.Equal(t, domain.Link{ID: "a", Slug: "first", URL: "https://a"}, pick(out.Links[0]))
	assert.Equal(t, domain.Link{ID: "b", Slug: "renamed", URL: "https://b2"}, pick(out.Links[1]))

	// an unknown id still matches on slug
	out, err = svc.Import(ctx, domain.Catalog{Links: []domain.Link{{ID: "zzz", Slug: "first", URL: "https://a2"}}})
	require.NoError(t, err)
	require.Len(t, out.Links, 2)
	assert.Equal(t, domain.Link{ID: "a", Slug: "first", URL: "https://a2"}, pick(out.Links[0]))
}

func pick(l domain.Link) domain.Link {
	return domain.Link{ID: l.ID, Slug: l.Slug, URL: l.URL}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", slugify("  Hello, World! "))
	assert.Equal(t, "go-1-22", slugify("Go 1.22"))
	assert.Equal(t, "", slugify("!!!"))
}

func newAnalytics(t *testing.T, c *clock) (*AnalyticsService, *document.Repository) {
	t.Helper()
	repo := newRepo()
	seed(t, repo)
	svc := NewAnalyticsService(repo, repo, "salt",
		WithClock(c.now),
		WithGeo(mapGeo{"8.8.8.8": "US", "1.1.1.1": "AU"}),
		WithCountryNames(upperNames{}),
		WithMetrics(metrics.New("test")),
	)
	return svc, repo
}

func TestTrackAndReport(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	svc, _ := newAnalytics(t, c)
	ctx := context.Background()

	require.NoError(t, svc.Track(ctx, "L1", domain.Visit{IP: "8.8.8.8", UserAgent: "ua", Referer: "https://www.google.com/"}))
	require.NoError(t, svc.Track(ctx, "L1", domain.Visit{IP: "8.8.8.8", UserAgent: "ua"}))
	c.advance(24 * time.Hour)
	require.NoError(t, svc.Track(ctx, "L1", domain.Visit{IP: "8.8.8.8", UserAgent: "ua"}))
	require.NoError(t, svc.Track(ctx, "L1", domain.Visit{IP: "1.1.1.1", UserAgent: "ua"}))

	report, err := svc.LinkReport(ctx, "L1", domain.RangeAll)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalClicks)
	assert.Equal(t, []domain.DailyPoint{
		{Date: "2024-01-01", Total: 2, Uniques: 1},
		{Date: "2024-01-02", Total: 2, Uniques: 2},
	}, report.Daily)
	assert.Equal(t, []domain.CountryPoint{
		{Code: "US", Name: "country US", Total: 3, Uniques: 2},
		{Code: "AU", Name: "country AU", Total: 1, Uniques: 1},
	}, report.Countries)
	assert.Equal(t, []domain.ReferrerPoint{
		{Source: "direct", Label: "Direct", Total: 3, Uniques: 3},
		{Source: "www.google.com", Label: "Google", Total: 1, Uniques: 1},
	}, report.Referrers)

	week, err := svc.LinkReport(ctx, "L1", domain.Range7Days)
	require.NoError(t, err)
	require.Len(t, week.Countries, 2)
	assert.Equal(t, 3, week.Countries[0].Total)
}

func TestLinkReportWithoutClicks(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc, _ := newAnalytics(t, c)

	report, err := svc.LinkReport(context.Background(), "L2", domain.Range30Days)
	require.NoError(t, err)
	assert.Equal(t, domain.EmptyReport(), report)
}

func TestRecordClickConcurrent(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc, repo := newAnalytics(t, c)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			link := "L1"
			if i%2 == 0 {
				link = "L2"
			}
			_, err := svc.RecordClick(ctx, link, domain.ClickContext{Fingerprint: "fp", CountryCode: "US"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	doc, err := repo.LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, doc["L1"].TotalClicks)
	assert.Equal(t, 25, doc["L2"].TotalClicks)
	assert.Equal(t, 25, doc["L1"].Daily["2024-01-01"].Total)
}

func TestNormalizeStats(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc, repo := newAnalytics(t, c)
	ctx := context.Background()

	_, err := svc.RecordClick(ctx, "L1", domain.ClickContext{Fingerprint: "a"})
	require.NoError(t, err)
	_, err = repo.UpdateStats(ctx, func(doc domain.StatsDocument) error {
		doc["L1"].Daily["2024-01-01"].UniqueCount = 42
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, svc.NormalizeStats(ctx))
	doc, err := repo.LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, doc["L1"].Daily["2024-01-01"].UniqueCount)
}

func TestOverview(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc, _ := newAnalytics(t, c)
	ctx := context.Background()

	for _, id := range []string{"L2", "L2", "GONE", "GONE", "GONE"} {
		_, err := svc.RecordClick(ctx, id, domain.ClickContext{Fingerprint: "a"})
		require.NoError(t, err)
	}

	rows, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.LinkTotal{
		{LinkID: "GONE", TotalClicks: 3, Orphaned: true},
		{LinkID: "L2", Title: "Portfolio", Slug: "portfolio", TotalClicks: 2},
		{LinkID: "L1", Title: "Blog", Slug: "blog"},
		{LinkID: "L3", Title: "Old", Slug: "old"},
	}, rows)
}

type failingStats struct{ err error }

func (f failingStats) LoadStats(context.Context) (domain.StatsDocument, error) { return nil, f.err }
func (f failingStats) UpdateStats(context.Context, func(domain.StatsDocument) error) (domain.StatsDocument, error) {
	return nil, f.err
}

func TestStorageFailurePropagates(t *testing.T) {
	disk := errors.New("disk on fire")
	svc := NewAnalyticsService(newRepo(), failingStats{err: disk}, "salt")
	ctx := context.Background()

	_, err := svc.RecordClick(ctx, "L1", domain.ClickContext{})
	assert.ErrorIs(t, err, disk)
	assert.ErrorIs(t, svc.Track(ctx, "L1", domain.Visit{}), disk)
	_, err = svc.LinkReport(ctx, "L1", domain.RangeAll)
	assert.ErrorIs(t, err, disk)
	assert.ErrorIs(t, svc.NormalizeStats(ctx), disk)
}

type fakeTracker struct {
	mu      sync.Mutex
	calls   []string
	visits  []domain.Visit
	err     error
	release chan struct{}
}

func (f *fakeTracker) Track(_ context.Context, linkID string, visit domain.Visit) error {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, linkID)
	f.visits = append(f.visits, visit)
	return f.err
}

func (f *fakeTracker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestClickQueueDrainsOnClose(t *testing.T) {
	tr := &fakeTracker{}
	q := NewClickQueue(tr, 16, zap.NewNop(), nil)
	for i := 0; i < 10; i++ {
		q.Record(context.Background(), "L1", domain.Visit{})
	}
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, 10, tr.count())

	q.Record(context.Background(), "L1", domain.Visit{})
	assert.Equal(t, 10, tr.count(), "closed queue drops clicks")
	require.NoError(t, q.Close(context.Background()), "second close is a no-op")
}

func TestClickQueueStampsArrival(t *testing.T) {
	arrived := time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)
	tr := &fakeTracker{release: make(chan struct{})}
	q := NewClickQueue(tr, 4, zap.NewNop(), nil)
	q.now = func() time.Time { return arrived }

	q.Record(context.Background(), "L1", domain.Visit{IP: "8.8.8.8"})
	q.now = func() time.Time { return arrived.Add(time.Hour) }
	close(tr.release)
	require.NoError(t, q.Close(context.Background()))

	require.Len(t, tr.visits, 1)
	assert.Equal(t, arrived, tr.visits[0].At)
}

func TestTrackUsesArrivalDay(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 2, 0, 0, 5, 0, time.UTC)}
	svc, _ := newAnalytics(t, c)
	ctx := context.Background()

	visit := domain.Visit{IP: "8.8.8.8", UserAgent: "ua", At: time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)}
	require.NoError(t, svc.Track(ctx, "L1", visit))
	visit.At = time.Time{}
	require.NoError(t, svc.Track(ctx, "L1", visit))

	report, err := svc.LinkReport(ctx, "L1", domain.Range7Days)
	require.NoError(t, err)
	assert.Equal(t, []domain.DailyPoint{
		{Date: "2024-01-01", Total: 1, Uniques: 1},
		{Date: "2024-01-02", Total: 1, Uniques: 1},
	}, report.Daily)
}

func TestClickQueueDropsWhenFull(t *testing.T) {
	tr := &fakeTracker{release: make(chan struct{})}
	core, logs := observer.New(zapcore.WarnLevel)
	q := NewClickQueue(tr, 1, zap.New(core), nil)

	// The worker takes the first job and blocks; the second fills the buffer.
	q.Record(context.Background(), "L1", domain.Visit{})
	assert.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, time.Millisecond)
	q.Record(context.Background(), "L1", domain.Visit{})
	q.Record(context.Background(), "L1", domain.Visit{})

	close(tr.release)
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, 2, tr.count())
	assert.Equal(t, 1, logs.FilterMessage("click queue full, dropping click").Len())
}

func TestSyncRecorderLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	tr := &fakeTracker{err: errors.New("boom")}
	r := NewSyncRecorder(tr, zap.New(core))

	r.Record(context.Background(), "L9", domain.Visit{})
	assert.Equal(t, 1, tr.count())
	entries := logs.FilterMessage("failed to record click").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "L9", entries[0].ContextMap()["link_id"])
}
