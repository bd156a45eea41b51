package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"github.com/wadjakorntonsri/linkbio/pkg/metrics"
	"github.com/wadjakorntonsri/linkbio/pkg/ports"
	"go.uber.org/zap"
)

type HTTPHandler struct {
	links      ports.LinkService
	analytics  ports.AnalyticsService
	recorder   ports.ClickRecorder
	logger     *zap.Logger
	metrics    *metrics.Metrics
	trustProxy bool
}

func NewHTTPHandler(links ports.LinkService, analytics ports.AnalyticsService, recorder ports.ClickRecorder, logger *zap.Logger, m *metrics.Metrics, trustProxy bool) *HTTPHandler {
	return &HTTPHandler{
		links:      links,
		analytics:  analytics,
		recorder:   recorder,
		logger:     logger,
		metrics:    m,
		trustProxy: trustProxy,
	}
}

// Redirect sends the visitor to the link target and records the click.
// Recording never changes the response.
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	link, err := h.links.Resolve(r.Context(), slug)
	if errors.Is(err, domain.ErrLinkNotFound) {
		h.metrics.RecordRedirect(strconv.Itoa(http.StatusNotFound))
		respondError(w, http.StatusNotFound, CodeLinkNotFound, "Link not found")
		return
	}
	if err != nil {
		h.logger.Error("resolve link failed", zap.String("slug", slug), zap.Error(err))
		h.metrics.RecordRedirect(strconv.Itoa(http.StatusInternalServerError))
		respondError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
		return
	}

	// Skip tracking when the "no_stat" query param is present
	if !r.URL.Query().Has("no_stat") {
		h.recorder.Record(r.Context(), link.ID, domain.Visit{
			IP:        ClientIP(r, h.trustProxy),
			UserAgent: r.UserAgent(),
			Referer:   r.Referer(),
		})
	}

	h.metrics.RecordRedirect(strconv.Itoa(http.StatusFound))
	http.Redirect(w, r, link.URL, http.StatusFound)
}

// PublicLinks lists the active links of the landing page.
func (h *HTTPHandler) PublicLinks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	links, err := h.links.ListPublic(r.Context(), q.Get("category"), q.Get("search"))
	if err != nil {
		h.internalError(w, "list links failed", err)
		return
	}
	respondData(w, http.StatusOK, links)
}

func (h *HTTPHandler) PublicCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.links.ListCategories(r.Context())
	if err != nil {
		h.internalError(w, "list categories failed", err)
		return
	}
	respondData(w, http.StatusOK, categories)
}

// LinkStats answers the analytics query for one link. Links without clicks
// get an empty report, never a 404.
func (h *HTTPHandler) LinkStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rng := domain.ParseRange(r.URL.Query().Get("range"))

	report, err := h.analytics.LinkReport(r.Context(), id, rng)
	if err != nil {
		h.internalError(w, "link stats failed", err)
		return
	}
	respondData(w, http.StatusOK, report)
}

// Overview lists all-time clicks per link.
func (h *HTTPHandler) Overview(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.Overview(r.Context())
	if err != nil {
		h.internalError(w, "stats overview failed", err)
		return
	}
	respondData(w, http.StatusOK, rows)
}

func (h *HTTPHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	respondError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
}
