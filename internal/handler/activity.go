package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/activity"
	"github.com/matthewbaird/fadem/internal/clock"
	"github.com/matthewbaird/fadem/internal/signals"
	"github.com/matthewbaird/fadem/internal/types"
)

// ActivityHandler serves the per-entity activity feed built from ledger
// events.
type ActivityHandler struct {
	store  activity.Store
	clock  clock.Clock
	logger *zap.Logger
}

func NewActivityHandler(store activity.Store, clk clock.Clock, logger *zap.Logger) *ActivityHandler {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityHandler{store: store, clock: clk, logger: logger}
}

func (h *ActivityHandler) Routes(r chi.Router) {
	r.Get("/activity/entity/{entity_type}/{entity_id}", h.GetEntityActivity)
	r.Get("/activity/summary/{entity_type}/{entity_id}", h.GetSignalSummary)
	r.Get("/activity/search", h.SearchActivity)
}

// GetEntityActivity returns a chronological activity feed for any entity.
// GET /v1/activity/entity/{entity_type}/{entity_id}
func (h *ActivityHandler) GetEntityActivity(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entity_type")
	entityID := chi.URLParam(r, "entity_id")

	opts := activity.DefaultQueryOptions(h.clock.Now())
	since, err := queryTime(r, "since")
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	if since != nil {
		opts.Since = since
	}
	until, err := queryTime(r, "until")
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	if until != nil {
		opts.Until = until
	}
	q := r.URL.Query()
	if cats := q.Get("categories"); cats != "" {
		opts.Categories = strings.Split(cats, ",")
	}
	if mw := q.Get("min_weight"); mw != "" {
		opts.MinWeight = mw
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		opts.Limit = min(n, 500)
	}
	opts.Cursor = q.Get("cursor")

	entries, nextCursor, totalCount, err := h.store.QueryByEntity(r.Context(), entityType, entityID, opts)
	if err != nil {
		h.logger.Error("activity query", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	if entries == nil {
		entries = []types.ActivityEntry{}
	}

	resp := struct {
		Activities []types.ActivityEntry `json:"activities"`
		NextCursor string                `json:"next_cursor,omitempty"`
		TotalCount int                   `json:"total_count"`
		Period     struct {
			Since time.Time `json:"since"`
			Until time.Time `json:"until"`
		} `json:"period"`
	}{
		Activities: entries,
		NextCursor: nextCursor,
		TotalCount: totalCount,
	}
	resp.Period.Since = *opts.Since
	resp.Period.Until = *opts.Until
	writeJSON(w, http.StatusOK, resp)
}

// GetSignalSummary condenses an entity's activity into counts, escalations
// and a sentiment. The window defaults to the last twelve months.
// GET /v1/activity/summary/{entity_type}/{entity_id}
func (h *ActivityHandler) GetSignalSummary(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entity_type")
	entityID := chi.URLParam(r, "entity_id")

	until := h.clock.Now()
	since := until.AddDate(-1, 0, 0)
	s, err := queryTime(r, "since")
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	if s != nil {
		since = *s
	}

	entries, _, _, err := h.store.QueryByEntity(r.Context(), entityType, entityID, activity.QueryOptions{
		Since: &since,
		Until: &until,
		Limit: 500,
	})
	if err != nil {
		h.logger.Error("activity query", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, signals.Aggregate(entries, entityType, entityID, since, until))
}

// SearchActivity performs a text search across activity summaries.
// GET /v1/activity/search?q=...
func (h *ActivityHandler) SearchActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "q is required")
		return
	}

	opts := activity.DefaultSearchOptions()
	opts.EntityType = q.Get("entity_type")
	if cats := q.Get("categories"); cats != "" {
		opts.Categories = strings.Split(cats, ",")
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		opts.Limit = n
	}
	since, err := queryTime(r, "since")
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	opts.Since = since

	entries, totalCount, err := h.store.Search(r.Context(), query, opts)
	if err != nil {
		h.logger.Error("activity search", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "SEARCH_FAILED", err.Error())
		return
	}
	if entries == nil {
		entries = []types.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, struct {
		Results    []types.ActivityEntry `json:"results"`
		TotalCount int                   `json:"total_count"`
	}{entries, totalCount})
}
