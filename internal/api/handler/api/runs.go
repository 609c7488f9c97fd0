package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/swingsim/internal/api/response"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/pipeline"
	"github.com/newthinker/swingsim/internal/storage/archive"
	"github.com/newthinker/swingsim/internal/storage/history"
)

const defaultRunsLimit = 50

// RunsHandler serves the run history.
type RunsHandler struct {
	store   history.Store
	archive archive.Storage
}

// NewRunsHandler creates a new runs handler. archive may be nil.
func NewRunsHandler(store history.Store, arch archive.Storage) *RunsHandler {
	return &RunsHandler{store: store, archive: arch}
}

// List returns runs matching query parameters, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	runs, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}
	count, err := h.store.Count(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.Page(w, runs, count, filter.Limit, filter.Offset)
}

// Get returns a single run. With ?full=true the archived document,
// including trades and the portfolio series, is returned instead.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	if full, _ := strconv.ParseBool(r.URL.Query().Get("full")); !full {
		response.JSON(w, http.StatusOK, rec)
		return
	}

	doc, err := h.document(r.Context(), rec)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, doc)
}

func (h *RunsHandler) document(ctx context.Context, rec *history.Record) (*pipeline.Document, error) {
	if h.archive == nil {
		return nil, core.Errorf(core.ErrNotFound, "run archive is not configured")
	}
	p := archive.ResultPath(pipeline.Document{ID: rec.ID, Pair: rec.Pair, StartedAt: rec.StartedAt})
	return archive.LoadResult(ctx, h.archive, p)
}

func parseFilter(r *http.Request) (history.ListFilter, error) {
	q := r.URL.Query()
	filter := history.ListFilter{Limit: defaultRunsLimit}

	if pair := q.Get("pair"); pair != "" {
		filter.Pair = core.NormalizePair(pair)
	}

	if v := q.Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, core.Errorf(core.ErrConfigInvalid, "interval: %v", err)
		}
		filter.Interval = n
	}

	var err error
	if filter.From, err = parseTime(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseTime(q.Get("to")); err != nil {
		return filter, err
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, core.Errorf(core.ErrConfigInvalid, "limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, core.Errorf(core.ErrConfigInvalid, "offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}

// parseTime accepts RFC3339 or YYYY-MM-DD.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, core.Errorf(core.ErrConfigInvalid, "invalid time %q", s)
}
