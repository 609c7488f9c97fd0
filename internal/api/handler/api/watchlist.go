package api

import (
	"encoding/json"
	"net/http"

	"github.com/newthinker/swingsim/internal/api/response"
	"github.com/newthinker/swingsim/internal/core"
)

// WatchlistApp defines the interface needed from app.App.
type WatchlistApp interface {
	Watchlist() []string
	AddToWatchlist(pair string) (bool, error)
	RemoveFromWatchlist(pair string) bool
}

// WatchlistHandler handles watchlist API requests.
type WatchlistHandler struct {
	app WatchlistApp
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(app WatchlistApp) *WatchlistHandler {
	return &WatchlistHandler{app: app}
}

// AddRequest is the request body for adding a pair.
type AddRequest struct {
	Pair string `json:"pair"`
}

// List returns all pairs in the watchlist.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	pairs := h.app.Watchlist()
	response.JSON(w, http.StatusOK, map[string]any{
		"pairs": pairs,
		"count": len(pairs),
	})
}

// Add adds a pair to the watchlist.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	if req.Pair == "" {
		response.Error(w, http.StatusBadRequest,
			core.Errorf(core.ErrConfigMissing, "pair is required"))
		return
	}

	added, err := h.app.AddToWatchlist(req.Pair)
	if err != nil {
		response.Fail(w, err)
		return
	}

	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	response.JSON(w, status, map[string]any{
		"pair":  core.NormalizePair(req.Pair),
		"added": added,
	})
}

// Remove removes a pair from the watchlist.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	pair := r.PathValue("pair")
	if !h.app.RemoveFromWatchlist(pair) {
		response.Fail(w, core.Errorf(core.ErrNotFound, "pair %s is not on the watchlist", pair))
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"pair":    core.NormalizePair(pair),
		"removed": true,
	})
}
