package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/swingsim/internal/api/response"
)

const pairsTimeout = 30 * time.Second

// PairLister lists the pairs a provider offers.
type PairLister interface {
	Pairs(ctx context.Context) ([]string, error)
}

// PairsHandler serves the asset pair listing.
type PairsHandler struct {
	lister PairLister
}

// NewPairsHandler creates a new pairs handler.
func NewPairsHandler(lister PairLister) *PairsHandler {
	return &PairsHandler{lister: lister}
}

// List returns the provider's pairs, optionally filtered by ?q=.
func (h *PairsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pairsTimeout)
	defer cancel()

	pairs, err := h.lister.Pairs(ctx)
	if err != nil {
		response.Fail(w, err)
		return
	}

	if q := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("q"))); q != "" {
		filtered := make([]string, 0, len(pairs))
		for _, p := range pairs {
			if strings.Contains(p, q) {
				filtered = append(filtered, p)
			}
		}
		pairs = filtered
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"pairs": pairs,
		"count": len(pairs),
	})
}
