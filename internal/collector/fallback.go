package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/swingsim/internal/core"
)

// Fallback tries each provider in order. The first non-empty series wins.
type Fallback struct {
	providers []Provider
}

// NewFallback creates a Fallback over providers.
func NewFallback(providers ...Provider) *Fallback {
	return &Fallback{providers: providers}
}

func (f *Fallback) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ",")
}

// FetchOHLC fetches from the first provider that returns data.
func (f *Fallback) FetchOHLC(ctx context.Context, req Request) ([]core.PriceBar, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars, err := p.FetchOHLC(ctx, req)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if lastErr != nil {
		return nil, core.WrapError(core.ErrProvider,
			fmt.Errorf("all providers failed for %s: %w", req.Pair, lastErr))
	}
	return nil, core.Errorf(core.ErrProvider, "no data available for %s", req.Pair)
}

// Pairs returns the pair list of the first provider that answers.
func (f *Fallback) Pairs(ctx context.Context) ([]string, error) {
	var lastErr error
	for _, p := range f.providers {
		pairs, err := p.Pairs(ctx)
		if err == nil {
			return pairs, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return nil, core.WrapError(core.ErrProvider, lastErr)
}
