package history

import (
	"context"

	"github.com/newthinker/swingsim/internal/collector"
	"github.com/newthinker/swingsim/internal/core"
)

type nopProvider struct{}

func (nopProvider) Name() string { return "nop" }

func (nopProvider) FetchOHLC(ctx context.Context, req collector.Request) ([]core.PriceBar, error) {
	return nil, nil
}

func (nopProvider) Pairs(ctx context.Context) ([]string, error) { return nil, nil }
