package collector

import (
	"context"

	"github.com/newthinker/swingsim/internal/core"
)

// Recorder receives one observation per provider request.
type Recorder interface {
	RecordProviderRequest(provider, status string)
}

type instrumented struct {
	Provider
	rec Recorder
}

// Instrument reports the outcome of every FetchOHLC call on p to rec.
func Instrument(p Provider, rec Recorder) Provider {
	if rec == nil {
		return p
	}
	return &instrumented{Provider: p, rec: rec}
}

func (i *instrumented) FetchOHLC(ctx context.Context, req Request) ([]core.PriceBar, error) {
	bars, err := i.Provider.FetchOHLC(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
	}
	i.rec.RecordProviderRequest(i.Provider.Name(), status)
	return bars, err
}
