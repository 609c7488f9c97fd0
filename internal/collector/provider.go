// Package collector fetches OHLC price series from exchanges and files.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/swingsim/internal/core"
)

// Request selects the series to fetch.
type Request struct {
	Pair     string
	Interval core.Interval
	Since    time.Time // zero means the provider's default window
}

// Validate checks the request before any provider is contacted.
func (r Request) Validate() error {
	if err := core.ValidatePair(r.Pair); err != nil {
		return err
	}
	if _, err := core.ParseInterval(int(r.Interval)); err != nil {
		return err
	}
	return nil
}

// Provider defines the interface for price series sources
type Provider interface {
	// Name returns the provider identifier (e.g., "kraken", "okx")
	Name() string

	// FetchOHLC returns the bars for a request in ascending time order
	// with no duplicate timestamps.
	FetchOHLC(ctx context.Context, req Request) ([]core.PriceBar, error)

	// Pairs lists the tradable pairs the provider knows about.
	Pairs(ctx context.Context) ([]string, error)
}

// Finalize orders bars ascending and drops duplicate timestamps, keeping the
// last occurrence. Bars before since are discarded.
func Finalize(bars []core.PriceBar, since time.Time) []core.PriceBar {
	out := core.SortSeries(bars)
	if since.IsZero() {
		return out
	}
	kept := out[:0]
	for _, b := range out {
		if !b.Time.Before(since) {
			kept = append(kept, b)
		}
	}
	return kept
}

// ProviderError wraps err as a provider failure tagged with the provider name.
func ProviderError(name string, err error) error {
	return core.WrapError(core.ErrProvider, fmt.Errorf("%s: %w", name, err))
}

// GetJSON issues a GET request and decodes a JSON body into v.
func GetJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
