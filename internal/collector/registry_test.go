package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/swingsim/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider for testing
type mockProvider struct {
	name  string
	bars  []core.PriceBar
	pairs []string
	err   error
	calls int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) FetchOHLC(ctx context.Context, req Request) ([]core.PriceBar, error) {
	m.calls++
	return m.bars, m.err
}

func (m *mockProvider) Pairs(ctx context.Context) ([]string, error) {
	return m.pairs, m.err
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{name: "kraken"})

	p, ok := r.Get("kraken")
	require.True(t, ok)
	assert.Equal(t, "kraken", p.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{name: "okx"})
	r.Register(&mockProvider{name: "binance"})
	r.Register(&mockProvider{name: "kraken"})

	assert.Equal(t, []string{"binance", "kraken", "okx"}, r.Names())
}

func TestRegistry_Chain(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{name: "kraken"})
	r.Register(&mockProvider{name: "okx"})

	single, err := r.Chain("kraken")
	require.NoError(t, err)
	assert.Equal(t, "kraken", single.Name())

	chain, err := r.Chain("kraken", "okx")
	require.NoError(t, err)
	assert.Equal(t, "kraken,okx", chain.Name())

	_, err = r.Chain("kraken", "bitstamp")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	_, err = r.Chain()
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}
