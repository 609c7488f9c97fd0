package factory

import (
	"github.com/newthinker/swingsim/internal/collector"
	"github.com/newthinker/swingsim/internal/collector/binance"
	"github.com/newthinker/swingsim/internal/collector/csvfile"
	"github.com/newthinker/swingsim/internal/collector/kraken"
	"github.com/newthinker/swingsim/internal/collector/okx"
	"github.com/newthinker/swingsim/internal/config"
)

// Registry registers every provider the configuration can reach.
// The csv provider is only registered when a path is set.
func Registry(cfg config.ProviderConfig, rec collector.Recorder) *collector.Registry {
	r := collector.NewRegistry()
	r.Register(collector.Instrument(kraken.NewWithBaseURL(cfg.KrakenURL, cfg.Timeout), rec))
	r.Register(collector.Instrument(okx.NewWithBaseURL(cfg.OKXURL, cfg.Timeout), rec))
	r.Register(collector.Instrument(binance.NewWithBaseURL(cfg.BinanceURL, cfg.Timeout), rec))
	if cfg.CSVPath != "" {
		r.Register(collector.Instrument(csvfile.New(cfg.CSVPath), rec))
	}
	return r
}

// New creates the configured provider, followed by its fallbacks.
func New(cfg config.ProviderConfig, rec collector.Recorder) (collector.Provider, error) {
	names := append([]string{cfg.Name}, cfg.Fallback...)
	return Registry(cfg, rec).Chain(names...)
}
