// Package history keeps summaries of past backtest runs.
package history

import (
	"context"
	"time"

	"github.com/newthinker/swingsim/internal/backtest"
	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/pipeline"
	"github.com/newthinker/swingsim/internal/signal"
)

// Record is the stored summary of one run.
type Record struct {
	ID             string                  `json:"id"`
	Pair           string                  `json:"pair"`
	Interval       int                     `json:"interval"`
	Provider       string                  `json:"provider"`
	StartedAt      time.Time               `json:"started_at"`
	DurationMS     int64                   `json:"duration_ms"`
	Params         pipeline.DocumentParams `json:"params"`
	InitialCapital float64                 `json:"initial_capital"`
	OpenPosition   bool                    `json:"open_position"`
	Report         backtest.Report         `json:"report"`
	LastEvent      *signal.Event           `json:"last_event,omitempty"`
}

// NewRecord summarizes a result.
func NewRecord(res *pipeline.Result) Record {
	doc := res.Document(false)
	rec := Record{
		ID:             doc.ID,
		Pair:           doc.Pair,
		Interval:       doc.Interval,
		Provider:       doc.Provider,
		StartedAt:      doc.StartedAt,
		DurationMS:     doc.DurationMS,
		Params:         doc.Params,
		InitialCapital: doc.InitialCapital,
		OpenPosition:   doc.OpenPosition,
		Report:         doc.Report,
	}
	if ev, ok := res.LastEvent(); ok {
		rec.LastEvent = &ev
	}
	return rec
}

// Store defines the interface for run history persistence.
type Store interface {
	// Save persists a record. Saving an existing ID replaces it.
	Save(ctx context.Context, rec Record) error

	// Get retrieves a record by its ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List retrieves records matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)

	// Close releases the underlying resources.
	Close() error
}

// Open builds the configured store.
func Open(cfg config.HistoryConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(cfg.MaxRecords), nil
	case "sqlite":
		if cfg.DSN == "" {
			return nil, core.Errorf(core.ErrConfigMissing, "sqlite history requires a dsn")
		}
		return NewSQLiteStore(cfg.DSN, cfg.MaxRecords)
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown history store type: %q", cfg.Type)
	}
}

// ListFilter defines criteria for listing records.
type ListFilter struct {
	Pair     string
	Interval int
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

func (f ListFilter) matches(rec Record) bool {
	if f.Pair != "" && rec.Pair != f.Pair {
		return false
	}
	if f.Interval != 0 && rec.Interval != f.Interval {
		return false
	}
	if !f.From.IsZero() && rec.StartedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && rec.StartedAt.After(f.To) {
		return false
	}
	return true
}
