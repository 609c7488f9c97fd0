// Package notifier delivers run summaries to external channels.
package notifier

import (
	"context"
	"time"

	"github.com/newthinker/swingsim/internal/backtest"
	"github.com/newthinker/swingsim/internal/pipeline"
	"github.com/newthinker/swingsim/internal/signal"
)

// Summary is the notification payload for one completed run.
type Summary struct {
	RunID        string          `json:"run_id"`
	Pair         string          `json:"pair"`
	Interval     int             `json:"interval"`
	Provider     string          `json:"provider"`
	StartedAt    time.Time       `json:"started_at"`
	Report       backtest.Report `json:"report"`
	OpenPosition bool            `json:"open_position"`
	LastSignal   *signal.Event   `json:"last_signal,omitempty"`
	Commentary   string          `json:"commentary,omitempty"`
	ArchivePath  string          `json:"archive_path,omitempty"`
	Alerts       []string        `json:"alerts,omitempty"`
}

// NewSummary builds the notification payload for res.
func NewSummary(res *pipeline.Result) Summary {
	s := Summary{
		RunID:        res.ID,
		Pair:         res.Pair,
		Interval:     res.Interval.Minutes(),
		Provider:     res.Provider,
		StartedAt:    res.StartedAt,
		Report:       res.Report,
		OpenPosition: res.OpenPosition,
	}
	if e, ok := res.LastEvent(); ok {
		s.LastSignal = &e
	}
	return s
}

// Notifier defines the interface for run notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers a single run summary
	Send(ctx context.Context, s Summary) error

	// SendBatch delivers several summaries at once, e.g. one watchlist pass
	SendBatch(ctx context.Context, batch []Summary) error
}
