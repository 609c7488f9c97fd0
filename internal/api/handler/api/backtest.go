package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/swingsim/internal/alert"
	"github.com/newthinker/swingsim/internal/api/job"
	"github.com/newthinker/swingsim/internal/api/response"
	"github.com/newthinker/swingsim/internal/app"
	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/logger"
	"github.com/newthinker/swingsim/internal/pipeline"
	"go.uber.org/zap"
)

const backtestTimeout = 5 * time.Minute

// Backtester is the subset of app.App the backtest handler needs.
type Backtester interface {
	Config() *config.Config
	RunConfig(pair string) config.RunConfig
	Backtest(ctx context.Context, run config.RunConfig, ind config.IndicatorConfig) (*app.Outcome, error)
}

// JobsGauge receives the number of unfinished jobs.
type JobsGauge interface {
	SetJobsActive(count int)
}

// BacktestRequest is the request body for starting a backtest. Omitted
// fields fall back to the configured defaults.
type BacktestRequest struct {
	Pair           string   `json:"pair"`
	Interval       *int     `json:"interval,omitempty"`
	Oversold       *float64 `json:"oversold,omitempty"`
	Overbought     *float64 `json:"overbought,omitempty"`
	InitialCapital *float64 `json:"initial_capital,omitempty"`
	Since          *int64   `json:"since,omitempty"`
	BandWindow     *int     `json:"band_window,omitempty"`
	BandWidth      *float64 `json:"band_width,omitempty"`
	RSIPeriod      *int     `json:"rsi_period,omitempty"`
	Portfolio      bool     `json:"portfolio,omitempty"` // include the per-bar capital series
}

// Apply overlays the request on the configured defaults.
func (req BacktestRequest) Apply(run config.RunConfig, ind config.IndicatorConfig) (config.RunConfig, config.IndicatorConfig) {
	if req.Pair != "" {
		run.Pair = req.Pair
	}
	if req.Interval != nil {
		run.Interval = *req.Interval
	}
	if req.Oversold != nil {
		run.Oversold = *req.Oversold
	}
	if req.Overbought != nil {
		run.Overbought = *req.Overbought
	}
	if req.InitialCapital != nil {
		run.InitialCapital = *req.InitialCapital
	}
	if req.Since != nil {
		run.Since = *req.Since
	}
	if req.BandWindow != nil {
		ind.BandWindow = *req.BandWindow
	}
	if req.BandWidth != nil {
		ind.BandWidth = *req.BandWidth
	}
	if req.RSIPeriod != nil {
		ind.RSIPeriod = *req.RSIPeriod
	}
	return run, ind
}

// BacktestResult is stored on a completed job.
type BacktestResult struct {
	Run         pipeline.Document `json:"run"`
	ArchivePath string            `json:"archive_path,omitempty"`
	Commentary  string            `json:"commentary,omitempty"`
	Alerts      []alert.Alert     `json:"alerts,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore *job.Store
	runner   Backtester
	gauge    JobsGauge
	logger   *zap.Logger
}

// NewBacktestHandler creates a new backtest handler. gauge may be nil.
func NewBacktestHandler(jobStore *job.Store, runner Backtester, gauge JobsGauge, log *zap.Logger) *BacktestHandler {
	return &BacktestHandler{
		jobStore: jobStore,
		runner:   runner,
		gauge:    gauge,
		logger:   logger.OrNop(log),
	}
}

// Create validates the request and starts a backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	run, ind := req.Apply(h.runner.RunConfig(""), h.runner.Config().Indicator)
	if err := run.Validate(); err != nil {
		response.Fail(w, err)
		return
	}
	if err := ind.Validate(); err != nil {
		response.Fail(w, err)
		return
	}

	j := h.jobStore.Create("backtest")
	h.reportJobs()

	go h.runBacktest(j.ID, run, ind, req.Portfolio)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// runBacktest executes the backtest and updates job status.
func (h *BacktestHandler) runBacktest(jobID string, run config.RunConfig, ind config.IndicatorConfig, withPortfolio bool) {
	defer h.reportJobs()

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()
	out, err := h.runner.Backtest(ctx, run, ind)

	if err != nil {
		h.logger.Warn("backtest job failed", zap.String("job_id", jobID), zap.Error(err))
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
		return
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = BacktestResult{
			Run:         out.Result.Document(withPortfolio),
			ArchivePath: out.ArchivePath,
			Commentary:  out.Commentary,
			Alerts:      out.Alerts,
			Warnings:    out.Warnings,
		}
	})
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	resp := map[string]any{
		"job_id":     j.ID,
		"status":     j.Status,
		"created_at": j.CreatedAt,
		"updated_at": j.UpdatedAt,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		detail := map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
		if j.Error.Cause != nil {
			detail["cause"] = j.Error.Cause.Error()
		}
		resp["error"] = detail
	}

	response.JSON(w, http.StatusOK, resp)
}

// List returns the live jobs, newest first, without their results.
func (h *BacktestHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobStore.List()
	for i := range jobs {
		jobs[i].Result = nil
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"jobs":   jobs,
		"active": h.jobStore.Active(),
	})
}

func (h *BacktestHandler) reportJobs() {
	if h.gauge != nil {
		h.gauge.SetJobsActive(h.jobStore.Active())
	}
}

// asCoreError keeps the kind of a structured error, wrapping anything else
// as a provider failure.
func asCoreError(err error) *core.Error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce
	}
	return core.WrapError(core.ErrProvider, err)
}
