// Package commentary asks a language model for a short narrative of a run.
package commentary

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/pipeline"
)

// Commentator produces a narrative summary of a completed run.
type Commentator interface {
	Comment(ctx context.Context, res *pipeline.Result) (string, error)
}

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

const systemPrompt = `You review backtests of a mean-reversion strategy that buys when the close
falls below the lower Bollinger band with RSI oversold, and sells when the close
rises above the upper band with RSI overbought. Positions are all-in, long only,
and a position still open at the end of the series is not counted.
Write three to five plain sentences for a trader: how the strategy did, what
drove the result, and one caveat. Do not give investment advice.`

// recentTrades caps how many closed trades are included in the prompt.
const recentTrades = 5

// Narrator implements Commentator on top of a chat Provider.
type Narrator struct {
	provider  Provider
	maxTokens int
}

// New creates a Narrator backed by provider.
func New(provider Provider) *Narrator {
	return &Narrator{provider: provider, maxTokens: 400}
}

// Name returns the underlying provider name.
func (n *Narrator) Name() string {
	return n.provider.Name()
}

// Comment sends the run's report and recent trades to the provider.
func (n *Narrator) Comment(ctx context.Context, res *pipeline.Result) (string, error) {
	resp, err := n.provider.Chat(ctx, ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []Message{{Role: "user", Content: Prompt(res)}},
		MaxTokens:    n.maxTokens,
		Temperature:  0.3,
	})
	if err != nil {
		return "", core.WrapError(core.ErrCommentary, err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", core.Errorf(core.ErrCommentary, "%s returned an empty reply", n.provider.Name())
	}
	return text, nil
}

// Prompt renders the facts of a run as the user message.
func Prompt(res *pipeline.Result) string {
	var b strings.Builder
	r := res.Report
	p := res.Params

	fmt.Fprintf(&b, "Pair: %s, interval %s, %d bars from %s.\n", res.Pair, res.Interval, res.Bars, res.Provider)
	fmt.Fprintf(&b, "Parameters: band window %d, band width %g, RSI period %d, oversold %g, overbought %g.\n",
		p.BandWindow, p.BandWidth, p.RSIPeriod, p.Oversold, p.Overbought)
	fmt.Fprintf(&b, "Capital: %.2f -> %.2f (profit %.2f).\n", r.InitialCapital, r.FinalCapital, r.TotalProfit)
	fmt.Fprintf(&b, "Annual return %.2f%%, max drawdown %.2f%%, Sharpe %.3f.\n",
		r.AnnualReturnPct, r.MaxDrawdownPct, r.SharpeRatio)
	fmt.Fprintf(&b, "Trades: %d total, %d won, %d lost, win rate %.1f%%.\n",
		r.TotalTrades, r.WinningTrades, r.LosingTrades, r.WinRate)
	if res.OpenPosition {
		b.WriteString("A position was still open at the end of the series.\n")
	}

	trades := res.Trades()
	if len(trades) > recentTrades {
		trades = trades[len(trades)-recentTrades:]
	}
	if len(trades) > 0 {
		b.WriteString("Most recent trades:\n")
		for _, t := range trades {
			fmt.Fprintf(&b, "- bought %g on %s, sold %g on %s, profit %g\n",
				t.EntryPrice, t.EntryTime.UTC().Format("2006-01-02"),
				t.ExitPrice, t.ExitTime.UTC().Format("2006-01-02"), t.Profit)
		}
	}

	if e, ok := res.LastEvent(); ok {
		fmt.Fprintf(&b, "Last signal: %s at %g on %s.\n", e.Side, e.Price, e.Time.UTC().Format("2006-01-02"))
	}
	return b.String()
}
