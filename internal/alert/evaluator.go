package alert

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum gap between two firings of one rule for one pair.
const DefaultCooldown = 6 * time.Hour

// Alert is one fired rule.
type Alert struct {
	Rule     string    `json:"rule"`
	Severity string    `json:"severity,omitempty"`
	Pair     string    `json:"pair"`
	Message  string    `json:"message"`
	FiredAt  time.Time `json:"fired_at"`
}

// Evaluator checks rules against run metrics, one state per rule and pair.
type Evaluator struct {
	rules    []Rule
	cooldown time.Duration

	// consecutive runs the rule has held, per rule and pair
	pending map[string]int
	// last firing, per rule and pair
	lastFired map[string]time.Time

	now func() time.Time

	mu sync.Mutex
}

// NewEvaluator validates rules and returns an evaluator. A non-positive
// cooldown uses DefaultCooldown.
func NewEvaluator(rules []Rule, cooldown time.Duration) (*Evaluator, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Evaluator{
		rules:     rules,
		cooldown:  cooldown,
		pending:   make(map[string]int),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}, nil
}

// Rules returns the configured rules.
func (e *Evaluator) Rules() []Rule {
	return e.rules
}

// Check evaluates every rule for one run of pair and returns the alerts
// that fire.
func (e *Evaluator) Check(pair string, metrics map[string]float64) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var fired []Alert
	for _, rule := range e.rules {
		key := rule.Name + "|" + pair

		if !rule.Evaluate(metrics) {
			delete(e.pending, key)
			continue
		}

		e.pending[key]++
		if e.pending[key] < rule.For {
			continue
		}

		if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cooldown {
			continue
		}

		fired = append(fired, Alert{
			Rule:     rule.Name,
			Severity: rule.Severity,
			Pair:     pair,
			Message:  rule.FormatMessage(pair, metrics),
			FiredAt:  now,
		})
		e.lastFired[key] = now
		delete(e.pending, key)
	}
	return fired
}

// advanceTime is for testing - advances the internal clock.
func (e *Evaluator) advanceTime(d time.Duration) {
	oldNow := e.now
	e.now = func() time.Time {
		return oldNow().Add(d)
	}
}
