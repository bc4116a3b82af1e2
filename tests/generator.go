package testutil

import (
	"context"
	"sync"

	"github.com/trezcool/eduadmin/core/forecast"
)

// ValidForecast is a well formed prediction service answer.
const ValidForecast = `{
	"predicted_gpa": 3.4,
	"risk_level": "Medium",
	"performance_trend": "Declining",
	"confidence_score": 78,
	"risk_factors": ["attendance below 75%", "missed lab submissions"],
	"recommendation": "Schedule a mentoring session."
}`

// FakeGenerator answers every prompt with Response (or fails with Err) and records prompts.
// When Block is set, calls wait until it is closed.
type FakeGenerator struct {
	Response string
	Err      error
	Block    chan struct{}

	mu      sync.Mutex
	prompts []string
	schemas []forecast.OutputSchema
}

var _ forecast.Generator = (*FakeGenerator)(nil)

func (g *FakeGenerator) GenerateJSON(ctx context.Context, prompt string, schema forecast.OutputSchema) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.schemas = append(g.schemas, schema)
	block := g.Block
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}

// Prompts returns the prompts received so far.
func (g *FakeGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Calls returns the number of calls received so far.
func (g *FakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}
