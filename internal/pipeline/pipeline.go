// Package pipeline drives the two-stage interpret→search flow that turns a
// text query into a ranked result set.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/linzh0131/find/internal/model"
	"github.com/linzh0131/find/internal/session"
)

// Interpreter derives a structured query from free text.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (model.ParsedQuery, error)
}

// Searcher runs the ranked place search.
type Searcher interface {
	Search(ctx context.Context, loc model.Location, q model.ParsedQuery) ([]model.ResultItem, error)
}

// Stage identifies how far a run got before stopping.
type Stage int

const (
	StageValidate Stage = iota
	StageInterpret
	StageSearch
	StageDone
)

// Outcome is the result of one pipeline run. Parsed is valid from
// StageSearch onward, Results only at StageDone.
type Outcome struct {
	Gen      uint64
	Stage    Stage
	Parsed   model.ParsedQuery
	Results  []model.ResultItem
	// Accepted is false when a newer run finished first and this run's
	// results were discarded instead of written to the session.
	Accepted bool
}

// Orchestrator sequences interpret and search for a session. Each run gets a
// generation number; only the newest generation may replace session results,
// so an overlapping stale run cannot clobber fresher state.
type Orchestrator struct {
	interpreter Interpreter
	searcher    Searcher
	state       *session.State
	gen         atomic.Uint64
}

func New(interpreter Interpreter, searcher Searcher, state *session.State) *Orchestrator {
	return &Orchestrator{interpreter: interpreter, searcher: searcher, state: state}
}

// Run executes one pipeline run. Preconditions are checked before any
// network call: a run with no location fix or blank text fails immediately
// with zero requests issued. On search failure the previous result set is
// left untouched.
func (o *Orchestrator) Run(ctx context.Context, text string) (Outcome, error) {
	out := Outcome{Stage: StageValidate}

	if o.state.Location() == nil {
		return out, model.ErrNoLocation
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return out, model.ErrEmptyText
	}

	out.Gen = o.gen.Add(1)

	out.Stage = StageInterpret
	parsed, err := o.interpreter.Interpret(ctx, text)
	if err != nil {
		return out, fmt.Errorf("interpreting query: %w", err)
	}
	out.Parsed = parsed

	out.Stage = StageSearch
	loc := *o.state.Location()
	results, err := o.searcher.Search(ctx, loc, parsed)
	if err != nil {
		return out, fmt.Errorf("searching: %w", err)
	}

	out.Stage = StageDone
	out.Results = results
	out.Accepted = o.state.SetResults(out.Gen, results)
	return out, nil
}
