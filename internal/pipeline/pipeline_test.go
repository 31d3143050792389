package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linzh0131/find/internal/model"
	"github.com/linzh0131/find/internal/session"
)

type mockInterpreter struct {
	calls  int
	parsed model.ParsedQuery
	err    error
}

func (m *mockInterpreter) Interpret(_ context.Context, _ string) (model.ParsedQuery, error) {
	m.calls++
	return m.parsed, m.err
}

type mockSearcher struct {
	calls   int
	results []model.ResultItem
	err     error
	// fn, when set, overrides the canned response.
	fn func(call int) ([]model.ResultItem, error)
}

func (m *mockSearcher) Search(_ context.Context, _ model.Location, _ model.ParsedQuery) ([]model.ResultItem, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(m.calls)
	}
	return m.results, m.err
}

func items(ids ...string) []model.ResultItem {
	out := make([]model.ResultItem, len(ids))
	for i, id := range ids {
		out[i] = model.ResultItem{ID: id, Name: "place " + id}
	}
	return out
}

func TestRunRequiresLocation(t *testing.T) {
	interp := &mockInterpreter{}
	search := &mockSearcher{}
	o := New(interp, search, session.New())

	out, err := o.Run(context.Background(), "coffee nearby")

	require.ErrorIs(t, err, model.ErrNoLocation)
	assert.Equal(t, StageValidate, out.Stage)
	assert.Zero(t, interp.calls, "no request may be issued without a fix")
	assert.Zero(t, search.calls)
}

func TestRunRequiresText(t *testing.T) {
	interp := &mockInterpreter{}
	search := &mockSearcher{}
	state := session.New()
	state.SetLocation(model.Location{Lat: 25.03, Lng: 121.56})
	o := New(interp, search, state)

	for _, text := range []string{"", "   ", "\t\n"} {
		out, err := o.Run(context.Background(), text)
		require.ErrorIs(t, err, model.ErrEmptyText)
		assert.Equal(t, StageValidate, out.Stage)
	}
	assert.Zero(t, interp.calls)
	assert.Zero(t, search.calls)
}

func TestRunInterpretFailureSkipsSearch(t *testing.T) {
	interp := &mockInterpreter{err: errors.New("model timeout")}
	search := &mockSearcher{}
	state := session.New()
	state.SetLocation(model.Location{Lat: 25.03, Lng: 121.56})
	o := New(interp, search, state)

	out, err := o.Run(context.Background(), "coffee")

	require.Error(t, err)
	assert.Equal(t, StageInterpret, out.Stage)
	assert.Equal(t, 1, interp.calls)
	assert.Zero(t, search.calls, "search must be skipped when interpretation fails")
}

func TestRunSearchFailureKeepsPreviousResults(t *testing.T) {
	interp := &mockInterpreter{parsed: model.ParsedQuery{Query: "coffee", RadiusM: 500}}
	search := &mockSearcher{fn: func(call int) ([]model.ResultItem, error) {
		if call == 1 {
			return items("a", "b"), nil
		}
		return nil, errors.New("rate limited")
	}}
	state := session.New()
	state.SetLocation(model.Location{Lat: 25.03, Lng: 121.56})
	o := New(interp, search, state)

	out, err := o.Run(context.Background(), "coffee within 500m")
	require.NoError(t, err)
	require.True(t, out.Accepted)
	require.Len(t, state.Results(), 2)

	_, err = o.Run(context.Background(), "coffee again")
	require.Error(t, err)
	assert.Len(t, state.Results(), 2, "failed run must leave previous results intact")
	assert.Equal(t, "a", state.Results()[0].ID)
}

func TestRunSuccess(t *testing.T) {
	parsed := model.ParsedQuery{Query: "咖啡", RadiusM: 500, WeightMode: "rating_first"}
	interp := &mockInterpreter{parsed: parsed}
	search := &mockSearcher{results: items("a", "b", "c")}
	state := session.New()
	state.SetLocation(model.Location{Lat: 25.03, Lng: 121.56})
	o := New(interp, search, state)

	out, err := o.Run(context.Background(), "附近咖啡 評分優先")

	require.NoError(t, err)
	assert.Equal(t, StageDone, out.Stage)
	assert.Equal(t, parsed, out.Parsed)
	assert.True(t, out.Accepted)
	assert.Len(t, out.Results, 3)
	assert.Equal(t, out.Results, state.Results())
}

func TestStaleRunCannotClobberNewerResults(t *testing.T) {
	interp := &mockInterpreter{parsed: model.ParsedQuery{Query: "store", RadiusM: 1500}}
	search := &mockSearcher{}
	state := session.New()
	state.SetLocation(model.Location{Lat: 25.03, Lng: 121.56})
	o := New(interp, search, state)

	// A newer generation lands first; the older run must be rejected.
	require.True(t, state.SetResults(5, items("new")))
	o.gen.Store(1) // next run gets generation 2, older than 5

	out, err := o.Run(context.Background(), "old query")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	require.Len(t, state.Results(), 1)
	assert.Equal(t, "new", state.Results()[0].ID)
}

func TestRunGenerationsIncrease(t *testing.T) {
	interp := &mockInterpreter{parsed: model.ParsedQuery{Query: "store", RadiusM: 1500}}
	search := &mockSearcher{results: items("x")}
	state := session.New()
	state.SetLocation(model.Location{Lat: 25.03, Lng: 121.56})
	o := New(interp, search, state)

	var last uint64
	for i := 0; i < 3; i++ {
		out, err := o.Run(context.Background(), fmt.Sprintf("query %d", i))
		require.NoError(t, err)
		assert.Greater(t, out.Gen, last)
		last = out.Gen
	}
}
