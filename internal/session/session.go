// Package session holds the process-wide query session state: the current
// location fix and the latest result set. Single writer per field: the
// location acquirer owns Location, the pipeline owns Results.
package session

import "github.com/linzh0131/find/internal/model"

// State is the one session instance, created at startup and passed by
// reference to the components that need it.
type State struct {
	location    *model.Location
	results     []model.ResultItem
	resultsGen  uint64
	pendingText string
}

func New() *State {
	return &State{}
}

// Location returns the current fix, or nil before the first successful one.
func (s *State) Location() *model.Location {
	return s.location
}

// SetLocation overwrites the current fix. Only the location acquirer calls it.
func (s *State) SetLocation(loc model.Location) {
	s.location = &loc
}

// Results returns the latest result set, empty before the first search.
func (s *State) Results() []model.ResultItem {
	return s.results
}

// SetResults replaces the result set wholesale if gen is not older than the
// newest accepted generation. It reports whether the set was accepted; a
// stale in-flight response is discarded so it cannot overwrite newer results.
func (s *State) SetResults(gen uint64, results []model.ResultItem) bool {
	if gen < s.resultsGen {
		return false
	}
	s.resultsGen = gen
	s.results = results
	return true
}

// SetPendingText stores transcribed text destined for the query input, so the
// recording controller can hand it over exactly as if the user had typed it.
func (s *State) SetPendingText(text string) {
	s.pendingText = text
}

// TakePendingText returns and clears the pending input text.
func (s *State) TakePendingText() string {
	t := s.pendingText
	s.pendingText = ""
	return t
}
