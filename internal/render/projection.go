// Package render projects the session's result set into ordered render
// instructions: list rows, map markers, and the debug panel. It is pure;
// the TUI applies the instructions to concrete widgets.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/linzh0131/find/internal/model"
)

// Row is one list entry, numbered 1..N in result order.
type Row struct {
	ID        string
	Index     int
	Name      string
	FlagLabel string
	DistanceM float64
	Rating    float64
	Count     int
	Score     float64
	Selected  bool
}

// Marker is one map marker. Markers and rows are created and cleared
// together: there is always exactly one marker per result item.
type Marker struct {
	ID       string
	Index    int
	Lat      float64
	Lng      float64
	Selected bool
}

// DebugPanel is the inspection view for the highlighted item.
type DebugPanel struct {
	// Text is the score breakdown rendered as formatted structured text.
	Text string
	Wd   float64
	Wr   float64
	OK   bool
}

// Projection holds the current result set and selection.
type Projection struct {
	items    []model.ResultItem
	selected string
}

func NewProjection() *Projection {
	return &Projection{}
}

// SetResults replaces everything: all rows and markers are rebuilt from the
// new set and the previous selection is dropped. Calling it twice with the
// same set yields the same output.
func (p *Projection) SetResults(items []model.ResultItem) {
	p.items = items
	p.selected = ""
}

// Highlight selects exactly one entry by id, clearing any previous
// selection. An id not present in the current results still clears the old
// highlight but selects nothing.
func (p *Projection) Highlight(id string) {
	p.selected = ""
	for _, it := range p.items {
		if it.ID == id {
			p.selected = id
			return
		}
	}
}

// Selected returns the highlighted item, if any.
func (p *Projection) Selected() (model.ResultItem, bool) {
	for _, it := range p.items {
		if it.ID == p.selected && p.selected != "" {
			return it, true
		}
	}
	return model.ResultItem{}, false
}

// SelectedIndex returns the zero-based index of the highlighted item, or -1.
func (p *Projection) SelectedIndex() int {
	for i, it := range p.items {
		if it.ID == p.selected && p.selected != "" {
			return i
		}
	}
	return -1
}

// Rows returns the list entries in result order.
func (p *Projection) Rows() []Row {
	rows := make([]Row, len(p.items))
	for i, it := range p.items {
		rows[i] = Row{
			ID:        it.ID,
			Index:     i + 1,
			Name:      it.Name,
			FlagLabel: it.FlagLabel,
			DistanceM: it.DistanceM,
			Rating:    it.Rating,
			Count:     it.RatingCount,
			Score:     it.Score,
			Selected:  it.ID == p.selected,
		}
	}
	return rows
}

// Markers returns one marker per item, same order and numbering as Rows.
func (p *Projection) Markers() []Marker {
	markers := make([]Marker, len(p.items))
	for i, it := range p.items {
		markers[i] = Marker{
			ID:       it.ID,
			Index:    i + 1,
			Lat:      it.Lat,
			Lng:      it.Lng,
			Selected: it.ID == p.selected,
		}
	}
	return markers
}

// Debug builds the inspection panel for the current selection. With nothing
// selected it returns OK=false and empty content.
func (p *Projection) Debug() DebugPanel {
	it, ok := p.Selected()
	if !ok {
		return DebugPanel{}
	}

	data, err := json.MarshalIndent(it.ScoreBreakdown, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	return DebugPanel{
		Text: string(data),
		Wd:   it.ScoreBreakdown["Wd"],
		Wr:   it.ScoreBreakdown["Wr"],
		OK:   true,
	}
}

// CoordLabel formats a fix for the on-screen coordinate label.
func CoordLabel(loc *model.Location) string {
	if loc == nil {
		return "location unavailable"
	}
	return fmt.Sprintf("%.6f, %.6f", loc.Lat, loc.Lng)
}
