package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewBeforeFirstFix(t *testing.T) {
	m := NewMapView(40, 12)
	assert.Contains(t, m.View(), "waiting for location fix")
}

func TestViewRendersCenterAndMarkers(t *testing.T) {
	m := NewMapView(40, 12)
	m.Center(25.0330, 121.5654, 1000)
	m.SetMarkers([]Marker{
		{Lat: 25.0335, Lng: 121.5650, Index: 1},
		{Lat: 25.0320, Lng: 121.5660, Index: 2, Selected: true},
	})

	out := m.View()
	assert.Contains(t, out, "+", "center cross")
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "2")
}

func TestMarkersOutsideViewportAreSkipped(t *testing.T) {
	m := NewMapView(40, 12)
	m.Center(25.0330, 121.5654, 500)
	m.SetMarkers([]Marker{{Lat: 40.0, Lng: -70.0, Index: 3}})

	assert.NotContains(t, m.View(), "3")
}

func TestClearMarkers(t *testing.T) {
	m := NewMapView(40, 12)
	m.Center(25.0330, 121.5654, 500)
	m.SetMarkers([]Marker{{Lat: 25.0330, Lng: 121.5654, Index: 9}})
	m.ClearMarkers()

	assert.NotContains(t, m.View(), "9")
}

func TestMarkerIndexWrapsToLastDigit(t *testing.T) {
	m := NewMapView(40, 12)
	m.Center(25.0330, 121.5654, 500)
	m.SetMarkers([]Marker{{Lat: 25.0332, Lng: 121.5654, Index: 12}})

	assert.Contains(t, m.View(), "2")
	assert.NotContains(t, m.View(), "12")
}

func TestViewDimensions(t *testing.T) {
	m := NewMapView(30, 8)
	m.Center(25.0330, 121.5654, 1000)

	lines := strings.Split(m.View(), "\n")
	assert.Len(t, lines, 8)
}

func TestZeroSizeView(t *testing.T) {
	m := NewMapView(0, 0)
	m.Center(25, 121, 500)
	assert.Empty(t, m.View())
}
