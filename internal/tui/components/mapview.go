package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/linzh0131/find/internal/tui/styles"
)

// Marker is one numbered place pin.
type Marker struct {
	Lat      float64
	Lng      float64
	Index    int // 1..N, rendered as its last digit
	Selected bool
}

// MapView renders the search area as a braille radius ring with numbered
// markers, centered on the current fix or a panned-to result.
type MapView struct {
	width  int
	height int

	centerLat float64
	centerLng float64
	radiusM   float64
	hasView   bool

	markers []Marker
}

func NewMapView(width, height int) MapView {
	return MapView{width: width, height: height}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Center sets the viewport to a circle of radiusM meters around a point.
func (m *MapView) Center(lat, lng, radiusM float64) {
	if radiusM <= 0 {
		radiusM = 1500
	}
	m.centerLat = lat
	m.centerLng = lng
	m.radiusM = radiusM
	m.hasView = true
}

// PanTo recenters on a point keeping the current radius.
func (m *MapView) PanTo(lat, lng float64) {
	m.centerLat = lat
	m.centerLng = lng
	m.hasView = true
}

// SetMarkers replaces all markers. Markers and the result list are always
// replaced together.
func (m *MapView) SetMarkers(markers []Marker) {
	m.markers = markers
}

func (m *MapView) ClearMarkers() {
	m.markers = nil
}

// meters per degree of latitude; longitude shrinks with cos(lat).
const metersPerDegree = 111320.0

func (m *MapView) bounds() (minLat, minLng, maxLat, maxLng float64) {
	halfLat := m.radiusM / metersPerDegree * 1.15
	cosLat := math.Cos(m.centerLat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	halfLng := m.radiusM / (metersPerDegree * cosLat) * 1.15
	return m.centerLat - halfLat, m.centerLng - halfLng, m.centerLat + halfLat, m.centerLng + halfLng
}

// Braille character encoding: each char is a 2x4 dot grid, 0x2800 plus the
// raised dot bits.
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

var dotPositions = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1},
	{1, 1}, {2, 1}, {3, 0}, {3, 1},
}

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	if !m.hasView {
		return lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("waiting for location fix...")
	}

	cols := m.width
	rows := m.height
	dotW := cols * 2
	dotH := rows * 4

	minLat, minLng, maxLat, maxLng := m.bounds()
	latRange := maxLat - minLat
	lngRange := maxLng - minLng

	toDot := func(lat, lng float64) (int, int) {
		x := int((lng - minLng) / lngRange * float64(dotW-1))
		y := int((maxLat - lat) / latRange * float64(dotH-1))
		return x, y
	}

	// Radius ring around the center, drawn as connected segments.
	ringGrid := make([][]bool, dotH)
	for i := range ringGrid {
		ringGrid[i] = make([]bool, dotW)
	}
	const segments = 72
	cosLat := math.Cos(m.centerLat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	var prevX, prevY int
	for i := 0; i <= segments; i++ {
		theta := float64(i) / segments * 2 * math.Pi
		lat := m.centerLat + m.radiusM/metersPerDegree*math.Sin(theta)
		lng := m.centerLng + m.radiusM/(metersPerDegree*cosLat)*math.Cos(theta)
		x, y := toDot(lat, lng)
		if i > 0 {
			drawLine(ringGrid, prevX, prevY, x, y, dotW, dotH)
		}
		prevX, prevY = x, y
	}

	// Markers and the center cross land on char cells, overlaying the ring.
	type cell struct {
		r        rune
		selected bool
	}
	overlay := make(map[[2]int]cell)

	cx, cy := toDot(m.centerLat, m.centerLng)
	overlay[[2]int{cy / 4, cx / 2}] = cell{r: '+'}

	for _, mk := range m.markers {
		x, y := toDot(mk.Lat, mk.Lng)
		if x < 0 || x >= dotW || y < 0 || y >= dotH {
			continue
		}
		overlay[[2]int{y / 4, x / 2}] = cell{r: rune('0' + mk.Index%10), selected: mk.Selected}
	}

	ringStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	markerStyle := lipgloss.NewStyle().Foreground(styles.Success).Bold(true)
	selectedStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true).Underline(true)
	centerStyle := lipgloss.NewStyle().Foreground(styles.Secondary).Bold(true)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if c, ok := overlay[[2]int{row, col}]; ok {
				switch {
				case c.r == '+':
					sb.WriteString(centerStyle.Render(string(c.r)))
				case c.selected:
					sb.WriteString(selectedStyle.Render(string(c.r)))
				default:
					sb.WriteString(markerStyle.Render(string(c.r)))
				}
				continue
			}

			var ringVal rune = 0x2800
			for dot := 0; dot < 8; dot++ {
				dy := row*4 + dotPositions[dot][0]
				dx := col*2 + dotPositions[dot][1]
				if dy < dotH && dx < dotW && ringGrid[dy][dx] {
					ringVal |= brailleDots[dot]
				}
			}
			if ringVal != 0x2800 {
				sb.WriteString(ringStyle.Render(string(ringVal)))
			} else {
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}

// drawLine draws a line between two dots using Bresenham's algorithm.
func drawLine(grid [][]bool, x0, y0, x1, y1, maxW, maxH int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if x0 >= 0 && x0 < maxW && y0 >= 0 && y0 < maxH {
			grid[y0][x0] = true
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
