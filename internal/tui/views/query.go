package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linzh0131/find/internal/api"
	"github.com/linzh0131/find/internal/locate"
	"github.com/linzh0131/find/internal/model"
	"github.com/linzh0131/find/internal/pipeline"
	"github.com/linzh0131/find/internal/record"
	"github.com/linzh0131/find/internal/render"
	"github.com/linzh0131/find/internal/session"
	"github.com/linzh0131/find/internal/status"
	"github.com/linzh0131/find/internal/tui/components"
	"github.com/linzh0131/find/internal/tui/styles"
)

const defaultMapRadiusM = 1500

// QueryDeps are the collaborators the query view drives. Recorder may be nil
// when no capture tool was found; RecorderErr then explains why.
type QueryDeps struct {
	API         *api.Client
	Locator     locate.Locator
	State       *session.State
	Pipeline    *pipeline.Orchestrator
	Recorder    *record.Controller
	RecorderErr string
}

type focusArea int

const (
	focusInput focusArea = iota
	focusResults
)

type (
	configMsg struct {
		cfg model.RemoteConfig
		err error
	}
	locationMsg struct {
		loc model.Location
		err error
	}
	runMsg struct {
		out pipeline.Outcome
		err error
	}
	recordStartMsg struct {
		err error
	}
	// transcriptMsg signals that a transcript was deposited in the session's
	// pending-text slot (or that the recording failed).
	transcriptMsg struct {
		err error
	}
)

// QueryModel is the main screen: query input, ranked result list, map pane,
// score inspector, and a single-slot status line.
type QueryModel struct {
	deps QueryDeps

	input   textinput.Model
	results table.Model
	mapView components.MapView
	spin    spinner.Model

	proj     *render.Projection
	reporter status.Reporter
	remote   model.RemoteConfig
	parsed   *model.ParsedQuery

	width      int
	height     int
	focus      focusArea
	busy       bool
	initFailed bool
}

func NewQueryModel(deps QueryDeps) QueryModel {
	input := textinput.New()
	input.Placeholder = "coffee within 500m, rating first..."
	input.CharLimit = 200
	input.Width = 48
	input.Focus()

	results := table.New(
		table.WithColumns(resultColumns(56)),
		table.WithHeight(10),
	)

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = styles.LoadingText

	m := QueryModel{
		deps:    deps,
		input:   input,
		results: results,
		mapView: components.NewMapView(44, 14),
		spin:    spin,
		proj:    render.NewProjection(),
	}
	m.reporter.Loading("loading configuration...")
	return m
}

func resultColumns(nameWidth int) []table.Column {
	return []table.Column{
		{Title: "#", Width: 3},
		{Title: "Name", Width: nameWidth},
		{Title: "Dist", Width: 7},
		{Title: "Rating", Width: 11},
		{Title: "Score", Width: 7},
		{Title: "Note", Width: 8},
	}
}

func (m QueryModel) Init() tea.Cmd {
	return tea.Batch(m.fetchConfigCmd(), m.spin.Tick, textinput.Blink)
}

func (m QueryModel) fetchConfigCmd() tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cfg, err := client.FetchConfig(ctx)
		return configMsg{cfg: cfg, err: err}
	}
}

func (m QueryModel) locateCmd() tea.Cmd {
	locator := m.deps.Locator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		loc, err := locator.Acquire(ctx)
		return locationMsg{loc: loc, err: err}
	}
}

func (m QueryModel) runCmd(text string) tea.Cmd {
	orch := m.deps.Pipeline
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		out, err := orch.Run(ctx, text)
		return runMsg{out: out, err: err}
	}
}

func (m QueryModel) startRecordingCmd() tea.Cmd {
	rec := m.deps.Recorder
	return func() tea.Msg {
		return recordStartMsg{err: rec.Start(context.Background())}
	}
}

func (m QueryModel) stopRecordingCmd() tea.Cmd {
	rec := m.deps.Recorder
	state := m.deps.State
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()
		text, err := rec.Stop(ctx)
		if err != nil {
			return transcriptMsg{err: err}
		}
		state.SetPendingText(text)
		return transcriptMsg{}
	}
}

func (m QueryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case configMsg:
		if msg.err != nil {
			m.initFailed = true
			m.reporter.Error(describeErr(fmt.Errorf("%w: %v", model.ErrInit, msg.err)))
			return m, nil
		}
		m.remote = msg.cfg
		// A site key without a client token means API calls may be rejected;
		// the bootstrap continues and the per-call 403 explains itself.
		m.reporter.Loading("acquiring location...")
		return m, m.locateCmd()

	case locationMsg:
		if msg.err != nil {
			m.reporter.Error(msg.err.Error())
			return m, nil
		}
		loc := msg.loc
		m.deps.State.SetLocation(loc)
		m.mapView.Center(loc.Lat, loc.Lng, defaultMapRadiusM)
		m.reporter.Info("ready: type a query or press ctrl+r to speak")
		return m, nil

	case runMsg:
		m.busy = false
		if msg.out.Stage >= pipeline.StageSearch {
			parsed := msg.out.Parsed
			m.parsed = &parsed
		}
		if msg.err != nil {
			m.reporter.Error(describeErr(msg.err))
			return m, nil
		}
		if !msg.out.Accepted {
			// A newer run already replaced these results.
			return m, nil
		}
		m.applyResults(msg.out)
		return m, nil

	case recordStartMsg:
		if msg.err != nil {
			m.reporter.Error(describeErr(msg.err))
			return m, nil
		}
		m.reporter.Loading("recording... press ctrl+r to stop")
		return m, nil

	case transcriptMsg:
		if msg.err != nil {
			m.reporter.Error(describeErr(msg.err))
			return m, nil
		}
		// The transcript enters the flow exactly as if the user had typed it.
		text := m.deps.State.TakePendingText()
		m.input.SetValue(text)
		return m, m.submit(text)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m QueryModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "q":
		// Only outside the text input; "q" is a legitimate query character.
		if m.focus == focusResults {
			return m, tea.Quit
		}

	case "esc":
		if m.focus == focusResults || m.input.Value() == "" {
			return m, tea.Quit
		}

	case "tab":
		if m.focus == focusInput {
			m.focus = focusResults
			m.input.Blur()
			m.results.Focus()
		} else {
			m.focus = focusInput
			m.results.Blur()
			m.input.Focus()
		}
		return m, nil

	case "enter":
		if m.focus == focusInput {
			return m, m.submit(m.input.Value())
		}

	case "ctrl+r":
		return m.toggleRecording()

	case "up", "down", "k", "j":
		if m.focus == focusResults {
			var cmd tea.Cmd
			m.results, cmd = m.results.Update(msg)
			m.highlightCursor()
			return m, cmd
		}
	}

	return m.updateFocused(msg)
}

func (m QueryModel) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.results, cmd = m.results.Update(msg)
		m.highlightCursor()
	}
	return m, cmd
}

// submit validates nothing itself: precondition failures come back from the
// pipeline as typed errors so the status line can explain them.
func (m *QueryModel) submit(text string) tea.Cmd {
	if m.initFailed {
		m.reporter.Error(describeErr(model.ErrInit))
		return nil
	}
	if m.busy {
		return nil
	}
	m.busy = true
	m.reporter.Loading("interpreting query...")
	return m.runCmd(text)
}

func (m QueryModel) toggleRecording() (tea.Model, tea.Cmd) {
	if m.deps.Recorder == nil {
		reason := m.deps.RecorderErr
		if reason == "" {
			reason = "no capture tool found"
		}
		m.reporter.Error("microphone unavailable: " + reason)
		return m, nil
	}
	switch m.deps.Recorder.State() {
	case record.Idle:
		m.reporter.Loading("opening microphone...")
		return m, m.startRecordingCmd()
	case record.Recording:
		m.reporter.Loading("transcribing...")
		return m, m.stopRecordingCmd()
	default:
		// Stopping or Transcribing: a stop is already in flight.
		return m, nil
	}
}

func (m *QueryModel) applyResults(out pipeline.Outcome) {
	m.proj.SetResults(out.Results)

	if len(out.Results) == 0 {
		m.results.SetRows(nil)
		m.mapView.ClearMarkers()
		m.reporter.Info("no results")
		return
	}

	first := out.Results[0]
	m.proj.Highlight(first.ID)
	m.results.SetRows(m.tableRows())
	m.results.SetCursor(0)
	m.mapView.SetMarkers(projectMarkers(m.proj.Markers()))
	m.mapView.PanTo(first.Lat, first.Lng)
	m.reporter.Info(fmt.Sprintf("%d results", len(out.Results)))
}

// highlightCursor syncs the table cursor to the projection so the map marker
// and debug panel follow the list selection.
func (m *QueryModel) highlightCursor() {
	rows := m.proj.Rows()
	i := m.results.Cursor()
	if i < 0 || i >= len(rows) {
		return
	}
	m.proj.Highlight(rows[i].ID)
	m.results.SetRows(m.tableRows())
	m.mapView.SetMarkers(projectMarkers(m.proj.Markers()))
	if it, ok := m.proj.Selected(); ok {
		m.mapView.PanTo(it.Lat, it.Lng)
	}
}

func (m QueryModel) tableRows() []table.Row {
	rows := m.proj.Rows()
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row{
			fmt.Sprintf("%d", r.Index),
			r.Name,
			fmt.Sprintf("%.0fm", r.DistanceM),
			fmt.Sprintf("%.1f (%d)", r.Rating, r.Count),
			fmt.Sprintf("%.3f", r.Score),
			r.FlagLabel,
		}
	}
	return out
}

func projectMarkers(in []render.Marker) []components.Marker {
	out := make([]components.Marker, len(in))
	for i, mk := range in {
		out[i] = components.Marker{
			Lat:      mk.Lat,
			Lng:      mk.Lng,
			Index:    mk.Index,
			Selected: mk.Selected,
		}
	}
	return out
}

func (m *QueryModel) layout() {
	if m.width <= 0 {
		return
	}
	listWidth := m.width/2 - 4
	if listWidth < 40 {
		listWidth = 40
	}
	nameWidth := listWidth - 40
	if nameWidth < 16 {
		nameWidth = 16
	}
	m.results.SetColumns(resultColumns(nameWidth))
	m.input.Width = listWidth - 4

	mapWidth := m.width - listWidth - 8
	if mapWidth < 30 {
		mapWidth = 30
	}
	mapHeight := m.height - 14
	if mapHeight < 8 {
		mapHeight = 8
	}
	m.mapView.SetSize(mapWidth, mapHeight)
	m.results.SetHeight(mapHeight - 2)
}

// describeErr turns pipeline and recording errors into status-line text. A
// backend-reported failure surfaces its own message without the transport
// wrapping.
func describeErr(err error) string {
	switch {
	case errors.Is(err, model.ErrNoLocation):
		return "location is required; still waiting for a fix"
	case errors.Is(err, model.ErrEmptyText):
		return "type something to search"
	case errors.Is(err, model.ErrEmptyTranscript):
		return "heard nothing; try recording again"
	case errors.Is(err, model.ErrMicUnavailable):
		return err.Error()
	case errors.Is(err, model.ErrInit):
		return err.Error() + " (restart to retry)"
	}
	var svc *api.ServiceError
	if errors.As(err, &svc) {
		return svc.Message
	}
	return err.Error()
}

func (m QueryModel) View() string {
	var b strings.Builder

	title := styles.Title.Render("find · nearby place search")
	coord := styles.Label.Render("location") + styles.Value.Render(render.CoordLabel(m.deps.State.Location()))
	b.WriteString(title + "\n")
	b.WriteString(coord + "\n")
	if m.remote.TurnstileSiteKey != "" {
		b.WriteString(styles.Label.Render("verification") + styles.Value.Render("enabled") + "\n")
	}
	b.WriteString("\n")

	inputBox := styles.Border.Render(m.input.View())
	if m.focus == focusInput {
		inputBox = styles.FocusedBorder.Render(m.input.View())
	}
	b.WriteString(inputBox + "\n")

	if m.parsed != nil {
		b.WriteString(styles.StatusBar.Render(parsedLabel(*m.parsed)) + "\n")
	}

	listBox := styles.Border.Render(m.results.View())
	if m.focus == focusResults {
		listBox = styles.FocusedBorder.Render(m.results.View())
	}
	mapBox := styles.Border.Render(m.mapView.View())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, listBox, " ", mapBox) + "\n")

	if panel := m.proj.Debug(); panel.OK {
		header := fmt.Sprintf("score breakdown  Wd=%.2f Wr=%.2f", panel.Wd, panel.Wr)
		b.WriteString(styles.Border.Render(styles.Label.Render(header) + "\n" + panel.Text))
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine() + "\n")
	b.WriteString(styles.StatusBar.Render("enter search · ctrl+r record · tab focus · q quit"))
	return b.String()
}

func parsedLabel(p model.ParsedQuery) string {
	return fmt.Sprintf("query=%s radius=%dm mode=%s brand_strict=%t",
		p.Query, p.RadiusM, p.WeightMode, p.BrandStrict)
}

func (m QueryModel) statusLine() string {
	cur := m.reporter.Current()
	if cur.Empty() {
		return ""
	}
	switch cur.Severity {
	case status.Loading:
		return m.spin.View() + " " + styles.LoadingText.Render(cur.Text)
	case status.Error:
		return styles.ErrorText.Render(cur.Text)
	default:
		return styles.InfoText.Render(cur.Text)
	}
}
