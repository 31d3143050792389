package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linzh0131/find/internal/api"
	"github.com/linzh0131/find/internal/config"
	"github.com/linzh0131/find/internal/locate"
	"github.com/linzh0131/find/internal/model"
	"github.com/linzh0131/find/internal/pipeline"
	"github.com/linzh0131/find/internal/record"
	"github.com/linzh0131/find/internal/session"
	"github.com/linzh0131/find/internal/tui/views"
)

// App is the root bubbletea model.
type App struct {
	width  int
	height int
	query  views.QueryModel
}

func NewApp(query views.QueryModel) App {
	return App{query: query}
}

func (a App) Init() tea.Cmd {
	return a.query.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	}

	var cmd tea.Cmd
	var m tea.Model
	m, cmd = a.query.Update(msg)
	a.query = m.(views.QueryModel)
	return a, cmd
}

func (a App) View() string {
	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		a.query.View(),
	)
}

// Run wires the session, backend client, locator, and recorder together and
// starts the TUI.
func Run(cfg config.ClientConfig) error {
	state := session.New()
	client := api.NewClient(cfg.BaseURL, cfg.VerifyToken)

	var locator locate.Locator
	if cfg.Lat != 0 || cfg.Lng != 0 {
		locator = locate.Fixed{Loc: model.Location{Lat: cfg.Lat, Lng: cfg.Lng}}
	} else {
		locator = locate.NewIPLocator()
	}

	deps := views.QueryDeps{
		API:      client,
		Locator:  locator,
		State:    state,
		Pipeline: pipeline.New(client, client, state),
	}

	// A missing recorder only matters once the user tries to record.
	if device, err := record.Probe(cfg.Recorder); err != nil {
		deps.RecorderErr = err.Error()
	} else {
		deps.Recorder = record.NewController(device, client, cfg.LanguageCode)
	}

	p := tea.NewProgram(NewApp(views.NewQueryModel(deps)), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
