// Package tui renders the Kanban board in the terminal. It is a thin shell:
// every stage move goes through the sync coordinator, and the board manager
// stays the single source of truth for what is displayed.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"funnelflow/internal/board"
	"funnelflow/internal/cli"
	"funnelflow/internal/engine"
	"funnelflow/internal/filter"
	"funnelflow/internal/model"
	"funnelflow/internal/pipeline"
	"funnelflow/internal/service"
	"funnelflow/internal/stats"
)

// moveResultMsg reports a finished stage move back to the update loop.
type moveResultMsg struct {
	err error
}

// Model is the bubbletea model for the board view.
type Model struct {
	coordinator *engine.Coordinator
	board       *board.Manager
	kind        model.Kind
	columns     []pipeline.StageInfo

	filterInput textinput.Model
	spinner     spinner.Model
	term        string
	filtering   bool
	moving      bool

	col    int
	row    int
	width  int
	height int

	noticeMu   sync.Mutex
	lastNotice string
}

// NewModel creates the board view for one record kind.
func NewModel(coordinator *engine.Coordinator, b *board.Manager, kind model.Kind) *Model {
	input := textinput.New()
	input.Placeholder = "filter term"
	input.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.PrimaryColor)

	return &Model{
		coordinator: coordinator,
		board:       b,
		kind:        kind,
		columns:     pipeline.StagesFor(kind),
		filterInput: input,
		spinner:     sp,
	}
}

// Notify lets the model double as the coordinator's notifier while the
// board is on screen; the latest notice becomes the status line.
func (m *Model) Notify(_ service.NoticeKind, message string) {
	m.noticeMu.Lock()
	m.lastNotice = message
	m.noticeMu.Unlock()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case moveResultMsg:
		m.moving = false
		m.clampCursor()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilterInput(msg)
		}
		return m.updateBoardKeys(msg)
	}

	return m, nil
}

func (m *Model) updateFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.term = strings.TrimSpace(m.filterInput.Value())
		m.filtering = false
		m.clampCursor()
		return m, nil
	case "esc":
		m.filtering = false
		m.filterInput.SetValue(m.term)
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *Model) updateBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		if m.col > 0 {
			m.col--
			m.clampCursor()
		}
	case "right", "l":
		if m.col < len(m.columns)-1 {
			m.col++
			m.clampCursor()
		}
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		m.row++
		m.clampCursor()
	case "shift+left", "H":
		return m.moveSelected(-1)
	case "shift+right", "L":
		return m.moveSelected(1)
	case "x":
		return m.moveSelectedTo(pipeline.LosingStage(m.kind))
	case "/":
		m.filtering = true
		m.filterInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

// moveSelected moves the card under the cursor one column left or right.
func (m *Model) moveSelected(direction int) (tea.Model, tea.Cmd) {
	targetCol := m.col + direction
	if targetCol < 0 || targetCol >= len(m.columns) {
		return m, nil
	}
	return m.moveSelectedTo(m.columns[targetCol].ID)
}

func (m *Model) moveSelectedTo(target model.Stage) (tea.Model, tea.Cmd) {
	if m.moving {
		return m, nil
	}
	rec, ok := m.selectedRecord()
	if !ok {
		return m, nil
	}
	m.moving = true

	id := rec.ID
	coordinator := m.coordinator
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return moveResultMsg{err: coordinator.MoveRecord(ctx, id, target)}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var cols []string
	for i, info := range m.columns {
		cols = append(cols, m.renderColumn(i, info))
	}

	boardView := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	header := cli.TitleStyle.Render(fmt.Sprintf("%s board", m.kind))
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, boardView, footer)
}

func (m *Model) renderColumn(idx int, info pipeline.StageInfo) string {
	records := m.visibleColumn(info.ID)

	title := cli.BoldStyle.Render(fmt.Sprintf("%s (%d)", info.Label, len(records)))
	lines := []string{title}
	for i, rec := range records {
		label := rec.Title
		if rec.CounterpartyName != "" {
			label += " · " + rec.CounterpartyName
		}
		if idx == m.col && i == m.row {
			if m.moving {
				label = m.spinner.View() + label
			}
			lines = append(lines, cli.SelectedCardStyle.Render("> "+label))
			continue
		}
		lines = append(lines, cli.CardStyle.Render(label))
	}

	return cli.ColumnStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter() string {
	summary := stats.Summarize(m.visibleRecords(), time.Now())
	line := fmt.Sprintf("%d records · %d active · %.0f%% success · %d due this week",
		summary.Total, summary.Active, summary.SuccessRate, summary.UpcomingDeadlineCount)

	if m.filtering {
		return cli.SubtleStyle.Render(line) + "\n/" + m.filterInput.View()
	}

	help := "←/→ navigate · shift+←/→ move card · x lose · / filter · q quit"
	m.noticeMu.Lock()
	notice := m.lastNotice
	m.noticeMu.Unlock()

	parts := []string{cli.SubtleStyle.Render(line), cli.SubtleStyle.Render(help)}
	if notice != "" {
		parts = append(parts, cli.InfoStyle.Render(notice))
	}
	return strings.Join(parts, "\n")
}

// visibleRecords applies the live filter term over the board's full set.
func (m *Model) visibleRecords() []model.Record {
	kind := m.kind
	return filter.Apply(m.board.All(), service.Predicate{Term: m.term, Kind: &kind})
}

func (m *Model) visibleColumn(stage model.Stage) []model.Record {
	kind := m.kind
	return filter.Apply(m.board.Column(stage), service.Predicate{Term: m.term, Kind: &kind})
}

func (m *Model) selectedRecord() (model.Record, bool) {
	records := m.visibleColumn(m.columns[m.col].ID)
	if m.row >= len(records) {
		return model.Record{}, false
	}
	return records[m.row], true
}

func (m *Model) clampCursor() {
	records := m.visibleColumn(m.columns[m.col].ID)
	if len(records) == 0 {
		m.row = 0
		return
	}
	if m.row >= len(records) {
		m.row = len(records) - 1
	}
}
