// Package watch implements the live bridge view: heartbeat, queue depth and
// recent terminal actions, refreshed by polling the bridge directory.
package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/deskbridge/internal/action"
	"github.com/mattjoyce/deskbridge/internal/config"
	"github.com/mattjoyce/deskbridge/internal/queue"
	"github.com/mattjoyce/deskbridge/internal/status"
)

const (
	refreshInterval = time.Second
	recentRows      = 10
)

type tickMsg time.Time

type snapshot struct {
	status    *status.Status
	alive     bool
	aliveNote string
	pending   int
	completed int
	failed    int
	recent    []*action.Record
	err       error
}

// Model is the bubbletea model for bridgectl watch.
type Model struct {
	cfg   *config.Config
	queue *queue.Queue
	theme Theme
	table table.Model
	snap  snapshot
}

// NewModel creates the watch model over an opened queue.
func NewModel(cfg *config.Config, q *queue.Queue) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 10},
			{Title: "Action", Width: 15},
			{Title: "Status", Width: 10},
			{Title: "Outcome", Width: 44},
		}),
		table.WithHeight(recentRows),
	)

	return Model{cfg: cfg, queue: q, theme: NewDefaultTheme(), table: t}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refresh gathers a snapshot of the bridge directory.
func (m Model) refresh() tea.Msg {
	var s snapshot

	s.status, _ = status.Read(m.cfg.StatusFile())
	s.alive, s.aliveNote = status.Check(m.cfg.StatusFile(), m.cfg.Service.StatusStaleAfter, time.Now())

	var err error
	if s.pending, s.completed, s.failed, err = m.queue.Counts(); err != nil {
		s.err = err
		return s
	}
	if s.recent, err = m.queue.RecentTerminal(recentRows); err != nil {
		s.err = err
	}
	return s
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		return m, tea.Batch(m.refresh, tick())

	case snapshot:
		m.snap = msg
		m.table.SetRows(recordRows(msg.recent))
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func recordRows(recs []*action.Record) []table.Row {
	rows := make([]table.Row, 0, len(recs))
	for _, r := range recs {
		outcome := r.Result
		if r.Status == action.StatusFailed {
			outcome = r.Error
		}
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, table.Row{id, string(r.Kind), string(r.Status), outcome})
	}
	return rows
}

func (m Model) View() string {
	var header string
	switch {
	case m.snap.alive:
		header = m.theme.StatusOK.Render("● " + m.snap.aliveNote)
	case m.snap.status != nil && m.snap.status.State == status.StateStopped:
		header = m.theme.StatusPending.Render("○ bridge stopped")
	default:
		header = m.theme.StatusFailed.Render("● " + m.snap.aliveNote)
	}

	counts := m.theme.Dim.Render(fmt.Sprintf(
		"pending %d · completed %d · failed %d",
		m.snap.pending, m.snap.completed, m.snap.failed,
	))

	body := m.theme.Title.Render("deskbridge watch") + "\n" +
		header + "\n" + counts + "\n\n" +
		m.table.View() + "\n" +
		m.theme.Dim.Render("q to quit")

	if m.snap.err != nil {
		body += "\n" + m.theme.StatusFailed.Render(m.snap.err.Error())
	}

	return m.theme.Border.Render(body)
}
