// Package tui implements a terminal watcher for live Bolt/1 traffic on
// a single session, modeled as a Bubble Tea program over a stream of
// collector.Event values.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/mickamy/boltstream/clipboard"
	"github.com/mickamy/boltstream/collector"
	"github.com/mickamy/boltstream/detect"
	"github.com/mickamy/boltstream/highlight"
)

type viewMode int

const (
	viewList viewMode = iota
	viewInspect
)

// row is one completed request/response cycle, ready for display.
type row struct {
	statement string
	started   time.Time
	duration  time.Duration
	records   int
	ok        bool
	code      string
	message   string
	nPlus1    bool
}

// Model is the Bubble Tea model driving the watcher screen.
type Model struct {
	events <-chan collector.Event
	rows   []row

	cursor int
	follow bool
	width  int
	height int
	err    error
	view   viewMode

	detector *detect.Detector

	statusMsg string
}

// New returns a Model that renders events as they arrive on ch.
// threshold/window/cooldown configure the embedded N+1 detector; pass
// 0 for threshold to disable it.
func New(ch <-chan collector.Event, threshold int, window, cooldown time.Duration) *Model {
	var det *detect.Detector
	if threshold > 0 {
		det = detect.New(threshold, window, cooldown)
	}
	return &Model{events: ch, follow: true, detector: det}
}

type eventMsg collector.Event

func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case eventMsg:
		r := row{
			statement: msg.Request,
			duration:  0,
			records:   msg.Records,
			ok:        msg.Code == "",
			code:      msg.Code,
			message:   msg.Message,
		}
		if m.detector != nil && msg.Request != "" {
			res := m.detector.Record(msg.Request, time.Now())
			r.nPlus1 = res.Matched
			if res.Alert != nil {
				m.statusMsg = fmt.Sprintf("N+1 suspected: %q seen %d times", truncate(msg.Request, 40), res.Alert.Count)
			}
		}
		m.rows = append(m.rows, r)
		if m.follow {
			m.cursor = len(m.rows) - 1
		}
		return m, m.waitForEvent()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.follow = false
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		if m.cursor == len(m.rows)-1 {
			m.follow = true
		}
	case "enter":
		if m.view == viewList {
			m.view = viewInspect
		} else {
			m.view = viewList
		}
	case "esc":
		m.view = viewList
	case "c":
		if m.cursor >= 0 && m.cursor < len(m.rows) {
			_ = clipboard.Copy(context.Background(), m.rows[m.cursor].statement)
			m.statusMsg = "copied statement to clipboard"
		}
	case "f":
		m.follow = !m.follow
	}
	return m, nil
}

func (m *Model) View() string {
	if m.view == viewInspect && m.cursor >= 0 && m.cursor < len(m.rows) {
		return m.renderInspect(m.rows[m.cursor])
	}
	return m.renderList()
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func (m *Model) renderList() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("bolt-tap") + "\n")
	for i, r := range m.rows {
		line := fmt.Sprintf("%3d  %-6s  recs=%-4d  %s", i, statusLabel(r), r.records, truncate(r.statement, 60))
		if r.nPlus1 {
			line += warnStyle.Render("  [N+1]")
		}
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.statusMsg != "" {
		b.WriteString("\n" + m.statusMsg + "\n")
	}
	b.WriteString("\n[j/k] move  [enter] inspect  [c] copy  [f] follow  [q] quit\n")
	return b.String()
}

func (m *Model) renderInspect(r row) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("request") + "\n")
	b.WriteString(m.clipLines(highlight.Cypher(r.statement)) + "\n\n")
	if r.ok {
		b.WriteString(fmt.Sprintf("records: %d\n", r.records))
	} else {
		b.WriteString(m.clipLines(errStyle.Render(fmt.Sprintf("code: %s\nmessage: %s", r.code, r.message))) + "\n")
	}
	b.WriteString("\n[esc] back  [q] quit\n")
	return b.String()
}

// clipLines clips each line of s to the terminal width using ansi.Cut,
// which accounts for ANSI escape sequences so highlighted text isn't
// cut mid-sequence (a plain string slice would corrupt the color
// codes the highlight package emits).
func (m *Model) clipLines(s string) string {
	if m.width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = ansi.Cut(line, 0, m.width)
	}
	return strings.Join(lines, "\n")
}

func statusLabel(r row) string {
	if r.ok {
		return "OK"
	}
	return "FAIL"
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
