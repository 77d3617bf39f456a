// ABOUTME: Server TUI for session control and listener stats
// ABOUTME: Real-time bridge status display using bubbletea
package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ServerTUI manages the server TUI
type ServerTUI struct {
	program    *tea.Program
	controller Controller
	updates    chan ServerStatus
	quitChan   chan struct{} // Signal to stop the server

	mu     sync.Mutex
	closed bool
}

// ServerStatus holds server state for TUI
type ServerStatus struct {
	Name       string
	Port       int
	Clients    []ClientInfo
	Title      string
	Playing    bool
	Started    bool
	BufferedMs int64
	Underruns  uint64
}

// ClientInfo holds listener information for display
type ClientInfo struct {
	Name  string
	ID    string
	Codec string
}

// tuiModel is the bubbletea model for server TUI
type tuiModel struct {
	status     ServerStatus
	controller Controller
	lastAction string
	startTime  time.Time
	quitting   bool
	quitChan   chan struct{}
}

type tickMsg time.Time
type statusMsg ServerStatus
type actionMsg string

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runAction executes a session command off the UI goroutine
func runAction(name string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionMsg(fmt.Sprintf("%s failed: %v", name, err))
		}
		return actionMsg(name + " ok")
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		case "s":
			if m.controller != nil {
				m.lastAction = "starting..."
				return m, runAction("start", m.controller.StartSession)
			}
		case "x":
			if m.controller != nil {
				m.lastAction = "stopping..."
				return m, runAction("stop", m.controller.StopSession)
			}
		}

	case actionMsg:
		m.lastAction = string(msg)
		return m, nil

	case tickMsg:
		return m, tickEvery()

	case statusMsg:
		m.status = ServerStatus(msg)
		return m, nil
	}

	return m, nil
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down bridge...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	clientHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("FM Radio Bridge"))
	b.WriteString("\n\n")

	field := func(name, value string) {
		b.WriteString(headerStyle.Render(name + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	field("Server", m.status.Name)
	field("Port", fmt.Sprintf("%d", m.status.Port))
	field("Uptime", time.Since(m.startTime).Round(time.Second).String())
	field("Session", sessionLabel(m.status))
	field("Buffered", fmt.Sprintf("%d ms (%d underruns)", m.status.BufferedMs, m.status.Underruns))
	if m.status.Title != "" {
		field("On air", m.status.Title)
	}
	if m.lastAction != "" {
		field("Last action", m.lastAction)
	}
	b.WriteString("\n")

	b.WriteString(clientHeaderStyle.Render(fmt.Sprintf("Listeners (%d)", len(m.status.Clients))))
	b.WriteString("\n\n")

	if len(m.status.Clients) == 0 {
		b.WriteString(valueStyle.Render("  No listeners connected"))
		b.WriteString("\n")
	} else {
		for _, client := range m.status.Clients {
			b.WriteString(fmt.Sprintf("  • %s", client.Name))
			b.WriteString(valueStyle.Render(fmt.Sprintf(" (%s)", client.Codec)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("s: start  x: stop  q: quit"))

	return b.String()
}

func sessionLabel(status ServerStatus) string {
	switch {
	case !status.Playing:
		return "stopped"
	case !status.Started:
		return "pre-roll"
	default:
		return "playing"
	}
}

// NewServerTUI creates a new server TUI
func NewServerTUI(controller Controller) *ServerTUI {
	return &ServerTUI{
		controller: controller,
		updates:    make(chan ServerStatus, 10),
		quitChan:   make(chan struct{}, 1),
	}
}

// Start runs the TUI until it quits
func (t *ServerTUI) Start(serverName string, port int) error {
	m := tuiModel{
		status: ServerStatus{
			Name: serverName,
			Port: port,
		},
		controller: t.controller,
		startTime:  time.Now(),
		quitChan:   t.quitChan,
	}

	t.program = tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		for status := range t.updates {
			t.program.Send(statusMsg(status))
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update sends a status update to the TUI
func (t *ServerTUI) Update(status ServerStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	select {
	case t.updates <- status:
	default:
		// Don't block if channel is full
	}
}

// Stop stops the TUI
func (t *ServerTUI) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true

	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan returns the channel that signals when user wants to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
