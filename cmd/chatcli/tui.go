package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/smobile/chatclient/internal/client"
	"github.com/smobile/chatclient/internal/types"
)

const sidebarWidth = 28

var (
	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			PaddingRight(1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	unreadStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	senderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("249"))
	adminStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type focusArea int

const (
	focusRooms focusArea = iota
	focusInput
)

type model struct {
	session *client.Session

	rooms      []types.Room
	cursor     int
	activeRoom int
	messages   []types.Message
	connState  client.ConnState
	statusErr  string

	vp    viewport.Model
	input textinput.Model
	focus focusArea

	width  int
	height int
	ready  bool
}

func newModel(session *client.Session) model {
	input := textinput.New()
	input.Placeholder = "Type a message"
	input.CharLimit = client.MaxContentLength

	return model{
		session:   session,
		input:     input,
		focus:     focusRooms,
		connState: client.Disconnected,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		vpWidth := m.width - sidebarWidth - 2
		vpHeight := m.height - 4
		if !m.ready {
			m.vp = viewport.New(vpWidth, vpHeight)
			m.ready = true
		} else {
			m.vp.Width = vpWidth
			m.vp.Height = vpHeight
		}
		m.vp.SetContent(m.renderMessages())
		return m, nil

	case connStateMsg:
		m.connState = msg.state
		return m, nil

	case roomsMsg:
		m.rooms = msg.rooms
		if m.cursor >= len(m.rooms) {
			m.cursor = max(0, len(m.rooms)-1)
		}
		return m, nil

	case messagesMsg:
		if msg.roomId != m.activeRoom {
			return m, nil
		}
		m.messages = msg.messages
		if m.ready {
			m.vp.SetContent(m.renderMessages())
			m.vp.GotoBottom()
		}
		return m, nil

	case sessionErrMsg:
		m.statusErr = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateChildren(msg)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == focusRooms {
			m.focus = focusInput
			m.input.Focus()
		} else {
			m.focus = focusRooms
			m.input.Blur()
		}
		return m, nil
	}

	if m.focus == focusRooms {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "j":
			if m.cursor < len(m.rooms)-1 {
				m.cursor++
			}
			return m, nil
		case "r":
			m.session.RefreshRooms()
			return m, nil
		case "esc":
			m.activeRoom = 0
			m.messages = nil
			m.session.Deactivate()
			return m, nil
		case "enter":
			if len(m.rooms) == 0 {
				return m, nil
			}
			room := m.rooms[m.cursor]
			m.activeRoom = room.Id
			m.statusErr = ""
			m.session.Activate(room.Id)
			m.focus = focusInput
			m.input.Focus()
			return m, nil
		}
		return m, nil
	}

	if msg.String() == "enter" {
		content := m.input.Value()
		if m.activeRoom == 0 || strings.TrimSpace(content) == "" {
			return m, nil
		}
		if err := m.session.SendMessage(m.activeRoom, content); err != nil {
			m.statusErr = err.Error()
			return m, nil
		}
		m.statusErr = ""
		m.input.Reset()
		return m, nil
	}

	return m.updateChildren(msg)
}

func (m model) updateChildren(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.ready {
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}

	sidebar := m.renderSidebar()
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.vp.View(),
		m.input.View(),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatus())
}

func (m model) renderSidebar() string {
	var b strings.Builder
	b.WriteString("Rooms\n\n")

	for i, room := range m.rooms {
		line := room.Name
		if room.UnreadCount > 0 {
			line += unreadStyle.Render(fmt.Sprintf(" (%d)", room.UnreadCount))
		}
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		if room.Id == m.activeRoom {
			line += " *"
		}
		b.WriteString(line + "\n")
	}

	if len(m.rooms) == 0 {
		b.WriteString(statusStyle.Render("no rooms"))
	}

	return sidebarStyle.Width(sidebarWidth).Height(m.height - 2).Render(b.String())
}

func (m model) renderMessages() string {
	if m.activeRoom == 0 {
		return statusStyle.Render("Select a room and press enter.")
	}

	var b strings.Builder
	for _, msg := range m.messages {
		sender := senderStyle
		if msg.SenderRole == types.RoleAdmin {
			sender = adminStyle
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			timeStyle.Render(msg.Timestamp.Local().Format("15:04")),
			sender.Render(msg.SenderName+":"),
			msg.Content,
		))
	}

	return b.String()
}

func (m model) renderStatus() string {
	state := m.connState.String()
	if m.statusErr != "" {
		return errorStyle.Render(state + " | " + m.statusErr)
	}

	return statusStyle.Render(state + " | tab: switch focus | r: refresh rooms | q: quit")
}
