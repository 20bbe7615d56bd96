// Package watch implements the live inbox dashboard.
package watch

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	vaultsandbox "github.com/vaultsandbox/client-go"
	"github.com/vaultsandbox/client-go/internal/styles"
)

// EmailItem adapts an email for the bubbles list.
type EmailItem struct {
	Email      *vaultsandbox.Email
	InboxLabel string
}

func (e EmailItem) Title() string {
	if e.Email.Subject == "" {
		return "(no subject)"
	}
	return e.Email.Subject
}

func (e EmailItem) Description() string {
	desc := fmt.Sprintf("From: %s", e.Email.From)
	if e.InboxLabel != "" {
		desc = fmt.Sprintf("[%s] %s", e.InboxLabel, desc)
	}
	return desc + " • " + e.Email.ReceivedAt.Format("15:04:05")
}

func (e EmailItem) FilterValue() string {
	return e.Email.Subject + " " + e.Email.From
}

type emailReceivedMsg struct {
	email      *vaultsandbox.Email
	inboxLabel string
}

type emailDeletedMsg struct {
	emailID string
	err     error
}

type errMsg struct {
	err error
}

type connectedMsg struct{}

// DetailTab selects which pane of the detail view is shown.
type DetailTab int

const (
	TabContent DetailTab = iota
	TabSecurity
	TabLinks
	TabRaw
)

// Model drives the watch dashboard.
type Model struct {
	list     list.Model
	viewport viewport.Model
	emails   []EmailItem

	inboxIdx int

	viewing     bool
	viewedEmail *EmailItem
	tab         DetailTab

	connected bool
	lastError error

	width  int
	height int

	ctx    context.Context
	cancel context.CancelFunc

	client  *vaultsandbox.Client
	inboxes []*vaultsandbox.Inbox
}

// KeyMap defines the dashboard keybindings.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Back      key.Binding
	Delete    key.Binding
	Quit      key.Binding
	PrevInbox key.Binding
	NextInbox key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "view email"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	PrevInbox: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "prev inbox"),
	),
	NextInbox: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "next inbox"),
	),
}

// NewModel builds the dashboard over an already imported set of
// inboxes. The first inbox starts selected.
func NewModel(client *vaultsandbox.Client, inboxes []*vaultsandbox.Inbox) Model {
	ctx, cancel := context.WithCancel(context.Background())

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(styles.Primary).
		BorderForeground(styles.Primary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(styles.Gray)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Connecting..."
	l.Styles.Title = styles.HeaderStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return Model{
		list:    l,
		emails:  []EmailItem{},
		ctx:     ctx,
		cancel:  cancel,
		client:  client,
		inboxes: inboxes,
	}
}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return connectedMsg{} }
}

// WatchEmails forwards live events from all inboxes into the program.
func (m *Model) WatchEmails(p *tea.Program) {
	if len(m.inboxes) == 0 {
		return
	}
	events := m.client.WatchInboxes(m.ctx, m.inboxes...)
	go func() {
		for {
			select {
			case <-m.ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				p.Send(emailReceivedMsg{
					email:      event.Email,
					inboxLabel: event.Inbox.EmailAddress(),
				})
			}
		}
	}()
}

// LoadExistingEmails backfills emails already on the server.
func (m *Model) LoadExistingEmails(p *tea.Program) {
	go func() {
		for _, inbox := range m.inboxes {
			emails, err := inbox.GetEmails(m.ctx)
			if err != nil {
				p.Send(errMsg{err: err})
				continue
			}
			for _, email := range emails {
				p.Send(emailReceivedMsg{
					email:      email,
					inboxLabel: inbox.EmailAddress(),
				})
			}
		}
	}()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.viewing {
			return m.updateDetail(msg)
		}

		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, DefaultKeyMap.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, DefaultKeyMap.Enter):
			filtered := m.visibleEmails()
			if i := m.list.Index(); i >= 0 && i < len(filtered) {
				m.viewing = true
				m.viewedEmail = &filtered[i]
				m.tab = TabContent
				m.viewport.SetContent(m.renderContentTab())
				m.viewport.GotoTop()
			}
			return m, nil
		case key.Matches(msg, DefaultKeyMap.Delete):
			if len(m.visibleEmails()) > 0 {
				return m, m.deleteSelected()
			}
		case key.Matches(msg, DefaultKeyMap.PrevInbox):
			m.cycleInbox(-1)
			return m, nil
		case key.Matches(msg, DefaultKeyMap.NextInbox):
			m.cycleInbox(1)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 8
		if m.connected {
			m.refreshList()
		}

	case connectedMsg:
		m.connected = true
		m.refreshList()

	case emailReceivedMsg:
		for _, existing := range m.emails {
			if existing.Email.ID == msg.email.ID {
				return m, nil
			}
		}
		item := EmailItem{Email: msg.email, InboxLabel: msg.inboxLabel}
		// Newest first.
		m.emails = append([]EmailItem{item}, m.emails...)
		m.refreshList()

	case emailDeletedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		for i, e := range m.emails {
			if e.Email.ID == msg.emailID {
				m.emails = append(m.emails[:i], m.emails[i+1:]...)
				break
			}
		}
		m.refreshList()

	case errMsg:
		m.lastError = msg.err
		m.connected = false
		m.updateTitle()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Quit):
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, DefaultKeyMap.Back):
		m.viewing = false
		m.viewedEmail = nil
		m.tab = TabContent
		return m, nil
	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '4' {
			m.tab = DetailTab(s[0] - '1')
			m.viewport.SetContent(m.renderTab())
			m.viewport.GotoTop()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.viewing {
		help := styles.HelpStyle.Render("1-4: tabs • esc: back • q: quit")
		return styles.AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(), help))
	}

	help := styles.HelpStyle.Render("q: quit • enter: view • d: delete • ←/→: inbox • /: filter")
	return styles.AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(), help))
}

// visibleEmails returns the emails for the selected inbox.
func (m Model) visibleEmails() []EmailItem {
	if m.inboxIdx < 0 || m.inboxIdx >= len(m.inboxes) {
		return m.emails
	}
	current := m.inboxes[m.inboxIdx].EmailAddress()
	var out []EmailItem
	for _, e := range m.emails {
		if e.InboxLabel == current {
			out = append(out, e)
		}
	}
	return out
}

func (m *Model) cycleInbox(delta int) {
	if len(m.inboxes) == 0 {
		return
	}
	m.inboxIdx = (m.inboxIdx + delta + len(m.inboxes)) % len(m.inboxes)
	m.refreshList()
}

func (m *Model) refreshList() {
	filtered := m.visibleEmails()
	items := make([]list.Item, len(filtered))
	for i, e := range filtered {
		items[i] = e
	}
	m.list.SetItems(items)
	m.updateTitle()
}

func (m *Model) updateTitle() {
	var title string
	switch {
	case !m.connected && m.lastError != nil:
		title = "Error: " + m.lastError.Error()
	case !m.connected:
		title = "Disconnected"
	case len(m.inboxes) > 1:
		title = fmt.Sprintf("[%d/%d] %s • %d emails",
			m.inboxIdx+1, len(m.inboxes), m.inboxLabel(), len(m.visibleEmails()))
	case len(m.inboxes) == 1:
		title = fmt.Sprintf("%s • %d emails", m.inboxLabel(), len(m.visibleEmails()))
	default:
		title = "No inboxes"
	}
	m.list.Title = title
}

func (m Model) inboxLabel() string {
	if m.inboxIdx >= 0 && m.inboxIdx < len(m.inboxes) {
		return m.inboxes[m.inboxIdx].EmailAddress()
	}
	return "all"
}

func (m Model) deleteSelected() tea.Cmd {
	return func() tea.Msg {
		filtered := m.visibleEmails()
		i := m.list.Index()
		if i < 0 || i >= len(filtered) {
			return nil
		}
		item := filtered[i]
		for _, inbox := range m.inboxes {
			if inbox.EmailAddress() != item.InboxLabel {
				continue
			}
			err := inbox.DeleteEmail(m.ctx, item.Email.ID)
			return emailDeletedMsg{emailID: item.Email.ID, err: err}
		}
		return nil
	}
}

// Cancel stops the event stream.
func (m *Model) Cancel() {
	m.cancel()
}
