// Package tui implements the interactive group browser.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/draftkeep/pkg/config"
	"github.com/entrhq/draftkeep/pkg/vault"
)

type mode int

const (
	modeList mode = iota
	modePreview
	modeConfirmDelete
)

const previewLimit = 2000

type groupItem struct {
	summary vault.Summary
}

func (i groupItem) FilterValue() string { return i.summary.Name }

func (i groupItem) Title() string { return i.summary.Name }

func (i groupItem) Description() string {
	s := i.summary
	desc := fmt.Sprintf("%d bytes · %d images · %d backups · %d versions",
		s.TextBytes, s.Images, s.Backups, s.Versions)
	if !s.Updated.IsZero() {
		desc += " · " + s.Updated.Format("2006-01-02 15:04")
	}
	return desc
}

type (
	groupsMsg  []vault.Summary
	previewMsg struct {
		name  string
		draft vault.Draft
	}
	statusMsg string
	errMsg    struct{ err error }
)

// Model browses the groups of one store.
type Model struct {
	ctx      context.Context
	store    *vault.Store
	keepDays int

	// groups and persist keep the settings in step with deletions; both
	// are optional.
	groups  *config.GroupsSection
	persist func() error

	list    list.Model
	mode    mode
	preview previewMsg
	status  string
	failed  bool
	width   int
	height  int
}

// Option configures a Model.
type Option func(*Model)

// WithGroups removes deleted groups from the groups settings and saves them
// with persist. Deleting the last configured group is refused.
func WithGroups(groups *config.GroupsSection, persist func() error) Option {
	return func(m *Model) {
		m.groups = groups
		m.persist = persist
	}
}

// New returns a browser over store. Cleanup from the browser uses keepDays.
func New(ctx context.Context, store *vault.Store, keepDays int, opts ...Option) *Model {
	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = d.Styles.SelectedTitle.
		Foreground(salmonPink).
		BorderForeground(salmonPink)
	d.Styles.SelectedDesc = d.Styles.SelectedDesc.
		Foreground(mutedGray).
		BorderForeground(salmonPink)

	l := list.New([]list.Item{}, d, 0, 0)
	l.Title = "Groups in " + store.Root()
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(true)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "preview")),
			key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
			key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clean")),
		}
	}

	m := &Model{
		ctx:      ctx,
		store:    store,
		keepDays: keepDays,
		list:     l,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the browser on the terminal and blocks until it exits.
func Run(ctx context.Context, store *vault.Store, keepDays int, opts ...Option) error {
	_, err := tea.NewProgram(New(ctx, store, keepDays, opts...), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// Init loads the group list.
func (m *Model) Init() tea.Cmd {
	return m.loadGroups
}

func (m *Model) loadGroups() tea.Msg {
	names, err := m.store.List()
	if err != nil {
		return errMsg{err}
	}
	summaries := make([]vault.Summary, 0, len(names))
	for _, name := range names {
		sum, err := m.store.Summarize(m.ctx, name)
		if err != nil {
			return errMsg{err}
		}
		summaries = append(summaries, sum)
	}
	return groupsMsg(summaries)
}

func (m *Model) loadPreview(name string) tea.Cmd {
	return func() tea.Msg {
		draft, err := m.store.Load(m.ctx, name)
		if err != nil {
			return errMsg{err}
		}
		return previewMsg{name: name, draft: draft}
	}
}

func (m *Model) deleteGroup(name string) tea.Cmd {
	return func() tea.Msg {
		if m.groups != nil {
			err := m.groups.RemoveGroup(name)
			if err != nil && !errors.Is(err, config.ErrGroupNotFound) {
				return errMsg{err}
			}
		}
		if err := m.store.Delete(name); err != nil {
			return errMsg{err}
		}
		if m.persist != nil {
			if err := m.persist(); err != nil {
				return errMsg{err}
			}
		}
		return statusMsg(fmt.Sprintf("deleted %s", name))
	}
}

func (m *Model) clean() tea.Msg {
	res, err := m.store.Clean(m.ctx, vault.Days(m.keepDays))
	if err != nil {
		return errMsg{fmt.Errorf("cleaned %d, then: %w", res.Cleaned, err)}
	}
	return statusMsg(fmt.Sprintf("cleaned %d files older than %d days", res.Cleaned, m.keepDays))
}

func (m *Model) selected() (string, bool) {
	item, ok := m.list.SelectedItem().(groupItem)
	if !ok {
		return "", false
	}
	return item.summary.Name, true
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-6, msg.Height-8)
		return m, nil

	case groupsMsg:
		items := make([]list.Item, len(msg))
		for i, sum := range msg {
			items[i] = groupItem{summary: sum}
		}
		return m, m.list.SetItems(items)

	case previewMsg:
		m.preview = msg
		m.mode = modePreview
		return m, nil

	case statusMsg:
		m.status, m.failed = string(msg), false
		return m, m.loadGroups

	case errMsg:
		m.status, m.failed = msg.err.Error(), true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case modePreview:
		switch msg.String() {
		case "esc", "q", "enter":
			m.mode = modeList
		}
		return m, nil

	case modeConfirmDelete:
		m.mode = modeList
		if msg.String() != "y" {
			m.status, m.failed = "delete canceled", false
			return m, nil
		}
		name, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.deleteGroup(name)
	}

	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "enter":
		if name, ok := m.selected(); ok {
			return m, m.loadPreview(name)
		}
		return m, nil
	case "d":
		if _, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
		}
		return m, nil
	case "c":
		return m, m.clean
	case "r":
		return m, m.loadGroups
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the current screen.
func (m *Model) View() string {
	var body string
	switch m.mode {
	case modePreview:
		body = m.previewView()
	case modeConfirmDelete:
		name, _ := m.selected()
		body = m.list.View() + "\n" +
			errorStyle.Render(fmt.Sprintf("Delete %s and all of its history? (y/N)", name))
	default:
		body = m.list.View()
	}

	if m.status != "" {
		style := statusStyle
		if m.failed {
			style = errorStyle
		}
		body += "\n" + style.Render(m.status)
	}
	return boxStyle.Render(body)
}

func (m *Model) previewView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.preview.name))
	b.WriteString("\n\n")

	text := m.preview.draft.Text
	if text == "" {
		text = "(empty draft)"
	}
	if len(text) > previewLimit {
		text = text[:previewLimit] + "…"
	}
	b.WriteString(text)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%d images", len(m.preview.draft.Images))
	for i, img := range m.preview.draft.Images {
		fmt.Fprintf(&b, "\n  %d: %d bytes", i+1, len(img))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("esc/q/enter: back"))
	return b.String()
}
