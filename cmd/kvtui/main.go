package main

import (
	"fmt"
	"log"
	"os"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/kvlsm/pkg/lsm"
	"github.com/dd0wney/kvlsm/pkg/logging"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	valueBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

// keyItem adapts a store key to bubbles/list.Item.
type keyItem string

func (k keyItem) Title() string       { return string(k) }
func (k keyItem) Description() string { return "" }
func (k keyItem) FilterValue() string { return string(k) }

type model struct {
	store    *lsm.Store
	keys     list.Model
	value    viewport.Model
	message  string
	errState bool
	width    int
	height   int
}

func initialModel(store *lsm.Store) (model, error) {
	names, err := store.Keys()
	if err != nil {
		return model{}, err
	}

	items := make([]list.Item, len(names))
	for i, k := range names {
		items[i] = keyItem(k)
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Keys"
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.SetContent("select a key to see its value")

	return model{store: store, keys: l, value: vp}, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listWidth := m.width / 2
		bodyHeight := m.height - 6
		m.keys.SetSize(listWidth, bodyHeight)
		m.value.Width = m.width - listWidth - 4
		m.value.Height = bodyHeight

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			m.loadSelected()
			return m, nil
		case "r":
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.keys, cmd = m.keys.Update(msg)
	return m, cmd
}

func (m *model) loadSelected() {
	item, ok := m.keys.SelectedItem().(keyItem)
	if !ok {
		return
	}
	value, found, err := m.store.Get([]byte(item))
	if err != nil {
		m.message = fmt.Sprintf("Get error: %v", err)
		m.errState = true
		return
	}
	if !found {
		m.value.SetContent("(no value — deleted since the list was loaded)")
		return
	}
	m.errState = false
	m.message = ""
	m.value.SetContent(string(value))
}

func (m *model) refresh() {
	names, err := m.store.Keys()
	if err != nil {
		m.message = fmt.Sprintf("Refresh error: %v", err)
		m.errState = true
		return
	}
	items := make([]list.Item, len(names))
	for i, k := range names {
		items[i] = keyItem(k)
	}
	m.keys.SetItems(items)
	m.errState = false
	m.message = fmt.Sprintf("refreshed: %d keys", len(names))
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := titleStyle.Render("kvtui - read-only key browser")
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.keys.View(), valueBoxStyle.Render(m.value.View()))

	var msg string
	if m.message != "" {
		if m.errState {
			msg = errorStyle.Render(m.message)
		} else {
			msg = m.message
		}
	}

	help := helpStyle.Render("enter: view value · r: refresh key list · q: quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, msg, help)
}

func main() {
	dataDir := "./data/kvtui"
	if len(os.Args) > 1 {
		dataDir = os.Args[1]
	}

	store, err := lsm.Open(dataDir, lsm.Options{
		CreateIfMissing: true,
		Logger:          logging.NewNopLogger(),
	})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	m, err := initialModel(store)
	if err != nil {
		log.Fatalf("Failed to load keys: %v", err)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
