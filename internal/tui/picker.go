// Package tui provides the interactive category picker used for manual
// assignments.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/spice-sort/internal/fuzzy"
	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/tui/themes"
)

const visibleItems = 10

// Choice is what the user picked.
type Choice struct {
	NewName    string // Set when the user asked to create a category
	CategoryID int
	Cancelled  bool
}

// IsNew reports whether the choice is a category to create.
func (c Choice) IsNew() bool {
	return c.NewName != ""
}

type pickerItem struct {
	category model.Category
	score    int
}

// PickerModel lets the user pick or create a category for one transaction.
type PickerModel struct {
	theme       themes.Theme
	transaction model.Transaction
	keymap      KeyMap
	help        help.Model
	filter      textinput.Model
	items       []pickerItem
	visible     []pickerItem
	choice      Choice
	cursor      int
	offset      int
	currentMain int
	done        bool
}

// NewPickerModel builds a picker. scores holds the engine's description
// scores by category id; scored categories are listed first.
func NewPickerModel(txn model.Transaction, categories []model.Category, scores map[int]int, theme themes.Theme) PickerModel {
	filter := textinput.New()
	filter.Placeholder = "type to filter, Ctrl+N to create..."
	filter.CharLimit = 64
	filter.Prompt = "/ "
	filter.Focus()

	items := make([]pickerItem, 0, len(categories))
	for _, cat := range categories {
		items = append(items, pickerItem{category: cat, score: scores[cat.ID]})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].category.Name < items[j].category.Name
	})

	m := PickerModel{
		theme:       theme,
		transaction: txn,
		keymap:      DefaultKeyMap(),
		help:        help.New(),
		filter:      filter,
		items:       items,
	}
	if txn.MainCategoryID != nil {
		m.currentMain = *txn.MainCategoryID
	}
	m.applyFilter()
	return m
}

// Init starts the cursor blinking.
func (m PickerModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keymap.Quit):
		return m.finish(Choice{Cancelled: true})

	case key.Matches(keyMsg, m.keymap.Clear):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
			return m, nil
		}
		return m.finish(Choice{Cancelled: true})

	case key.Matches(keyMsg, m.keymap.Select):
		if len(m.visible) == 0 {
			return m, nil
		}
		return m.finish(Choice{CategoryID: m.visible[m.cursor].category.ID})

	case key.Matches(keyMsg, m.keymap.Create):
		name := strings.TrimSpace(m.filter.Value())
		if name == "" || m.exactMatch(name) {
			return m, nil
		}
		return m.finish(Choice{NewName: name})

	case key.Matches(keyMsg, m.keymap.Up):
		m.move(-1)
		return m, nil
	case key.Matches(keyMsg, m.keymap.Down):
		m.move(1)
		return m, nil
	case key.Matches(keyMsg, m.keymap.PageUp):
		m.move(-visibleItems)
		return m, nil
	case key.Matches(keyMsg, m.keymap.PageDown):
		m.move(visibleItems)
		return m, nil
	case key.Matches(keyMsg, m.keymap.Home):
		m.move(-len(m.visible))
		return m, nil
	case key.Matches(keyMsg, m.keymap.End):
		m.move(len(m.visible))
		return m, nil
	}

	before := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.applyFilter()
	}
	return m, cmd
}

func (m PickerModel) finish(choice Choice) (tea.Model, tea.Cmd) {
	m.choice = choice
	m.done = true
	return m, tea.Quit
}

func (m *PickerModel) move(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.visible)-1, m.cursor+delta))
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visibleItems {
		m.offset = m.cursor - visibleItems + 1
	}
}

// applyFilter keeps categories whose name or a keyword contains the filter.
func (m *PickerModel) applyFilter() {
	query := fuzzy.Normalize(m.filter.Value())

	m.visible = make([]pickerItem, 0, len(m.items))
	for _, item := range m.items {
		if query == "" || matchesQuery(item.category, query) {
			m.visible = append(m.visible, item)
		}
	}
	m.cursor = 0
	m.offset = 0
}

func matchesQuery(cat model.Category, query string) bool {
	for _, text := range cat.CandidateTexts() {
		if strings.Contains(fuzzy.Normalize(text), query) {
			return true
		}
	}
	return false
}

func (m PickerModel) exactMatch(name string) bool {
	for _, item := range m.items {
		if item.category.Name == name {
			return true
		}
	}
	return false
}

// Choice returns the user's choice once the picker has finished.
func (m PickerModel) Choice() Choice {
	return m.choice
}

// Done reports whether the user picked, created, or cancelled.
func (m PickerModel) Done() bool {
	return m.done
}

// View renders the picker.
func (m PickerModel) View() string {
	if m.done {
		return ""
	}

	header := m.theme.Title.Render(fmt.Sprintf("Assign a category to %s", m.transaction.ID))
	details := m.theme.Subtitle.Render(fmt.Sprintf("%s  %s  %s",
		m.transaction.Date.Format("Jan 2, 2006"),
		m.transaction.Amount.StringFixed(2),
		m.transaction.Description))

	lines := []string{m.filter.View(), ""}
	if len(m.visible) == 0 {
		lines = append(lines, m.theme.StatusError.Render("No matching categories. Ctrl+N creates one."))
	}

	end := min(m.offset+visibleItems, len(m.visible))
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)
	if m.offset > 0 {
		lines = append(lines, muted.Render("  ↑ more above"))
	}
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderItem(i))
	}
	if end < len(m.visible) {
		lines = append(lines, muted.Render(fmt.Sprintf("  ↓ %d more below", len(m.visible)-end)))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, header, details, "", strings.Join(lines, "\n"))
	return m.theme.RoundedBox.Render(body) + "\n" + m.help.View(m.keymap)
}

func (m PickerModel) renderItem(i int) string {
	item := m.visible[i]

	prefix := "  "
	if i == m.cursor {
		prefix = lipgloss.NewStyle().Foreground(m.theme.Primary).Render("> ")
	}

	line := item.category.Name
	if item.category.ID == m.currentMain {
		line += " (current)"
	}
	if item.score > 0 {
		line += " " + m.theme.Score.Render(fmt.Sprintf("%d", item.score))
	}
	if len(item.category.Keywords) > 0 {
		line += "  " + m.theme.Keywords.Render(strings.Join(item.category.Keywords, ", "))
	}

	if i == m.cursor {
		return prefix + m.theme.Selected.Render(line)
	}
	return prefix + m.theme.Normal.Render(line)
}
