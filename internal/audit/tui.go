// Package audit is the interactive view of one source: what it lists right
// now, which of those the keyword filter would keep, and which are new since
// the last stored check.
package audit

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobspot/internal/filter"
	"github.com/amishk599/jobspot/internal/model"
)

// Lines per listing in a pane (title + link + blank separator).
const itemHeight = 3

const (
	paneOpen = iota
	paneMatched
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle   = headerStyle.Foreground(lipgloss.Color("39"))
	inactiveHeaderStyle = headerStyle.Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().Bold(true)
	linkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedLinkStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	newBadgeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	knownBadgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Entry is a listing annotated with whether the stored snapshot already has it.
type Entry struct {
	model.Listing
	Known bool
}

// BuildEntries sorts listings and splits out the keyword matches. An empty
// keyword list matches everything.
func BuildEntries(listings []model.Listing, known model.ListingSet, keywords []string) (all, matched []Entry) {
	for _, l := range model.NewListingSet(listings...).Sorted() {
		e := Entry{Listing: l, Known: known.Has(l)}
		all = append(all, e)
		if len(keywords) == 0 || filter.Match(l.Title, keywords) {
			matched = append(matched, e)
		}
	}
	return all, matched
}

func countNew(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if !e.Known {
			n++
		}
	}
	return n
}

type auditModel struct {
	all      []Entry
	matched  []Entry
	keywords []string

	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	openURL  func(string)
	wantQuit bool
}

func (m auditModel) Init() tea.Cmd {
	return nil
}

func (m auditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil
	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m auditModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter", "o":
		if e, ok := m.selected(); ok && m.openURL != nil {
			m.openURL(e.Link)
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.activePane == paneOpen {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m auditModel) activeEntries() []Entry {
	if m.activePane == paneOpen {
		return m.all
	}
	return m.matched
}

func (m auditModel) activeCursor() int {
	if m.activePane == paneOpen {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m auditModel) selected() (Entry, bool) {
	entries := m.activeEntries()
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[m.activeCursor()], true
}

func (m *auditModel) moveCursor(delta int) {
	if m.activePane == paneOpen {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.all)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.matched)-1, 0))
	}
}

func (m *auditModel) ensureCursorVisible() {
	vp := &m.leftViewport
	if m.activePane == paneMatched {
		vp = &m.rightViewport
	}
	top := m.activeCursor() * itemHeight
	bottom := top + itemHeight - 1

	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m *auditModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// Header, pane borders and status bar.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}
	m.recalcContent()
}

func (m *auditModel) recalcContent() {
	m.leftViewport.SetContent(renderEntries(m.all, m.leftCursor, m.activePane == paneOpen))
	m.rightViewport.SetContent(renderEntries(m.matched, m.rightCursor, m.activePane == paneMatched))
}

func (m auditModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" Open Listings (%d)", len(m.all))
	rightHeader := fmt.Sprintf(" Keyword Matches (%d)", len(m.matched))

	leftHeaderStyle, rightHeaderStyle := activeHeaderStyle, inactiveHeaderStyle
	leftBorder, rightBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == paneMatched {
		leftHeaderStyle, rightHeaderStyle = inactiveHeaderStyle, activeHeaderStyle
		leftBorder, rightBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderStyle.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderStyle.Render(rightHeader)),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Width(paneWidth).Render(m.leftViewport.View()),
		" ",
		rightBorder.Width(paneWidth).Render(m.rightViewport.View()),
	)

	return headerRow + "\n" + panes + "\n" + statusBarStyle.Width(m.width).Render(m.statusText())
}

func (m auditModel) statusText() string {
	kw := "none (all listings match)"
	if len(m.keywords) > 0 {
		kw = strings.Join(m.keywords, ", ")
	}
	return fmt.Sprintf(" %d open | %d new | %d matched | keywords: %s    ←/→/Tab switch  ↑/↓ cursor  Enter open  Esc back  q quit",
		len(m.all), countNew(m.all), len(m.matched), kw)
}

func renderEntries(entries []Entry, cursor int, isActive bool) string {
	if len(entries) == 0 {
		return "  (no listings)"
	}

	var b strings.Builder
	for i, e := range entries {
		tStyle, lStyle, prefix := titleStyle, linkStyle, "  "
		if isActive && i == cursor {
			tStyle, lStyle, prefix = selectedTitleStyle, selectedLinkStyle, "> "
		}

		badge := knownBadgeStyle.Render("     ")
		if !e.Known {
			badge = newBadgeStyle.Render("NEW  ")
		}
		b.WriteString(prefix)
		b.WriteString(badge)
		b.WriteString(tStyle.Render(e.Title))
		b.WriteByte('\n')
		b.WriteString(prefix)
		b.WriteString("     ")
		b.WriteString(lStyle.Render(e.Link))
		b.WriteByte('\n')

		if i < len(entries)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openBrowser opens url in the default system browser, fire-and-forget.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunAuditTUI launches the split-pane view of open listings and keyword
// matches. Returns wantQuit=true if the user pressed q/ctrl+c, false if they
// pressed esc to return to the picker.
func RunAuditTUI(all, matched []Entry, keywords []string) (bool, error) {
	m := auditModel{
		all:      all,
		matched:  matched,
		keywords: keywords,
		openURL:  openBrowser,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(auditModel).wantQuit, nil
}
