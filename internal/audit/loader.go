package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobspot/internal/model"
)

// ErrCancelled is returned when the user aborts a scrape with ctrl+c.
var ErrCancelled = errors.New("cancelled")

const scrapeTimeout = 2 * time.Minute

type scrapeDoneMsg struct {
	listings []model.Listing
	err      error
}

type loaderModel struct {
	sourceName string
	scrapeFn   func(ctx context.Context) ([]model.Listing, error)
	spinner    spinner.Model
	result     []model.Listing
	err        error
	done       bool
}

func newLoaderModel(sourceName string, scrapeFn func(ctx context.Context) ([]model.Listing, error)) loaderModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	return loaderModel{sourceName: sourceName, scrapeFn: scrapeFn, spinner: sp}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doScrape(), m.spinner.Tick)
}

func (m loaderModel) doScrape() tea.Cmd {
	scrapeFn := m.scrapeFn
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
		defer cancel()
		listings, err := scrapeFn(ctx)
		return scrapeDoneMsg{listings: listings, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case scrapeDoneMsg:
		m.result = msg.listings
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Scraping %s...\n", m.spinner.View(), m.sourceName)
}

// RunLoader shows a spinner while scrapeFn runs. It renders inline (no alt screen).
func RunLoader(sourceName string, scrapeFn func(ctx context.Context) ([]model.Listing, error)) ([]model.Listing, error) {
	p := tea.NewProgram(newLoaderModel(sourceName, scrapeFn))
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
