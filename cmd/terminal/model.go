package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/sevigo/autoci/internal/app"
	"github.com/sevigo/autoci/internal/core"
)

type tab int

const (
	tabOverview tab = iota
	tabSecurity
	tabConfigs
	tabHistory
	tabCount
)

var tabNames = [tabCount]string{"Overview", "Security", "Configs", "History"}

const (
	deckWidth     = 34
	chromeHeight  = 8
	consoleHeight = consoleLines + 2
	minViewHeight = 5
)

const (
	inputName = iota
	inputURL
)

type model struct {
	styles  styles
	app     *app.App
	cleanup func()

	// UI Components
	viewport  viewport.Model
	spinner   spinner.Model
	inputs    []textinput.Model
	renderer  *glamour.TermRenderer
	isLoading bool

	// Dashboard State
	repos      []*core.Repository
	stats      core.DashboardStats
	events     []core.LogEntry
	selectedID string
	cursor     int
	runCursor  int
	tab        tab

	showModal  bool
	modalFocus int

	status string
	err    error
	width  int
	height int
}

func initialModel(theme ThemeName) *model {
	styles := GetTheme(theme)

	name := textinput.New()
	name.Placeholder = "nexus-backend"
	name.Prompt = styles.prompt.Render("Name ► ")
	name.CharLimit = 100
	name.Width = 48

	url := textinput.New()
	url.Placeholder = "https://github.com/owner/repo"
	url.Prompt = styles.prompt.Render("URL  ► ")
	url.CharLimit = 300
	url.Width = 48

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = styles.success

	return &model{
		styles:    styles,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		inputs:    []textinput.Model{name, url},
		isLoading: true,
		width:     120,
		height:    40,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initializeAppCmd(), m.spinner.Tick)
}

// shutdown drains queued jobs and releases the store.
func (m *model) shutdown() {
	if m.app != nil {
		m.app.StopJobs()
	}
	if m.cleanup != nil {
		m.cleanup()
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case appInitializedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.err = fmt.Errorf("initialization failed: %w", msg.err)
			return m, nil
		}
		m.app = msg.app
		m.cleanup = msg.cleanup
		m.isLoading = true
		return m, tea.Batch(loadDashboardCmd(m.app, ""), tickCmd())

	case dashboardLoadedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.err = fmt.Errorf("could not load repositories: %w", msg.err)
			return m, nil
		}
		m.applySnapshot(msg)
		return m, nil

	case tickMsg:
		if m.app == nil {
			return m, nil
		}
		return m, tea.Batch(loadDashboardCmd(m.app, m.selectedID), tickCmd())

	case repoAddedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Connected %s. Press o to onboard.", msg.repo.FullName)
		m.selectedID = msg.repo.ID
		return m, m.reload()

	case actionDoneMsg:
		m.isLoading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = msg.text
		}
		return m, m.reload()

	case errorMsg:
		m.isLoading = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.showModal {
			return m.updateModal(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		return m, m.moveCursor(-1)
	case "down", "j":
		return m, m.moveCursor(1)
	case "tab":
		m.setTab((m.tab + 1) % tabCount)
	case "shift+tab":
		m.setTab((m.tab + tabCount - 1) % tabCount)
	case "1", "2", "3", "4":
		m.setTab(tab(msg.String()[0] - '1'))
	case "[":
		m.moveRunCursor(-1)
	case "]":
		m.moveRunCursor(1)
	case "a":
		return m, m.openModal()
	case "o":
		repo := m.selected()
		if m.app == nil || repo == nil {
			return m, nil
		}
		if repo.Status.IsBusy() {
			m.err = fmt.Errorf("%s is already %s", repo.FullName, repo.Status)
			return m, nil
		}
		m.isLoading = true
		m.status = fmt.Sprintf("Starting onboarding for %s...", repo.FullName)
		return m, onboardCmd(m.app, repo.ID, repo.FullName)
	case "h":
		repo := m.selected()
		if m.app == nil || repo == nil {
			return m, nil
		}
		run := healTarget(repo, m.tab, m.runCursor)
		if run == nil {
			m.err = errors.New("no failed run to heal")
			return m, nil
		}
		m.isLoading = true
		m.status = fmt.Sprintf("Analyzing run %s...", run.ID)
		return m, healCmd(m.app, repo.ID, run.ID)
	case "r":
		m.err = nil
		return m, m.reload()
	case "pgup", "pgdown", "home", "end":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.closeModal()
		return m, nil
	case "tab", "shift+tab", "up", "down":
		return m, m.focusInput((m.modalFocus + 1) % len(m.inputs))
	case "enter":
		if m.modalFocus == inputName {
			return m, m.focusInput(inputURL)
		}
		url := strings.TrimSpace(m.inputs[inputURL].Value())
		if url == "" {
			m.err = errors.New("repository URL is required")
			return m, nil
		}
		name := strings.TrimSpace(m.inputs[inputName].Value())
		m.closeModal()
		if m.app == nil {
			return m, nil
		}
		m.isLoading = true
		m.err = nil
		return m, addRepoCmd(m.app, name, url)
	}

	var cmd tea.Cmd
	m.inputs[m.modalFocus], cmd = m.inputs[m.modalFocus].Update(msg)
	return m, cmd
}

func (m *model) openModal() tea.Cmd {
	m.showModal = true
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	return m.focusInput(inputName)
}

func (m *model) closeModal() {
	m.showModal = false
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

func (m *model) focusInput(i int) tea.Cmd {
	m.modalFocus = i
	for j := range m.inputs {
		if j != i {
			m.inputs[j].Blur()
		}
	}
	return m.inputs[i].Focus()
}

func (m *model) reload() tea.Cmd {
	if m.app == nil {
		return nil
	}
	return loadDashboardCmd(m.app, m.selectedID)
}

// applySnapshot replaces the dashboard state, keeping the selected
// repository when it still exists.
func (m *model) applySnapshot(msg dashboardLoadedMsg) {
	m.repos = msg.repos
	m.stats = msg.stats
	m.events = msg.events

	m.cursor = min(m.cursor, max(len(m.repos)-1, 0))
	for i, r := range m.repos {
		if r.ID == m.selectedID {
			m.cursor = i
			break
		}
	}
	if repo := m.selected(); repo != nil {
		if repo.ID != m.selectedID {
			m.runCursor = 0
		}
		m.selectedID = repo.ID
		m.runCursor = min(m.runCursor, max(len(repo.PipelineRuns)-1, 0))
	} else {
		m.selectedID = ""
	}
	m.refreshContent()
}

func (m *model) selected() *core.Repository {
	if m.cursor < 0 || m.cursor >= len(m.repos) {
		return nil
	}
	return m.repos[m.cursor]
}

func (m *model) moveCursor(delta int) tea.Cmd {
	if len(m.repos) == 0 {
		return nil
	}
	next := min(max(m.cursor+delta, 0), len(m.repos)-1)
	if next == m.cursor {
		return nil
	}
	m.cursor = next
	m.selectedID = m.repos[next].ID
	m.runCursor = 0
	m.events = nil
	m.viewport.GotoTop()
	m.refreshContent()
	return m.reload()
}

func (m *model) moveRunCursor(delta int) {
	repo := m.selected()
	if repo == nil || len(repo.PipelineRuns) == 0 {
		return
	}
	m.runCursor = min(max(m.runCursor+delta, 0), len(repo.PipelineRuns)-1)
	m.refreshContent()
}

func (m *model) setTab(t tab) {
	if t < 0 || t >= tabCount {
		return
	}
	m.tab = t
	m.viewport.GotoTop()
	m.refreshContent()
}

func (m *model) resize(width, height int) {
	m.width = width
	m.height = height

	detailWidth := m.detailWidth()
	m.viewport.Width = detailWidth - 4
	m.viewport.Height = max(height-chromeHeight-consoleHeight-4, minViewHeight)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(detailWidth-6),
	)
	if err == nil {
		m.renderer = renderer
	}
	m.refreshContent()
}

func (m *model) detailWidth() int {
	return max(m.width-deckWidth-6, 40)
}

func (m *model) refreshContent() {
	m.viewport.SetContent(m.tabContent())
}

func (m *model) tabContent() string {
	repo := m.selected()
	if repo == nil {
		return m.styles.inactive.Render("No repository selected. Press a to connect one.")
	}
	switch m.tab {
	case tabSecurity:
		return renderSecurity(m.styles, repo)
	case tabConfigs:
		return renderConfigs(m.styles, m.renderer, repo)
	case tabHistory:
		return renderHistory(m.styles, repo, m.runCursor)
	default:
		return renderOverview(m.styles, repo)
	}
}

// healTarget picks the run the heal key acts on: the highlighted run on the
// history tab, otherwise the most recent failed run.
func healTarget(repo *core.Repository, t tab, runCursor int) *core.PipelineRun {
	if t == tabHistory && runCursor >= 0 && runCursor < len(repo.PipelineRuns) {
		run := &repo.PipelineRuns[runCursor]
		if run.Status != core.RunFailure {
			return nil
		}
		return run
	}
	for i := range repo.PipelineRuns {
		if repo.PipelineRuns[i].Status == core.RunFailure {
			return &repo.PipelineRuns[i]
		}
	}
	return nil
}
