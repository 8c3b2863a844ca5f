package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashgrove/chorus/internal/features"
	"github.com/ashgrove/chorus/internal/jobs"
	"github.com/ashgrove/chorus/internal/studio"
	"github.com/ashgrove/chorus/internal/transport"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ArtifactsView ViewState = iota
	GenerateView
	ProgressView
	JobsView
	FeaturesView
)

const jobsTick = time.Second

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	view   ViewState
	engine *studio.Engine
	width  int
	height int

	artifactList list.Model
	artifactsSet bool
	featureList  list.Model
	prompt       textinput.Model
	bar          progress.Model
	spin         spinner.Model

	progressChan chan studio.ProgressUpdate
	progress     studio.ProgressUpdate
	submitResult *studio.GenerateResult
	submitErr    error

	jobsSnapshot []jobs.Job
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model around the studio engine.
func NewModel(ctx context.Context, engine *studio.Engine) *Model {
	prompt := textinput.New()
	prompt.Placeholder = "Describe the song to generate..."
	prompt.CharLimit = 400

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &Model{
		ctx:    ctx,
		view:   ArtifactsView,
		engine: engine,
		prompt: prompt,
		bar:    progress.New(progress.WithDefaultGradient()),
		spin:   spin,
		help:   help.New(),
		keys:   newKeyMap(),
	}

	m.artifactList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.artifactList.Title = "Artifacts"
	m.featureList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.featureList.Title = "Features"
	m.rebuildFeatureList()
	return m
}

// Init fetches the artifact listing and starts the channel pumps.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchArtifacts(),
		m.waitForJobEvent(),
		m.waitForFeature(),
		m.tick(),
		m.spin.Tick,
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.artifactList.SetSize(msg.Width-4, msg.Height-8)
		m.featureList.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case artifactsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.setArtifacts(msg.listing)
		return m, nil

	case featureMsg:
		m.rebuildFeatureList()
		return m, m.waitForFeature()

	case jobEventMsg:
		cmds := []tea.Cmd{m.waitForJobEvent()}
		m.jobsSnapshot = m.engine.Tracker().Jobs()
		if jobs.Event(msg).Terminal() && msg.Artifact != nil {
			cmds = append(cmds, m.fetchArtifacts())
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		m.jobsSnapshot = m.engine.Tracker().Jobs()
		return m, m.tick()

	case progressMsg:
		m.progress = studio.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case progressDoneMsg:
		m.progressChan = nil
		if m.submitErr != nil {
			m.err = m.submitErr
			m.view = ArtifactsView
			return m, nil
		}
		if m.submitResult != nil && m.submitResult.Job != nil {
			m.view = JobsView
			m.jobsSnapshot = m.engine.Tracker().Jobs()
			return m, nil
		}
		m.view = ArtifactsView
		return m, m.fetchArtifacts()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m.updateInputs(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view == ArtifactsView && !m.artifactsSet {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ArtifactsView:
		return m.renderArtifacts()
	case GenerateView:
		return m.renderGenerate()
	case ProgressView:
		return m.renderProgress()
	case JobsView:
		return m.renderJobs()
	case FeaturesView:
		return m.renderFeatures()
	default:
		return ""
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == GenerateView {
		return m.handleGenerateKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		m.view = m.nextView()
		return m, nil
	case key.Matches(msg, m.keys.generate):
		m.view = GenerateView
		m.prompt.SetValue("")
		return m, m.prompt.Focus()
	}

	switch m.view {
	case ArtifactsView:
		if key.Matches(msg, m.keys.refresh) {
			return m, m.fetchArtifacts()
		}
	case JobsView:
		if key.Matches(msg, m.keys.remove) && len(m.jobsSnapshot) > 0 {
			last := m.jobsSnapshot[len(m.jobsSnapshot)-1]
			m.engine.Tracker().Remove(last.ID)
			m.jobsSnapshot = m.engine.Tracker().Jobs()
			return m, nil
		}
	case FeaturesView:
		if key.Matches(msg, m.keys.enter) {
			return m.installSelected()
		}
	}

	return m.updateInputs(msg)
}

func (m *Model) handleGenerateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ArtifactsView
		m.prompt.Blur()
		return m, nil
	case "enter":
		text := m.prompt.Value()
		if text == "" {
			return m, nil
		}
		m.prompt.Blur()
		m.view = ProgressView
		return m, m.startGeneration(transport.GenerationParams{Prompt: text})
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) nextView() ViewState {
	switch m.view {
	case ArtifactsView:
		return JobsView
	case JobsView:
		return FeaturesView
	default:
		return ArtifactsView
	}
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ArtifactsView:
		m.artifactList, cmd = m.artifactList.Update(msg)
	case FeaturesView:
		m.featureList, cmd = m.featureList.Update(msg)
	}
	return m, cmd
}

func (m *Model) setArtifacts(listing *transport.ArtifactListing) {
	items := make([]list.Item, len(listing.Artifacts))
	for i, artifact := range listing.Artifacts {
		items[i] = artifactItem{artifact: artifact, current: i == listing.Current}
	}
	m.artifactList.SetItems(items)
	m.artifactsSet = true
}

func (m *Model) rebuildFeatureList() {
	all := m.engine.Features().All()
	items := make([]list.Item, len(all))
	for i, f := range all {
		items[i] = featureItem{
			feature:  f,
			decision: m.engine.Features().Resolve(f.ID, "Ready"),
		}
	}
	m.featureList.SetItems(items)
}

func (m *Model) installSelected() (tea.Model, tea.Cmd) {
	selected := m.featureList.SelectedItem()
	item, ok := selected.(featureItem)
	if !ok || item.decision.Action != features.ActionInstall {
		return m, nil
	}

	m.view = ProgressView
	return m, m.startInstall(item.feature.ID)
}

func (m *Model) startGeneration(params transport.GenerationParams) tea.Cmd {
	m.beginProgress()
	ch := m.progressChan

	go func() {
		result, err := m.engine.GenerateSong(m.ctx, params, ch)
		m.submitResult = result
		m.submitErr = err
		close(ch)
	}()

	return m.waitForProgress()
}

func (m *Model) startInstall(id features.ID) tea.Cmd {
	m.beginProgress()
	ch := m.progressChan

	go func() {
		m.submitResult = nil
		m.submitErr = m.engine.InstallFeature(m.ctx, id, ch)
		close(ch)
	}()

	return m.waitForProgress()
}

func (m *Model) beginProgress() {
	m.progressChan = make(chan studio.ProgressUpdate, 50)
	m.progress = studio.ProgressUpdate{}
	m.submitResult = nil
	m.submitErr = nil
}

func (m *Model) waitForProgress() tea.Cmd {
	ch := m.progressChan
	return func() tea.Msg {
		if ch == nil {
			return progressDoneMsg{}
		}
		update, ok := <-ch
		if !ok {
			return progressDoneMsg{}
		}
		return progressMsg(update)
	}
}

func (m *Model) waitForJobEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.engine.Tracker().Events()
		if !ok {
			return nil
		}
		return jobEventMsg(event)
	}
}

func (m *Model) waitForFeature() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.engine.Features().Updates()
		if !ok {
			return nil
		}
		return featureMsg(update)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(jobsTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) fetchArtifacts() tea.Cmd {
	return func() tea.Msg {
		listing, err := m.engine.RefreshArtifacts(m.ctx)
		return artifactsMsg{listing: listing, err: err}
	}
}

func (m *Model) renderArtifacts() string {
	helpKeys := []key.Binding{m.keys.generate, m.keys.refresh, m.keys.tab, m.keys.quit}
	view := m.artifactList.View()
	if !m.artifactsSet {
		view = m.spin.View() + " Loading artifacts..."
	}
	return fmt.Sprintf("%s\n\n%s", view, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderGenerate() string {
	title := styles.title.Render("Generate a song")
	helpKeys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.prompt.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderProgress() string {
	title := styles.title.Render("Working")

	line := fmt.Sprintf("%s %s", m.spin.View(), m.progress.Phase)
	if m.progress.Message != "" {
		line += ": " + m.progress.Message
	}

	bar := ""
	if m.progress.Fraction > 0 {
		bar = "\n" + m.bar.ViewAs(m.progress.Fraction)
	}

	return fmt.Sprintf("%s\n%s%s", title, line, bar)
}

func (m *Model) renderJobs() string {
	title := styles.title.Render("Jobs")

	body := styles.help.Render("No active jobs.")
	if len(m.jobsSnapshot) > 0 {
		body = ""
		for _, job := range m.jobsSnapshot {
			state := string(job.State)
			switch job.State {
			case transport.JobQueued:
				if job.QueuePosition > 0 {
					state = fmt.Sprintf("queued (#%d)", job.QueuePosition)
				}
			case transport.JobFailed:
				state = styles.err.Render(state)
			case transport.JobSucceeded:
				state = styles.ok.Render(state)
			}
			body += fmt.Sprintf("%-8s  %-16s  %s\n", job.Kind, state, job.Title)
		}
	}

	helpKeys := []key.Binding{m.keys.remove, m.keys.tab, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderFeatures() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.tab, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.featureList.View(), m.help.ShortHelpView(helpKeys))
}
