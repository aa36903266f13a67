package ui

import (
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type workDoneMsg struct{}

// spinnerModel shows a spinner until the background work reports done
type spinnerModel struct {
	spinner spinner.Model
	label   string
	work    func()
	done    bool
}

func newSpinnerModel(label string, work func()) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return spinnerModel{spinner: s, label: label, work: work}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	work := m.work
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		work()
		return workDoneMsg{}
	})
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return "  " + m.spinner.View() + " " + m.label + "\n"
}

// RunWithSpinner runs work while a spinner with label is drawn on out. When
// interactive is false, work runs without any animation. The spinner cannot
// be interrupted; work must honor its own context.
func RunWithSpinner(out io.Writer, interactive bool, label string, work func()) error {
	if !interactive {
		work()
		return nil
	}

	var once sync.Once
	run := func() { once.Do(work) }

	p := tea.NewProgram(newSpinnerModel(label, run), tea.WithOutput(out), tea.WithInput(nil))
	_, err := p.Run()
	// The program may stop before scheduling work
	run()
	return err
}
