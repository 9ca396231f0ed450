package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/dmtools/sqlog2db/pkg/config"
	phooks "github.com/dmtools/sqlog2db/pkg/progress"
)

// =============================================================================
// Progress hooks -> bubbletea messages
// =============================================================================

// teaHooks forwards pipeline progress events to the running bubbletea
// program. Counters go through a Tracker so the view reads consistent totals
// without message ordering mattering.
type teaHooks struct {
	p *tea.Program
	t *phooks.Tracker
}

func (h *teaHooks) OnRunStart(_ context.Context, totalFiles int, sinks []string) {
	h.p.Send(runStartMsg{totalFiles: totalFiles, sinks: sinks})
}

func (h *teaHooks) OnFileStart(_ context.Context, index int, file string) {
	h.t.SetFileIndex(index)
	h.p.Send(fileStartMsg{index: index, file: file})
}

func (h *teaHooks) OnBatch(_ context.Context, _ int, records, parseErrors int) {
	h.t.AddRecords(records)
	h.t.AddParseErrors(parseErrors)
	h.p.Send(refreshMsg{})
}

func (h *teaHooks) OnFileDone(_ context.Context, index int, file string, err error) {
	h.p.Send(fileDoneMsg{index: index, file: file, err: err})
}

func (h *teaHooks) OnRunDone(_ context.Context, records, parseErrors int64, elapsed time.Duration) {
	h.p.Send(runDoneMsg{records: records, parseErrors: parseErrors, elapsed: elapsed})
}

type (
	runStartMsg struct {
		totalFiles int
		sinks      []string
	}
	fileStartMsg struct {
		index int
		file  string
	}
	refreshMsg  struct{}
	fileDoneMsg struct {
		index int
		file  string
		err   error
	}
	runDoneMsg struct {
		records     int64
		parseErrors int64
		elapsed     time.Duration
	}
	runFailedMsg struct{ err error }
	tickMsg      time.Time
)

// =============================================================================
// ExportModel - live export progress
// =============================================================================

var tuiFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ExportModel is the bubbletea model showing a running export.
type ExportModel struct {
	tracker *phooks.Tracker

	totalFiles  int
	sinks       []string
	currentFile string
	filesDone   int

	start   time.Time
	frame   int
	done    bool
	failed  error
	summary *runDoneMsg
}

// NewExportModel creates a model polling the given tracker.
func NewExportModel(t *phooks.Tracker) ExportModel {
	return ExportModel{tracker: t, start: time.Now()}
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m ExportModel) Init() tea.Cmd {
	return tuiTick()
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tuiTick()

	case runStartMsg:
		m.totalFiles = msg.totalFiles
		m.sinks = msg.sinks

	case fileStartMsg:
		m.currentFile = msg.file

	case fileDoneMsg:
		m.filesDone++

	case refreshMsg:
		// counters live in the tracker, nothing to copy

	case runDoneMsg:
		m.done = true
		m.summary = &msg
		return m, tea.Quit

	case runFailedMsg:
		m.done = true
		m.failed = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m ExportModel) View() string {
	if m.failed != nil {
		return styleIconError.Render(iconError) + " Export failed: " + m.failed.Error() + "\n"
	}
	if m.summary != nil {
		s := m.summary
		out := styleIconSuccess.Render(iconSuccess) + " Export complete\n"
		out += fmt.Sprintf("  %s records from %d file(s) in %s\n",
			StyleNumber.Render(humanize.Comma(s.records)), m.totalFiles, s.elapsed.Round(time.Millisecond))
		if s.parseErrors > 0 {
			out += "  " + StyleWarning.Render(fmt.Sprintf("%s lines failed to parse", humanize.Comma(s.parseErrors))) + "\n"
		}
		return out
	}

	spin := styleIconSpinner.Render(tuiFrames[m.frame%len(tuiFrames)])
	out := StyleTitle.Render("sqlog2db export") + "\n\n"

	file := m.currentFile
	if file == "" {
		file = "discovering log files..."
	} else {
		file = filepath.Base(file)
	}
	out += fmt.Sprintf("%s %s %s\n", spin,
		StyleDim.Render(fmt.Sprintf("file %d/%d", m.filesDone+1, max(m.totalFiles, 1))),
		StyleValue.Render(file))

	out += fmt.Sprintf("  records      %s\n", StyleNumber.Render(humanize.Comma(m.tracker.Records())))
	out += fmt.Sprintf("  parse errors %s\n", StyleNumber.Render(humanize.Comma(m.tracker.ParseErrors())))
	out += fmt.Sprintf("  elapsed      %s\n", StyleDim.Render(time.Since(m.start).Round(time.Second).String()))
	if len(m.sinks) > 0 {
		out += "\n" + StyleDim.Render("sinks: ")
		for i, s := range m.sinks {
			if i > 0 {
				out += StyleDim.Render(", ")
			}
			out += StyleValue.Render(s)
		}
		out += "\n"
	}
	out += "\n" + StyleDim.Render("press q to abort") + "\n"
	return out
}

// runWithTUI runs the export pipeline with an interactive progress view.
// The pipeline runs in its own goroutine and reports through progress hooks.
func runWithTUI(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := phooks.NewTracker()
	p := tea.NewProgram(NewExportModel(tracker), tea.WithContext(ctx))

	phooks.SetHooks(&teaHooks{p: p, t: tracker})
	defer phooks.Reset()

	result := make(chan error, 1)
	go func() {
		_, err := runExport(runCtx, cfg, logger)
		if err != nil {
			p.Send(runFailedMsg{err: err})
		}
		result <- err
	}()

	// Quitting the view (q / ctrl+c) cancels the pipeline too.
	_, uiErr := p.Run()
	cancel()
	err := <-result
	if uiErr != nil {
		return uiErr
	}
	return err
}
