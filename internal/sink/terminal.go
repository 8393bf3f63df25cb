package sink

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/relabs-tech/brainwave_das/internal/analysis"
)

// ChartPoints is the length of the rolling band history.
const ChartPoints = 200

const (
	clearScreen  = "\x1b[H\x1b[2J"
	logPaneLines = 8
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	onStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	offStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	paneStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	bandColours = map[string]lipgloss.Color{
		"Alpha": "226", "Beta": "196", "Delta": "46", "Theta": "33", "Gamma": "201",
	}
)

var bandOrder = []string{"Alpha", "Beta", "Delta", "Theta", "Gamma"}

// LineSource supplies recent log lines for the log pane.
type LineSource interface {
	Lines() []string
}

// Terminal is the live dashboard. Consume only records the latest view;
// drawing happens on the render loop started by Run.
type Terminal struct {
	mu       sync.Mutex
	latest   View
	have     bool
	history  map[string]*analysis.Window
	relax    *analysis.RelaxationChanged
	movement *analysis.MovementWarning

	out      io.Writer
	logs     LineSource
	interval time.Duration

	running bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewTerminal creates a dashboard writing to out. logs may be nil.
func NewTerminal(out io.Writer, logs LineSource, interval time.Duration) *Terminal {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	t := &Terminal{
		out:      out,
		logs:     logs,
		interval: interval,
		history:  make(map[string]*analysis.Window, len(bandOrder)),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, b := range bandOrder {
		t.history[b] = analysis.NewWindow(ChartPoints)
	}
	return t
}

func (t *Terminal) Name() string { return "terminal" }
func (t *Terminal) Class() Class { return ClassDisplay }

func (t *Terminal) Consume(_ context.Context, v View) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latest = v
	t.have = true
	s := v.Snapshot
	for b, val := range map[string]float64{
		"Alpha": s.Alpha, "Beta": s.Beta, "Delta": s.Delta, "Theta": s.Theta, "Gamma": s.Gamma,
	} {
		t.history[b].Push(val)
	}
	for _, e := range v.Events {
		switch ev := e.(type) {
		case analysis.MovementWarning:
			t.movement = &ev
		case analysis.RelaxationChanged:
			t.relax = &ev
		}
	}
	return nil
}

// Run redraws until Close is called or ctx ends.
func (t *Terminal) Run(ctx context.Context) {
	t.mu.Lock()
	t.running = true
	t.mu.Unlock()
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			fmt.Fprint(t.out, clearScreen+t.Render())
		}
	}
}

// Close stops the render loop if one is running.
func (t *Terminal) Close() error {
	t.once.Do(func() { close(t.stop) })
	t.mu.Lock()
	running := t.running
	t.mu.Unlock()
	if running {
		<-t.done
	}
	return nil
}

// Render draws the current dashboard frame.
func (t *Terminal) Render() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	sections := []string{titleStyle.Render("Brainwave DAS")}
	if !t.have {
		sections = append(sections, labelStyle.Render("Waiting for headband data..."))
	} else {
		sections = append(sections,
			paneStyle.Render(t.table()),
			paneStyle.Render(t.chart()),
			t.status(),
		)
	}
	if t.logs != nil {
		sections = append(sections, paneStyle.Render(t.logPane()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (t *Terminal) table() string {
	s := t.latest.Snapshot
	band := offStyle.Render("OFF")
	if s.ContactActive {
		band = onStyle.Render("ON")
	}

	headers := []string{"Band", "AccX", "AccY", "AccZ", "GyroX", "GyroY", "GyroZ", "Alpha", "Beta", "Delta", "Theta", "Gamma"}
	values := []float64{s.Accel.X, s.Accel.Y, s.Accel.Z, s.Gyro.X, s.Gyro.Y, s.Gyro.Z, s.Alpha, s.Beta, s.Delta, s.Theta, s.Gamma}

	var head, row strings.Builder
	head.WriteString(labelStyle.Render(fmt.Sprintf("%-5s", headers[0])))
	row.WriteString(band + strings.Repeat(" ", 5-lipgloss.Width(band)))
	for i, v := range values {
		head.WriteString(labelStyle.Render(fmt.Sprintf("%8s", headers[i+1])))
		row.WriteString(fmt.Sprintf("%8.2f", v))
	}
	return head.String() + "\n" + row.String()
}

func (t *Terminal) chart() string {
	lines := make([]string, 0, len(bandOrder))
	for _, b := range bandOrder {
		style := lipgloss.NewStyle().Foreground(bandColours[b])
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-6s", b))+style.Render(Sparkline(t.history[b].Values())))
	}
	return strings.Join(lines, "\n")
}

func (t *Terminal) status() string {
	relax := labelStyle.Render("Relaxation: ") + "n/a"
	if t.relax != nil {
		relax = labelStyle.Render("Relaxation: ") + t.relax.String()
	}
	move := labelStyle.Render("Movement: ") + "steady"
	if t.movement != nil {
		move = labelStyle.Render("Movement: ") + warnStyle.Render(t.movement.Time.Format("15:04:05")+" "+t.movement.String())
	}
	return relax + "\n" + move
}

func (t *Terminal) logPane() string {
	lines := t.logs.Lines()
	if len(lines) > logPaneLines {
		lines = lines[len(lines)-logPaneLines:]
	}
	if len(lines) == 0 {
		return labelStyle.Render("no log output")
	}
	return strings.Join(lines, "\n")
}

// Sparkline maps values onto block characters scaled between their min
// and max. A flat series renders at the lowest level.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(len(sparkRunes)-1))
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}
