// Package present renders tasks and tool results for a terminal or any other
// text sink.
package present

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/colonyops/taskman/internal/core/task"
	"github.com/colonyops/taskman/internal/tools"
)

const defaultHelpWidth = 80

var (
	statusIcons = map[task.Status]string{
		task.StatusNotStarted: "⭕",
		task.StatusInProgress: "🔄",
		task.StatusInReview:   "👀",
		task.StatusDone:       "✅",
	}
	priorityIcons = map[task.Priority]string{
		task.PriorityHigh:   "🔥",
		task.PriorityMedium: "📋",
		task.PriorityLow:    "📝",
	}
)

// Options control rendering.
type Options struct {
	// Width fixes the table width; zero sizes it to the content.
	Width int
	// Icons prefixes priorities and statuses with emoji.
	Icons bool
}

// Printer writes rendered output to a single sink. Output styling is decided
// by the sink: colours are dropped when it is not a terminal.
type Printer struct {
	w      io.Writer
	r      *lipgloss.Renderer
	opts   Options
	styles styles
}

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	border  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	high    lipgloss.Style
	done    lipgloss.Style
}

// New creates a Printer bound to w.
func New(w io.Writer, opts Options) *Printer {
	r := lipgloss.NewRenderer(w)

	return &Printer{
		w:    w,
		r:    r,
		opts: opts,
		styles: styles{
			title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7AA2F7")),
			header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#BB9AF7")).Padding(0, 1),
			cell:    r.NewStyle().Padding(0, 1),
			border:  r.NewStyle().Foreground(lipgloss.Color("#565F89")),
			success: r.NewStyle().Foreground(lipgloss.Color("#9ECE6A")),
			failure: r.NewStyle().Foreground(lipgloss.Color("#F7768E")).Bold(true),
			muted:   r.NewStyle().Foreground(lipgloss.Color("#565F89")),
			high:    r.NewStyle().Foreground(lipgloss.Color("#FF9E64")).Padding(0, 1),
			done:    r.NewStyle().Foreground(lipgloss.Color("#9ECE6A")).Padding(0, 1),
		},
	}
}

// Writer returns the sink the printer writes to.
func (p *Printer) Writer() io.Writer { return p.w }

// Table renders tasks as a table. An empty list renders a "No tasks found"
// line naming the active filter.
func (p *Printer) Table(tasks []task.Task, filter task.ListFilter) error {
	_, err := io.WriteString(p.w, p.RenderTable(tasks, filter))
	return err
}

// RenderTable returns what Table writes.
func (p *Printer) RenderTable(tasks []task.Task, filter task.ListFilter) string {
	if len(tasks) == 0 {
		return p.styles.muted.Render("No tasks found"+describeFilter(filter)) + "\n"
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Name,
			p.priority(t.Priority),
			p.status(t.Status),
		})
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.styles.border).
		Headers("ID", "Name", "Priority", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.header
			}
			if row < 0 || row >= len(tasks) {
				return p.styles.cell
			}
			switch {
			case col == 2 && tasks[row].Priority == task.PriorityHigh:
				return p.styles.high
			case col == 3 && tasks[row].Status == task.StatusDone:
				return p.styles.done
			}
			return p.styles.cell
		})
	if p.opts.Width > 0 {
		tbl = tbl.Width(p.opts.Width)
	}

	title := p.styles.title.Render(fmt.Sprintf("Tasks%s", describeFilter(filter)))
	return title + "\n" + tbl.String() + "\n"
}

// Result renders the outcome of a tool invocation: a status line, followed by
// a table for list results.
func (p *Printer) Result(res tools.Result) error {
	_, err := io.WriteString(p.w, p.RenderResult(res))
	return err
}

// RenderResult returns what Result writes.
func (p *Printer) RenderResult(res tools.Result) string {
	if !res.OK {
		kind := tools.KindInternal
		if res.Error != nil {
			kind = res.Error.Kind
		}
		return p.styles.failure.Render(fmt.Sprintf("❌ %s: %s", kind, res.Message)) + "\n"
	}

	if res.Listing {
		if len(res.Tasks) == 0 {
			return p.styles.muted.Render(res.Message) + "\n"
		}
		return p.RenderTable(res.Tasks, res.Filter) + p.styles.muted.Render(res.Message) + "\n"
	}

	icon := "✅"
	if res.Deleted {
		icon = "🗑️"
	}

	var b strings.Builder
	b.WriteString(p.styles.success.Render(icon + " " + res.Message))
	b.WriteString("\n")
	if !res.Deleted {
		for _, t := range res.Tasks {
			b.WriteString(p.styles.muted.Render(fmt.Sprintf("   %s · %s", p.priority(t.Priority), p.status(t.Status))))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Notice writes a single muted informational line.
func (p *Printer) Notice(format string, args ...any) {
	_, _ = fmt.Fprintln(p.w, p.styles.muted.Render(fmt.Sprintf(format, args...)))
}

// Help renders markdown with glamour. Terminals get the automatic style,
// everything else the plain "notty" style.
func (p *Printer) Help(markdown string) error {
	width := p.opts.Width
	if width <= 0 {
		width = defaultHelpWidth
	}

	style := glamour.WithStylePath("notty")
	if p.isTerminal() {
		style = glamour.WithAutoStyle()
	}

	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("create help renderer: %w", err)
	}

	out, err := renderer.Render(markdown)
	if err != nil {
		return fmt.Errorf("render help: %w", err)
	}

	_, err = io.WriteString(p.w, out)
	return err
}

func (p *Printer) isTerminal() bool {
	f, ok := p.w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *Printer) priority(v task.Priority) string {
	if icon, ok := priorityIcons[v]; ok && p.opts.Icons {
		return icon + " " + string(v)
	}
	return string(v)
}

func (p *Printer) status(v task.Status) string {
	if icon, ok := statusIcons[v]; ok && p.opts.Icons {
		return icon + " " + string(v)
	}
	return string(v)
}

func describeFilter(f task.ListFilter) string {
	if f.IsZero() {
		return ""
	}
	var parts []string
	if f.Status != "" {
		parts = append(parts, "status: "+string(f.Status))
	}
	if f.Priority != "" {
		parts = append(parts, "priority: "+string(f.Priority))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
