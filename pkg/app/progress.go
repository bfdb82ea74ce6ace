package app

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// ProgressBar draws a single progress line for long copies. It redraws in
// place with a carriage return and only when the shown percentage changes.
type ProgressBar struct {
	w       io.Writer
	bar     progress.Model
	plain   bool
	last    int
	started time.Time
}

// NewProgressBar creates a bar writing to w. noColor drops colors and styling.
func NewProgressBar(w io.Writer, noColor bool) *ProgressBar {
	opts := []progress.Option{progress.WithWidth(40)}
	if noColor {
		opts = append(opts, progress.WithColorProfile(termenv.Ascii), progress.WithFillCharacters('#', '-'))
	} else {
		opts = append(opts, progress.WithDefaultGradient())
	}
	return &ProgressBar{
		w:       w,
		bar:     progress.New(opts...),
		plain:   noColor,
		last:    -1,
		started: time.Now(),
	}
}

// Update redraws the bar for an update
func (p *ProgressBar) Update(u ProgressUpdate) {
	pct := u.Percent()
	if pct == p.last {
		return
	}
	p.last = pct

	if u.StartedAt.IsZero() {
		u.StartedAt = p.started
	}
	if u.ElapsedTime == 0 {
		u.ElapsedTime = time.Since(u.StartedAt)
	}

	label, detail := u.Message, fmt.Sprintf("%s/%s", FormatBytes(u.Completed), FormatBytes(u.Total))
	if eta := u.ETA(); eta > 0 {
		detail += fmt.Sprintf(" eta %s", eta.Round(time.Second))
	}
	if !p.plain {
		label, detail = labelStyle.Render(label), detailStyle.Render(detail)
	}
	fmt.Fprintf(p.w, "\r%s %s %s", label, p.bar.ViewAs(float64(pct)/100), detail)
}

// Done ends the progress line
func (p *ProgressBar) Done() {
	if p.last >= 0 {
		fmt.Fprintln(p.w)
	}
}

// ProgressFor installs a progress bar on ctx unless it is quiet or the output
// is machine readable. The returned func ends the line.
func ProgressFor(ctx *Context, w io.Writer) func() {
	if ctx.Quiet || ctx.OutputFormat == "json" || ctx.OutputFormat == "yaml" {
		return func() {}
	}
	bar := NewProgressBar(w, ctx.NoColor)
	ctx.SetProgress(bar.Update)
	return bar.Done
}
