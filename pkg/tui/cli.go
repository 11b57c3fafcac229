// Package tui renders CLI output: column reports, decode summaries and
// progress bars. Simple, streaming, no full-screen UI.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// ColumnInfo describes the decoder chosen for one column.
type ColumnInfo struct {
	Index     int
	Name      string
	Logical   string
	Physical  string
	Decoder   string
	Scale     int
	Precision int
	Err       string
}

var columnHeaders = []string{"#", "NAME", "LOGICAL", "PHYSICAL", "DECODER", "SCALE", "PRECISION"}

func (c ColumnInfo) cells() []string {
	decoder := c.Decoder
	if c.Err != "" {
		decoder = "error: " + c.Err
	}
	precision := ""
	if c.Precision > 0 {
		precision = fmt.Sprintf("%d", c.Precision)
	}
	return []string{
		fmt.Sprintf("%d", c.Index),
		c.Name,
		c.Logical,
		c.Physical,
		decoder,
		fmt.Sprintf("%d", c.Scale),
		precision,
	}
}

// RenderColumns lays out cols as an aligned table. Failed columns are
// highlighted.
func RenderColumns(cols []ColumnInfo) string {
	rows := make([][]string, len(cols))
	widths := make([]int, len(columnHeaders))
	for i, h := range columnHeaders {
		widths[i] = lipgloss.Width(h)
	}
	for r, c := range cols {
		rows[r] = c.cells()
		for i, cell := range rows[r] {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(mutedStyle.Render(joinPadded(columnHeaders, widths)))
	sb.WriteByte('\n')
	for r, row := range rows {
		line := joinPadded(row, widths)
		if cols[r].Err != "" {
			line = accentStyle.Render(line)
		} else {
			line = titleStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func joinPadded(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
	}
	return "  " + strings.TrimRight(strings.Join(parts, "  "), " ")
}

// Header returns the banner line.
func Header(version string) string {
	return titleStyle.Render("  ARROWROWS") + mutedStyle.Render(" v"+version)
}

// DecodeReport summarizes a decode run.
type DecodeReport struct {
	Batches  int
	Rows     int64
	Columns  int
	Workers  int
	Duration time.Duration
}

// PrintDecodeReport writes the summary to w.
func PrintDecodeReport(w io.Writer, report *DecodeReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, successStyle.Render("  ✓ DECODE COMPLETE"))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Rows:"), titleStyle.Render(FormatNumber(report.Rows)))
	fmt.Fprintf(w, "  %s %d batches, %d columns, %d workers\n",
		mutedStyle.Render("Input:"), report.Batches, report.Columns, report.Workers)
	if report.Duration > 0 {
		throughput := float64(report.Rows) / report.Duration.Seconds()
		fmt.Fprintf(w, "  %s %s %s\n",
			mutedStyle.Render("Time:"),
			titleStyle.Render(formatDuration(report.Duration)),
			mutedStyle.Render(fmt.Sprintf("(%s rows/sec)", FormatNumber(int64(throughput)))))
	}
	fmt.Fprintln(w)
}

// ShowProgress creates a row progress bar writing to w.
func ShowProgress(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// FormatNumber abbreviates n with K and M suffixes.
func FormatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}
