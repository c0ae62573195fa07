// Package cli provides addresskit's terminal output: lipgloss styling
// and a progress bar for the fetch/extract/load steps of an ingestion
// run. Kept in the teacher's Swiss-minimal style (pkg/tui/cli.go); the
// interactive wizard is dropped since addresskit's CLI is flag-driven.
package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// PrintHeader prints the run banner.
func PrintHeader(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  ADDRESSKIT") + mutedStyle.Render(" "+version))
	fmt.Println(mutedStyle.Render("  G-NAF ingestion and address search"))
	fmt.Println()
}

// PrintStateTransition prints one orchestrator state change.
func PrintStateTransition(runID, from, to string) {
	fmt.Printf("  %s %s %s %s\n", accentStyle.Render("▸"), mutedStyle.Render(runID), mutedStyle.Render(from+" →"), titleStyle.Render(to))
}

// Report summarizes a completed ingestion run.
type Report struct {
	RegionsLoaded int
	RowsIngested  int64
	Duration      time.Duration
}

// PrintReport prints the final timing report of spec.md §4.8 step 8.
func PrintReport(r Report) {
	fmt.Println()
	fmt.Println(successStyle.Render("  ✓ INGESTION COMPLETE"))
	fmt.Println()
	fmt.Printf("  %s %s\n", mutedStyle.Render("Regions:"), titleStyle.Render(fmt.Sprintf("%d", r.RegionsLoaded)))
	fmt.Printf("  %s %s\n", mutedStyle.Render("Rows:"), titleStyle.Render(formatNumber(r.RowsIngested)))
	if r.Duration > 0 {
		throughput := float64(r.RowsIngested) / r.Duration.Seconds()
		fmt.Printf("  %s %s %s\n",
			mutedStyle.Render("Time:"),
			titleStyle.Render(formatDuration(r.Duration)),
			mutedStyle.Render(fmt.Sprintf("(%s rows/sec)", formatNumber(int64(throughput)))))
	}
	fmt.Println()
}

// NewFileProgress creates a progress bar for a fetch or extract step, in
// the teacher's ShowProgress style.
func NewFileProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
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

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}
