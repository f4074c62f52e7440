package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/avc/internal/logging"
)

const (
	meterWidth = 40
	// meterFloor is the dBFS level drawn as an empty meter
	meterFloor = -90.0
)

var (
	accentColor = lipgloss.Color("#A40000")
	mutedColor  = lipgloss.Color("#888888")
	okColor     = lipgloss.Color("#00AA00")
	warnColor   = lipgloss.Color("#FFA500")
)

// renderMonitorView renders the live view
func renderMonitorView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(renderLevels(m))
	b.WriteString("\n")
	b.WriteString(renderStreams(m))
	b.WriteString("\n")
	b.WriteString(renderFooter(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render("avc - Automatic Volume Compensation")

	mode := fmt.Sprintf("%s on %s", m.Devices.Element, m.Devices.Playback)
	if m.DryRun {
		mode += " (dry run)"
	}
	subtitle := lipgloss.NewStyle().
		Foreground(mutedColor).
		Italic(true).
		Render(mode)

	return title + "\n" + subtitle
}

// renderLevels renders both smoothed peaks and the volume position
func renderLevels(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Width(70)

	var content strings.Builder
	if !m.HasCycle {
		spinner := lipgloss.NewStyle().Foreground(accentColor).Render(spinnerFrames[m.spinnerIndex])
		content.WriteString(spinner + " Waiting for first block...")
		return box.Render(content.String())
	}

	d := m.Last
	content.WriteString(fmt.Sprintf("Monitor  %s %s\n", renderMeter(peakFraction(d.MonitorPeak), meterWidth), formatPeak(d.MonitorPeak)))
	content.WriteString(fmt.Sprintf("Capture  %s %s\n", renderMeter(peakFraction(d.CapturePeak), meterWidth), formatPeak(d.CapturePeak)))
	content.WriteString(fmt.Sprintf("Volume   %s %d (%d..%d)\n\n",
		renderMeter(volumeFraction(d.NextVolume, m.Bounds.Base, m.Bounds.Max), meterWidth),
		d.NextVolume, m.Bounds.Base, m.Bounds.Max))

	gate := lipgloss.NewStyle().Foreground(okColor).Render("writing")
	if !d.Applied {
		gate = lipgloss.NewStyle().Foreground(warnColor).Render("held")
	}
	content.WriteString(fmt.Sprintf("Delta: %d | Step: %+d | Gate: %s", d.Delta, d.Modifier, gate))

	return box.Render(content.String())
}

// renderStreams renders read health for both streams
func renderStreams(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColor).
		Padding(0, 1).
		Width(70)

	content := fmt.Sprintf("Capture %s: %s\nMonitor %s: %s",
		m.Devices.Capture, renderHealth(m.Capture),
		m.Devices.Looprec, renderHealth(m.Monitor))
	return box.Render(content)
}

func renderHealth(h StreamHealth) string {
	if h.Failures == 0 {
		return lipgloss.NewStyle().Foreground(okColor).Render("ok")
	}
	return lipgloss.NewStyle().Foreground(warnColor).
		Render(fmt.Sprintf("%d failed, %d recovered", h.Failures, h.Recoveries))
}

// renderFooter renders cycle counters and key help
func renderFooter(m Model) string {
	elapsed := time.Since(m.StartTime)
	status := fmt.Sprintf("Cycles: %d | Writes: %d | Held: %d [%s]", m.Cycles, m.Writes, m.Held, formatElapsed(elapsed))

	help := "q: stop"
	if m.Stopping {
		help = "stopping... (q again to leave now)"
	}
	return status + "\n" + lipgloss.NewStyle().Foreground(mutedColor).Render(help)
}

// renderStoppedView renders the final view after the loop returned
func renderStoppedView(m Model) string {
	var b strings.Builder

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(okColor).
		Render("Loop stopped")
	if m.Err != nil && !m.Stopping {
		header = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			Render("Loop ended")
	}
	b.WriteString(header)
	b.WriteString("\n")
	if m.Err != nil {
		b.WriteString(fmt.Sprintf("   %v\n", m.Err))
	}
	b.WriteString(fmt.Sprintf("   Cycles: %d | Writes: %d | Skipped: %d\n", m.Stats.Cycles, m.Stats.Writes, m.Stats.Skipped))
	return b.String()
}

// renderMeter renders a horizontal bar for a fraction in [0, 1]
func renderMeter(fraction float64, width int) string {
	fraction = max(0, min(fraction, 1))
	filled := int(fraction * float64(width))
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(accentColor)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))

	return filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("━", empty))
}

// peakFraction maps a peak onto the meter's dBFS scale
func peakFraction(p uint32) float64 {
	if p == 0 {
		return 0
	}
	return (logging.PeakDBFS(p) - meterFloor) / -meterFloor
}

func volumeFraction(v, lo, hi int64) float64 {
	if hi <= lo {
		return 1
	}
	return float64(v-lo) / float64(hi-lo)
}

func formatPeak(p uint32) string {
	if p == 0 {
		return logging.SilenceValue
	}
	return fmt.Sprintf("%5d (%.1f dBFS)", p, logging.PeakDBFS(p))
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
