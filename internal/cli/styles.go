// Package cli renders the command line's help, version and error output.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#A40000")
	accentColor  = lipgloss.Color("#FFA500")
	okColor      = lipgloss.Color("#00AA00")
	mutedColor   = lipgloss.Color("#888888")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	keyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// ErrorOutput receives PrintError output.
var ErrorOutput io.Writer = os.Stderr

// PrintVersion writes the program name, version and Go runtime.
func PrintVersion(w io.Writer, version string) {
	fmt.Fprintln(w, titleStyle.Render("avc"))
	fmt.Fprintf(w, "%s %s\n", keyStyle.Render("Version:"), version)
	fmt.Fprintf(w, "%s %s %s/%s\n", keyStyle.Render("Go:     "), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// PrintError writes a one-line error to ErrorOutput.
func PrintError(message string) {
	fmt.Fprintf(ErrorOutput, "%s %s\n", errorStyle.Render("Error:"), message)
}

// PrintVolumeRange writes the mixer element's volume limits. The line is
// unstyled so scripts can parse it.
func PrintVolumeRange(w io.Writer, lo, hi int64) {
	fmt.Fprintf(w, "min volume: %d, max volume: %d\n", lo, hi)
}
