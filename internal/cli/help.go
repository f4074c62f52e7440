package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Italic(true)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(okColor).
			Bold(true)

	helpNoteStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

// ungrouped is the section title for flags declared without a group tag.
const ungrouped = "General"

// flagLine is one rendered flag.
type flagLine struct {
	spec string
	help string
	note string
}

// section is the flags of one kong group, in declaration order.
type section struct {
	title string
	flags []flagLine
}

// StyledHelpPrinter renders help as lipgloss-styled sections, one per flag
// group.
func StyledHelpPrinter(kong.HelpOptions) kong.HelpPrinter {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		return writeHelp(ctx.Stdout, ctx.Model)
	}
}

func writeHelp(w io.Writer, app *kong.Application) error {
	var sb strings.Builder

	sb.WriteString(helpTitleStyle.Render(app.Name))
	if app.Help != "" {
		sb.WriteString("  ")
		sb.WriteString(helpDescStyle.Render(app.Help))
	}
	sb.WriteString("\n\n")

	sb.WriteString(helpSectionStyle.Render("Usage:"))
	fmt.Fprintf(&sb, "\n  %s -L DEVICE -C DEVICE -P CARD [flags]\n", app.Name)

	for _, s := range sections(app.Node) {
		sb.WriteString("\n")
		sb.WriteString(helpSectionStyle.Render(s.title + ":"))
		sb.WriteString("\n")

		width := 0
		for _, f := range s.flags {
			width = max(width, len(f.spec))
		}
		for _, f := range s.flags {
			// pad before styling; escape codes would throw the width off
			fmt.Fprintf(&sb, "  %s  %s", helpFlagStyle.Render(fmt.Sprintf("%-*s", width, f.spec)), f.help)
			if f.note != "" {
				sb.WriteString(" ")
				sb.WriteString(helpNoteStyle.Render("(" + f.note + ")"))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// sections groups the visible flags of node. Groups appear in the order
// their first flag is declared; ungrouped flags come first.
func sections(node *kong.Node) []section {
	general := section{title: ungrouped}
	general.flags = append(general.flags, flagLine{spec: "-h, --help", help: "Show this help"})

	var grouped []section
	index := map[string]int{}
	for _, f := range node.Flags {
		if f.Name == "help" || f.Hidden {
			continue
		}
		line := renderFlag(f)
		if f.Group == nil {
			general.flags = append(general.flags, line)
			continue
		}
		i, ok := index[f.Group.Key]
		if !ok {
			i = len(grouped)
			index[f.Group.Key] = i
			grouped = append(grouped, section{title: f.Group.Title})
		}
		grouped[i].flags = append(grouped[i].flags, line)
	}
	return append([]section{general}, grouped...)
}

func renderFlag(f *kong.Flag) flagLine {
	spec := "--" + f.Name
	if f.Short != 0 {
		spec = fmt.Sprintf("-%c, %s", f.Short, spec)
	}
	if !f.IsBool() {
		placeholder := f.PlaceHolder
		if placeholder == "" {
			placeholder = f.Name
		}
		spec += "=" + strings.ToUpper(placeholder)
	}

	var notes []string
	if f.Enum != "" {
		notes = append(notes, "one of "+strings.ReplaceAll(f.Enum, ",", ", "))
	}
	if f.Default != "" {
		notes = append(notes, "default "+f.Default)
	}
	return flagLine{spec: spec, help: f.Help, note: strings.Join(notes, "; ")}
}
