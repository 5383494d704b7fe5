package ui

import (
	"fmt"
	"io"
	"os"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔════════════════════════════════════════════════════════╗
    ║  ██╗ ██████╗      █████╗ ██████╗  ██████╗██╗  ██╗      ║
    ║  ██║██╔════╝     ██╔══██╗██╔══██╗██╔════╝██║  ██║      ║
    ║  ██║██║  ███╗    ███████║██████╔╝██║     ███████║      ║
    ║  ██║██║   ██║    ██╔══██║██╔══██╗██║     ██╔══██║      ║
    ║  ██║╚██████╔╝    ██║  ██║██║  ██║╚██████╗██║  ██║      ║
    ║  ╚═╝ ╚═════╝     ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝      ║
    ║        HIGHLIGHTS, STORIES AND POSTS, KEPT OFFLINE      ║
    ╚════════════════════════════════════════════════════════╝
`

// Output receives everything this package prints
var Output io.Writer = os.Stdout

var colorEnabled = true

// SetColor turns ANSI colors on or off
func SetColor(enabled bool) {
	colorEnabled = enabled
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

// Summary is what a finished run reports
type Summary struct {
	RunID    string
	Root     string
	Targets  int
	Failed   int
	NewItems int
}

// PrintSummary prints the end-of-run report
func PrintSummary(s Summary) {
	fmt.Fprintln(Output)
	PrintHighlight("[ARCHIVE RUN COMPLETE]")
	PrintInfo("Run", s.RunID)
	PrintInfo("Archive", s.Root)
	PrintInfo("Targets", fmt.Sprintf("%d", s.Targets))
	PrintInfo("New items", fmt.Sprintf("%d", s.NewItems))
	if s.Failed > 0 {
		PrintWarning("Failed targets", s.Failed)
	} else {
		PrintSuccess("All targets archived")
	}
}
