package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// Logo is printed at the top of interactive commands
const Logo = `
   ╔═══════════════════════════════════════╗
   ║   D A I L Y   N E W S                 ║
   ║   today's headlines, fetched daily    ║
   ╚═══════════════════════════════════════╝
`

var (
	out   io.Writer = os.Stdout
	quiet atomic.Bool
)

// SetOutput redirects everything this package prints
func SetOutput(w io.Writer) { out = w }

// SetQuietMode suppresses informational output; errors still print
func SetQuietMode(q bool) { quiet.Store(q) }

// IsQuietMode reports whether quiet mode is on
func IsQuietMode() bool { return quiet.Load() }

// Color helpers for inline use
var (
	Cyan    = render(labelStyle)
	Yellow  = render(valueStyle)
	Red     = render(errorStyle)
	Green   = render(successStyle)
	Magenta = render(highlight)
	Dim     = render(dimStyle)
)

func render(s interface{ Render(...string) string }) func(string) string {
	return func(text string) string { return s.Render(text) }
}

// PrintLogo prints the banner
func PrintLogo() {
	if IsQuietMode() {
		return
	}
	fmt.Fprint(out, Cyan(Logo)+"\n")
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintln(out, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintf(out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	if IsQuietMode() {
		return
	}
	if len(args) > 0 {
		fmt.Fprintln(out, warningStyle.Render(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, warningStyle.Render(msg))
	}
}

// PrintHighlight prints a highlighted message
func PrintHighlight(msg string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintln(out, Magenta(msg))
}

// Print writes pre-rendered output unless quiet
func Print(s string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintln(out, s)
}
