// Package ui renders the interactive init flow: accent/muted/success/error
// message helpers and aligned key-value output, styled with lipgloss and
// aware of the terminal's color profile via termenv.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var profile = termenv.ColorProfile()

var (
	purple = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
)

var (
	AccentStyle = lipgloss.NewStyle().Foreground(purple)
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	ErrorStyle  = lipgloss.NewStyle().Foreground(red)
	WarnStyle   = lipgloss.NewStyle().Foreground(yellow)
	MutedStyle  = lipgloss.NewStyle().Foreground(dim)
	LabelStyle  = lipgloss.NewStyle().Foreground(dim)
)

// Interactive reports whether stdout is an interactive terminal — the init
// flow falls back to flat, unstyled line output when it isn't.
func Interactive() bool {
	return profile != termenv.Ascii
}

func Accent(s string) string { return AccentStyle.Render(s) }
func Muted(s string) string  { return MutedStyle.Render(s) }

func SuccessMsg(format string, a ...any) string {
	return SuccessStyle.Render("✓") + " " + fmt.Sprintf(format, a...)
}

func WarnMsg(format string, a ...any) string {
	return WarnStyle.Render("!") + " " + fmt.Sprintf(format, a...)
}

func ErrorMsg(format string, a ...any) string {
	return ErrorStyle.Render("✗") + " " + fmt.Sprintf(format, a...)
}

func InfoMsg(format string, a ...any) string {
	return AccentStyle.Render("●") + " " + fmt.Sprintf(format, a...)
}

// Pair is one row of KeyValues output.
type Pair struct {
	key, value string
}

func KV(key, value string) Pair { return Pair{key: key, value: value} }

// KeyValues renders aligned "key: value" lines, one per pair.
func KeyValues(indent string, pairs ...Pair) string {
	maxLen := 0
	for _, p := range pairs {
		if len(p.key) > maxLen {
			maxLen = len(p.key)
		}
	}
	var sb strings.Builder
	for _, p := range pairs {
		label := fmt.Sprintf("%-*s", maxLen+1, p.key+":")
		sb.WriteString(indent + LabelStyle.Render(label) + " " + p.value + "\n")
	}
	return sb.String()
}

// Step prints one checklist line: a spinner-less "in progress" marker
// before fn runs, then success or failure after.
func Step(label string, fn func() error) error {
	fmt.Println(InfoMsg("%s", label))
	if err := fn(); err != nil {
		fmt.Println(ErrorMsg("%s: %v", label, err))
		return err
	}
	fmt.Println(SuccessMsg("%s", label))
	return nil
}
