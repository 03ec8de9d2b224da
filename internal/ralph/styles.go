package ralph

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color constants
const (
	ColorPrimary   = "39"  // Blue
	ColorSuccess   = "42"  // Green
	ColorWarning   = "214" // Orange
	ColorError     = "196" // Red
	ColorMuted     = "245" // Gray
	ColorHighlight = "212" // Pink
)

// Styles contains the terminal styles for loop output.
type Styles struct {
	Title     lipgloss.Style
	Prefix    lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Muted     lipgloss.Style
	FeatureID lipgloss.Style
	Duration  lipgloss.Style
}

// DefaultStyles returns the default output styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimary)),
		Prefix: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorHighlight)),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSuccess)),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorError)),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorWarning)),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
		FeatureID: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimary)),
		Duration: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
	}
}

// Status icons
const (
	IconRunning   = "●"
	IconSuccess   = "✓"
	IconFailed    = "✗"
	IconTimeout   = "⏱"
	IconRateLimit = "⏳"
	IconBlocked   = "⊘"
)

// StatusIcon returns the icon for an outcome.
func StatusIcon(outcome Outcome) string {
	switch outcome {
	case OutcomeSuccess, OutcomeComplete:
		return IconSuccess
	case OutcomeProcessError, OutcomeValidationError, OutcomeLoopDetected:
		return IconFailed
	case OutcomeTimeout:
		return IconTimeout
	case OutcomeRateLimited:
		return IconRateLimit
	default:
		return IconRunning
	}
}

// OutcomeStyle returns the style for an outcome.
func (s Styles) OutcomeStyle(outcome Outcome) lipgloss.Style {
	switch outcome {
	case OutcomeSuccess, OutcomeComplete:
		return s.Success
	case OutcomeTimeout, OutcomeRateLimited:
		return s.Warning
	default:
		return s.Error
	}
}

// Printer writes prefixed, styled loop messages to a terminal.
type Printer struct {
	w      io.Writer
	styles Styles
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styles: DefaultStyles()}
}

func (p *Printer) prefix() string {
	return p.styles.Prefix.Render("[ralph]")
}

// Log prints an informational line.
func (p *Printer) Log(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.prefix(), fmt.Sprintf(format, args...))
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.prefix(), p.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.prefix(), p.styles.Warning.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.prefix(), p.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// Dim prints a muted line.
func (p *Printer) Dim(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.prefix(), p.styles.Muted.Render(fmt.Sprintf(format, args...)))
}

// Header prints a bold title line.
func (p *Printer) Header(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.prefix(), p.styles.Title.Render(text))
}

// Separator prints a horizontal rule.
func (p *Printer) Separator() {
	fmt.Fprintln(p.w, p.styles.Muted.Render(strings.Repeat("─", 60)))
}
