package runner

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func (r *Runner) status(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(r.out, style.Render(fmt.Sprintf(format, args...)))
}
