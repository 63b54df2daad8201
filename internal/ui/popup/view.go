package popup

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"tabtimer/internal/core/model"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(model.Colors[0]))
	clockStyle    = lipgloss.NewStyle().Bold(true).Padding(1, 0)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TabTimer"))
	b.WriteString("\n")

	if m.counting {
		b.WriteString(clockStyle.Render(formatClock(m.remaining)))
		b.WriteString("\n")
		b.WriteString(m.bar.ViewAs(m.fraction()))
		b.WriteString("\n\n")
	} else if m.notice != "" {
		b.WriteString(mutedStyle.Render(m.notice))
		b.WriteString("\n\n")
	}

	if len(m.presets) == 0 {
		b.WriteString(mutedStyle.Render("No presets. Add one with `tabtimer presets add`."))
		b.WriteString("\n")
	}
	for i, preset := range m.presets {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(preset.Color)).Render("●")
		line := fmt.Sprintf("%s %s  %s", swatch, formatPreset(preset), strings.TrimSuffix(preset.Sound, ".mp3"))
		if m.counting && preset.ID == m.timerID {
			line += mutedStyle.Render("  (running)")
		}
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errText))
		b.WriteString("\n")
	}
	if m.disconnected {
		b.WriteString(errorStyle.Render("daemon connection closed"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) helpLine() string {
	parts := make([]string, 0, len(m.keys.help()))
	for _, binding := range m.keys.help() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, " • ")
}

// formatClock renders a duration as HH:MM:SS, flooring to whole seconds.
func formatClock(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	total := int64(remaining / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func formatPreset(preset model.TimerPreset) string {
	return formatClock(preset.Duration())
}
