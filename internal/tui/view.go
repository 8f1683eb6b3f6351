package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/warroomlabs/warroom/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	phaseStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	cardNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	statusRunning = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	statusDone = lipgloss.NewStyle().
			Foreground(lipgloss.Color("28"))

	statusFailed = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("⚔ WAR ROOM"))
	b.WriteString("  ")
	b.WriteString(subtitleStyle.Render(shorten(a.task, a.width-14)))
	b.WriteString("\n\n")

	b.WriteString(a.renderPhaseLine())
	b.WriteString("\n\n")

	if len(a.order) > 0 {
		b.WriteString(a.renderCards())
		b.WriteString("\n")
	}

	if a.done && a.finalError != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("✗ " + a.finalError))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.renderFooter())
	return b.String()
}

func (a *App) renderPhaseLine() string {
	if a.done {
		switch a.status {
		case models.PipelineStatusCompleted:
			return statusDone.Render("✓ Pipeline completed")
		case models.PipelineStatusCancelled:
			return footerStyle.Render("⊘ Pipeline cancelled")
		default:
			return statusFailed.Render("✗ Pipeline failed")
		}
	}
	label := a.phaseLabel
	if label == "" {
		label = "Starting"
	}
	if a.cancelling {
		label = "Cancelling"
	}
	return phaseStyle.Render(fmt.Sprintf("%s %s", a.spinner.View(), label))
}

// renderCards lays out one card per run in the current phase.
func (a *App) renderCards() string {
	cardWidth := 30
	perRow := a.width / (cardWidth + 2)
	if perRow < 1 {
		perRow = 1
	}

	var rows []string
	var row []string
	for _, id := range a.order {
		run := a.runs[id]
		row = append(row, a.renderCard(run, cardWidth))
		if len(row) == perRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) renderCard(run *runView, width int) string {
	var b strings.Builder

	name := run.personaName
	if run.personaIcon != "" {
		name = run.personaIcon + " " + name
	}
	b.WriteString(cardNameStyle.Render(shorten(name, width-4)))
	b.WriteString("\n")

	switch run.status {
	case models.RunStatusRunning:
		b.WriteString(statusRunning.Render(a.spinner.View() + " working"))
	case models.RunStatusCompleted:
		b.WriteString(statusDone.Render("✓ done"))
	case models.RunStatusFailed:
		b.WriteString(statusFailed.Render("✗ " + shorten(run.errMsg, width-6)))
	}
	b.WriteString("\n")

	if run.activeTool != "" {
		b.WriteString(toolStyle.Render(shorten(run.activeTool, width-4)))
		b.WriteString("\n")
	}
	if run.progress != "" {
		b.WriteString(progressStyle.Render(tailLines(run.progress, 4, width-4)))
	}

	return cardStyle.Width(width).Render(b.String())
}

func (a *App) renderFooter() string {
	stats := fmt.Sprintf("tokens: %d  cost: $%.4f", a.totalTokens, a.totalCost)
	help := "q: cancel"
	if a.done {
		help = "q: exit"
	}
	return footerStyle.Render(stats + "  ·  " + help)
}

// tailLines returns the last n lines of text, each clipped to width.
func tailLines(text string, n, width int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, line := range lines {
		lines[i] = shorten(line, width)
	}
	return strings.Join(lines, "\n")
}
