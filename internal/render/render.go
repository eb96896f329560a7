// Package render formats audit reports for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JakeFAU/website-audit/internal/audit"
)

const boxWidth = 76

var taskTitles = map[audit.TaskName]string{
	audit.TaskBusiness:   "Business clarity",
	audit.TaskStyle:      "Style consistency",
	audit.TaskHero:       "Hero section",
	audit.TaskProblem:    "Problem / solution",
	audit.TaskSEO:        "SEO",
	audit.TaskConversion: "Conversion",
}

// Report writes a boxed summary of report to w. Colors are only emitted when
// w is a terminal.
func Report(w io.Writer, id string, report audit.Report) error {
	r := lipgloss.NewRenderer(w)

	titleStyle := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	mutedStyle := r.NewStyle().Foreground(lipgloss.Color("#999999"))
	boxStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#874BFD")).
		Padding(0, 1).
		Width(boxWidth)

	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Website audit: "+report.WebsiteURL),
		mutedStyle.Render(fmt.Sprintf("id %s  ·  scoring %s  ·  %s", id, report.ScoringMode,
			report.Timestamp.UTC().Format("2006-01-02 15:04:05Z"))),
		scoreStyle(r, report.OverallScore).Render(fmt.Sprintf("Overall score: %d/100", report.OverallScore)),
	)

	sections := []string{header}
	for _, name := range audit.TaskNames() {
		result, ok := report.Agents[name]
		if !ok {
			continue
		}
		sections = append(sections, boxStyle.Render(agentBlock(r, name, result, report.AgentSources[name])))
	}

	var recs strings.Builder
	recs.WriteString(r.NewStyle().Bold(true).Render("Top recommendations"))
	for i, rec := range report.TopRecommendations {
		fmt.Fprintf(&recs, "\n%d. %s", i+1, rec)
	}
	sections = append(sections, boxStyle.BorderForeground(lipgloss.Color("#04B575")).Render(recs.String()))

	if _, err := io.WriteString(w, lipgloss.JoinVertical(lipgloss.Left, sections...)+"\n"); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func agentBlock(r *lipgloss.Renderer, name audit.TaskName, result audit.AgentResult, source audit.Source) string {
	title := taskTitles[name]
	if title == "" {
		title = string(name)
	}
	head := fmt.Sprintf("%s  %s", r.NewStyle().Bold(true).Render(title),
		scoreStyle(r, result.Score).Render(fmt.Sprintf("%d", result.Score)))
	if source == audit.SourceFallback {
		head += r.NewStyle().Foreground(lipgloss.Color("#999999")).Render("  (fallback)")
	}

	lines := []string{head}
	for _, insight := range result.Insights {
		lines = append(lines, "• "+insight)
	}
	for _, rec := range result.Recommendations {
		lines = append(lines, "→ "+rec)
	}
	return strings.Join(lines, "\n")
}

func scoreStyle(r *lipgloss.Renderer, score int) lipgloss.Style {
	color := lipgloss.Color("#FF6B6B")
	switch {
	case score >= 80:
		color = lipgloss.Color("#04B575")
	case score >= 60:
		color = lipgloss.Color("#F4C542")
	}
	return r.NewStyle().Bold(true).Foreground(color)
}
