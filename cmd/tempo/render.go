package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/teamtempo/tempo/internal/dashboard"
	"github.com/teamtempo/tempo/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	aheadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	behindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

func renderTeams(teams []domain.TeamWithProjects) string {
	if len(teams) == 0 {
		return mutedStyle.Render("no teams yet")
	}
	var b strings.Builder
	for _, t := range teams {
		b.WriteString(titleStyle.Render(t.Name))
		b.WriteString(" " + mutedStyle.Render(t.ID) + "\n")
		if len(t.Projects) == 0 {
			b.WriteString("  " + mutedStyle.Render("no projects") + "\n")
			continue
		}
		for _, p := range t.Projects {
			fmt.Fprintf(&b, "  %s %s\n", p.Name, mutedStyle.Render(p.ID))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderView(v dashboard.View) string {
	if v.TeamsError != "" {
		return errorStyle.Render(v.TeamsError)
	}
	if len(v.Teams) == 0 {
		return mutedStyle.Render("no teams yet")
	}

	header := []string{
		row("Team", nameOr(v.SelectedTeam)),
		row("Project", summaryName(v.SelectedProject)),
		row("Iteration", iterationName(v.SelectedIteration)),
	}
	if u := v.Units; u != nil {
		header = append(header, row("Units", fmt.Sprintf("%s, %s forecast, %s iterations", u.Capacity, u.Forecast, u.IterationLength)))
	}
	sections := []string{cardStyle.Render(strings.Join(header, "\n"))}

	if v.ProjectError != "" {
		sections = append(sections, errorStyle.Render(v.ProjectError))
	}
	if v.ProjectLoading {
		sections = append(sections, mutedStyle.Render("loading iterations..."))
	}
	if v.SelectedIteration != nil {
		capacity := []string{
			titleStyle.Render("Capacity"),
			row("Projected", formatFigure(v.CapacityProjected)),
			row("Performed", formatFigure(v.CapacityPerformed)),
			row("Performed %", formatFigure(v.CapacityPercentage)+"%"),
			row("Difference", difference(v.CapacityDifference)),
		}
		points := []string{
			titleStyle.Render("Story points"),
			row("Projected", formatFigure(v.StoryPointsProjected)),
			row("Delivered", formatFigure(v.StoryPointsDelivered)),
			row("Delivered %", formatFigure(v.StoryPointsPercentage)+"%"),
			row("Difference", difference(v.StoryPointsDifference)),
		}
		dates := []string{
			titleStyle.Render("Dates"),
			row("Planned", dateRange(v.PlannedStart, v.PlannedEnd)),
			row("Actual", dateRange(v.ActualStart, v.ActualEnd)),
		}
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
			cardStyle.Render(strings.Join(capacity, "\n")),
			cardStyle.Render(strings.Join(points, "\n")),
			cardStyle.Render(strings.Join(dates, "\n")),
		))
	} else if !v.ProjectLoading && v.SelectedProject != nil {
		sections = append(sections, mutedStyle.Render("no iterations recorded"))
	}

	if len(v.AvailableIterations) > 1 {
		names := make([]string, 0, len(v.AvailableIterations))
		for _, it := range v.AvailableIterations {
			name := it.Name
			if name == "" {
				name = it.ID
			}
			if it.ID == v.Selection.IterationID {
				name = titleStyle.Render(name)
			}
			names = append(names, name)
		}
		sections = append(sections, mutedStyle.Render("iterations: ")+strings.Join(names, mutedStyle.Render(" · ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func nameOr(t *dashboard.Team) string {
	if t == nil {
		return mutedStyle.Render("none")
	}
	return t.Name
}

func summaryName(p *dashboard.ProjectSummary) string {
	if p == nil {
		return mutedStyle.Render("none")
	}
	return p.Name
}

func iterationName(it *dashboard.Iteration) string {
	switch {
	case it == nil:
		return mutedStyle.Render("none")
	case it.Name == "":
		return it.ID
	default:
		return it.Name
	}
}

func formatFigure(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func difference(v float64) string {
	switch {
	case v > 0:
		return aheadStyle.Render("+" + formatFigure(v))
	case v < 0:
		return behindStyle.Render(formatFigure(v))
	default:
		return "0"
	}
}

func dateRange(start, end string) string {
	if start == "" && end == "" {
		return mutedStyle.Render("not set")
	}
	if start == "" {
		start = "?"
	}
	if end == "" {
		end = "?"
	}
	return start + " – " + end
}
