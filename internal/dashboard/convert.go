package dashboard

import "github.com/teamtempo/tempo/internal/domain"

// TeamsFromDomain converts stored teams to dashboard teams, keeping order.
func TeamsFromDomain(teams []domain.TeamWithProjects) []Team {
	out := make([]Team, 0, len(teams))
	for _, t := range teams {
		projects := make([]ProjectSummary, 0, len(t.Projects))
		for _, p := range t.Projects {
			projects = append(projects, ProjectSummary{ID: p.ID, Name: p.Name})
		}
		out = append(out, Team{ID: t.ID, Name: t.Name, Projects: projects})
	}
	return out
}

// DetailFromDomain converts a stored project detail, keeping iteration order.
func DetailFromDomain(detail domain.ProjectDetail) ProjectDetail {
	iterations := make([]Iteration, 0, len(detail.Iterations))
	for _, it := range detail.Iterations {
		iterations = append(iterations, Iteration{
			ID:               it.ID,
			Name:             it.Name,
			PlannedStartDate: it.PlannedStartDate,
			PlannedEndDate:   it.PlannedEndDate,
			ActualStartDate:  it.ActualStartDate,
			ActualEndDate:    it.ActualEndDate,
			PlannedCapacity:  it.PlannedCapacity,
			ActualCapacity:   it.ActualCapacity,
			PlannedForecast:  it.PlannedForecast,
			ActualForecast:   it.ActualForecast,
		})
	}
	out := ProjectDetail{ID: detail.ID, Name: detail.Name, Iterations: iterations}
	if cfg := detail.Configuration; cfg != nil {
		out.Units = &Units{
			Capacity:        cfg.CapacityUnit.Label(),
			Forecast:        cfg.ForecastUnit.Label(),
			IterationLength: cfg.IterationLength(),
		}
	}
	return out
}
