package dashboard

import "time"

// Team is a team as listed on the dashboard, together with the summaries of
// its projects in display order.
type Team struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Projects []ProjectSummary `json:"projects"`
}

// ProjectSummary is the lightweight project entry embedded in a Team. It
// does not carry iterations.
type ProjectSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectDetail is a project with its iterations. Details are fetched
// lazily, one project at a time.
type ProjectDetail struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Units      *Units      `json:"units,omitempty"`
	Iterations []Iteration `json:"iterations"`
}

// Units are the display labels of a project's configured units. A project
// without a configuration has none.
type Units struct {
	Capacity        string `json:"capacity"`
	Forecast        string `json:"forecast"`
	IterationLength string `json:"iteration_length"`
}

// Iteration holds the planned and actual figures of one iteration.
// Forecast figures are story points.
type Iteration struct {
	ID               string     `json:"id"`
	Name             string     `json:"name,omitempty"`
	PlannedStartDate *time.Time `json:"planned_start_date,omitempty"`
	PlannedEndDate   *time.Time `json:"planned_end_date,omitempty"`
	ActualStartDate  *time.Time `json:"actual_start_date,omitempty"`
	ActualEndDate    *time.Time `json:"actual_end_date,omitempty"`
	PlannedCapacity  float64    `json:"planned_capacity"`
	ActualCapacity   float64    `json:"actual_capacity"`
	PlannedForecast  float64    `json:"planned_forecast"`
	ActualForecast   float64    `json:"actual_forecast"`
}

// Selection identifies the selected team, project and iteration. An empty
// id means nothing is selected at that level.
type Selection struct {
	TeamID      string `json:"team_id"`
	ProjectID   string `json:"project_id"`
	IterationID string `json:"iteration_id"`
}
