package domain

import "time"

// Project is a body of work delivered by a team in iterations.
type Project struct {
	ID          string     `json:"id"`
	TeamID      string     `json:"team_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Configuration is the active configuration, nil when none was set.
	Configuration *ProjectConfiguration `json:"project_configuration,omitempty"`
}

// ProjectSummary is the part of a project listed under its team.
type ProjectSummary struct {
	ID     string `json:"id"`
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
}

// ProjectDetail is a project with its iterations ordered by planned start.
type ProjectDetail struct {
	Project
	Iterations []Iteration `json:"iterations"`
}
