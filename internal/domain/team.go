package domain

import "time"

// Team groups the projects whose iterations are tracked on the dashboard.
type Team struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TeamWithProjects is a team together with the summaries of its projects,
// ordered by name.
type TeamWithProjects struct {
	Team
	Projects []ProjectSummary `json:"projects"`
}
