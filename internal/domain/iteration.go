package domain

import "time"

// Iteration is one time-boxed cycle of a project with its planned and
// actual capacity and story-point figures.
type Iteration struct {
	ID               string     `json:"id"`
	ProjectID        string     `json:"project_id"`
	Name             string     `json:"name"`
	PlannedStartDate *time.Time `json:"planned_start_date,omitempty"`
	PlannedEndDate   *time.Time `json:"planned_end_date,omitempty"`
	ActualStartDate  *time.Time `json:"actual_start_date,omitempty"`
	ActualEndDate    *time.Time `json:"actual_end_date,omitempty"`
	PlannedCapacity  float64    `json:"planned_capacity"`
	ActualCapacity   float64    `json:"actual_capacity"`
	PlannedForecast  float64    `json:"planned_forecast"`
	ActualForecast   float64    `json:"actual_forecast"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
