package domain

import (
	"fmt"
	"time"
)

// DurationUnit is the unit of a project's iteration length.
type DurationUnit string

const (
	DurationDays   DurationUnit = "DAYS"
	DurationWeeks  DurationUnit = "WEEKS"
	DurationMonths DurationUnit = "MONTHS"
)

// CapacityUnit is the unit a project measures capacity in.
type CapacityUnit string

const (
	CapacityStoryPoints CapacityUnit = "STORY_POINTS"
	CapacityTShirt      CapacityUnit = "T_SHIRT"
)

// ForecastUnit is the unit a project forecasts work in.
type ForecastUnit string

const (
	ForecastManDays ForecastUnit = "MAN_DAYS"
)

var (
	durationLabels = map[DurationUnit]string{
		DurationDays:   "Days",
		DurationWeeks:  "Weeks",
		DurationMonths: "Months",
	}
	capacityLabels = map[CapacityUnit]string{
		CapacityStoryPoints: "Story Points",
		CapacityTShirt:      "T Shirt Size",
	}
	forecastLabels = map[ForecastUnit]string{
		ForecastManDays: "Man Days",
	}
)

// Valid reports whether u is a known unit.
func (u DurationUnit) Valid() bool {
	_, ok := durationLabels[u]
	return ok
}

// Label returns the display name of u, or u itself when unknown.
func (u DurationUnit) Label() string { return labelOr(durationLabels, u) }

// Valid reports whether u is a known unit.
func (u CapacityUnit) Valid() bool {
	_, ok := capacityLabels[u]
	return ok
}

// Label returns the display name of u, or u itself when unknown.
func (u CapacityUnit) Label() string { return labelOr(capacityLabels, u) }

// Valid reports whether u is a known unit.
func (u ForecastUnit) Valid() bool {
	_, ok := forecastLabels[u]
	return ok
}

// Label returns the display name of u, or u itself when unknown.
func (u ForecastUnit) Label() string { return labelOr(forecastLabels, u) }

func labelOr[U ~string](labels map[U]string, u U) string {
	if label, ok := labels[u]; ok {
		return label
	}
	return string(u)
}

// ProjectConfiguration describes how a project plans its iterations. A
// project keeps its past configurations; at most one is active.
type ProjectConfiguration struct {
	ID                    string       `json:"id"`
	ProjectID             string       `json:"project_id"`
	IterationDuration     int          `json:"iteration_duration"`
	IterationDurationUnit DurationUnit `json:"iteration_duration_unit"`
	CapacityUnit          CapacityUnit `json:"capacity_unit"`
	ForecastUnit          ForecastUnit `json:"forecast_unit"`
	Active                bool         `json:"active"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// IterationLength formats the iteration length, e.g. "2 Weeks".
func (c ProjectConfiguration) IterationLength() string {
	return fmt.Sprintf("%d %s", c.IterationDuration, c.IterationDurationUnit.Label())
}
