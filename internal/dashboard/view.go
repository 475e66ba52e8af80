package dashboard

import "time"

// DateLayout is the layout used for the formatted iteration dates of a View.
const DateLayout = "Jan 2, 2006"

// View is the read model of the dashboard, derived from a State.
type View struct {
	Selection Selection `json:"selection"`
	Teams     []Team    `json:"teams"`

	SelectedTeam      *Team           `json:"selected_team,omitempty"`
	SelectedProject   *ProjectSummary `json:"selected_project,omitempty"`
	SelectedIteration *Iteration      `json:"selected_iteration,omitempty"`

	AvailableProjects   []ProjectSummary `json:"available_projects"`
	AvailableIterations []Iteration      `json:"available_iterations"`
	Units               *Units           `json:"units,omitempty"`

	CapacityProjected     float64 `json:"capacity_projected"`
	CapacityPerformed     float64 `json:"capacity_performed"`
	CapacityPercentage    float64 `json:"capacity_percentage"`
	CapacityDifference    float64 `json:"capacity_difference"`
	StoryPointsProjected  float64 `json:"story_points_projected"`
	StoryPointsDelivered  float64 `json:"story_points_delivered"`
	StoryPointsPercentage float64 `json:"story_points_percentage"`
	StoryPointsDifference float64 `json:"story_points_difference"`

	PlannedStart string `json:"planned_start,omitempty"`
	PlannedEnd   string `json:"planned_end,omitempty"`
	ActualStart  string `json:"actual_start,omitempty"`
	ActualEnd    string `json:"actual_end,omitempty"`

	TeamsLoading   bool   `json:"teams_loading"`
	TeamsError     string `json:"teams_error,omitempty"`
	ProjectLoading bool   `json:"project_loading"`
	ProjectError   string `json:"project_error,omitempty"`
}

// Derive computes the View for s.
func Derive(s State) View {
	h := s.Hierarchy
	v := View{
		Selection:           s.Selection,
		Teams:               h.teams,
		AvailableProjects:   []ProjectSummary{},
		AvailableIterations: []Iteration{},
		TeamsLoading:        h.teamsLoading,
		TeamsError:          teamsMessage(h.teamsErr),
	}
	if v.Teams == nil {
		v.Teams = []Team{}
	}

	team, ok := resolveTeam(h.teams, s.Selection.TeamID)
	if !ok {
		return v
	}
	v.SelectedTeam = &team
	if len(team.Projects) > 0 {
		v.AvailableProjects = team.Projects
	}

	project, ok := resolveProject(team.Projects, s.Selection.ProjectID)
	if !ok {
		return v
	}
	v.SelectedProject = &project
	v.ProjectLoading = h.DetailLoading(project.ID)
	v.ProjectError = projectMessage(h.DetailErr(project.ID))

	detail, ok := h.Detail(project.ID)
	if !ok {
		return v
	}
	v.Units = detail.Units
	if len(detail.Iterations) > 0 {
		v.AvailableIterations = detail.Iterations
	}
	iteration, ok := resolveIteration(detail.Iterations, s.Selection.IterationID)
	if !ok {
		return v
	}
	v.SelectedIteration = &iteration

	v.CapacityProjected = iteration.PlannedCapacity
	v.CapacityPerformed = iteration.ActualCapacity
	v.StoryPointsProjected = iteration.PlannedForecast
	v.StoryPointsDelivered = iteration.ActualForecast
	v.CapacityPercentage = Percentage(v.CapacityProjected, v.CapacityPerformed)
	v.CapacityDifference = Difference(v.CapacityProjected, v.CapacityPerformed)
	v.StoryPointsPercentage = Percentage(v.StoryPointsProjected, v.StoryPointsDelivered)
	v.StoryPointsDifference = Difference(v.StoryPointsProjected, v.StoryPointsDelivered)

	v.PlannedStart = formatDate(iteration.PlannedStartDate)
	v.PlannedEnd = formatDate(iteration.PlannedEndDate)
	v.ActualStart = formatDate(iteration.ActualStartDate)
	v.ActualEnd = formatDate(iteration.ActualEndDate)
	return v
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
