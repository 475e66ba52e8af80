package project

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/teamtempo/tempo/internal/domain"
	"github.com/teamtempo/tempo/internal/repository"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 1000
	maxIterationDuration = 366

	detailLookupTimeout = 15 * time.Second
)

// ErrInvalid wraps every project and iteration validation failure.
var ErrInvalid = errors.New("invalid project")

var (
	errNameRequired   = fmt.Errorf("%w: name is required", ErrInvalid)
	errNameTooLong    = fmt.Errorf("%w: name must be at most %d characters", ErrInvalid, maxNameLength)
	errDescTooLong    = fmt.Errorf("%w: description must be at most %d characters", ErrInvalid, maxDescriptionLength)
	errStartRequired  = fmt.Errorf("%w: start date is required", ErrInvalid)
	errEndBeforeStart = fmt.Errorf("%w: end date is before start date", ErrInvalid)
	errIDMismatch     = fmt.Errorf("%w: project id does not match the path", ErrInvalid)
	errNegativeFigure = fmt.Errorf("%w: capacity and forecast must be non-negative numbers", ErrInvalid)
	errDuration       = fmt.Errorf("%w: iteration duration must be between 1 and %d", ErrInvalid, maxIterationDuration)
)

// Input carries the editable attributes of a project. Dates use
// domain.DateLayout. A nil Active keeps the current value, or true on create.
type Input struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Active      *bool  `json:"active,omitempty"`

	// Configuration replaces the active configuration when set.
	Configuration *ConfigurationInput `json:"project_configuration,omitempty"`
}

// ConfigurationInput carries a project configuration. Units use the
// domain codes, e.g. WEEKS, STORY_POINTS and MAN_DAYS.
type ConfigurationInput struct {
	IterationDuration     int                 `json:"iteration_duration"`
	IterationDurationUnit domain.DurationUnit `json:"iteration_duration_unit"`
	CapacityUnit          domain.CapacityUnit `json:"capacity_unit"`
	ForecastUnit          domain.ForecastUnit `json:"forecast_unit"`
}

// IterationInput carries the attributes of a new iteration.
type IterationInput struct {
	Name             string  `json:"name"`
	PlannedStartDate string  `json:"planned_start_date,omitempty"`
	PlannedEndDate   string  `json:"planned_end_date,omitempty"`
	ActualStartDate  string  `json:"actual_start_date,omitempty"`
	ActualEndDate    string  `json:"actual_end_date,omitempty"`
	PlannedCapacity  float64 `json:"planned_capacity"`
	ActualCapacity   float64 `json:"actual_capacity"`
	PlannedForecast  float64 `json:"planned_forecast"`
	ActualForecast   float64 `json:"actual_forecast"`
}

// Service orchestrates project management. Every operation is scoped to the
// owner of the project's team; projects of other owners are not found.
type Service struct {
	projects       repository.ProjectRepository
	iterations     repository.IterationRepository
	configurations repository.ConfigurationRepository
	teams          repository.TeamRepository
	logger         *slog.Logger
	details        *singleflight.Group
}

// New returns a project service.
func New(projects repository.ProjectRepository, iterations repository.IterationRepository, configurations repository.ConfigurationRepository, teams repository.TeamRepository, logger *slog.Logger) Service {
	return Service{
		projects:       projects,
		iterations:     iterations,
		configurations: configurations,
		teams:          teams,
		logger:         logger,
		details:        &singleflight.Group{},
	}
}

// ListByTeam returns the team's projects ordered by name.
func (s Service) ListByTeam(ctx context.Context, ownerID, teamID string) ([]domain.Project, error) {
	if _, err := s.ownedTeam(ctx, ownerID, teamID); err != nil {
		return nil, err
	}
	return s.projects.ListProjectsByTeam(ctx, teamID)
}

// Create adds a project to one of the owner's teams.
func (s Service) Create(ctx context.Context, ownerID, teamID string, input Input) (*domain.Project, error) {
	if _, err := s.ownedTeam(ctx, ownerID, teamID); err != nil {
		return nil, err
	}
	project := &domain.Project{
		ID:     uuid.NewString(),
		TeamID: teamID,
		Active: true,
	}
	if err := apply(project, input); err != nil {
		return nil, err
	}
	cfg, err := newConfiguration(project.ID, input.Configuration)
	if err != nil {
		return nil, err
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	if err := s.activate(ctx, project, cfg); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", project.ID, "team_id", project.TeamID)
	return project, nil
}

// Get returns a project owned through its team by ownerID.
func (s Service) Get(ctx context.Context, ownerID, projectID string) (*domain.Project, error) {
	if err := validateID(projectID); err != nil {
		return nil, err
	}
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTeam(ctx, ownerID, project.TeamID); err != nil {
		return nil, err
	}
	cfg, err := s.configurations.GetActiveConfiguration(ctx, project.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		project.Configuration = cfg
	}
	return project, nil
}

// Update replaces a project's attributes.
func (s Service) Update(ctx context.Context, ownerID, projectID string, input Input) (*domain.Project, error) {
	project, err := s.Get(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	if id := strings.TrimSpace(input.ID); id != "" && id != projectID {
		return nil, errIDMismatch
	}
	if err := apply(project, input); err != nil {
		return nil, err
	}
	cfg, err := newConfiguration(project.ID, input.Configuration)
	if err != nil {
		return nil, err
	}
	if err := s.projects.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	if err := s.activate(ctx, project, cfg); err != nil {
		return nil, err
	}
	s.logger.Info("project updated", "project_id", project.ID)
	return project, nil
}

// Delete removes a project and its iterations.
func (s Service) Delete(ctx context.Context, ownerID, projectID string) error {
	project, err := s.Get(ctx, ownerID, projectID)
	if err != nil {
		return err
	}
	if err := s.projects.DeleteProject(ctx, project.ID); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", project.ID, "team_id", project.TeamID)
	return nil
}

// Detail returns a project with its iterations ordered by planned start
// date and its active configuration. Concurrent calls for the same owner and
// project share one lookup. The shared lookup outlives a cancelled caller and
// is bounded by detailLookupTimeout.
func (s Service) Detail(ctx context.Context, ownerID, projectID string) (*domain.ProjectDetail, error) {
	ch := s.details.DoChan(ownerID+"/"+projectID, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detailLookupTimeout)
		defer cancel()
		project, err := s.Get(lookupCtx, ownerID, projectID)
		if err != nil {
			return nil, err
		}
		iterations, err := s.iterations.ListIterationsByProject(lookupCtx, project.ID)
		if err != nil {
			return nil, err
		}
		return domain.ProjectDetail{Project: *project, Iterations: iterations}, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("project detail shared", "project_id", projectID)
		}
		detail := res.Val.(domain.ProjectDetail)
		return &detail, nil
	}
}

// AddIteration records a new iteration for a project.
func (s Service) AddIteration(ctx context.Context, ownerID, projectID string, input IterationInput) (*domain.Iteration, error) {
	project, err := s.Get(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	iteration, err := newIteration(project.ID, input)
	if err != nil {
		return nil, err
	}
	if err := s.iterations.CreateIteration(ctx, iteration); err != nil {
		return nil, err
	}
	s.logger.Info("iteration created", "iteration_id", iteration.ID, "project_id", project.ID)
	return iteration, nil
}

// activate stores cfg as the project's active configuration. A nil cfg
// leaves the current configuration in place.
func (s Service) activate(ctx context.Context, project *domain.Project, cfg *domain.ProjectConfiguration) error {
	if cfg == nil {
		return nil
	}
	if err := s.configurations.ActivateConfiguration(ctx, cfg); err != nil {
		return err
	}
	project.Configuration = cfg
	s.logger.Info("project configuration activated", "project_id", project.ID, "configuration_id", cfg.ID)
	return nil
}

func (s Service) ownedTeam(ctx context.Context, ownerID, teamID string) (*domain.Team, error) {
	if err := validateID(teamID); err != nil {
		return nil, err
	}
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.OwnerID != ownerID {
		s.logger.Warn("access to foreign team", "team_id", teamID, "user_id", ownerID)
		return nil, repository.ErrNotFound
	}
	return team, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q is not a valid id", ErrInvalid, id)
	}
	return nil
}

func validateName(value string) (string, error) {
	name := strings.TrimSpace(value)
	switch {
	case name == "":
		return "", errNameRequired
	case utf8.RuneCountInString(name) > maxNameLength:
		return "", errNameTooLong
	}
	return name, nil
}

func apply(project *domain.Project, input Input) error {
	name, err := validateName(input.Name)
	if err != nil {
		return err
	}
	description := strings.TrimSpace(input.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return errDescTooLong
	}
	start, end, err := parseRange("", input.StartDate, input.EndDate)
	if err != nil {
		return err
	}
	if start == nil {
		return errStartRequired
	}
	project.Name = name
	project.Description = description
	project.StartDate = *start
	project.EndDate = end
	if input.Active != nil {
		project.Active = *input.Active
	}
	return nil
}

func newConfiguration(projectID string, input *ConfigurationInput) (*domain.ProjectConfiguration, error) {
	if input == nil {
		return nil, nil
	}
	if input.IterationDuration < 1 || input.IterationDuration > maxIterationDuration {
		return nil, errDuration
	}
	if !input.IterationDurationUnit.Valid() {
		return nil, fmt.Errorf("%w: unknown iteration duration unit %q", ErrInvalid, input.IterationDurationUnit)
	}
	if !input.CapacityUnit.Valid() {
		return nil, fmt.Errorf("%w: unknown capacity unit %q", ErrInvalid, input.CapacityUnit)
	}
	if !input.ForecastUnit.Valid() {
		return nil, fmt.Errorf("%w: unknown forecast unit %q", ErrInvalid, input.ForecastUnit)
	}
	return &domain.ProjectConfiguration{
		ID:                    uuid.NewString(),
		ProjectID:             projectID,
		IterationDuration:     input.IterationDuration,
		IterationDurationUnit: input.IterationDurationUnit,
		CapacityUnit:          input.CapacityUnit,
		ForecastUnit:          input.ForecastUnit,
		Active:                true,
	}, nil
}

func newIteration(projectID string, input IterationInput) (*domain.Iteration, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	plannedStart, plannedEnd, err := parseRange("planned ", input.PlannedStartDate, input.PlannedEndDate)
	if err != nil {
		return nil, err
	}
	actualStart, actualEnd, err := parseRange("actual ", input.ActualStartDate, input.ActualEndDate)
	if err != nil {
		return nil, err
	}
	for _, v := range []float64{input.PlannedCapacity, input.ActualCapacity, input.PlannedForecast, input.ActualForecast} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errNegativeFigure
		}
	}
	return &domain.Iteration{
		ID:               uuid.NewString(),
		ProjectID:        projectID,
		Name:             name,
		PlannedStartDate: plannedStart,
		PlannedEndDate:   plannedEnd,
		ActualStartDate:  actualStart,
		ActualEndDate:    actualEnd,
		PlannedCapacity:  input.PlannedCapacity,
		ActualCapacity:   input.ActualCapacity,
		PlannedForecast:  input.PlannedForecast,
		ActualForecast:   input.ActualForecast,
	}, nil
}

func parseRange(label, startValue, endValue string) (*time.Time, *time.Time, error) {
	start, err := domain.ParseDate(startValue)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %sstart date: %v", ErrInvalid, label, err)
	}
	end, err := domain.ParseDate(endValue)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %send date: %v", ErrInvalid, label, err)
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, errEndBeforeStart
	}
	return start, end, nil
}
