package team

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"log/slog"

	"github.com/google/uuid"

	"github.com/teamtempo/tempo/internal/domain"
	"github.com/teamtempo/tempo/internal/repository"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 1000
)

// ErrInvalid wraps every team validation failure.
var ErrInvalid = errors.New("invalid team")

var (
	errNameRequired   = fmt.Errorf("%w: name is required", ErrInvalid)
	errNameTooLong    = fmt.Errorf("%w: name must be at most %d characters", ErrInvalid, maxNameLength)
	errDescTooLong    = fmt.Errorf("%w: description must be at most %d characters", ErrInvalid, maxDescriptionLength)
	errStartRequired  = fmt.Errorf("%w: start date is required", ErrInvalid)
	errEndBeforeStart = fmt.Errorf("%w: end date is before start date", ErrInvalid)
	errIDOnCreate     = fmt.Errorf("%w: a new team must not carry an id", ErrInvalid)
	errIDMismatch     = fmt.Errorf("%w: team id does not match the path", ErrInvalid)
	errNoIDs          = fmt.Errorf("%w: at least one team id is required", ErrInvalid)
)

// Input carries the editable attributes of a team. Dates use domain.DateLayout.
type Input struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
}

// Service handles team workflows.
type Service struct {
	repo   repository.TeamRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(repo repository.TeamRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger}
}

// ListMine returns the owner's teams with their project summaries.
func (s Service) ListMine(ctx context.Context, ownerID string) ([]domain.TeamWithProjects, error) {
	teams, err := s.repo.ListTeamsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("teams listed", "owner_id", ownerID, "count", len(teams))
	return teams, nil
}

// Get returns a team owned by ownerID. Teams of other owners are reported
// as not found.
func (s Service) Get(ctx context.Context, ownerID, teamID string) (*domain.Team, error) {
	if err := ValidateID(teamID); err != nil {
		return nil, err
	}
	team, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return team, nil
}

// Create registers a team for the owner.
func (s Service) Create(ctx context.Context, ownerID string, input Input) (*domain.Team, error) {
	if strings.TrimSpace(input.ID) != "" {
		return nil, errIDOnCreate
	}
	team := &domain.Team{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
	}
	if err := apply(team, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	s.logger.Info("team created", "team_id", team.ID, "owner_id", ownerID)
	return team, nil
}

// Update replaces a team's attributes. When input carries an id it must
// match teamID.
func (s Service) Update(ctx context.Context, ownerID, teamID string, input Input) (*domain.Team, error) {
	team, err := s.Get(ctx, ownerID, teamID)
	if err != nil {
		return nil, err
	}
	if id := strings.TrimSpace(input.ID); id != "" && id != teamID {
		s.logger.Warn("team id mismatch", "path_id", teamID, "body_id", id)
		return nil, errIDMismatch
	}
	if err := apply(team, input); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTeam(ctx, team); err != nil {
		return nil, err
	}
	s.logger.Info("team updated", "team_id", team.ID)
	return team, nil
}

// Delete removes one team with its projects and iterations.
func (s Service) Delete(ctx context.Context, ownerID, teamID string) error {
	if err := ValidateID(teamID); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteTeams(ctx, ownerID, []string{teamID})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}
	s.logger.Info("team deleted", "team_id", teamID)
	return nil
}

// DeleteMany removes the listed teams and returns how many were deleted.
// Unknown ids are skipped.
func (s Service) DeleteMany(ctx context.Context, ownerID string, teamIDs []string) (int64, error) {
	if len(teamIDs) == 0 {
		return 0, errNoIDs
	}
	unique := make([]string, 0, len(teamIDs))
	seen := make(map[string]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		if err := ValidateID(id); err != nil {
			return 0, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	deleted, err := s.repo.DeleteTeams(ctx, ownerID, unique)
	if err != nil {
		return 0, err
	}
	if deleted != int64(len(unique)) {
		s.logger.Warn("some teams not found for deletion", "requested", len(unique), "deleted", deleted)
	}
	s.logger.Info("teams deleted", "owner_id", ownerID, "count", deleted)
	return deleted, nil
}

// ValidateID reports whether id is a well-formed team id.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q is not a valid id", ErrInvalid, id)
	}
	return nil
}

func apply(team *domain.Team, input Input) error {
	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		return errNameRequired
	case utf8.RuneCountInString(name) > maxNameLength:
		return errNameTooLong
	}
	description := strings.TrimSpace(input.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return errDescTooLong
	}
	start, err := domain.ParseDate(input.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start date: %v", ErrInvalid, err)
	}
	if start == nil {
		return errStartRequired
	}
	end, err := domain.ParseDate(input.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end date: %v", ErrInvalid, err)
	}
	if end != nil && end.Before(*start) {
		return errEndBeforeStart
	}
	team.Name = name
	team.Description = description
	team.StartDate = *start
	team.EndDate = end
	return nil
}
