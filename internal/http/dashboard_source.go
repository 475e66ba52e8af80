package httpx

import (
	"context"
	"errors"
	"fmt"

	"github.com/teamtempo/tempo/internal/dashboard"
	"github.com/teamtempo/tempo/internal/repository"
	"github.com/teamtempo/tempo/internal/service/project"
	"github.com/teamtempo/tempo/internal/service/team"
)

// serviceSource feeds a dashboard session straight from the services, on
// behalf of one user.
type serviceSource struct {
	userID  string
	team    team.Service
	project project.Service
}

func (s serviceSource) FetchMyTeams(ctx context.Context) ([]dashboard.Team, error) {
	teams, err := s.team.ListMine(ctx, s.userID)
	if err != nil {
		return nil, sourceError(err)
	}
	return dashboard.TeamsFromDomain(teams), nil
}

func (s serviceSource) FetchProjectDetail(ctx context.Context, projectID string) (dashboard.ProjectDetail, error) {
	detail, err := s.project.Detail(ctx, s.userID, projectID)
	if err != nil {
		return dashboard.ProjectDetail{}, sourceError(err)
	}
	return dashboard.DetailFromDomain(*detail), nil
}

func sourceError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, project.ErrInvalid):
		return fmt.Errorf("%w: %v", dashboard.ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %v", dashboard.ErrNetwork, err)
	}
}
