package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/teamtempo/tempo/internal/dashboard"
	apiclient "github.com/teamtempo/tempo/pkg/api/client"
)

// apiSource feeds a dashboard session from the HTTP API.
type apiSource struct {
	client *apiclient.Client
	token  string
}

func (s apiSource) FetchMyTeams(ctx context.Context) ([]dashboard.Team, error) {
	teams, err := s.client.ListTeams(ctx, s.token)
	if err != nil {
		return nil, classify(err)
	}
	return dashboard.TeamsFromDomain(teams), nil
}

func (s apiSource) FetchProjectDetail(ctx context.Context, projectID string) (dashboard.ProjectDetail, error) {
	detail, err := s.client.GetProjectDetail(ctx, s.token, projectID)
	if err != nil {
		return dashboard.ProjectDetail{}, classify(err)
	}
	return dashboard.DetailFromDomain(detail), nil
}

// classify wraps client errors in the dashboard error kinds.
func classify(err error) error {
	var apiErr apiclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", dashboard.ErrAuth, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", dashboard.ErrNotFound, err)
		}
	}
	return fmt.Errorf("%w: %v", dashboard.ErrNetwork, err)
}
