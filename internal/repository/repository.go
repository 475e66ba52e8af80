package repository

import (
	"context"

	"github.com/teamtempo/tempo/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// TeamRepository manages teams. Teams are always scoped to their owner.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team) error
	UpdateTeam(ctx context.Context, team *domain.Team) error
	GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error)
	ListTeamsByOwner(ctx context.Context, ownerID string) ([]domain.TeamWithProjects, error)
	DeleteTeams(ctx context.Context, ownerID string, teamIDs []string) (int64, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	UpdateProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, projectID string) error
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjectsByTeam(ctx context.Context, teamID string) ([]domain.Project, error)
}

// IterationRepository persists iterations.
type IterationRepository interface {
	CreateIteration(ctx context.Context, iteration *domain.Iteration) error
	ListIterationsByProject(ctx context.Context, projectID string) ([]domain.Iteration, error)
}

// ConfigurationRepository persists project configurations.
type ConfigurationRepository interface {
	// ActivateConfiguration stores cfg as the project's only active
	// configuration. Earlier configurations are kept inactive.
	ActivateConfiguration(ctx context.Context, cfg *domain.ProjectConfiguration) error
	// GetActiveConfiguration returns ErrNotFound when the project has none.
	GetActiveConfiguration(ctx context.Context, projectID string) (*domain.ProjectConfiguration, error)
}
