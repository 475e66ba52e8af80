package httpx

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/teamtempo/tempo/internal/domain"
	"github.com/teamtempo/tempo/internal/repository"
)

// memoryStore implements every repository interface in memory.
type memoryStore struct {
	mu         sync.Mutex
	users      map[string]domain.User
	teams      map[string]domain.Team
	projects   map[string]domain.Project
	iterations map[string][]domain.Iteration
	configs    map[string][]domain.ProjectConfiguration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:      make(map[string]domain.User),
		teams:      make(map[string]domain.Team),
		projects:   make(map[string]domain.Project),
		iterations: make(map[string][]domain.Iteration),
		configs:    make(map[string][]domain.ProjectConfiguration),
	}
}

func (m *memoryStore) CreateUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) CreateTeam(ctx context.Context, team *domain.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[team.ID] = *team
	return nil
}

func (m *memoryStore) UpdateTeam(ctx context.Context, team *domain.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[team.ID]; !ok {
		return repository.ErrNotFound
	}
	m.teams[team.ID] = *team
	return nil
}

func (m *memoryStore) GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teams[teamID]; ok {
		return &t, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ListTeamsByOwner(ctx context.Context, ownerID string) ([]domain.TeamWithProjects, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TeamWithProjects
	for _, t := range m.teams {
		if t.OwnerID != ownerID {
			continue
		}
		entry := domain.TeamWithProjects{Team: t, Projects: []domain.ProjectSummary{}}
		for _, p := range m.projects {
			if p.TeamID == t.ID {
				entry.Projects = append(entry.Projects, domain.ProjectSummary{ID: p.ID, TeamID: p.TeamID, Name: p.Name})
			}
		}
		slices.SortFunc(entry.Projects, func(a, b domain.ProjectSummary) int { return strings.Compare(a.Name, b.Name) })
		out = append(out, entry)
	}
	slices.SortFunc(out, func(a, b domain.TeamWithProjects) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *memoryStore) DeleteTeams(ctx context.Context, ownerID string, teamIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range teamIDs {
		t, ok := m.teams[id]
		if !ok || t.OwnerID != ownerID {
			continue
		}
		delete(m.teams, id)
		for pid, p := range m.projects {
			if p.TeamID == id {
				delete(m.projects, pid)
				delete(m.iterations, pid)
				delete(m.configs, pid)
			}
		}
		n++
	}
	return n, nil
}

func (m *memoryStore) CreateProject(ctx context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[project.TeamID]; !ok {
		return repository.ErrNotFound
	}
	m.projects[project.ID] = *project
	return nil
}

func (m *memoryStore) UpdateProject(ctx context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[project.ID]; !ok {
		return repository.ErrNotFound
	}
	m.projects[project.ID] = *project
	return nil
}

func (m *memoryStore) DeleteProject(ctx context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.projects, projectID)
	delete(m.iterations, projectID)
	delete(m.configs, projectID)
	return nil
}

func (m *memoryStore) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[projectID]; ok {
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ListProjectsByTeam(ctx context.Context, teamID string) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Project{}
	for _, p := range m.projects {
		if p.TeamID == teamID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Project) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *memoryStore) CreateIteration(ctx context.Context, iteration *domain.Iteration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[iteration.ProjectID]; !ok {
		return repository.ErrNotFound
	}
	m.iterations[iteration.ProjectID] = append(m.iterations[iteration.ProjectID], *iteration)
	return nil
}

func (m *memoryStore) ListIterationsByProject(ctx context.Context, projectID string) ([]domain.Iteration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Iteration{}, m.iterations[projectID]...), nil
}

func (m *memoryStore) ActivateConfiguration(ctx context.Context, cfg *domain.ProjectConfiguration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[cfg.ProjectID]; !ok {
		return repository.ErrNotFound
	}
	history := m.configs[cfg.ProjectID]
	for i := range history {
		history[i].Active = false
	}
	cfg.Active = true
	m.configs[cfg.ProjectID] = append(history, *cfg)
	return nil
}

func (m *memoryStore) GetActiveConfiguration(ctx context.Context, projectID string) (*domain.ProjectConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cfg := range m.configs[projectID] {
		if cfg.Active {
			return &cfg, nil
		}
	}
	return nil, repository.ErrNotFound
}
