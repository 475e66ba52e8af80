package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamtempo/tempo/internal/domain"
	"github.com/teamtempo/tempo/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository          = (*Repository)(nil)
	_ repository.TeamRepository          = (*Repository)(nil)
	_ repository.ProjectRepository       = (*Repository)(nil)
	_ repository.IterationRepository     = (*Repository)(nil)
	_ repository.ConfigurationRepository = (*Repository)(nil)
)

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, full_name, email, password_hash, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, user.ID, user.FullName, user.Email, user.PasswordHash, user.Enabled).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	return translate(err)
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, full_name, email, password_hash, enabled, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, full_name, email, password_hash, enabled, created_at, updated_at
		FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Enabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// CreateTeam creates a team record.
func (r *Repository) CreateTeam(ctx context.Context, team *domain.Team) error {
	const query = `INSERT INTO teams (id, owner_id, name, description, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		team.ID,
		team.OwnerID,
		team.Name,
		team.Description,
		team.StartDate,
		team.EndDate,
	).Scan(&team.CreatedAt, &team.UpdatedAt)
	return translate(err)
}

// UpdateTeam mutates a team owned by team.OwnerID.
func (r *Repository) UpdateTeam(ctx context.Context, team *domain.Team) error {
	const query = `UPDATE teams
		SET name = $3,
			description = $4,
			start_date = $5,
			end_date = $6,
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		team.ID,
		team.OwnerID,
		team.Name,
		team.Description,
		team.StartDate,
		team.EndDate,
	).Scan(&team.CreatedAt, &team.UpdatedAt)
	return translate(err)
}

// GetTeamByID returns a team by identifier.
func (r *Repository) GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error) {
	const query = `SELECT id, owner_id, name, description, start_date, end_date, created_at, updated_at
		FROM teams WHERE id = $1`
	var team domain.Team
	err := r.pool.QueryRow(ctx, query, teamID).Scan(
		&team.ID,
		&team.OwnerID,
		&team.Name,
		&team.Description,
		&team.StartDate,
		&team.EndDate,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

// ListTeamsByOwner returns the owner's teams ordered by name, each with its
// project summaries ordered by name.
func (r *Repository) ListTeamsByOwner(ctx context.Context, ownerID string) ([]domain.TeamWithProjects, error) {
	const teamQuery = `SELECT id, owner_id, name, description, start_date, end_date, created_at, updated_at
		FROM teams WHERE owner_id = $1 ORDER BY name, created_at`
	rows, err := r.pool.Query(ctx, teamQuery, ownerID)
	if err != nil {
		return nil, err
	}
	teams := make([]domain.TeamWithProjects, 0)
	index := make(map[string]int)
	ids := make([]string, 0)
	for rows.Next() {
		var team domain.TeamWithProjects
		if err := rows.Scan(
			&team.ID,
			&team.OwnerID,
			&team.Name,
			&team.Description,
			&team.StartDate,
			&team.EndDate,
			&team.CreatedAt,
			&team.UpdatedAt,
		); err != nil {
			rows.Close()
			return nil, err
		}
		team.Projects = make([]domain.ProjectSummary, 0)
		index[team.ID] = len(teams)
		ids = append(ids, team.ID)
		teams = append(teams, team)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return teams, nil
	}

	const projectQuery = `SELECT id, team_id, name FROM projects
		WHERE team_id = ANY($1) ORDER BY name, created_at`
	projectRows, err := r.pool.Query(ctx, projectQuery, ids)
	if err != nil {
		return nil, err
	}
	defer projectRows.Close()
	for projectRows.Next() {
		var summary domain.ProjectSummary
		if err := projectRows.Scan(&summary.ID, &summary.TeamID, &summary.Name); err != nil {
			return nil, err
		}
		if i, ok := index[summary.TeamID]; ok {
			teams[i].Projects = append(teams[i].Projects, summary)
		}
	}
	return teams, projectRows.Err()
}

// DeleteTeams removes the listed teams owned by ownerID and reports how many
// were deleted. Projects and iterations go with them.
func (r *Repository) DeleteTeams(ctx context.Context, ownerID string, teamIDs []string) (int64, error) {
	if len(teamIDs) == 0 {
		return 0, nil
	}
	const query = `DELETE FROM teams WHERE owner_id = $1 AND id = ANY($2)`
	tag, err := r.pool.Exec(ctx, query, ownerID, teamIDs)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// CreateProject inserts a project.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	const query = `INSERT INTO projects (id, team_id, name, description, start_date, end_date, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		project.ID,
		project.TeamID,
		project.Name,
		project.Description,
		project.StartDate,
		project.EndDate,
		project.Active,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	return translate(err)
}

// UpdateProject mutates project metadata.
func (r *Repository) UpdateProject(ctx context.Context, project *domain.Project) error {
	const query = `UPDATE projects
		SET name = $2,
			description = $3,
			start_date = $4,
			end_date = $5,
			active = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING team_id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.StartDate,
		project.EndDate,
		project.Active,
	).Scan(&project.TeamID, &project.CreatedAt, &project.UpdatedAt)
	return translate(err)
}

// DeleteProject removes a project and its iterations.
func (r *Repository) DeleteProject(ctx context.Context, projectID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetProjectByID fetches a project.
func (r *Repository) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	const query = `SELECT id, team_id, name, description, start_date, end_date, active, created_at, updated_at
		FROM projects WHERE id = $1`
	project, err := scanProject(r.pool.QueryRow(ctx, query, projectID))
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// ListProjectsByTeam returns projects for the provided team ordered by name.
func (r *Repository) ListProjectsByTeam(ctx context.Context, teamID string) ([]domain.Project, error) {
	const query = `SELECT id, team_id, name, description, start_date, end_date, active, created_at, updated_at
		FROM projects WHERE team_id = $1 ORDER BY name, created_at`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID,
		&p.TeamID,
		&p.Name,
		&p.Description,
		&p.StartDate,
		&p.EndDate,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// CreateIteration inserts an iteration.
func (r *Repository) CreateIteration(ctx context.Context, iteration *domain.Iteration) error {
	const query = `INSERT INTO iterations (
			id, project_id, name,
			planned_start_date, planned_end_date, actual_start_date, actual_end_date,
			planned_capacity, actual_capacity, planned_forecast, actual_forecast,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		iteration.ID,
		iteration.ProjectID,
		iteration.Name,
		iteration.PlannedStartDate,
		iteration.PlannedEndDate,
		iteration.ActualStartDate,
		iteration.ActualEndDate,
		iteration.PlannedCapacity,
		iteration.ActualCapacity,
		iteration.PlannedForecast,
		iteration.ActualForecast,
	).Scan(&iteration.CreatedAt, &iteration.UpdatedAt)
	return translate(err)
}

// ListIterationsByProject returns a project's iterations ordered by planned
// start date. Iterations without one sort last.
func (r *Repository) ListIterationsByProject(ctx context.Context, projectID string) ([]domain.Iteration, error) {
	const query = `SELECT id, project_id, name,
			planned_start_date, planned_end_date, actual_start_date, actual_end_date,
			planned_capacity, actual_capacity, planned_forecast, actual_forecast,
			created_at, updated_at
		FROM iterations WHERE project_id = $1
		ORDER BY planned_start_date ASC NULLS LAST, created_at ASC`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	iterations := make([]domain.Iteration, 0)
	for rows.Next() {
		var it domain.Iteration
		if err := rows.Scan(
			&it.ID,
			&it.ProjectID,
			&it.Name,
			&it.PlannedStartDate,
			&it.PlannedEndDate,
			&it.ActualStartDate,
			&it.ActualEndDate,
			&it.PlannedCapacity,
			&it.ActualCapacity,
			&it.PlannedForecast,
			&it.ActualForecast,
			&it.CreatedAt,
			&it.UpdatedAt,
		); err != nil {
			return nil, err
		}
		iterations = append(iterations, it)
	}
	return iterations, rows.Err()
}

// ActivateConfiguration deactivates the project's current configuration and
// inserts cfg as the active one in a single transaction.
func (r *Repository) ActivateConfiguration(ctx context.Context, cfg *domain.ProjectConfiguration) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE project_configurations
			SET active = FALSE, updated_at = NOW()
			WHERE project_id = $1 AND active`, cfg.ProjectID); err != nil {
			return err
		}
		const query = `INSERT INTO project_configurations (
				id, project_id, iteration_duration, iteration_duration_unit,
				capacity_unit, forecast_unit, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
			RETURNING created_at, updated_at`
		return tx.QueryRow(ctx, query,
			cfg.ID,
			cfg.ProjectID,
			cfg.IterationDuration,
			string(cfg.IterationDurationUnit),
			string(cfg.CapacityUnit),
			string(cfg.ForecastUnit),
		).Scan(&cfg.CreatedAt, &cfg.UpdatedAt)
	})
	if err != nil {
		return translate(err)
	}
	cfg.Active = true
	return nil
}

// GetActiveConfiguration fetches the project's active configuration.
func (r *Repository) GetActiveConfiguration(ctx context.Context, projectID string) (*domain.ProjectConfiguration, error) {
	const query = `SELECT id, project_id, iteration_duration, iteration_duration_unit,
			capacity_unit, forecast_unit, active, created_at, updated_at
		FROM project_configurations WHERE project_id = $1 AND active`
	var cfg domain.ProjectConfiguration
	var durationUnit, capacity, forecast string
	err := r.pool.QueryRow(ctx, query, projectID).Scan(
		&cfg.ID,
		&cfg.ProjectID,
		&cfg.IterationDuration,
		&durationUnit,
		&capacity,
		&forecast,
		&cfg.Active,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	cfg.IterationDurationUnit = domain.DurationUnit(durationUnit)
	cfg.CapacityUnit = domain.CapacityUnit(capacity)
	cfg.ForecastUnit = domain.ForecastUnit(forecast)
	return &cfg, nil
}

// translate maps driver errors onto repository errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return repository.ErrNotFound
		case "23505":
			return repository.ErrConflict
		case "23514", "22P02", "22001", "22007":
			return repository.ErrInvalidArgument
		}
	}
	return err
}
