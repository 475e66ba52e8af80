package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teamtempo/tempo/internal/domain"
)

// Client provides typed access to the tempo API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// TokenPair mirrors the tokens issued on signup and login.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

// LoginResponse captures the token payload emitted by the API.
type LoginResponse struct {
	User   domain.User `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

// SignupInput describes a new account.
type SignupInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TeamInput describes a team to create or update. Dates use domain.DateLayout.
type TeamInput struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
}

// ProjectInput describes a project to create or update.
type ProjectInput struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Active      *bool  `json:"active,omitempty"`

	Configuration *ConfigurationInput `json:"project_configuration,omitempty"`
}

// ConfigurationInput describes a project configuration. Units use codes
// such as WEEKS, STORY_POINTS and MAN_DAYS.
type ConfigurationInput struct {
	IterationDuration     int    `json:"iteration_duration"`
	IterationDurationUnit string `json:"iteration_duration_unit"`
	CapacityUnit          string `json:"capacity_unit"`
	ForecastUnit          string `json:"forecast_unit"`
}

// IterationInput describes a new iteration.
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

// Signup registers an account and returns its first tokens.
func (c *Client) Signup(ctx context.Context, input SignupInput) (LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", input, "", &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Login authenticates using email and password credentials.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	payload := map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", payload, "", &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Logout revokes the access token.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, token, nil)
}

// ListTeams fetches the caller's teams with their project summaries.
func (c *Client) ListTeams(ctx context.Context, token string) ([]domain.TeamWithProjects, error) {
	var teams []domain.TeamWithProjects
	if err := c.do(ctx, http.MethodGet, "/teams", nil, token, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// CreateTeam registers a team.
func (c *Client) CreateTeam(ctx context.Context, token string, input TeamInput) (domain.Team, error) {
	var team domain.Team
	if err := c.do(ctx, http.MethodPost, "/teams", input, token, &team); err != nil {
		return domain.Team{}, err
	}
	return team, nil
}

// UpdateTeam replaces a team's attributes.
func (c *Client) UpdateTeam(ctx context.Context, token, teamID string, input TeamInput) (domain.Team, error) {
	var team domain.Team
	if err := c.do(ctx, http.MethodPut, "/teams/"+url.PathEscape(teamID), input, token, &team); err != nil {
		return domain.Team{}, err
	}
	return team, nil
}

// DeleteTeams removes the listed teams and reports how many were deleted.
func (c *Client) DeleteTeams(ctx context.Context, token string, teamIDs []string) (int64, error) {
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/teams", map[string][]string{"ids": teamIDs}, token, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// ListProjects returns the projects of a team.
func (c *Client) ListProjects(ctx context.Context, token, teamID string) ([]domain.Project, error) {
	var projects []domain.Project
	if err := c.do(ctx, http.MethodGet, "/teams/"+url.PathEscape(teamID)+"/projects", nil, token, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject adds a project to a team.
func (c *Client) CreateProject(ctx context.Context, token, teamID string, input ProjectInput) (domain.Project, error) {
	var project domain.Project
	if err := c.do(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/projects", input, token, &project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// UpdateProject replaces a project's attributes and, when given, its
// configuration.
func (c *Client) UpdateProject(ctx context.Context, token, projectID string, input ProjectInput) (domain.Project, error) {
	var project domain.Project
	if err := c.do(ctx, http.MethodPut, "/projects/"+url.PathEscape(projectID), input, token, &project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// GetProjectDetail fetches a project with its iterations.
func (c *Client) GetProjectDetail(ctx context.Context, token, projectID string) (domain.ProjectDetail, error) {
	var detail domain.ProjectDetail
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID), nil, token, &detail); err != nil {
		return domain.ProjectDetail{}, err
	}
	return detail, nil
}

// CreateIteration records an iteration for a project.
func (c *Client) CreateIteration(ctx context.Context, token, projectID string, input IterationInput) (domain.Iteration, error) {
	var iteration domain.Iteration
	if err := c.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/iterations", input, token, &iteration); err != nil {
		return domain.Iteration{}, err
	}
	return iteration, nil
}
