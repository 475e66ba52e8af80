package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Source provides the teams and project details a dashboard shows.
// Implementations wrap ErrNetwork, ErrAuth and ErrNotFound in their errors.
type Source interface {
	FetchMyTeams(ctx context.Context) ([]Team, error)
	FetchProjectDetail(ctx context.Context, projectID string) (ProjectDetail, error)
}

// Update is a View delivered to listeners after a transition. Versions
// increase strictly across the updates a listener receives.
type Update struct {
	Version uint64 `json:"version"`
	View    View   `json:"view"`
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFetchTimeout bounds every Source call. Zero means no bound beyond the
// session context.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.fetchTimeout = d
	}
}

// WithListener registers fn to receive an Update after every transition.
// Listeners run one at a time and must not call back into the Session
// synchronously.
func WithListener(fn func(Update)) Option {
	return func(s *Session) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// Session owns one dashboard: it applies events one at a time, runs fetches
// in the background and publishes a fresh View after each transition.
type Session struct {
	src          Source
	logger       *slog.Logger
	fetchTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	version uint64
	pending int
	idle    chan struct{}
	closed  bool

	notifyMu  sync.Mutex
	delivered uint64
	listeners []func(Update)
}

// NewSession returns a Session reading from src. Fetches run until ctx is
// done or Close is called.
func NewSession(ctx context.Context, src Source, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		src:    src,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadTeams fetches (or refreshes) the team list.
func (s *Session) LoadTeams() { s.Dispatch(LoadTeams{}) }

// SelectTeam selects a team and cascades to its first project.
func (s *Session) SelectTeam(teamID string) { s.Dispatch(SelectTeam{TeamID: teamID}) }

// SelectProject selects a project of the current team.
func (s *Session) SelectProject(projectID string) { s.Dispatch(SelectProject{ProjectID: projectID}) }

// SelectIteration selects an iteration of the current project.
func (s *Session) SelectIteration(iterationID string) {
	s.Dispatch(SelectIteration{IterationID: iterationID})
}

// LoadProjectDetail fetches a project's detail unless it is cached or
// already in flight.
func (s *Session) LoadProjectDetail(projectID string) {
	s.Dispatch(LoadProjectDetail{ProjectID: projectID})
}

// Dispatch applies ev, starts the fetches it calls for and notifies
// listeners. Events dispatched after Close are dropped.
func (s *Session) Dispatch(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	next, cmds := Reduce(s.state, ev)
	s.state = next
	s.version++
	update := Update{Version: s.version, View: Derive(next)}
	for _, cmd := range cmds {
		s.startLocked(cmd)
	}
	s.mu.Unlock()

	s.logger.Debug("dashboard event applied",
		"event", fmt.Sprintf("%T", ev),
		"team_id", next.Selection.TeamID,
		"project_id", next.Selection.ProjectID,
		"iteration_id", next.Selection.IterationID,
		"fetches", len(cmds),
	)
	s.notify(update)
}

// View returns the current view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Derive(s.state)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WaitIdle blocks until no fetch is in flight or ctx is done.
func (s *Session) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels outstanding fetches and waits for them to return. Results
// arriving afterwards are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	idle := s.idle
	s.mu.Unlock()

	s.cancel()
	if idle != nil {
		<-idle
	}
}

func (s *Session) startLocked(cmd Command) {
	s.pending++
	if s.pending == 1 {
		s.idle = make(chan struct{})
	}
	go s.run(cmd)
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
		s.idle = nil
	}
}

func (s *Session) run(cmd Command) {
	defer s.finish()

	ctx := s.ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	switch c := cmd.(type) {
	case FetchTeams:
		teams, err := s.src.FetchMyTeams(ctx)
		if err != nil {
			s.logger.Warn("team fetch failed", "error", err)
			s.Dispatch(TeamsFailed{Err: err})
			return
		}
		s.Dispatch(TeamsLoaded{Teams: teams})
	case FetchProjectDetail:
		detail, err := s.src.FetchProjectDetail(ctx, c.ProjectID)
		if err != nil {
			s.logger.Warn("project detail fetch failed", "project_id", c.ProjectID, "error", err)
			s.Dispatch(ProjectDetailFailed{ProjectID: c.ProjectID, Err: err})
			return
		}
		s.Dispatch(ProjectDetailLoaded{ProjectID: c.ProjectID, Detail: detail})
	}
}

func (s *Session) notify(update Update) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if update.Version <= s.delivered {
		return
	}
	s.delivered = update.Version
	for _, fn := range s.listeners {
		fn(update)
	}
}
