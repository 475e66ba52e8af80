package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubSource struct {
	mu          sync.Mutex
	teams       []Team
	teamsErr    error
	teamCalls   int
	details     map[string]ProjectDetail
	detailErrs  map[string]error
	detailCalls map[string]int
	gates       map[string]chan struct{}
	started     chan string
}

func newStubSource(teams []Team) *stubSource {
	return &stubSource{
		teams:       teams,
		details:     make(map[string]ProjectDetail),
		detailErrs:  make(map[string]error),
		detailCalls: make(map[string]int),
		gates:       make(map[string]chan struct{}),
		started:     make(chan string, 16),
	}
}

// hold makes fetches of projectID block until the returned func is called.
func (s *stubSource) hold(projectID string) func() {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[projectID] = gate
	s.mu.Unlock()
	return func() { close(gate) }
}

func (s *stubSource) FetchMyTeams(ctx context.Context) ([]Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teamCalls++
	if s.teamsErr != nil {
		return nil, s.teamsErr
	}
	return s.teams, nil
}

func (s *stubSource) FetchProjectDetail(ctx context.Context, projectID string) (ProjectDetail, error) {
	s.mu.Lock()
	s.detailCalls[projectID]++
	gate := s.gates[projectID]
	s.mu.Unlock()

	s.started <- projectID
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ProjectDetail{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.detailErrs[projectID]; err != nil {
		return ProjectDetail{}, err
	}
	detail, ok := s.details[projectID]
	if !ok {
		return ProjectDetail{}, ErrNotFound
	}
	return detail, nil
}

func (s *stubSource) calls(projectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detailCalls[projectID]
}

func waitIdle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitIdle(ctx); err != nil {
		t.Fatalf("session did not settle: %v", err)
	}
}

func TestSessionLoadsTeamsAndFirstIteration(t *testing.T) {
	src := newStubSource([]Team{{ID: "t1", Projects: []ProjectSummary{{ID: "p1"}}}})
	src.details["p1"] = ProjectDetail{ID: "p1", Iterations: []Iteration{{ID: "i1", PlannedCapacity: 100, ActualCapacity: 80}}}

	session := NewSession(context.Background(), src)
	defer session.Close()

	session.LoadTeams()
	waitIdle(t, session)

	v := session.View()
	if v.Selection != (Selection{TeamID: "t1", ProjectID: "p1", IterationID: "i1"}) {
		t.Fatalf("unexpected selection %+v", v.Selection)
	}
	if v.CapacityPercentage != 80 {
		t.Fatalf("expected 80%%, got %v", v.CapacityPercentage)
	}
}

func TestSessionDeduplicatesDetailFetches(t *testing.T) {
	src := newStubSource(nil)
	src.details["p1"] = ProjectDetail{ID: "p1"}
	release := src.hold("p1")

	session := NewSession(context.Background(), src)
	defer session.Close()

	session.LoadProjectDetail("p1")
	session.LoadProjectDetail("p1")
	<-src.started
	release()
	waitIdle(t, session)

	if got := src.calls("p1"); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}
}

func TestSessionIgnoresSupersededDetail(t *testing.T) {
	src := newStubSource([]Team{{ID: "t1", Projects: []ProjectSummary{{ID: "p1"}, {ID: "p2"}}}})
	src.details["p1"] = ProjectDetail{ID: "p1", Iterations: []Iteration{{ID: "i1"}}}
	src.details["p2"] = ProjectDetail{ID: "p2"}
	releaseP1 := src.hold("p1")

	session := NewSession(context.Background(), src)
	defer session.Close()

	session.LoadTeams()
	if got := <-src.started; got != "p1" {
		t.Fatalf("expected p1 fetch first, got %s", got)
	}
	session.SelectProject("p2")
	<-src.started
	releaseP1()
	waitIdle(t, session)

	v := session.View()
	if v.Selection.ProjectID != "p2" || v.Selection.IterationID != "" {
		t.Fatalf("late p1 response clobbered selection: %+v", v.Selection)
	}
	if len(v.AvailableIterations) != 0 {
		t.Fatalf("expected p2 iterations, got %v", v.AvailableIterations)
	}
	if _, ok := session.State().Hierarchy.Detail("p1"); !ok {
		t.Fatal("expected p1 detail cached")
	}
}

func TestSessionSurfacesErrors(t *testing.T) {
	src := newStubSource(nil)
	src.teamsErr = ErrNetwork

	session := NewSession(context.Background(), src)
	defer session.Close()

	session.LoadTeams()
	waitIdle(t, session)

	err := session.State().Hierarchy.TeamsErr()
	var loadErr *TeamsLoadError
	if !errors.As(err, &loadErr) || !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected TeamsLoadError wrapping ErrNetwork, got %v", err)
	}
	if session.View().TeamsError == "" {
		t.Fatal("expected a visible teams error")
	}
}

func TestSessionListenerSeesIncreasingVersions(t *testing.T) {
	src := newStubSource([]Team{{ID: "t1", Projects: []ProjectSummary{{ID: "p1"}}}})
	src.details["p1"] = ProjectDetail{ID: "p1", Iterations: []Iteration{{ID: "i1"}}}

	var (
		mu       sync.Mutex
		versions []uint64
		last     View
	)
	session := NewSession(context.Background(), src, WithListener(func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, u.Version)
		last = u.View
	}))
	defer session.Close()

	session.LoadTeams()
	waitIdle(t, session)

	mu.Lock()
	defer mu.Unlock()
	if len(versions) == 0 {
		t.Fatal("expected updates")
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Fatalf("versions not increasing: %v", versions)
		}
	}
	if last.Selection.IterationID != "i1" {
		t.Fatalf("expected final update to carry i1, got %+v", last.Selection)
	}
}

func TestSessionCloseCancelsInflightFetches(t *testing.T) {
	src := newStubSource(nil)
	_ = src.hold("p1")

	var updates int
	session := NewSession(context.Background(), src, WithListener(func(Update) { updates++ }))
	session.LoadProjectDetail("p1")
	<-src.started

	session.Close()
	session.SelectTeam("t1")
	if updates != 1 {
		t.Fatalf("expected only the pre-close update, got %d", updates)
	}
	if err := session.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle after close: %v", err)
	}
}

func TestSessionFetchTimeout(t *testing.T) {
	src := newStubSource(nil)
	_ = src.hold("p1")

	session := NewSession(context.Background(), src, WithFetchTimeout(20*time.Millisecond))
	defer session.Close()

	session.LoadProjectDetail("p1")
	waitIdle(t, session)

	err := session.State().Hierarchy.DetailErr("p1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
