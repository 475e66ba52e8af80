package dashboard

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleTeams() []Team {
	return []Team{
		{ID: "t1", Name: "Platform", Projects: []ProjectSummary{{ID: "p1", Name: "Billing"}, {ID: "p2", Name: "Search"}}},
		{ID: "t2", Name: "Empty"},
		{ID: "t3", Name: "Mobile", Projects: []ProjectSummary{{ID: "p3", Name: "Billing"}}},
	}
}

func detailP1() ProjectDetail {
	return ProjectDetail{ID: "p1", Name: "Billing", Iterations: []Iteration{
		{ID: "i1", PlannedCapacity: 100, ActualCapacity: 80},
		{ID: "i2", PlannedCapacity: 50, ActualCapacity: 50},
	}}
}

// apply runs events in order and returns the final state with every
// command emitted along the way.
func apply(t *testing.T, s State, events ...Event) (State, []Command) {
	t.Helper()
	var all []Command
	for _, ev := range events {
		var cmds []Command
		s, cmds = Reduce(s, ev)
		all = append(all, cmds...)
	}
	return s, all
}

func loaded(t *testing.T) State {
	t.Helper()
	s, _ := apply(t, State{}, LoadTeams{}, TeamsLoaded{Teams: sampleTeams()})
	return s
}

func TestInitializeSelectsFirstTeamAndProject(t *testing.T) {
	s, cmds := apply(t, State{}, LoadTeams{}, TeamsLoaded{Teams: []Team{{ID: "t1", Projects: []ProjectSummary{{ID: "p1"}}}}})

	want := Selection{TeamID: "t1", ProjectID: "p1"}
	if diff := cmp.Diff(want, s.Selection); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
	wantCmds := []Command{FetchTeams{}, FetchProjectDetail{ProjectID: "p1"}}
	if diff := cmp.Diff(wantCmds, cmds); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}

	s, _ = Reduce(s, ProjectDetailLoaded{ProjectID: "p1", Detail: ProjectDetail{ID: "p1", Iterations: []Iteration{
		{ID: "i1", PlannedCapacity: 100, ActualCapacity: 80},
	}}})
	if s.Selection.IterationID != "i1" {
		t.Fatalf("expected iteration i1, got %q", s.Selection.IterationID)
	}
	if got := Derive(s).CapacityPercentage; got != 80 {
		t.Fatalf("expected capacity percentage 80, got %v", got)
	}
}

func TestInitializeWithNoTeams(t *testing.T) {
	s, cmds := apply(t, State{}, LoadTeams{}, TeamsLoaded{})
	if s.Selection != (Selection{}) {
		t.Fatalf("expected empty selection, got %+v", s.Selection)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected only the team fetch, got %v", cmds)
	}
	v := Derive(s)
	if v.SelectedTeam != nil || v.SelectedProject != nil || v.SelectedIteration != nil {
		t.Fatalf("expected no selected entities, got %+v", v)
	}
}

func TestSelectTeamCascadesToFirstProject(t *testing.T) {
	s := loaded(t)
	s, cmds := Reduce(s, SelectTeam{TeamID: "t3"})
	if s.Selection.TeamID != "t3" || s.Selection.ProjectID != "p3" || s.Selection.IterationID != "" {
		t.Fatalf("unexpected selection %+v", s.Selection)
	}
	if diff := cmp.Diff([]Command{FetchProjectDetail{ProjectID: "p3"}}, cmds); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectTeamWithoutProjects(t *testing.T) {
	s := loaded(t)
	s, _ = apply(t, s, ProjectDetailLoaded{ProjectID: "p1", Detail: detailP1()})
	s, cmds := Reduce(s, SelectTeam{TeamID: "t2"})
	if len(cmds) != 0 {
		t.Fatalf("expected no fetch, got %v", cmds)
	}
	if s.Selection.ProjectID != "" || s.Selection.IterationID != "" {
		t.Fatalf("expected cleared project and iteration, got %+v", s.Selection)
	}
	v := Derive(s)
	if len(v.AvailableIterations) != 0 {
		t.Fatalf("expected no iterations, got %v", v.AvailableIterations)
	}
	if v.CapacityProjected != 0 || v.CapacityPercentage != 0 {
		t.Fatalf("expected zero capacity, got %v / %v", v.CapacityProjected, v.CapacityPercentage)
	}
}

func TestSelectTeamNeverKeepsProjectWithSameName(t *testing.T) {
	s := loaded(t)
	s, _ = Reduce(s, SelectTeam{TeamID: "t3"})
	if s.Selection.ProjectID != "p3" {
		t.Fatalf("expected p3, got %q", s.Selection.ProjectID)
	}
	s, _ = Reduce(s, SelectTeam{TeamID: "t1"})
	if s.Selection.ProjectID != "p1" {
		t.Fatalf("expected p1 after switching back, got %q", s.Selection.ProjectID)
	}
}

func TestSelectUnknownTeamSnapsToFirst(t *testing.T) {
	s := loaded(t)
	s, _ = Reduce(s, SelectTeam{TeamID: "t3"})
	s, _ = Reduce(s, SelectTeam{TeamID: "missing"})
	if s.Selection.TeamID != "t1" || s.Selection.ProjectID != "p1" {
		t.Fatalf("expected snap to t1/p1, got %+v", s.Selection)
	}
}

func TestSelectProjectClearsIterationBeforeLoad(t *testing.T) {
	s := loaded(t)
	s, _ = apply(t, s, ProjectDetailLoaded{ProjectID: "p1", Detail: detailP1()}, SelectIteration{IterationID: "i2"})
	if s.Selection.IterationID != "i2" {
		t.Fatalf("expected i2, got %q", s.Selection.IterationID)
	}
	s, cmds := Reduce(s, SelectProject{ProjectID: "p2"})
	if s.Selection.ProjectID != "p2" || s.Selection.IterationID != "" {
		t.Fatalf("unexpected selection %+v", s.Selection)
	}
	if diff := cmp.Diff([]Command{FetchProjectDetail{ProjectID: "p2"}}, cmds); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
	if v := Derive(s); !v.ProjectLoading || len(v.AvailableIterations) != 0 {
		t.Fatalf("expected loading with no iterations, got loading=%v iterations=%v", v.ProjectLoading, v.AvailableIterations)
	}
}

func TestSelectCachedProjectCompletesCascadeWithoutFetch(t *testing.T) {
	s := loaded(t)
	s, _ = apply(t, s,
		ProjectDetailLoaded{ProjectID: "p1", Detail: detailP1()},
		SelectProject{ProjectID: "p2"},
	)
	s, cmds := Reduce(s, SelectProject{ProjectID: "p1"})
	if len(cmds) != 0 {
		t.Fatalf("expected cache hit, got %v", cmds)
	}
	if s.Selection.IterationID != "i1" {
		t.Fatalf("expected first iteration from cache, got %q", s.Selection.IterationID)
	}
}

func TestStaleDetailResponseDoesNotTouchSelection(t *testing.T) {
	s := loaded(t)
	s, _ = Reduce(s, SelectProject{ProjectID: "p2"})
	before := Derive(s)

	s, _ = Reduce(s, ProjectDetailLoaded{ProjectID: "p1", Detail: detailP1()})
	if s.Selection.ProjectID != "p2" || s.Selection.IterationID != "" {
		t.Fatalf("stale response changed selection: %+v", s.Selection)
	}
	after := Derive(s)
	if diff := cmp.Diff(before.AvailableIterations, after.AvailableIterations); diff != "" {
		t.Fatalf("stale response changed iterations (-before +after):\n%s", diff)
	}
	if _, ok := s.Hierarchy.Detail("p1"); !ok {
		t.Fatal("expected stale response to be cached")
	}
}

func TestDetailLoadKeepsExistingIteration(t *testing.T) {
	s := loaded(t)
	s, _ = apply(t, s, SelectIteration{IterationID: "i2"}, ProjectDetailLoaded{ProjectID: "p1", Detail: detailP1()})
	if s.Selection.IterationID != "i2" {
		t.Fatalf("expected i2 to survive the load, got %q", s.Selection.IterationID)
	}
}

func TestSelectIterationIdempotent(t *testing.T) {
	s := loaded(t)
	s, _ = Reduce(s, ProjectDetailLoaded{ProjectID: "p1", Detail: detailP1()})
	once, cmds1 := Reduce(s, SelectIteration{IterationID: "i2"})
	twice, cmds2 := Reduce(once, SelectIteration{IterationID: "i2"})
	if len(cmds1)+len(cmds2) != 0 {
		t.Fatalf("selecting an iteration must not fetch")
	}
	if diff := cmp.Diff(Derive(once), Derive(twice)); diff != "" {
		t.Fatalf("second selection changed the view (-once +twice):\n%s", diff)
	}
	if once.Selection != twice.Selection {
		t.Fatalf("selection changed: %+v vs %+v", once.Selection, twice.Selection)
	}
}

func TestSelectUnknownIterationSnapsToFirst(t *testing.T) {
	s := loaded(t)
	s, _ = apply(t, s, ProjectDetailLoaded{ProjectID: "p1", Detail: detailP1()}, SelectIteration{IterationID: "nope"})
	if s.Selection.IterationID != "i1" {
		t.Fatalf("expected i1, got %q", s.Selection.IterationID)
	}
}

func TestLoadProjectDetailDeduplicates(t *testing.T) {
	s, cmds := apply(t, State{}, LoadProjectDetail{ProjectID: "p1"}, LoadProjectDetail{ProjectID: "p1"})
	if diff := cmp.Diff([]Command{FetchProjectDetail{ProjectID: "p1"}}, cmds); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p1"}, s.Hierarchy.Pending()); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTeamsDeduplicates(t *testing.T) {
	_, cmds := apply(t, State{}, LoadTeams{}, LoadTeams{})
	if len(cmds) != 1 {
		t.Fatalf("expected one team fetch, got %v", cmds)
	}
}

func TestDetailFailureIsRecordedAndRetryable(t *testing.T) {
	s := loaded(t)
	s, _ = Reduce(s, ProjectDetailFailed{ProjectID: "p1", Err: ErrNetwork})

	var loadErr *ProjectDetailLoadError
	if err := s.Hierarchy.DetailErr("p1"); !errors.As(err, &loadErr) || loadErr.ProjectID != "p1" || !errors.Is(err, ErrNetwork) {
		t.Fatalf("unexpected detail error %v", err)
	}
	if s.Selection.IterationID != "" {
		t.Fatalf("expected empty iteration after failure, got %q", s.Selection.IterationID)
	}
	if v := Derive(s); v.ProjectError == "" || v.ProjectLoading {
		t.Fatalf("expected visible error and no spinner, got %+v", v)
	}

	s, cmds := Reduce(s, LoadProjectDetail{ProjectID: "p1"})
	if diff := cmp.Diff([]Command{FetchProjectDetail{ProjectID: "p1"}}, cmds); diff != "" {
		t.Fatalf("retry commands mismatch (-want +got):\n%s", diff)
	}
	if s.Hierarchy.DetailErr("p1") != nil {
		t.Fatal("expected retry to clear the error slot")
	}
}

func TestDetailFailureDropsPendingIteration(t *testing.T) {
	s, _ := apply(t, loaded(t), SelectIteration{IterationID: "i2"}, ProjectDetailFailed{ProjectID: "p1", Err: ErrNetwork})
	want := Selection{TeamID: "t1", ProjectID: "p1"}
	if diff := cmp.Diff(want, s.Selection); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}

	s, _ = apply(t, loaded(t), SelectIteration{IterationID: "i2"}, ProjectDetailFailed{ProjectID: "p2", Err: ErrNetwork})
	if s.Selection.IterationID != "i2" {
		t.Fatalf("failure of another project must not touch the selection, got %+v", s.Selection)
	}
}

func TestTeamsFailureKeepsLoadedTeams(t *testing.T) {
	s := loaded(t)
	s, _ = apply(t, s, LoadTeams{}, TeamsFailed{Err: ErrAuth})
	if len(s.Hierarchy.Teams()) != 3 {
		t.Fatalf("expected teams to survive a failed refresh, got %d", len(s.Hierarchy.Teams()))
	}
	if !errors.Is(s.Hierarchy.TeamsErr(), ErrAuth) {
		t.Fatalf("expected auth error, got %v", s.Hierarchy.TeamsErr())
	}
	if s.Selection.TeamID != "t1" {
		t.Fatalf("selection lost on failure: %+v", s.Selection)
	}
}

func TestRefreshKeepsValidSelection(t *testing.T) {
	s := loaded(t)
	s, _ = apply(t, s, SelectProject{ProjectID: "p2"}, LoadTeams{})
	s, cmds := Reduce(s, TeamsLoaded{Teams: sampleTeams()})
	if len(cmds) != 0 {
		t.Fatalf("expected no fetch on refresh, got %v", cmds)
	}
	if s.Selection.ProjectID != "p2" {
		t.Fatalf("expected p2 kept, got %+v", s.Selection)
	}
}

func TestRefreshResetsVanishedSelection(t *testing.T) {
	s := loaded(t)
	s, _ = Reduce(s, SelectTeam{TeamID: "t3"})

	teams := sampleTeams()[:2]
	s, cmds := apply(t, s, LoadTeams{}, TeamsLoaded{Teams: teams})
	if s.Selection.TeamID != "t1" || s.Selection.ProjectID != "p1" {
		t.Fatalf("expected reset to t1/p1, got %+v", s.Selection)
	}
	// p1 is still in flight from the first load, so no second fetch.
	if diff := cmp.Diff([]Command{FetchTeams{}}, cmds); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}

	teams[0].Projects = teams[0].Projects[1:]
	s, _ = apply(t, s, LoadTeams{}, TeamsLoaded{Teams: teams})
	if s.Selection.ProjectID != "p2" {
		t.Fatalf("expected vanished project to reset to p2, got %+v", s.Selection)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := loaded(t)
	before := s
	_, _ = Reduce(s, ProjectDetailLoaded{ProjectID: "p1", Detail: detailP1()})
	if _, ok := before.Hierarchy.Detail("p1"); ok {
		t.Fatal("reducer wrote into the previous state's cache")
	}
	if !before.Hierarchy.DetailLoading("p1") {
		t.Fatal("reducer cleared the previous state's loading flag")
	}
}
