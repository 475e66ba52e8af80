package dashboard

// State is everything the dashboard knows at one point in time: the current
// selection and the loader cache it is resolved against.
type State struct {
	Selection Selection
	Hierarchy Hierarchy
}

// Event is an input to Reduce: a user action or the arrival of a fetch result.
type Event interface {
	event()
}

// LoadTeams asks for the team list to be (re)fetched.
type LoadTeams struct{}

// TeamsLoaded carries a successful team-list fetch.
type TeamsLoaded struct {
	Teams []Team
}

// TeamsFailed carries a failed team-list fetch.
type TeamsFailed struct {
	Err error
}

// SelectTeam changes the selected team.
type SelectTeam struct {
	TeamID string
}

// SelectProject changes the selected project within the selected team.
type SelectProject struct {
	ProjectID string
}

// SelectIteration changes the selected iteration within the selected project.
type SelectIteration struct {
	IterationID string
}

// LoadProjectDetail asks for a project's detail, e.g. to retry after a failure.
type LoadProjectDetail struct {
	ProjectID string
}

// ProjectDetailLoaded carries a successful detail fetch. ProjectID is the id
// the fetch was issued for and is what the response is matched against.
type ProjectDetailLoaded struct {
	ProjectID string
	Detail    ProjectDetail
}

// ProjectDetailFailed carries a failed detail fetch.
type ProjectDetailFailed struct {
	ProjectID string
	Err       error
}

func (LoadTeams) event()           {}
func (TeamsLoaded) event()         {}
func (TeamsFailed) event()         {}
func (SelectTeam) event()          {}
func (SelectProject) event()       {}
func (SelectIteration) event()     {}
func (LoadProjectDetail) event()   {}
func (ProjectDetailLoaded) event() {}
func (ProjectDetailFailed) event() {}

// Command is a fetch intent emitted by Reduce. Reduce never performs I/O;
// the Session executes commands and feeds the results back as events.
type Command interface {
	command()
}

// FetchTeams requests the team list from the Source.
type FetchTeams struct{}

// FetchProjectDetail requests one project's detail from the Source.
type FetchProjectDetail struct {
	ProjectID string
}

func (FetchTeams) command()         {}
func (FetchProjectDetail) command() {}

// Reduce applies ev to s and returns the next state together with the
// fetches that must be started. It is pure: s is not modified.
func Reduce(s State, ev Event) (State, []Command) {
	switch ev := ev.(type) {
	case LoadTeams:
		h, ok := s.Hierarchy.requestTeams()
		if !ok {
			return s, nil
		}
		s.Hierarchy = h
		return s, []Command{FetchTeams{}}
	case TeamsLoaded:
		s.Hierarchy = s.Hierarchy.storeTeams(ev.Teams)
		return s.initialize()
	case TeamsFailed:
		s.Hierarchy = s.Hierarchy.failTeams(ev.Err)
		return s, nil
	case SelectTeam:
		return s.selectTeam(ev.TeamID)
	case SelectProject:
		return s.selectProject(ev.ProjectID)
	case SelectIteration:
		return s.selectIteration(ev.IterationID), nil
	case LoadProjectDetail:
		if ev.ProjectID == "" {
			return s, nil
		}
		return s.requestProjectDetail(ev.ProjectID)
	case ProjectDetailLoaded:
		s.Hierarchy = s.Hierarchy.storeDetail(ev.ProjectID, ev.Detail)
		return s.reconcileIteration(ev.ProjectID, ev.Detail), nil
	case ProjectDetailFailed:
		s.Hierarchy = s.Hierarchy.failDetail(ev.ProjectID, ev.Err)
		if ev.ProjectID == s.Selection.ProjectID {
			s.Selection.IterationID = ""
		}
		return s, nil
	default:
		return s, nil
	}
}

// requestProjectDetail serves a detail request from the cache when possible
// and otherwise emits a fetch, unless one is already in flight.
func (s State) requestProjectDetail(projectID string) (State, []Command) {
	if detail, ok := s.Hierarchy.Detail(projectID); ok {
		return s.reconcileIteration(projectID, detail), nil
	}
	h, ok := s.Hierarchy.requestDetail(projectID)
	if !ok {
		return s, nil
	}
	s.Hierarchy = h
	return s, []Command{FetchProjectDetail{ProjectID: projectID}}
}
