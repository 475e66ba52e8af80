package dashboard

// Cascade rules. A parent change always re-derives its children: changing
// team picks the team's first project, changing project clears the
// iteration until the project's iterations are known. Ids that are empty or
// no longer present snap to the first available option.

// initialize runs after every successful team fetch. A fresh session selects
// the first team; a refresh keeps a selection that is still valid and resets
// whatever part of it disappeared.
func (s State) initialize() (State, []Command) {
	if s.Selection.TeamID == "" {
		return s.selectTeam("")
	}
	team, ok := findTeam(s.Hierarchy.teams, s.Selection.TeamID)
	if !ok {
		return s.selectTeam("")
	}
	if s.Selection.ProjectID != "" && findProject(team.Projects, s.Selection.ProjectID) >= 0 {
		return s, nil
	}
	return s.selectProject("")
}

func (s State) selectTeam(teamID string) (State, []Command) {
	team, ok := resolveTeam(s.Hierarchy.teams, teamID)
	if !ok {
		s.Selection = Selection{}
		return s, nil
	}
	s.Selection = Selection{TeamID: team.ID}
	if len(team.Projects) == 0 {
		return s, nil
	}
	s.Selection.ProjectID = team.Projects[0].ID
	return s.requestProjectDetail(s.Selection.ProjectID)
}

func (s State) selectProject(projectID string) (State, []Command) {
	s.Selection.IterationID = ""
	team, ok := resolveTeam(s.Hierarchy.teams, s.Selection.TeamID)
	if !ok {
		s.Selection = Selection{}
		return s, nil
	}
	s.Selection.TeamID = team.ID
	project, ok := resolveProject(team.Projects, projectID)
	if !ok {
		s.Selection.ProjectID = ""
		return s, nil
	}
	s.Selection.ProjectID = project.ID
	return s.requestProjectDetail(project.ID)
}

func (s State) selectIteration(iterationID string) State {
	if s.Selection.ProjectID == "" {
		s.Selection.IterationID = ""
		return s
	}
	s.Selection.IterationID = iterationID
	if detail, ok := s.Hierarchy.Detail(s.Selection.ProjectID); ok {
		s = s.reconcileIteration(s.Selection.ProjectID, detail)
	}
	return s
}

// reconcileIteration completes the cascade once projectID's iterations are
// known. Responses for a project that is no longer selected change nothing.
func (s State) reconcileIteration(projectID string, detail ProjectDetail) State {
	if s.Selection.ProjectID != projectID {
		return s
	}
	if s.Selection.IterationID != "" && findIteration(detail.Iterations, s.Selection.IterationID) >= 0 {
		return s
	}
	s.Selection.IterationID = ""
	if len(detail.Iterations) > 0 {
		s.Selection.IterationID = detail.Iterations[0].ID
	}
	return s
}

func findTeam(teams []Team, id string) (Team, bool) {
	for _, t := range teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

func findProject(projects []ProjectSummary, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func findIteration(iterations []Iteration, id string) int {
	for i, it := range iterations {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func resolveTeam(teams []Team, id string) (Team, bool) {
	if len(teams) == 0 {
		return Team{}, false
	}
	if t, ok := findTeam(teams, id); ok {
		return t, true
	}
	return teams[0], true
}

func resolveProject(projects []ProjectSummary, id string) (ProjectSummary, bool) {
	if len(projects) == 0 {
		return ProjectSummary{}, false
	}
	if i := findProject(projects, id); i >= 0 {
		return projects[i], true
	}
	return projects[0], true
}

func resolveIteration(iterations []Iteration, id string) (Iteration, bool) {
	if len(iterations) == 0 {
		return Iteration{}, false
	}
	if i := findIteration(iterations, id); i >= 0 {
		return iterations[i], true
	}
	return iterations[0], true
}
