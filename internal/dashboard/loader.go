package dashboard

import (
	"maps"
	"slices"
)

// Hierarchy caches the team list and the project details fetched so far,
// along with one loading flag and one error slot per fetch scope.
//
// A Hierarchy is a value: every mutating method returns an updated copy and
// leaves the receiver's maps untouched, so earlier State values stay valid.
type Hierarchy struct {
	teams        []Team
	teamsLoaded  bool
	teamsLoading bool
	teamsErr     error

	details       map[string]ProjectDetail
	detailLoading map[string]bool
	detailErrs    map[string]error
}

// Teams returns the last successfully fetched team list.
func (h Hierarchy) Teams() []Team { return h.teams }

// TeamsLoaded reports whether at least one team fetch has succeeded.
func (h Hierarchy) TeamsLoaded() bool { return h.teamsLoaded }

// TeamsLoading reports whether a team fetch is in flight.
func (h Hierarchy) TeamsLoading() bool { return h.teamsLoading }

// TeamsErr returns the error of the last team fetch, if it failed.
func (h Hierarchy) TeamsErr() error { return h.teamsErr }

// Detail returns the cached detail of a project.
func (h Hierarchy) Detail(projectID string) (ProjectDetail, bool) {
	d, ok := h.details[projectID]
	return d, ok
}

// DetailLoading reports whether a detail fetch for projectID is in flight.
func (h Hierarchy) DetailLoading(projectID string) bool { return h.detailLoading[projectID] }

// DetailErr returns the error of the last detail fetch for projectID.
func (h Hierarchy) DetailErr(projectID string) error { return h.detailErrs[projectID] }

// Pending returns the ids of projects whose detail fetch is in flight.
func (h Hierarchy) Pending() []string {
	ids := slices.Collect(maps.Keys(h.detailLoading))
	slices.Sort(ids)
	return ids
}

func (h Hierarchy) requestTeams() (Hierarchy, bool) {
	if h.teamsLoading {
		return h, false
	}
	h.teamsLoading = true
	return h, true
}

// storeTeams replaces the team cache wholesale. Cached project details are
// kept: the detail cache is never invalidated during a session.
func (h Hierarchy) storeTeams(teams []Team) Hierarchy {
	h.teams = slices.Clone(teams)
	h.teamsLoaded = true
	h.teamsLoading = false
	h.teamsErr = nil
	return h
}

// failTeams records a team fetch failure and keeps whatever was loaded before.
func (h Hierarchy) failTeams(err error) Hierarchy {
	h.teamsLoading = false
	h.teamsErr = &TeamsLoadError{Err: err}
	return h
}

// requestDetail marks projectID as in flight. It reports false when a fetch
// for the same project is already outstanding.
func (h Hierarchy) requestDetail(projectID string) (Hierarchy, bool) {
	if h.detailLoading[projectID] {
		return h, false
	}
	h.detailLoading = cloneMap(h.detailLoading)
	h.detailLoading[projectID] = true
	if _, ok := h.detailErrs[projectID]; ok {
		h.detailErrs = cloneMap(h.detailErrs)
		delete(h.detailErrs, projectID)
	}
	return h, true
}

func (h Hierarchy) storeDetail(projectID string, detail ProjectDetail) Hierarchy {
	h.details = cloneMap(h.details)
	h.details[projectID] = detail
	h = h.settle(projectID)
	if _, ok := h.detailErrs[projectID]; ok {
		h.detailErrs = cloneMap(h.detailErrs)
		delete(h.detailErrs, projectID)
	}
	return h
}

func (h Hierarchy) failDetail(projectID string, err error) Hierarchy {
	h = h.settle(projectID)
	h.detailErrs = cloneMap(h.detailErrs)
	h.detailErrs[projectID] = &ProjectDetailLoadError{ProjectID: projectID, Err: err}
	return h
}

func (h Hierarchy) settle(projectID string) Hierarchy {
	if !h.detailLoading[projectID] {
		return h
	}
	h.detailLoading = cloneMap(h.detailLoading)
	delete(h.detailLoading, projectID)
	return h
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return make(map[string]V)
	}
	return maps.Clone(m)
}
