package filter

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"storymap-cli/internal/model"
)

// Filter state is persisted twice: a compact query-string form for the
// addressable URL (keys omitted when they equal "show everything", so URLs
// stay short) and a JSON form for the client store, keyed by project id.
// On restore the URL wins over the store, which wins over the defaults.

const (
	queryKeyStatus   = "status"
	queryKeyReleases = "releases"
	queryKeySearch   = "search"
)

// EncodeQuery serializes the non-default parts of the state.
func EncodeQuery(s State, p model.Project) url.Values {
	v := url.Values{}
	if !s.AllStatusesOn() {
		var parts []string
		for _, st := range s.SortedStatuses() {
			parts = append(parts, string(st))
		}
		v.Set(queryKeyStatus, strings.Join(parts, ","))
	}
	if !s.AllReleasesOn(p) {
		var parts []string
		for _, id := range s.SortedReleases() {
			parts = append(parts, strconv.FormatInt(id, 10))
		}
		v.Set(queryKeyReleases, strings.Join(parts, ","))
	}
	if q := strings.TrimSpace(s.Search); q != "" {
		v.Set(queryKeySearch, q)
	}
	return v
}

// storedState is the JSON shape written to the client store.
type storedState struct {
	Status   []string `json:"status"`
	Releases []int64  `json:"releases"`
	Search   string   `json:"search"`
}

func EncodeStored(s State) (string, error) {
	st := storedState{Search: strings.TrimSpace(s.Search)}
	for _, v := range s.SortedStatuses() {
		st.Status = append(st.Status, string(v))
	}
	st.Releases = s.SortedReleases()
	b, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Restore builds the initial state from the URL query and the stored JSON.
// Either input may be empty. Restored release ids that no longer exist in
// the project are dropped; a set left empty by sanitizing (or absent) falls
// back to "all" so a stale filter can never blank the whole map.
func Restore(p model.Project, query url.Values, stored string) State {
	s := Default(p)

	if strings.TrimSpace(stored) != "" {
		var st storedState
		if err := json.Unmarshal([]byte(stored), &st); err == nil {
			applyStatuses(&s, st.Status)
			applyReleases(&s, p, st.Releases)
			s.Search = st.Search
		}
	}

	if raw := query.Get(queryKeyStatus); raw != "" {
		applyStatuses(&s, strings.Split(raw, ","))
	}
	if raw := query.Get(queryKeyReleases); raw != "" {
		var ids []int64
		for _, part := range strings.Split(raw, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		applyReleases(&s, p, ids)
	}
	if query.Has(queryKeySearch) {
		s.Search = query.Get(queryKeySearch)
	}
	return s
}

func applyStatuses(s *State, raw []string) {
	set := map[model.StoryStatus]bool{}
	for _, part := range raw {
		st := model.StoryStatus(strings.TrimSpace(part))
		if model.ValidStatus(st) {
			set[st] = true
		}
	}
	if len(set) == 0 {
		s.Statuses = allStatuses()
		return
	}
	s.Statuses = set
}

func applyReleases(s *State, p model.Project, ids []int64) {
	set := map[int64]bool{}
	for _, id := range ids {
		if _, ok := p.FindRelease(id); ok {
			set[id] = true
		}
	}
	if len(set) == 0 {
		s.Releases = allReleases(p)
		return
	}
	s.Releases = set
}
