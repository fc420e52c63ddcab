package manager

import (
	"sync"

	"gitlabanalyzer/models"
)

// CommitManager is the single owner of a project's commits. Merge request commits
// and trunk commits share one registry; the trunk view is an ordered list of ids
// into it, so a commit seen through both views is stored once.
type CommitManager struct {
	commits *Registry[string, models.Commit]

	mu    sync.RWMutex
	trunk []string
	seen  map[string]struct{}
}

// NewCommitManager creates an empty CommitManager
func NewCommitManager() *CommitManager {
	return &CommitManager{
		commits: NewRegistry(func(c models.Commit) string { return c.ID }),
		seen:    make(map[string]struct{}),
	}
}

// Add registers a commit. The first registration of an id wins.
func (m *CommitManager) Add(c models.Commit) bool {
	return m.commits.Add(c)
}

// AddTrunk registers c if absent and appends its id to the trunk view once.
func (m *CommitManager) AddTrunk(c models.Commit) bool {
	m.commits.Add(c)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[c.ID]; ok {
		return false
	}
	m.seen[c.ID] = struct{}{}
	m.trunk = append(m.trunk, c.ID)
	return true
}

// Get returns the commit with the given id.
func (m *CommitManager) Get(id string) (models.Commit, bool) {
	return m.commits.Get(id)
}

// List returns every registered commit in registration order.
func (m *CommitManager) List() []models.Commit {
	return m.commits.List()
}

// TrunkList returns the commits of the whole-project commit list in listing order.
func (m *CommitManager) TrunkList() []models.Commit {
	m.mu.RLock()
	ids := make([]string, len(m.trunk))
	copy(ids, m.trunk)
	m.mu.RUnlock()

	return m.ByIDs(ids)
}

// ByIDs resolves ids to commits, skipping unknown ids.
func (m *CommitManager) ByIDs(ids []string) []models.Commit {
	out := make([]models.Commit, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.commits.Get(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of registered commits.
func (m *CommitManager) Len() int {
	return m.commits.Len()
}
