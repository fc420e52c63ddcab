package manager

import (
	"fmt"
	"sync"
	"time"

	"gitlabanalyzer/models"
)

// MergeRequestManager holds the merge requests of a project together with their
// enrichment, which is kept apart from the immutable merge request values.
type MergeRequestManager struct {
	requests *Registry[int, models.MergeRequest]

	mu          sync.RWMutex
	byIID       map[int]int
	enrichments map[int]models.Enrichment
}

// NewMergeRequestManager creates an empty MergeRequestManager
func NewMergeRequestManager() *MergeRequestManager {
	return &MergeRequestManager{
		requests:    NewRegistry(func(mr models.MergeRequest) int { return mr.ID }),
		byIID:       make(map[int]int),
		enrichments: make(map[int]models.Enrichment),
	}
}

// Add registers a merge request unless its id is already known.
func (m *MergeRequestManager) Add(mr models.MergeRequest) bool {
	if !m.requests.Add(mr) {
		return false
	}

	m.mu.Lock()
	m.byIID[mr.IID] = mr.ID
	m.mu.Unlock()
	return true
}

// GetByID returns the merge request with the given global id.
func (m *MergeRequestManager) GetByID(id int) (models.MergeRequest, bool) {
	return m.requests.Get(id)
}

// GetByIID returns the merge request with the given project scoped iid.
func (m *MergeRequestManager) GetByIID(iid int) (models.MergeRequest, bool) {
	m.mu.RLock()
	id, ok := m.byIID[iid]
	m.mu.RUnlock()

	if !ok {
		return models.MergeRequest{}, false
	}
	return m.requests.Get(id)
}

// List returns all merge requests in registration order.
func (m *MergeRequestManager) List() []models.MergeRequest {
	return m.requests.List()
}

// Len returns the number of merge requests.
func (m *MergeRequestManager) Len() int {
	return m.requests.Len()
}

// GetInDateRange returns the merge requests created between start and end, both
// bounds inclusive.
func (m *MergeRequestManager) GetInDateRange(start, end string) ([]models.MergeRequest, error) {
	from, err := models.ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("range start: %w", err)
	}
	to, err := models.ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("range end: %w", err)
	}

	return m.filter(func(created time.Time) bool {
		return !created.Before(from) && !created.After(to)
	}), nil
}

func (m *MergeRequestManager) filter(keep func(time.Time) bool) []models.MergeRequest {
	var out []models.MergeRequest
	for _, mr := range m.requests.List() {
		if keep(mr.CreatedDate) {
			out = append(out, mr)
		}
	}
	return out
}

// GetRelatedCommitIDs returns the commit ids of the merge request with the given
// iid. The boolean is false when the iid is unknown.
func (m *MergeRequestManager) GetRelatedCommitIDs(iid int) ([]string, bool) {
	mr, ok := m.GetByIID(iid)
	if !ok {
		return nil, false
	}
	return mr.RelatedCommitIDs(), true
}

// SetEnrichment attaches enrichment data to the merge request with id mrID.
func (m *MergeRequestManager) SetEnrichment(mrID int, e models.Enrichment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrichments[mrID] = e
}

// Enrichment returns the enrichment data of the merge request with id mrID.
func (m *MergeRequestManager) Enrichment(mrID int) (models.Enrichment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrichments[mrID]
	return e, ok
}
