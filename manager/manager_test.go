package manager

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlabanalyzer/models"
)

func mrID(v int) *int { return &v }

func TestRegistry(t *testing.T) {
	r := NewRegistry(func(m models.Member) int { return m.ID })

	assert.True(t, r.Add(models.Member{ID: 2, Name: "second"}))
	assert.True(t, r.Add(models.Member{ID: 1, Name: "first"}))
	assert.False(t, r.Add(models.Member{ID: 2, Name: "replacement"}))

	got, ok := r.Get(2)
	require.True(t, ok)
	assert.Equal(t, "second", got.Name)

	_, ok = r.Get(3)
	assert.False(t, ok)
	assert.True(t, r.Has(1))

	assert.Equal(t, []models.Member{{ID: 2, Name: "second"}, {ID: 1, Name: "first"}}, r.List())
	assert.Equal(t, 2, r.Len())
}

func TestRegistryConcurrentAdd(t *testing.T) {
	r := NewRegistry(func(s string) string { return s })

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Add(fmt.Sprintf("%d-%d", w, i))
				r.List()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 800, r.Len())
}

func TestCommitManagerSingleOwnership(t *testing.T) {
	m := NewCommitManager()

	owned := models.NewCommit(models.CommitRecord{ID: "a", AuthorName: "A"}, mrID(10))
	assert.True(t, m.Add(owned))

	// the same commit listed again from the trunk keeps its merge request owner
	assert.True(t, m.AddTrunk(models.NewCommit(models.CommitRecord{ID: "a", AuthorName: "A"}, nil)))
	assert.True(t, m.AddTrunk(models.NewCommit(models.CommitRecord{ID: "b", AuthorName: "B"}, nil)))
	assert.False(t, m.AddTrunk(models.NewCommit(models.CommitRecord{ID: "b", AuthorName: "B"}, nil)))

	assert.Equal(t, 2, m.Len())

	trunk := m.TrunkList()
	require.Len(t, trunk, 2)
	assert.Equal(t, "a", trunk[0].ID)
	require.NotNil(t, trunk[0].MergeRequestID)
	assert.Equal(t, 10, *trunk[0].MergeRequestID)
	assert.True(t, trunk[1].IsTrunk())

	assert.Len(t, m.ByIDs([]string{"b", "missing", "a"}), 2)
}

func newMR(id, iid int, created time.Time, commits ...string) models.MergeRequest {
	list := make([]models.Commit, 0, len(commits))
	for _, c := range commits {
		list = append(list, models.NewCommit(models.CommitRecord{ID: c}, mrID(id)))
	}
	return models.NewMergeRequest(models.MergeRequestRecord{ID: id, IID: iid, CreatedAt: created}, list)
}

func TestMergeRequestManagerLookups(t *testing.T) {
	m := NewMergeRequestManager()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, m.Add(newMR(100, 1, base, "a", "b")))
	assert.True(t, m.Add(newMR(200, 2, base.AddDate(0, 0, 5), "c")))
	assert.False(t, m.Add(newMR(100, 1, base)))

	got, ok := m.GetByIID(2)
	require.True(t, ok)
	assert.Equal(t, 200, got.ID)

	_, ok = m.GetByID(100)
	assert.True(t, ok)

	_, ok = m.GetByIID(99)
	assert.False(t, ok)

	ids, ok := m.GetRelatedCommitIDs(1)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, ok = m.GetRelatedCommitIDs(42)
	assert.False(t, ok)
	assert.Nil(t, ids)
}

func TestMergeRequestManagerGetInDateRange(t *testing.T) {
	m := NewMergeRequestManager()
	m.Add(newMR(1, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	m.Add(newMR(2, 2, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)))
	m.Add(newMR(3, 3, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	tests := []struct {
		name     string
		start    string
		end      string
		expected []int
		wantErr  bool
	}{
		{name: "inclusive bounds", start: "2024-01-01", end: "2024-02-01T00:00:00Z", expected: []int{1, 2, 3}},
		{name: "inner window", start: "2024-01-02", end: "2024-01-31", expected: []int{2}},
		{name: "exact instant", start: "2024-01-15T12:00:00Z", end: "2024-01-15T12:00:00Z", expected: []int{2}},
		{name: "empty window", start: "2023-01-01", end: "2023-12-31", expected: nil},
		{name: "inverted window", start: "2024-02-01", end: "2024-01-01", expected: nil},
		{name: "bad start", start: "soon", end: "2024-01-01", wantErr: true},
		{name: "bad end", start: "2024-01-01", end: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.GetInDateRange(tt.start, tt.end)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidDate)
				return
			}
			require.NoError(t, err)

			var ids []int
			for _, mr := range got {
				ids = append(ids, mr.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestMergeRequestManagerEnrichment(t *testing.T) {
	m := NewMergeRequestManager()
	m.Add(newMR(7, 1, time.Now()))

	_, ok := m.Enrichment(7)
	assert.False(t, ok)

	m.SetEnrichment(7, models.Enrichment{CodeDiffID: 1, LineCounts: models.LineCounts{LinesAdded: 3}})
	e, ok := m.Enrichment(7)
	require.True(t, ok)
	assert.Equal(t, 1, e.CodeDiffID)
}

func TestCommentManagerByAuthor(t *testing.T) {
	m := NewCommentManager()
	assert.Empty(t, m.ByAuthor())

	m.Add(models.Comment{ID: 1, AuthorName: "A"})
	m.Add(models.Comment{ID: 2, AuthorName: "B"})
	m.Add(models.Comment{ID: 3, AuthorName: "A"})

	byAuthor := m.ByAuthor()
	assert.Len(t, byAuthor["A"], 2)
	assert.Len(t, byAuthor["B"], 1)
}

func TestIssueManagerCompositeKey(t *testing.T) {
	m := NewIssueManager()

	assert.True(t, m.Add(models.Issue{ProjectID: 1, IssueID: 5}))
	assert.True(t, m.Add(models.Issue{ProjectID: 2, IssueID: 5}))
	assert.False(t, m.Add(models.Issue{ProjectID: 1, IssueID: 5, Title: "again"}))

	_, ok := m.Get(models.IssueKey{ProjectID: 2, IssueID: 5})
	assert.True(t, ok)
}
