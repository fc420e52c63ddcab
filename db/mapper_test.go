package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlabanalyzer/models"
	"gitlabanalyzer/project"
)

// MockStore is a mock implementation of DocumentStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertOne(ctx context.Context, collection string, entry Entry) (bool, error) {
	args := m.Called(ctx, collection, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) InsertMany(ctx context.Context, collection string, entries []Entry) (bool, error) {
	args := m.Called(ctx, collection, entries)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ListCollections(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

// staticSource serves fixed records for one project
type staticSource struct {
	mrs     []models.MergeRequestRecord
	commits [][]models.CommitRecord
	trunk   []models.CommitRecord
	members []models.MemberRecord
	issues  []models.IssueRecord
}

func (s staticSource) GetMergeRequestsAndCommits(context.Context, int, string) ([]models.MergeRequestRecord, [][]models.CommitRecord, error) {
	return s.mrs, s.commits, nil
}

func (s staticSource) GetAllMembers(context.Context, int) ([]models.MemberRecord, error) {
	return s.members, nil
}

func (s staticSource) GetCommitListForProject(context.Context, int) ([]models.CommitRecord, error) {
	return s.trunk, nil
}

func (s staticSource) GetIssueList(context.Context, int) ([]models.IssueRecord, error) {
	return s.issues, nil
}

func (s staticSource) GetMergeRequestDiffs(context.Context, int, int) ([]models.DiffRecord, error) {
	return []models.DiffRecord{{NewPath: "main.go", Diff: "+x\n"}}, nil
}

func syncedProject(t *testing.T) *project.Project {
	t.Helper()
	created := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	src := staticSource{
		mrs: []models.MergeRequestRecord{
			{ID: 101, IID: 1, State: models.StateOpened, CreatedAt: created, Description: "Closes #4"},
		},
		commits: [][]models.CommitRecord{
			{{ID: "c1", AuthorName: "B"}, {ID: "c2", AuthorName: "A"}, {ID: "c3", AuthorName: "B"}},
		},
		trunk:   []models.CommitRecord{{ID: "t1", AuthorName: "C"}},
		members: []models.MemberRecord{{ID: 1, Username: "alice"}},
		issues:  []models.IssueRecord{{IID: 4, Title: "bug"}},
	}

	p := project.New(12, models.ProjectSummary{ID: 12, Name: "demo", Path: "demo", NamespaceName: "Team", NamespacePath: "team"}, src)
	require.NoError(t, p.Sync(context.Background()))
	return p
}

func TestMergeRequestEntry(t *testing.T) {
	s := syncedProject(t).Snapshot()
	require.Len(t, s.MergeRequests, 1)

	e, err := mergeRequestEntry(12, s.MergeRequests[0])
	require.NoError(t, err)

	assert.Equal(t, `[101,12]`, e.ID)
	assert.Equal(t, 101, e.Document["mr_id"])
	assert.Equal(t, 12, e.Document["project_id"])
	assert.Equal(t, 4, e.Document["issue_id"])
	assert.Equal(t, []string{"A", "B"}, e.Document["contributors"])
	assert.Equal(t, []string{"c1", "c2", "c3"}, e.Document["related_commit_ids"])
	assert.Equal(t, 0, e.Document["code_diff_id"])
	assert.NotContains(t, e.Document, "id")
	assert.NotContains(t, e.Document, "related_issue_iid")
}

func TestProjectEntry(t *testing.T) {
	s := syncedProject(t).Snapshot()
	m := NewMapper(new(MockStore))
	m.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 15, 999, time.UTC) }

	e, err := m.projectEntry(s, nil)
	require.NoError(t, err)

	assert.Equal(t, "12", e.ID)
	assert.Equal(t, models.Document{"name": "Team", "path": "team"}, e.Document["namespace"])
	assert.Equal(t, "2024-03-01T12:30:15Z", e.Document["last_cached_date"])
	assert.Equal(t, []int{1}, e.Document["member_ids"])
	assert.Equal(t, []string{"B", "A", "C"}, e.Document["user_list"])
	assert.Equal(t, models.Document{}, e.Document["config"])
}

func TestCommitEntry(t *testing.T) {
	mrID := 101
	diffID := 3
	date := time.Date(2024, 1, 1, 8, 0, 0, 0, time.FixedZone("CET", 3600))

	owned, err := commitEntry(12, models.NewCommit(models.CommitRecord{ID: "c1", AuthorName: "A", CommitterName: "bot", CommittedDate: date}, &mrID), &diffID)
	require.NoError(t, err)
	assert.Equal(t, `["c1",12]`, owned.ID)
	assert.Equal(t, 101, owned.Document["mr_id"])
	assert.Equal(t, 3, owned.Document["code_diff_id"])
	assert.Equal(t, "bot", owned.Document["committer"])
	assert.Equal(t, "2024-01-01T07:00:00Z", owned.Document["commit_date"])

	trunk, err := commitEntry(12, models.NewCommit(models.CommitRecord{ID: "t1"}, nil), nil)
	require.NoError(t, err)
	assert.Nil(t, trunk.Document["mr_id"])
	assert.Nil(t, trunk.Document["code_diff_id"])
}

func TestIssueAndCommentKeys(t *testing.T) {
	issue, err := issueEntry(models.Issue{ProjectID: 12, IssueID: 4})
	require.NoError(t, err)
	assert.Equal(t, `[12,4]`, issue.ID)

	comment, err := commentEntry(12, models.Comment{ID: 77, AuthorName: "A"})
	require.NoError(t, err)
	assert.Equal(t, `[77,12]`, comment.ID)
	assert.Equal(t, 12, comment.Document["project_id"])

	member, err := memberEntry(models.Member{ID: 5})
	require.NoError(t, err)
	assert.Equal(t, `5`, member.ID)
}

func TestInsertUser(t *testing.T) {
	store := new(MockStore)
	store.On("InsertOne", mock.Anything, CollectionUsers, Entry{
		ID:       `"hash"`,
		Document: models.Document{"hashed_token": "hash", "config": models.Document{"gitlab_url": "https://gitlab.example"}},
	}).Return(true, nil)

	require.NoError(t, NewMapper(store).PersistUser(context.Background(), "hash", "https://gitlab.example"))
	store.AssertExpectations(t)

	_, err := NewMapper(store).InsertUser(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInsertManyIssues(t *testing.T) {
	store := new(MockStore)
	store.On("InsertMany", mock.Anything, CollectionIssues, mock.MatchedBy(func(entries []Entry) bool {
		return len(entries) == 2 && entries[0].ID == `[1,1]` && entries[1].ID == `[1,2]`
	})).Return(false, nil)

	ok, err := NewMapper(store).InsertManyIssues(context.Background(), []models.Issue{
		{ProjectID: 1, IssueID: 1},
		{ProjectID: 1, IssueID: 2},
	})
	require.NoError(t, err)
	assert.False(t, ok)
	store.AssertExpectations(t)
}

func TestPersistProject(t *testing.T) {
	p := syncedProject(t)

	t.Run("duplicates are skipped without error", func(t *testing.T) {
		store := new(MockStore)
		store.On("InsertOne", mock.Anything, CollectionCommits, mock.MatchedBy(func(e Entry) bool {
			return e.ID == `["c1",12]`
		})).Return(false, nil)
		store.On("InsertOne", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

		require.NoError(t, NewMapper(store).PersistProject(context.Background(), p))

		// project, merge request, 4 commits, code diff, member, issue
		store.AssertNumberOfCalls(t, "InsertOne", 9)
		store.AssertNotCalled(t, "InsertOne", mock.Anything, CollectionComments, mock.Anything)
	})

	t.Run("store errors are collected", func(t *testing.T) {
		boom := errors.New("disk full")
		store := new(MockStore)
		store.On("InsertOne", mock.Anything, CollectionMembers, mock.Anything).Return(false, boom)
		store.On("InsertOne", mock.Anything, CollectionIssues, mock.Anything).Return(false, boom)
		store.On("InsertOne", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

		err := NewMapper(store).PersistProject(context.Background(), p)
		require.ErrorIs(t, err, boom)
		store.AssertNumberOfCalls(t, "InsertOne", 9)
	})
}

func TestCollections(t *testing.T) {
	store := new(MockStore)
	store.On("ListCollections", mock.Anything).Return([]string{"commits"}, nil)

	names, err := NewMapper(store).Collections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"commits"}, names)
}
