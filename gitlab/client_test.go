package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"gitlabanalyzer/logger"
	"gitlabanalyzer/models"
)

func init() {
	// Initialize logger for tests
	_ = logger.Initialize("debug")
}

const testToken = "glpat-test"

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v4/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("PRIVATE-TOKEN") != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"401 Unauthorized"}`)
			return
		}
		fmt.Fprint(w, `{"id":1,"username":"alice","name":"Alice"}`)
	})

	mux.HandleFunc("GET /api/v4/projects", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("membership"))
		fmt.Fprint(w, `[{"id":12,"name":"demo","path":"demo","web_url":"https://gitlab.example/team/demo","namespace":{"name":"Team","path":"team"}}]`)
	})

	mux.HandleFunc("GET /api/v4/projects/12", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":12,"name":"demo","path":"demo","namespace":{"name":"Team","path":"team"}}`)
	})

	mux.HandleFunc("GET /api/v4/projects/404", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"404 Project Not Found"}`)
	})

	mux.HandleFunc("GET /api/v4/projects/12/merge_requests", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id":102,"iid":2,"project_id":12,"title":"second","state":"opened","created_at":"2024-01-08T09:00:00Z","author":{"id":2,"username":"bob","name":"Bob"}}]`)
			return
		}
		w.Header().Set("X-Next-Page", "2")
		fmt.Fprint(w, `[{"id":101,"iid":1,"project_id":12,"title":"first","description":"Closes #3","state":"merged",`+
			`"created_at":"2024-01-05T09:00:00Z","merged_at":"2024-01-06T09:00:00Z",`+
			`"author":{"id":1,"username":"alice","name":"Alice"},"merged_by":{"id":2,"username":"bob","name":"Bob"}}]`)
	})

	mux.HandleFunc("GET /api/v4/projects/12/merge_requests/1/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"c1","short_id":"c1","title":"one","author_name":"A","committer_name":"A","committed_date":"2024-01-05T10:00:00Z"}]`)
	})

	mux.HandleFunc("GET /api/v4/projects/12/merge_requests/2/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	mux.HandleFunc("GET /api/v4/projects/12/merge_requests/1/diffs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"old_path":"a.go","new_path":"a.go","a_mode":"100644","b_mode":"100644","diff":"+x\n","new_file":false,"renamed_file":false,"deleted_file":false}]`)
	})

	mux.HandleFunc("GET /api/v4/projects/12/repository/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"c1","author_name":"A"},{"id":"t1","author_name":"C","committed_date":"2024-01-01T00:00:00Z"}]`)
	})

	mux.HandleFunc("GET /api/v4/projects/12/members/all", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1,"username":"alice","name":"Alice"},{"id":2,"username":"bob","name":"Bob"}]`)
	})

	mux.HandleFunc("GET /api/v4/projects/12/issues", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":900,"iid":3,"project_id":12,"title":"bug","state":"closed","author":{"id":1},`+
			`"merge_requests_count":1,"user_notes_count":4,"assignees":[{"id":2}],`+
			`"created_at":"2024-01-02T00:00:00Z","updated_at":"2024-01-07T00:00:00Z","closed_at":"2024-01-06T09:00:00Z"}]`)
	})

	return httptest.NewServer(mux)
}

func openSession(t *testing.T, serverURL string) *Session {
	t.Helper()
	s, err := NewAuthenticator(gitlab.WithoutRetries()).Authenticate(context.Background(), testToken, serverURL)
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	testCases := []struct {
		name          string
		token         string
		expectedError error
	}{
		{name: "valid token", token: testToken},
		{name: "rejected token", token: "wrong", expectedError: models.ErrInvalidCredential},
		{name: "empty token", token: "", expectedError: models.ErrInvalidCredential},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			session, err := NewAuthenticator(gitlab.WithoutRetries()).Authenticate(context.Background(), tc.token, server.URL)
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", session.Username())
		})
	}
}

func TestGetProject(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	session := openSession(t, server.URL)

	p, err := session.GetProject(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, "Team", p.NamespaceName)
	assert.Equal(t, "team", p.NamespacePath)

	_, err = session.GetProject(context.Background(), 404)
	assert.ErrorIs(t, err, models.ErrProjectNotFound)
}

func TestGetProjectList(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	session := openSession(t, server.URL)

	projects, err := session.GetProjectList(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "https://gitlab.example/team/demo", projects[0].WebURL)
}

func TestGetMergeRequestsAndCommits(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	session := openSession(t, server.URL)

	mrs, commits, err := session.GetMergeRequestsAndCommits(context.Background(), 12, models.StateAll)
	require.NoError(t, err)
	require.Len(t, mrs, 2)
	require.Len(t, commits, 2)

	first := mrs[0]
	assert.Equal(t, 101, first.ID)
	assert.Equal(t, "alice", first.Author.Username)
	require.NotNil(t, first.MergedByID)
	assert.Equal(t, 2, *first.MergedByID)
	require.NotNil(t, first.MergedAt)
	assert.True(t, first.MergedAt.Equal(time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC)))

	assert.Nil(t, mrs[1].MergedByID)

	require.Len(t, commits[0], 1)
	assert.Equal(t, "c1", commits[0][0].ID)
	assert.Empty(t, commits[1])
}

func TestGetMergeRequestDiffs(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	session := openSession(t, server.URL)

	diffs, err := session.GetMergeRequestDiffs(context.Background(), 12, 1)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, "+x\n", diffs[0].Diff)
	assert.Equal(t, "100644", diffs[0].AMode)
}

func TestProjectCollections(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	session := openSession(t, server.URL)
	ctx := context.Background()

	commits, err := session.GetCommitListForProject(ctx, 12)
	require.NoError(t, err)
	assert.Len(t, commits, 2)
	assert.True(t, commits[0].CommittedDate.IsZero())

	members, err := session.GetAllMembers(ctx, 12)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	issues, err := session.GetIssueList(ctx, 12)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, 3, issues[0].IID)
	assert.Equal(t, 1, issues[0].AuthorID)
	assert.Equal(t, 1, issues[0].MergeRequestsCount)
	assert.Equal(t, 4, issues[0].UserNotesCount)
	assert.Equal(t, []int{2}, issues[0].AssigneeIDs)
	require.NotNil(t, issues[0].ClosedAt)
}
