//go:build integration

package db

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"gitlabanalyzer/models"
)

func setupPostgres(ctx context.Context, t *testing.T) (*DB, func()) {
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("gitlab-analyzer"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(connStr))

	conn, err := sqlx.Connect("postgres", connStr)
	require.NoError(t, err)
	database := NewWithConn(conn)

	teardown := func() {
		database.Close()
		require.NoError(t, pgContainer.Terminate(ctx))
	}
	return database, teardown
}

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	database, teardown := setupPostgres(ctx, t)
	defer teardown()

	names, err := database.ListCollections(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"users", "projects", "merge_requests", "commits",
		"code_diffs", "comments", "members", "issues",
	}, names)

	mapper := NewMapper(database)
	commit := models.NewCommit(models.CommitRecord{ID: "abc", AuthorName: "A"}, nil)

	ok, err := mapper.InsertOneCommit(ctx, 9, commit, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mapper.InsertOneCommit(ctx, 9, commit, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// same commit id in another project is a different document
	ok, err = mapper.InsertOneCommit(ctx, 10, commit, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mapper.InsertManyIssues(ctx, []models.Issue{
		{ProjectID: 9, IssueID: 1},
		{ProjectID: 9, IssueID: 2},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// one colliding key rejects the whole batch
	ok, err = mapper.InsertManyIssues(ctx, []models.Issue{
		{ProjectID: 9, IssueID: 3},
		{ProjectID: 9, IssueID: 2},
	})
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := database.FindOne(ctx, CollectionIssues, `[9,3]`)
	require.NoError(t, err)
	assert.False(t, found)

	doc, found, err := database.FindOne(ctx, CollectionCommits, `["abc",9]`)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "abc", doc["commit_id"])
	assert.Nil(t, doc["mr_id"])

	stats, err := database.CollectionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats[CollectionCommits])
	assert.Equal(t, 2, stats[CollectionIssues])
}
