package project

import (
	"context"

	"gitlabanalyzer/models"
)

// Source is the remote data a project aggregate is synchronized from.
type Source interface {
	// GetMergeRequestsAndCommits returns the merge requests in the given state and,
	// in parallel, the commit list of each of them.
	GetMergeRequestsAndCommits(ctx context.Context, projectID int, state string) ([]models.MergeRequestRecord, [][]models.CommitRecord, error)
	GetAllMembers(ctx context.Context, projectID int) ([]models.MemberRecord, error)
	GetCommitListForProject(ctx context.Context, projectID int) ([]models.CommitRecord, error)
	GetIssueList(ctx context.Context, projectID int) ([]models.IssueRecord, error)
	GetMergeRequestDiffs(ctx context.Context, projectID, iid int) ([]models.DiffRecord, error)
}
