package models

import "time"

// IssueKey is the composite identity of an issue.
type IssueKey struct {
	ProjectID int
	IssueID   int
}

// Issue is a project issue. IssueID is the project scoped iid.
type Issue struct {
	ProjectID          int
	IssueID            int
	AuthorID           int
	MergeRequestsCount int
	CommentCount       int
	Title              string
	Description        string
	State              string
	CreatedDate        time.Time
	UpdatedDate        time.Time
	ClosedDate         *time.Time
	AssigneeIDs        []int
}

// NewIssue creates an Issue from a provider record
func NewIssue(rec IssueRecord) Issue {
	assignees := make([]int, len(rec.AssigneeIDs))
	copy(assignees, rec.AssigneeIDs)

	return Issue{
		ProjectID:          rec.ProjectID,
		IssueID:            rec.IID,
		AuthorID:           rec.AuthorID,
		MergeRequestsCount: rec.MergeRequestsCount,
		CommentCount:       rec.UserNotesCount,
		Title:              rec.Title,
		Description:        rec.Description,
		State:              rec.State,
		CreatedDate:        rec.CreatedAt,
		UpdatedDate:        rec.UpdatedAt,
		ClosedDate:         rec.ClosedAt,
		AssigneeIDs:        assignees,
	}
}

// Key returns the composite identity of the issue.
func (i Issue) Key() IssueKey {
	return IssueKey{ProjectID: i.ProjectID, IssueID: i.IssueID}
}

// ToDocument returns the document form of the issue.
func (i Issue) ToDocument() Document {
	return Document{
		"project_id":           i.ProjectID,
		"issue_id":             i.IssueID,
		"author_id":            i.AuthorID,
		"merge_requests_count": i.MergeRequestsCount,
		"comment_count":        i.CommentCount,
		"title":                i.Title,
		"description":          i.Description,
		"state":                i.State,
		"created_date":         formatTime(i.CreatedDate),
		"updated_date":         formatTime(i.UpdatedDate),
		"closed_date":          formatTimePtr(i.ClosedDate),
		"assignee_id_list":     append([]int{}, i.AssigneeIDs...),
	}
}
