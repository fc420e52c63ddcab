// Package models defines the domain entities synchronized from GitLab and the
// document shapes they are persisted as.
package models

import "time"

// Document is a plain key-value form of an entity, matching the persisted schema.
type Document map[string]any

// Merge request states reported by GitLab.
const (
	StateOpened = "opened"
	StateMerged = "merged"
	StateClosed = "closed"
	StateAll    = "all"
)

// CommitRecord is a commit as returned by the provider
type CommitRecord struct {
	ID             string
	ShortID        string
	Title          string
	Message        string
	AuthorName     string
	AuthorEmail    string
	CommitterName  string
	CommitterEmail string
	CommittedDate  time.Time
}

// MergeRequestRecord is a merge request as returned by the provider
type MergeRequestRecord struct {
	ID          int
	IID         int
	ProjectID   int
	Author      MemberRecord
	Title       string
	Description string
	State       string
	CreatedAt   time.Time
	MergedAt    *time.Time
	MergedByID  *int
}

// MemberRecord is a project member as returned by the provider
type MemberRecord struct {
	ID       int
	Username string
	Name     string
}

// IssueRecord is an issue as returned by the provider
type IssueRecord struct {
	ID                 int
	IID                int
	ProjectID          int
	AuthorID           int
	Title              string
	Description        string
	State              string
	MergeRequestsCount int
	UserNotesCount     int
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ClosedAt           *time.Time
	AssigneeIDs        []int
}

// DiffRecord is a single file diff of a merge request as returned by the provider
type DiffRecord struct {
	OldPath     string
	NewPath     string
	AMode       string
	BMode       string
	Diff        string
	NewFile     bool
	RenamedFile bool
	DeletedFile bool
}

// ProjectSummary describes a remote project
type ProjectSummary struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Path          string `json:"path"`
	NamespaceName string `json:"namespace_name"`
	NamespacePath string `json:"namespace_path"`
	WebURL        string `json:"web_url"`
}

// ToDocument returns the document form of the project summary.
func (p ProjectSummary) ToDocument() Document {
	return Document{
		"id":   p.ID,
		"name": p.Name,
		"path": p.Path,
		"namespace": Document{
			"name": p.NamespaceName,
			"path": p.NamespacePath,
		},
		"web_url": p.WebURL,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func intPtrValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
