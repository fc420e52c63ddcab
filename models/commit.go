package models

import "time"

// Commit is a single commit of a project. A nil MergeRequestID means the commit is
// reachable only from the trunk branch.
type Commit struct {
	ID             string
	ShortID        string
	Title          string
	AuthorName     string
	AuthorEmail    string
	CommitterName  string
	CommittedDate  time.Time
	MergeRequestID *int
}

// NewCommit creates a Commit from a provider record, owned by the merge request mrID
// (nil for trunk commits).
func NewCommit(rec CommitRecord, mrID *int) Commit {
	c := Commit{
		ID:            rec.ID,
		ShortID:       rec.ShortID,
		Title:         rec.Title,
		AuthorName:    rec.AuthorName,
		AuthorEmail:   rec.AuthorEmail,
		CommitterName: rec.CommitterName,
		CommittedDate: rec.CommittedDate,
	}
	if mrID != nil {
		id := *mrID
		c.MergeRequestID = &id
	}
	return c
}

// IsTrunk reports whether the commit is not owned by any merge request.
func (c Commit) IsTrunk() bool {
	return c.MergeRequestID == nil
}

// ToDocument returns the document form of the commit.
func (c Commit) ToDocument() Document {
	return Document{
		"id":             c.ID,
		"short_id":       c.ShortID,
		"title":          c.Title,
		"author_name":    c.AuthorName,
		"author_email":   c.AuthorEmail,
		"committer_name": c.CommitterName,
		"committed_date": formatTime(c.CommittedDate),
		"mr_id":          intPtrValue(c.MergeRequestID),
	}
}
