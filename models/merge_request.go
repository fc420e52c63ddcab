package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const relatedIssueMarker = "Closes #"

var leadingDigits = regexp.MustCompile(`^[0-9]+`)

// MergeRequest is a merge request together with the ids of the commits it owns.
// The related commits are fixed at construction; enrichment data lives in a
// separate Enrichment keyed by the merge request id.
type MergeRequest struct {
	ID              int
	IID             int
	Author          Member
	Title           string
	Description     string
	State           string
	CreatedDate     time.Time
	MergedDate      *time.Time
	MergedBy        *int
	RelatedIssueIID *int

	relatedCommitIDs []string
}

// NewMergeRequest creates a MergeRequest from a provider record and its already built commits.
func NewMergeRequest(rec MergeRequestRecord, commits []Commit) MergeRequest {
	mr := MergeRequest{
		ID:              rec.ID,
		IID:             rec.IID,
		Author:          NewMember(rec.Author),
		Title:           rec.Title,
		Description:     rec.Description,
		State:           rec.State,
		CreatedDate:     rec.CreatedAt,
		MergedDate:      rec.MergedAt,
		RelatedIssueIID: ParseRelatedIssueIID(rec.Description),
	}

	// merged_by only carries meaning once the merge request is merged
	if rec.State == StateMerged && rec.MergedByID != nil {
		id := *rec.MergedByID
		mr.MergedBy = &id
	}

	mr.relatedCommitIDs = make([]string, 0, len(commits))
	for _, c := range commits {
		mr.relatedCommitIDs = append(mr.relatedCommitIDs, c.ID)
	}
	return mr
}

// RelatedCommitIDs returns a copy of the ids of the commits owned by the merge request.
func (m MergeRequest) RelatedCommitIDs() []string {
	ids := make([]string, len(m.relatedCommitIDs))
	copy(ids, m.relatedCommitIDs)
	return ids
}

// ToDocument returns the document form of the merge request.
func (m MergeRequest) ToDocument() Document {
	return Document{
		"id":                 m.ID,
		"iid":                m.IID,
		"author":             m.Author.ToDocument(),
		"title":              m.Title,
		"description":        m.Description,
		"state":              m.State,
		"created_date":       formatTime(m.CreatedDate),
		"merged_date":        formatTimePtr(m.MergedDate),
		"merged_by":          intPtrValue(m.MergedBy),
		"related_issue_iid":  intPtrValue(m.RelatedIssueIID),
		"related_commit_ids": m.RelatedCommitIDs(),
	}
}

// ParseRelatedIssueIID extracts the issue iid referenced by a "Closes #<n>" marker.
// Only the digits directly after the first marker count; nil when there are none.
func ParseRelatedIssueIID(description string) *int {
	idx := strings.Index(description, relatedIssueMarker)
	if idx < 0 {
		return nil
	}

	digits := leadingDigits.FindString(description[idx+len(relatedIssueMarker):])
	if digits == "" {
		return nil
	}

	iid, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &iid
}

// Enrichment holds the data attached to a merge request after construction.
type Enrichment struct {
	CodeDiffID int
	LineCounts LineCounts
}

// Apply writes the enrichment fields into a merge request document.
func (e Enrichment) Apply(doc Document) Document {
	doc["code_diff_id"] = e.CodeDiffID
	doc["line_counts"] = e.LineCounts.ToDocument()
	return doc
}
