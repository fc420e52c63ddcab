package gitlab

import (
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"gitlabanalyzer/models"
)

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func toProjectSummary(p *gitlab.Project) models.ProjectSummary {
	s := models.ProjectSummary{
		ID:     p.ID,
		Name:   p.Name,
		Path:   p.Path,
		WebURL: p.WebURL,
	}
	if p.Namespace != nil {
		s.NamespaceName = p.Namespace.Name
		s.NamespacePath = p.Namespace.Path
	}
	return s
}

func toMergeRequestRecord(mr *gitlab.BasicMergeRequest) models.MergeRequestRecord {
	rec := models.MergeRequestRecord{
		ID:          mr.ID,
		IID:         mr.IID,
		ProjectID:   mr.ProjectID,
		Title:       mr.Title,
		Description: mr.Description,
		State:       mr.State,
		CreatedAt:   deref(mr.CreatedAt),
		MergedAt:    mr.MergedAt,
	}
	if mr.Author != nil {
		rec.Author = models.MemberRecord{ID: mr.Author.ID, Username: mr.Author.Username, Name: mr.Author.Name}
	}
	if mr.MergedBy != nil {
		id := mr.MergedBy.ID
		rec.MergedByID = &id
	}
	return rec
}

func toCommitRecords(commits []*gitlab.Commit) []models.CommitRecord {
	out := make([]models.CommitRecord, 0, len(commits))
	for _, c := range commits {
		out = append(out, models.CommitRecord{
			ID:             c.ID,
			ShortID:        c.ShortID,
			Title:          c.Title,
			Message:        c.Message,
			AuthorName:     c.AuthorName,
			AuthorEmail:    c.AuthorEmail,
			CommitterName:  c.CommitterName,
			CommitterEmail: c.CommitterEmail,
			CommittedDate:  deref(c.CommittedDate),
		})
	}
	return out
}

func toIssueRecord(i *gitlab.Issue) models.IssueRecord {
	rec := models.IssueRecord{
		ID:                 i.ID,
		IID:                i.IID,
		ProjectID:          i.ProjectID,
		Title:              i.Title,
		Description:        i.Description,
		State:              i.State,
		MergeRequestsCount: i.MergeRequestCount,
		UserNotesCount:     i.UserNotesCount,
		CreatedAt:          deref(i.CreatedAt),
		UpdatedAt:          deref(i.UpdatedAt),
		ClosedAt:           i.ClosedAt,
	}
	if i.Author != nil {
		rec.AuthorID = i.Author.ID
	}
	for _, a := range i.Assignees {
		if a != nil {
			rec.AssigneeIDs = append(rec.AssigneeIDs, a.ID)
		}
	}
	return rec
}
