package manager

import "gitlabanalyzer/models"

// MemberManager holds project members keyed by member id.
type MemberManager struct {
	*Registry[int, models.Member]
}

// NewMemberManager creates an empty MemberManager
func NewMemberManager() *MemberManager {
	return &MemberManager{NewRegistry(func(m models.Member) int { return m.ID })}
}

// IssueManager holds project issues keyed by (project_id, issue_id).
type IssueManager struct {
	*Registry[models.IssueKey, models.Issue]
}

// NewIssueManager creates an empty IssueManager
func NewIssueManager() *IssueManager {
	return &IssueManager{NewRegistry(func(i models.Issue) models.IssueKey { return i.Key() })}
}

// CodeDiffManager holds code-diff artifacts keyed by artifact id.
type CodeDiffManager struct {
	*Registry[int, models.CodeDiff]
}

// NewCodeDiffManager creates an empty CodeDiffManager
func NewCodeDiffManager() *CodeDiffManager {
	return &CodeDiffManager{NewRegistry(func(d models.CodeDiff) int { return d.ID })}
}

// CommentManager holds notes keyed by comment id.
type CommentManager struct {
	*Registry[int, models.Comment]
}

// NewCommentManager creates an empty CommentManager
func NewCommentManager() *CommentManager {
	return &CommentManager{NewRegistry(func(c models.Comment) int { return c.ID })}
}

// ByAuthor groups comments by author name, preserving insertion order within a group.
func (m *CommentManager) ByAuthor() map[string][]models.Comment {
	out := make(map[string][]models.Comment)
	for _, c := range m.List() {
		out[c.AuthorName] = append(out[c.AuthorName], c)
	}
	return out
}
