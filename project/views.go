package project

import (
	"time"

	"gitlabanalyzer/models"
)

// CommitDocument serializes a commit, resolving the code diff of its merge request.
func (p *Project) CommitDocument(c models.Commit) models.Document {
	doc := c.ToDocument()
	doc["code_diff_id"] = nil
	if c.MergeRequestID != nil {
		if e, ok := p.mergeRequests.Enrichment(*c.MergeRequestID); ok {
			doc["code_diff_id"] = e.CodeDiffID
		}
	}
	return doc
}

// MergeRequestDocument serializes a merge request together with its enrichment.
func (p *Project) MergeRequestDocument(mr models.MergeRequest) models.Document {
	doc := mr.ToDocument()
	if e, ok := p.mergeRequests.Enrichment(mr.ID); ok {
		return e.Apply(doc)
	}
	doc["code_diff_id"] = nil
	doc["line_counts"] = nil
	return doc
}

func (p *Project) commitDocuments(commits []models.Commit) []models.Document {
	docs := make([]models.Document, 0, len(commits))
	for _, c := range commits {
		docs = append(docs, p.CommitDocument(c))
	}
	return docs
}

// CommitsByAuthor groups every known commit by author name.
func (p *Project) CommitsByAuthor() map[string][]models.Document {
	out := make(map[string][]models.Document)
	for _, c := range p.commits.List() {
		out[c.AuthorName] = append(out[c.AuthorName], p.CommitDocument(c))
	}
	return out
}

// AllCommits returns every known commit, merge request commits first.
func (p *Project) AllCommits() []models.Document {
	return p.commitDocuments(p.commits.List())
}

// TrunkCommits returns the commits of the whole-project commit list.
func (p *Project) TrunkCommits() []models.Document {
	return p.commitDocuments(p.commits.TrunkList())
}

func (p *Project) mergeRequestWithCommits(mr models.MergeRequest) models.Document {
	doc := p.MergeRequestDocument(mr)
	doc["commit_list"] = p.commitDocuments(p.commits.ByIDs(mr.RelatedCommitIDs()))
	return doc
}

// MergeRequestsWithCommits returns each merge request with an added commit_list.
func (p *Project) MergeRequestsWithCommits() []models.Document {
	mrs := p.mergeRequests.List()
	docs := make([]models.Document, 0, len(mrs))
	for _, mr := range mrs {
		docs = append(docs, p.mergeRequestWithCommits(mr))
	}
	return docs
}

// MergeRequestsByAuthor groups merge requests, with their commits, by author username.
func (p *Project) MergeRequestsByAuthor() map[string][]models.Document {
	out := make(map[string][]models.Document)
	for _, mr := range p.mergeRequests.List() {
		author := mr.Author.Username
		out[author] = append(out[author], p.mergeRequestWithCommits(mr))
	}
	return out
}

// MergeRequestsInRange returns the merge requests created within [start, end].
func (p *Project) MergeRequestsInRange(start, end string) ([]models.Document, error) {
	mrs, err := p.mergeRequests.GetInDateRange(start, end)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(mrs))
	for _, mr := range mrs {
		docs = append(docs, p.mergeRequestWithCommits(mr))
	}
	return docs, nil
}

// MergeRequest returns the merge request with the given iid.
func (p *Project) MergeRequest(iid int) (models.Document, bool) {
	mr, ok := p.mergeRequests.GetByIID(iid)
	if !ok {
		return nil, false
	}
	return p.mergeRequestWithCommits(mr), true
}

// CodeDiff returns the code-diff artifact with the given id.
func (p *Project) CodeDiff(id int) (models.Document, bool) {
	d, ok := p.codeDiffs.Get(id)
	if !ok {
		return nil, false
	}
	return d.ToDocument(), true
}

// Members returns the project members.
func (p *Project) Members() []models.Document {
	members := p.members.List()
	docs := make([]models.Document, 0, len(members))
	for _, m := range members {
		docs = append(docs, m.ToDocument())
	}
	return docs
}

// Users returns the distinct commit author names in first-seen order.
func (p *Project) Users() []string {
	seen := make(map[string]struct{})
	users := []string{}
	for _, c := range p.commits.List() {
		if _, ok := seen[c.AuthorName]; ok {
			continue
		}
		seen[c.AuthorName] = struct{}{}
		users = append(users, c.AuthorName)
	}
	return users
}

// Issues returns the project issues.
func (p *Project) Issues() []models.Document {
	issues := p.issues.List()
	docs := make([]models.Document, 0, len(issues))
	for _, i := range issues {
		docs = append(docs, i.ToDocument())
	}
	return docs
}

// Comments returns the project comments. Empty until comment sync exists.
func (p *Project) Comments() []models.Document {
	comments := p.comments.List()
	docs := make([]models.Document, 0, len(comments))
	for _, c := range comments {
		docs = append(docs, c.ToDocument())
	}
	return docs
}

// CommentsByAuthor groups the project comments by author name.
func (p *Project) CommentsByAuthor() map[string][]models.Document {
	out := make(map[string][]models.Document)
	for author, comments := range p.comments.ByAuthor() {
		for _, c := range comments {
			out[author] = append(out[author], c.ToDocument())
		}
	}
	return out
}

// MergeRequestView is a merge request with its resolved commits and enrichment.
type MergeRequestView struct {
	MergeRequest models.MergeRequest
	Commits      []models.Commit
	Enrichment   *models.Enrichment
}

// Snapshot is a copy of the aggregate's entities, taken for persistence.
type Snapshot struct {
	Summary       models.ProjectSummary
	MergeRequests []MergeRequestView
	Commits       []models.Commit
	CodeDiffs     []models.CodeDiff
	Members       []models.Member
	Issues        []models.Issue
	Comments      []models.Comment
	Users         []string
	LastSynced    *time.Time

	codeDiffByMR map[int]int
}

// CodeDiffIDOf returns the code-diff artifact id of the merge request owning c.
func (s Snapshot) CodeDiffIDOf(c models.Commit) *int {
	if c.MergeRequestID == nil {
		return nil
	}
	id, ok := s.codeDiffByMR[*c.MergeRequestID]
	if !ok {
		return nil
	}
	return &id
}

// MemberIDs returns the ids of the project members.
func (s Snapshot) MemberIDs() []int {
	ids := make([]int, 0, len(s.Members))
	for _, m := range s.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// Snapshot copies the aggregate's entities.
func (p *Project) Snapshot() Snapshot {
	s := Snapshot{
		Summary:      p.summary,
		Commits:      p.commits.List(),
		CodeDiffs:    p.codeDiffs.List(),
		Members:      p.members.List(),
		Issues:       p.issues.List(),
		Comments:     p.comments.List(),
		Users:        p.Users(),
		LastSynced:   p.SyncState().LastSynced,
		codeDiffByMR: make(map[int]int),
	}
	for _, mr := range p.mergeRequests.List() {
		view := MergeRequestView{
			MergeRequest: mr,
			Commits:      p.commits.ByIDs(mr.RelatedCommitIDs()),
		}
		if e, ok := p.mergeRequests.Enrichment(mr.ID); ok {
			view.Enrichment = &e
			s.codeDiffByMR[mr.ID] = e.CodeDiffID
		}
		s.MergeRequests = append(s.MergeRequests, view)
	}
	return s
}
