package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gitlabanalyzer/logger"
	"gitlabanalyzer/models"
	"gitlabanalyzer/project"
)

// DocumentStore is an insert-only document store
type DocumentStore interface {
	InsertOne(ctx context.Context, collection string, entry Entry) (bool, error)
	InsertMany(ctx context.Context, collection string, entries []Entry) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
}

// Mapper converts domain entities into persisted documents keyed by their
// composite identities.
type Mapper struct {
	store DocumentStore
	now   func() time.Time
}

// NewMapper creates a Mapper writing to store
func NewMapper(store DocumentStore) *Mapper {
	return &Mapper{store: store, now: time.Now}
}

// Collections returns the collection names of the store.
func (m *Mapper) Collections(ctx context.Context) ([]string, error) {
	return m.store.ListCollections(ctx)
}

func (m *Mapper) insertOne(ctx context.Context, collection string, entry Entry, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return m.store.InsertOne(ctx, collection, entry)
}

func (m *Mapper) insertMany(ctx context.Context, collection string, entries []Entry, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return m.store.InsertMany(ctx, collection, entries)
}

// buildEntries applies build to every item, stopping at the first error.
func buildEntries[T any](items []T, build func(T) (Entry, error)) ([]Entry, error) {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		e, err := build(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func userEntry(hashedToken string, cfg models.Document) (Entry, error) {
	if hashedToken == "" {
		return Entry{}, fmt.Errorf("%w: empty hashed token", ErrInvalidInput)
	}
	if cfg == nil {
		cfg = models.Document{}
	}
	id, err := EncodeKey(hashedToken)
	return Entry{ID: id, Document: models.Document{
		"hashed_token": hashedToken,
		"config":       cfg,
	}}, err
}

// InsertUser stores a user under its hashed token.
func (m *Mapper) InsertUser(ctx context.Context, hashedToken string, cfg models.Document) (bool, error) {
	e, err := userEntry(hashedToken, cfg)
	return m.insertOne(ctx, CollectionUsers, e, err)
}

func (m *Mapper) projectEntry(s project.Snapshot, cfg models.Document) (Entry, error) {
	if cfg == nil {
		cfg = models.Document{}
	}
	users := s.Users
	if users == nil {
		users = []string{}
	}

	id, err := EncodeKey(s.Summary.ID)
	return Entry{ID: id, Document: models.Document{
		"project_id": s.Summary.ID,
		"name":       s.Summary.Name,
		"path":       s.Summary.Path,
		"namespace": models.Document{
			"name": s.Summary.NamespaceName,
			"path": s.Summary.NamespacePath,
		},
		"web_url":          s.Summary.WebURL,
		"last_cached_date": m.now().UTC().Truncate(time.Second).Format(time.RFC3339),
		"config":           cfg,
		"member_ids":       s.MemberIDs(),
		"user_list":        users,
	}}, err
}

// InsertProject stores the project description of a snapshot.
func (m *Mapper) InsertProject(ctx context.Context, s project.Snapshot, cfg models.Document) (bool, error) {
	e, err := m.projectEntry(s, cfg)
	return m.insertOne(ctx, CollectionProjects, e, err)
}

func mergeRequestEntry(projectID int, v project.MergeRequestView) (Entry, error) {
	mr := v.MergeRequest

	seen := make(map[string]struct{})
	contributors := []string{}
	for _, c := range v.Commits {
		if _, ok := seen[c.AuthorName]; ok {
			continue
		}
		seen[c.AuthorName] = struct{}{}
		contributors = append(contributors, c.AuthorName)
	}
	sort.Strings(contributors)

	doc := mr.ToDocument()
	doc["issue_id"] = doc["related_issue_iid"]
	delete(doc, "related_issue_iid")
	delete(doc, "id")
	doc["mr_id"] = mr.ID
	doc["project_id"] = projectID
	doc["contributors"] = contributors
	doc["code_diff_id"] = nil
	doc["line_counts"] = nil
	if v.Enrichment != nil {
		doc = v.Enrichment.Apply(doc)
	}

	id, err := EncodeKey(mr.ID, projectID)
	return Entry{ID: id, Document: doc}, err
}

// InsertOneMergeRequest stores a merge request under (mr_id, project_id).
func (m *Mapper) InsertOneMergeRequest(ctx context.Context, projectID int, v project.MergeRequestView) (bool, error) {
	e, err := mergeRequestEntry(projectID, v)
	return m.insertOne(ctx, CollectionMergeRequests, e, err)
}

// InsertManyMergeRequests stores merge requests as one batch.
func (m *Mapper) InsertManyMergeRequests(ctx context.Context, projectID int, views []project.MergeRequestView) (bool, error) {
	entries, err := buildEntries(views, func(v project.MergeRequestView) (Entry, error) {
		return mergeRequestEntry(projectID, v)
	})
	return m.insertMany(ctx, CollectionMergeRequests, entries, err)
}

func commitEntry(projectID int, c models.Commit, codeDiffID *int) (Entry, error) {
	doc := models.Document{
		"commit_id":    c.ID,
		"project_id":   projectID,
		"mr_id":        nil,
		"short_id":     c.ShortID,
		"title":        c.Title,
		"author":       c.AuthorName,
		"committer":    c.CommitterName,
		"commit_date":  c.CommittedDate.UTC().Format(time.RFC3339),
		"code_diff_id": nil,
	}
	if c.MergeRequestID != nil {
		doc["mr_id"] = *c.MergeRequestID
	}
	if codeDiffID != nil {
		doc["code_diff_id"] = *codeDiffID
	}

	id, err := EncodeKey(c.ID, projectID)
	return Entry{ID: id, Document: doc}, err
}

// InsertOneCommit stores a commit under (commit_id, project_id). Trunk commits
// are stored with a null mr_id.
func (m *Mapper) InsertOneCommit(ctx context.Context, projectID int, c models.Commit, codeDiffID *int) (bool, error) {
	e, err := commitEntry(projectID, c, codeDiffID)
	return m.insertOne(ctx, CollectionCommits, e, err)
}

// InsertManyCommits stores the commits of one merge request, or trunk commits
// with a nil codeDiffID, as one batch.
func (m *Mapper) InsertManyCommits(ctx context.Context, projectID int, commits []models.Commit, codeDiffID *int) (bool, error) {
	entries, err := buildEntries(commits, func(c models.Commit) (Entry, error) {
		return commitEntry(projectID, c, codeDiffID)
	})
	return m.insertMany(ctx, CollectionCommits, entries, err)
}

func codeDiffEntry(projectID int, d models.CodeDiff) (Entry, error) {
	doc := d.ToDocument()
	doc["project_id"] = projectID

	id, err := EncodeKey(d.ID, projectID)
	return Entry{ID: id, Document: doc}, err
}

// InsertOneCodeDiff stores a code-diff artifact under (artif_id, project_id).
func (m *Mapper) InsertOneCodeDiff(ctx context.Context, projectID int, d models.CodeDiff) (bool, error) {
	e, err := codeDiffEntry(projectID, d)
	return m.insertOne(ctx, CollectionCodeDiffs, e, err)
}

// InsertManyCodeDiffs stores code-diff artifacts as one batch.
func (m *Mapper) InsertManyCodeDiffs(ctx context.Context, projectID int, diffs []models.CodeDiff) (bool, error) {
	entries, err := buildEntries(diffs, func(d models.CodeDiff) (Entry, error) {
		return codeDiffEntry(projectID, d)
	})
	return m.insertMany(ctx, CollectionCodeDiffs, entries, err)
}

func commentEntry(projectID int, c models.Comment) (Entry, error) {
	doc := c.ToDocument()
	doc["project_id"] = projectID

	id, err := EncodeKey(c.ID, projectID)
	return Entry{ID: id, Document: doc}, err
}

// InsertOneComment stores a comment under (comment_id, project_id).
func (m *Mapper) InsertOneComment(ctx context.Context, projectID int, c models.Comment) (bool, error) {
	e, err := commentEntry(projectID, c)
	return m.insertOne(ctx, CollectionComments, e, err)
}

// InsertManyComments stores comments as one batch.
func (m *Mapper) InsertManyComments(ctx context.Context, projectID int, comments []models.Comment) (bool, error) {
	entries, err := buildEntries(comments, func(c models.Comment) (Entry, error) {
		return commentEntry(projectID, c)
	})
	return m.insertMany(ctx, CollectionComments, entries, err)
}

func memberEntry(mb models.Member) (Entry, error) {
	id, err := EncodeKey(mb.ID)
	return Entry{ID: id, Document: mb.ToDocument()}, err
}

// InsertOneMember stores a member under its id.
func (m *Mapper) InsertOneMember(ctx context.Context, mb models.Member) (bool, error) {
	e, err := memberEntry(mb)
	return m.insertOne(ctx, CollectionMembers, e, err)
}

// InsertManyMembers stores members as one batch.
func (m *Mapper) InsertManyMembers(ctx context.Context, members []models.Member) (bool, error) {
	entries, err := buildEntries(members, memberEntry)
	return m.insertMany(ctx, CollectionMembers, entries, err)
}

func issueEntry(i models.Issue) (Entry, error) {
	id, err := EncodeKey(i.ProjectID, i.IssueID)
	return Entry{ID: id, Document: i.ToDocument()}, err
}

// InsertOneIssue stores an issue under (project_id, issue_id).
func (m *Mapper) InsertOneIssue(ctx context.Context, i models.Issue) (bool, error) {
	e, err := issueEntry(i)
	return m.insertOne(ctx, CollectionIssues, e, err)
}

// InsertManyIssues stores issues as one batch.
func (m *Mapper) InsertManyIssues(ctx context.Context, issues []models.Issue) (bool, error) {
	entries, err := buildEntries(issues, issueEntry)
	return m.insertMany(ctx, CollectionIssues, entries, err)
}

// PersistUser stores the user of a new session.
func (m *Mapper) PersistUser(ctx context.Context, hashedToken, baseURL string) error {
	_, err := m.InsertUser(ctx, hashedToken, models.Document{"gitlab_url": baseURL})
	return err
}

// persistStats counts written and skipped documents of a PersistProject call.
type persistStats struct {
	inserted int
	skipped  int
}

func (s *persistStats) record(ok bool, err error) error {
	if err != nil {
		return err
	}
	if ok {
		s.inserted++
	} else {
		s.skipped++
	}
	return nil
}

// PersistProject writes every entity of a synchronized project. Documents are
// written one by one so that keys already stored by an earlier pass are skipped
// without rejecting the rest. There is no atomicity across collections.
func (m *Mapper) PersistProject(ctx context.Context, p *project.Project) error {
	s := p.Snapshot()
	projectID := s.Summary.ID
	if projectID == 0 {
		projectID = p.ID()
		s.Summary.ID = projectID
	}

	var (
		stats persistStats
		errs  error
	)

	errs = multierr.Append(errs, stats.record(m.InsertProject(ctx, s, nil)))
	for _, v := range s.MergeRequests {
		errs = multierr.Append(errs, stats.record(m.InsertOneMergeRequest(ctx, projectID, v)))
	}
	for _, c := range s.Commits {
		errs = multierr.Append(errs, stats.record(m.InsertOneCommit(ctx, projectID, c, s.CodeDiffIDOf(c))))
	}
	for _, d := range s.CodeDiffs {
		errs = multierr.Append(errs, stats.record(m.InsertOneCodeDiff(ctx, projectID, d)))
	}
	for _, mb := range s.Members {
		errs = multierr.Append(errs, stats.record(m.InsertOneMember(ctx, mb)))
	}
	for _, i := range s.Issues {
		errs = multierr.Append(errs, stats.record(m.InsertOneIssue(ctx, i)))
	}
	for _, c := range s.Comments {
		errs = multierr.Append(errs, stats.record(m.InsertOneComment(ctx, projectID, c)))
	}

	logger.Info("Project persisted",
		zap.Int("project_id", projectID),
		zap.Int("inserted", stats.inserted),
		zap.Int("skipped", stats.skipped),
		zap.Int("errors", len(multierr.Errors(errs))))

	return errs
}
