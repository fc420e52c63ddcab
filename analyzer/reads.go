package analyzer

import (
	"context"

	"gitlabanalyzer/models"
	"gitlabanalyzer/project"
)

// ProjectMembers returns the project members.
func (a *Analyzer) ProjectMembers(ctx context.Context, hashedToken string, projectID int) Result[[]models.Document] {
	return read(ctx, a, hashedToken, projectID, (*project.Project).Members)
}

// ProjectUsers returns the distinct commit authors of the project.
func (a *Analyzer) ProjectUsers(ctx context.Context, hashedToken string, projectID int) Result[[]string] {
	return read(ctx, a, hashedToken, projectID, (*project.Project).Users)
}

// TrunkCommits returns the commits of the whole-project commit list.
func (a *Analyzer) TrunkCommits(ctx context.Context, hashedToken string, projectID int) Result[[]models.Document] {
	return read(ctx, a, hashedToken, projectID, (*project.Project).TrunkCommits)
}

// CommitsByUser returns every commit grouped by author name.
func (a *Analyzer) CommitsByUser(ctx context.Context, hashedToken string, projectID int) Result[map[string][]models.Document] {
	return read(ctx, a, hashedToken, projectID, (*project.Project).CommitsByAuthor)
}

// AllMergeRequests returns the merge requests with their commit lists.
func (a *Analyzer) AllMergeRequests(ctx context.Context, hashedToken string, projectID int) Result[[]models.Document] {
	return read(ctx, a, hashedToken, projectID, (*project.Project).MergeRequestsWithCommits)
}

// MergeRequestsByUser returns the merge requests grouped by author.
func (a *Analyzer) MergeRequestsByUser(ctx context.Context, hashedToken string, projectID int) Result[map[string][]models.Document] {
	return read(ctx, a, hashedToken, projectID, (*project.Project).MergeRequestsByAuthor)
}

// MergeRequestsInRange returns the merge requests created within [start, end].
func (a *Analyzer) MergeRequestsInRange(ctx context.Context, hashedToken string, projectID int, start, end string) Result[[]models.Document] {
	p, msg := a.resolve(ctx, hashedToken, projectID)
	if msg != "" {
		return Failure[[]models.Document](msg)
	}
	docs, err := p.MergeRequestsInRange(start, end)
	if err != nil {
		return Failure[[]models.Document](err.Error())
	}
	return success(docs)
}

// MergeRequest returns the merge request with the given iid, or an empty
// document when the project has no such merge request.
func (a *Analyzer) MergeRequest(ctx context.Context, hashedToken string, projectID, iid int) Result[models.Document] {
	return read(ctx, a, hashedToken, projectID, func(p *project.Project) models.Document {
		doc, ok := p.MergeRequest(iid)
		if !ok {
			return models.Document{}
		}
		return doc
	})
}

// CodeDiff returns the code-diff artifact with the given id, or an empty document.
func (a *Analyzer) CodeDiff(ctx context.Context, hashedToken string, projectID, diffID int) Result[models.Document] {
	return read(ctx, a, hashedToken, projectID, func(p *project.Project) models.Document {
		doc, ok := p.CodeDiff(diffID)
		if !ok {
			return models.Document{}
		}
		return doc
	})
}

// Issues returns the project issues.
func (a *Analyzer) Issues(ctx context.Context, hashedToken string, projectID int) Result[[]models.Document] {
	return read(ctx, a, hashedToken, projectID, (*project.Project).Issues)
}

// Comments returns the project comments.
func (a *Analyzer) Comments(ctx context.Context, hashedToken string, projectID int) Result[[]models.Document] {
	return read(ctx, a, hashedToken, projectID, (*project.Project).Comments)
}

// CommentsByUser returns the project comments grouped by author.
func (a *Analyzer) CommentsByUser(ctx context.Context, hashedToken string, projectID int) Result[map[string][]models.Document] {
	return read(ctx, a, hashedToken, projectID, (*project.Project).CommentsByAuthor)
}
