// Package gitlab adapts the GitLab REST API to the records the sync pipeline consumes.
package gitlab

import (
	"context"
	"fmt"
	"net/http"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitlabanalyzer/logger"
	"gitlabanalyzer/models"
)

const (
	defaultBaseURL = "https://gitlab.com"
	perPage        = 100
	commitFetchers = 4
)

// Authenticator opens GitLab sessions.
type Authenticator struct {
	opts []gitlab.ClientOptionFunc
}

// NewAuthenticator creates an Authenticator. The options are applied to every client
// it creates, after the base URL.
func NewAuthenticator(opts ...gitlab.ClientOptionFunc) *Authenticator {
	return &Authenticator{opts: opts}
}

// Authenticate creates a client for token against the instance at baseURL and
// verifies the token with the current-user endpoint.
func (a *Authenticator) Authenticate(ctx context.Context, token, baseURL string) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", models.ErrInvalidCredential)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	opts := append([]gitlab.ClientOptionFunc{gitlab.WithBaseURL(baseURL)}, a.opts...)
	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	user, resp, err := client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		if hasStatus(resp, http.StatusUnauthorized, http.StatusForbidden) {
			logger.Warn("GitLab rejected token", zap.String("base_url", baseURL))
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidCredential, err)
		}
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	logger.Info("GitLab session opened",
		zap.String("base_url", baseURL),
		zap.String("username", user.Username))

	return &Session{client: client, username: user.Username}, nil
}

// Session is an authenticated GitLab connection.
type Session struct {
	client   *gitlab.Client
	username string
}

// Username returns the user the session is authenticated as.
func (s *Session) Username() string {
	return s.username
}

// GetProjectList returns the projects the user is a member of.
func (s *Session) GetProjectList(ctx context.Context) ([]models.ProjectSummary, error) {
	projects, err := collect(func(page int) ([]*gitlab.Project, *gitlab.Response, error) {
		return s.client.Projects.ListProjects(&gitlab.ListProjectsOptions{
			ListOptions: gitlab.ListOptions{Page: page, PerPage: perPage},
			Membership:  gitlab.Ptr(true),
		}, gitlab.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	out := make([]models.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectSummary(p))
	}
	return out, nil
}

// GetProject returns the project with the given id.
func (s *Session) GetProject(ctx context.Context, projectID int) (models.ProjectSummary, error) {
	p, resp, err := s.client.Projects.GetProject(projectID, nil, gitlab.WithContext(ctx))
	if err != nil {
		if hasStatus(resp, http.StatusNotFound, http.StatusForbidden) {
			return models.ProjectSummary{}, fmt.Errorf("%w: %d", models.ErrProjectNotFound, projectID)
		}
		return models.ProjectSummary{}, fmt.Errorf("failed to get project %d: %w", projectID, err)
	}
	return toProjectSummary(p), nil
}

// GetMergeRequestsAndCommits returns the merge requests of a project in the given
// state and the commit list of each, in the same order.
func (s *Session) GetMergeRequestsAndCommits(ctx context.Context, projectID int, state string) ([]models.MergeRequestRecord, [][]models.CommitRecord, error) {
	mrs, err := collect(func(page int) ([]*gitlab.BasicMergeRequest, *gitlab.Response, error) {
		opts := &gitlab.ListProjectMergeRequestsOptions{
			ListOptions: gitlab.ListOptions{Page: page, PerPage: perPage},
		}
		if state != "" {
			opts.State = gitlab.Ptr(state)
		}
		return s.client.MergeRequests.ListProjectMergeRequests(projectID, opts, gitlab.WithContext(ctx))
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list merge requests: %w", err)
	}

	records := make([]models.MergeRequestRecord, len(mrs))
	commitLists := make([][]models.CommitRecord, len(mrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(commitFetchers)
	for i, mr := range mrs {
		records[i] = toMergeRequestRecord(mr)
		g.Go(func() error {
			commits, err := collect(func(page int) ([]*gitlab.Commit, *gitlab.Response, error) {
				return s.client.MergeRequests.GetMergeRequestCommits(projectID, mr.IID,
					&gitlab.GetMergeRequestCommitsOptions{Page: page, PerPage: perPage},
					gitlab.WithContext(gctx))
			})
			if err != nil {
				return fmt.Errorf("failed to list commits of merge request !%d: %w", mr.IID, err)
			}
			commitLists[i] = toCommitRecords(commits)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	logger.Debug("Fetched merge requests",
		zap.Int("project_id", projectID),
		zap.String("state", state),
		zap.Int("count", len(records)))

	return records, commitLists, nil
}

// GetAllMembers returns the project members, including inherited ones.
func (s *Session) GetAllMembers(ctx context.Context, projectID int) ([]models.MemberRecord, error) {
	members, err := collect(func(page int) ([]*gitlab.ProjectMember, *gitlab.Response, error) {
		return s.client.ProjectMembers.ListAllProjectMembers(projectID, &gitlab.ListProjectMembersOptions{
			ListOptions: gitlab.ListOptions{Page: page, PerPage: perPage},
		}, gitlab.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	out := make([]models.MemberRecord, 0, len(members))
	for _, m := range members {
		out = append(out, models.MemberRecord{ID: m.ID, Username: m.Username, Name: m.Name})
	}
	return out, nil
}

// GetCommitListForProject returns the commits of the default branch.
func (s *Session) GetCommitListForProject(ctx context.Context, projectID int) ([]models.CommitRecord, error) {
	commits, err := collect(func(page int) ([]*gitlab.Commit, *gitlab.Response, error) {
		return s.client.Commits.ListCommits(projectID, &gitlab.ListCommitsOptions{
			ListOptions: gitlab.ListOptions{Page: page, PerPage: perPage},
		}, gitlab.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}
	return toCommitRecords(commits), nil
}

// GetIssueList returns the project issues.
func (s *Session) GetIssueList(ctx context.Context, projectID int) ([]models.IssueRecord, error) {
	issues, err := collect(func(page int) ([]*gitlab.Issue, *gitlab.Response, error) {
		return s.client.Issues.ListProjectIssues(projectID, &gitlab.ListProjectIssuesOptions{
			ListOptions: gitlab.ListOptions{Page: page, PerPage: perPage},
		}, gitlab.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	out := make([]models.IssueRecord, 0, len(issues))
	for _, i := range issues {
		out = append(out, toIssueRecord(i))
	}
	return out, nil
}

// GetMergeRequestDiffs returns the file diffs of a merge request.
func (s *Session) GetMergeRequestDiffs(ctx context.Context, projectID, iid int) ([]models.DiffRecord, error) {
	diffs, err := collect(func(page int) ([]*gitlab.MergeRequestDiff, *gitlab.Response, error) {
		return s.client.MergeRequests.ListMergeRequestDiffs(projectID, iid, &gitlab.ListMergeRequestDiffsOptions{
			ListOptions: gitlab.ListOptions{Page: page, PerPage: perPage},
		}, gitlab.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list diffs of merge request !%d: %w", iid, err)
	}

	out := make([]models.DiffRecord, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, models.DiffRecord{
			OldPath:     d.OldPath,
			NewPath:     d.NewPath,
			AMode:       d.AMode,
			BMode:       d.BMode,
			Diff:        d.Diff,
			NewFile:     d.NewFile,
			RenamedFile: d.RenamedFile,
			DeletedFile: d.DeletedFile,
		})
	}
	return out, nil
}

// collect follows NextPage until the last page.
func collect[T any](fetch func(page int) ([]T, *gitlab.Response, error)) ([]T, error) {
	var all []T
	page := 1
	for {
		items, resp, err := fetch(page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		page = resp.NextPage
	}
}

func hasStatus(resp *gitlab.Response, codes ...int) bool {
	if resp == nil || resp.Response == nil {
		return false
	}
	for _, code := range codes {
		if resp.StatusCode == code {
			return true
		}
	}
	return false
}
