// Package project implements the aggregate that holds one remote project's
// synchronized state and wires the cross references between its entities.
package project

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitlabanalyzer/logger"
	"gitlabanalyzer/manager"
	"gitlabanalyzer/models"
)

const defaultDiffConcurrency = 4

// Project is the synchronized state of one remote project.
type Project struct {
	id      int
	summary models.ProjectSummary
	src     Source

	mrState         string
	diffConcurrency int

	members       *manager.MemberManager
	issues        *manager.IssueManager
	commits       *manager.CommitManager
	comments      *manager.CommentManager
	mergeRequests *manager.MergeRequestManager
	codeDiffs     *manager.CodeDiffManager

	stateMu sync.RWMutex
	state   SyncState
}

// Option configures a Project
type Option func(*Project)

// WithMergeRequestState selects which merge requests are pulled (default "all").
func WithMergeRequestState(state string) Option {
	return func(p *Project) {
		if state != "" {
			p.mrState = state
		}
	}
}

// WithDiffConcurrency bounds the number of concurrent diff requests of a pass.
func WithDiffConcurrency(n int) Option {
	return func(p *Project) {
		if n > 0 {
			p.diffConcurrency = n
		}
	}
}

// New creates an empty aggregate for the remote project. Nothing is fetched until Sync.
func New(projectID int, summary models.ProjectSummary, src Source, opts ...Option) *Project {
	p := &Project{
		id:              projectID,
		summary:         summary,
		src:             src,
		mrState:         models.StateAll,
		diffConcurrency: defaultDiffConcurrency,
		members:         manager.NewMemberManager(),
		issues:          manager.NewIssueManager(),
		commits:         manager.NewCommitManager(),
		comments:        manager.NewCommentManager(),
		mergeRequests:   manager.NewMergeRequestManager(),
		codeDiffs:       manager.NewCodeDiffManager(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the remote project id.
func (p *Project) ID() int { return p.id }

// Summary returns the remote project description.
func (p *Project) Summary() models.ProjectSummary { return p.summary }

// Sync runs one pull of every entity type. Entities already present are kept and
// not fetched twice. Comments are not synchronized yet: the comment collection
// exists but stays empty.
//
// Callers must not run two passes of the same project at once.
func (p *Project) Sync(ctx context.Context) error {
	p.begin()

	stages := []struct {
		stage Stage
		run   func(context.Context) error
	}{
		{StageMergeRequests, p.syncMergeRequests},
		{StageMembers, p.syncMembers},
		{StageCommits, p.syncCommits},
		{StageIssues, p.syncIssues},
		{StageCodeDiffs, p.syncCodeDiffs},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			p.finish(err)
			return err
		}

		p.advance(s.stage)
		if err := s.run(ctx); err != nil {
			err = fmt.Errorf("sync %s: %w", s.stage, err)
			p.finish(err)
			return err
		}
	}

	p.finish(nil)
	logger.Info("Project synchronized",
		zap.Int("project_id", p.id),
		zap.Int("merge_requests", p.mergeRequests.Len()),
		zap.Int("commits", p.commits.Len()),
		zap.Int("members", p.members.Len()),
		zap.Int("issues", p.issues.Len()))
	return nil
}

func (p *Project) syncMergeRequests(ctx context.Context) error {
	records, commitLists, err := p.src.GetMergeRequestsAndCommits(ctx, p.id, p.mrState)
	if err != nil {
		return err
	}
	if len(records) != len(commitLists) {
		return fmt.Errorf("%d merge requests but %d commit lists", len(records), len(commitLists))
	}

	added := 0
	for i, rec := range records {
		if _, exists := p.mergeRequests.GetByID(rec.ID); exists {
			continue
		}

		owner := rec.ID
		commits := make([]models.Commit, 0, len(commitLists[i]))
		for _, cr := range commitLists[i] {
			c := models.NewCommit(cr, &owner)
			p.commits.Add(c)
			commits = append(commits, c)
		}

		if p.mergeRequests.Add(models.NewMergeRequest(rec, commits)) {
			added++
		}
	}

	logger.Debug("Merge requests pulled",
		zap.Int("project_id", p.id),
		zap.Int("fetched", len(records)),
		zap.Int("added", added))
	return nil
}

func (p *Project) syncMembers(ctx context.Context) error {
	records, err := p.src.GetAllMembers(ctx, p.id)
	if err != nil {
		return err
	}
	for _, rec := range records {
		p.members.Add(models.NewMember(rec))
	}
	return nil
}

func (p *Project) syncCommits(ctx context.Context) error {
	records, err := p.src.GetCommitListForProject(ctx, p.id)
	if err != nil {
		return err
	}
	for _, rec := range records {
		p.commits.AddTrunk(models.NewCommit(rec, nil))
	}
	return nil
}

func (p *Project) syncIssues(ctx context.Context) error {
	records, err := p.src.GetIssueList(ctx, p.id)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.ProjectID == 0 {
			rec.ProjectID = p.id
		}
		p.issues.Add(models.NewIssue(rec))
	}
	return nil
}

// syncCodeDiffs fetches the diffs of every merge request that has no artifact yet.
// Requests run concurrently; artifact ids are list indices handed out in merge
// request order, starting at 0.
func (p *Project) syncCodeDiffs(ctx context.Context) error {
	var pending []models.MergeRequest
	for _, mr := range p.mergeRequests.List() {
		if _, ok := p.mergeRequests.Enrichment(mr.ID); !ok {
			pending = append(pending, mr)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	results := make([][]models.DiffRecord, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.diffConcurrency)
	for i, mr := range pending {
		g.Go(func() error {
			diffs, err := p.src.GetMergeRequestDiffs(gctx, p.id, mr.IID)
			if err != nil {
				return fmt.Errorf("merge request !%d: %w", mr.IID, err)
			}
			results[i] = diffs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	next := p.codeDiffs.Len()
	for i, mr := range pending {
		diff := models.NewCodeDiff(next, mr.IID, results[i])
		if !p.codeDiffs.Add(diff) {
			continue
		}
		p.mergeRequests.SetEnrichment(mr.ID, models.Enrichment{
			CodeDiffID: diff.ID,
			LineCounts: diff.LineCounts(),
		})
		next++
	}
	return nil
}

func (p *Project) begin() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.state.Running = true
	p.state.Stage = StageIdle
	p.state.LastError = ""
}

func (p *Project) advance(s Stage) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if s > p.state.Stage {
		p.state.Stage = s
	}
}

func (p *Project) finish(err error) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	p.state.Running = false
	if err != nil {
		p.state.LastError = err.Error()
		return
	}
	now := time.Now().UTC()
	p.state.Stage = StageDone
	p.state.Passes++
	p.state.LastSynced = &now
}

// SyncState returns a snapshot of the sync bookkeeping.
func (p *Project) SyncState() SyncState {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()

	s := p.state
	if s.LastSynced != nil {
		t := *s.LastSynced
		s.LastSynced = &t
	}
	return s
}
