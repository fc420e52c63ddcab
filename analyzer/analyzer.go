// Package analyzer maps client credentials to GitLab sessions and runs project
// syncs in the background.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlabanalyzer/logger"
	"gitlabanalyzer/models"
	"gitlabanalyzer/project"
)

const (
	defaultWorkers = 4
	releaseTimeout = 30 * time.Second
)

// Session is an authenticated connection to the provider.
type Session interface {
	project.Source
	GetProjectList(ctx context.Context) ([]models.ProjectSummary, error)
	GetProject(ctx context.Context, projectID int) (models.ProjectSummary, error)
}

// Authenticator opens provider sessions. It returns an error wrapping
// models.ErrInvalidCredential when the token is rejected.
type Authenticator interface {
	Authenticate(ctx context.Context, token, url string) (Session, error)
}

// AuthenticatorFunc adapts a function to Authenticator
type AuthenticatorFunc func(ctx context.Context, token, url string) (Session, error)

// Authenticate calls f
func (f AuthenticatorFunc) Authenticate(ctx context.Context, token, url string) (Session, error) {
	return f(ctx, token, url)
}

// Persister stores synchronized data.
type Persister interface {
	PersistUser(ctx context.Context, hashedToken, baseURL string) error
	PersistProject(ctx context.Context, p *project.Project) error
}

type credential struct {
	session Session
	baseURL string

	mu       sync.Mutex
	projects map[int]*project.Project
}

type syncKey struct {
	hashedToken string
	projectID   int
}

// Analyzer owns the sessions of all known credentials and the aggregates created
// under them. Its lifetime bounds every background sync.
type Analyzer struct {
	auth        Authenticator
	persister   Persister
	workers     int
	projectOpts []project.Option

	pool   *ants.Pool
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger

	mu          sync.RWMutex
	credentials map[string]*credential

	syncMu  sync.Mutex
	flights map[syncKey]*flight
}

// flight is the sync work of one project: the running job and at most one
// follow-up queued behind it.
type flight struct {
	current *Job
	next    *Job
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithPersister stores every successfully synchronized project.
func WithPersister(p Persister) Option {
	return func(a *Analyzer) { a.persister = p }
}

// WithWorkers sets the number of syncs that may run at once.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithProjectOptions sets the options of every created project aggregate.
func WithProjectOptions(opts ...project.Option) Option {
	return func(a *Analyzer) { a.projectOpts = append(a.projectOpts, opts...) }
}

// New creates an Analyzer
func New(auth Authenticator, opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		auth:        auth,
		workers:     defaultWorkers,
		log:         logger.Named("analyzer"),
		credentials: make(map[string]*credential),
		flights:     make(map[syncKey]*flight),
	}
	for _, opt := range opts {
		opt(a)
	}

	pool, err := ants.NewPool(a.workers, ants.WithLogger(logger.NewPrintfLogger("sync-pool")))
	if err != nil {
		return nil, fmt.Errorf("failed to create sync pool: %w", err)
	}
	a.pool = pool
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a, nil
}

// Close cancels running syncs and waits for the workers to exit.
func (a *Analyzer) Close() error {
	a.cancel()
	if err := a.pool.ReleaseTimeout(releaseTimeout); err != nil {
		return fmt.Errorf("failed to release sync pool: %w", err)
	}
	return nil
}

// Add authenticates token against url and registers the session under hashedToken.
// A credential that is already registered keeps its session.
func (a *Analyzer) Add(ctx context.Context, token, hashedToken, url string) Result[struct{}] {
	if hashedToken == "" {
		return Failure[struct{}](MsgInvalidToken)
	}

	a.mu.RLock()
	_, exists := a.credentials[hashedToken]
	a.mu.RUnlock()
	if exists {
		return success(struct{}{})
	}

	session, err := a.auth.Authenticate(ctx, token, url)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredential) {
			return Failure[struct{}](MsgInvalidToken)
		}
		a.log.Error("Failed to open session", zap.Error(err))
		return Failure[struct{}](err.Error())
	}

	a.mu.Lock()
	if _, exists := a.credentials[hashedToken]; !exists {
		a.credentials[hashedToken] = &credential{
			session:  session,
			baseURL:  url,
			projects: make(map[int]*project.Project),
		}
	}
	a.mu.Unlock()

	if a.persister != nil {
		if err := a.persister.PersistUser(ctx, hashedToken, url); err != nil {
			a.log.Warn("Failed to persist user", zap.Error(err))
		}
	}
	return success(struct{}{})
}

func (a *Analyzer) credential(hashedToken string) (*credential, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.credentials[hashedToken]
	return c, ok
}

// resolve validates the pair and returns the aggregate, creating it on first
// access. A non-empty message means validation failed.
func (a *Analyzer) resolve(ctx context.Context, hashedToken string, projectID int) (*project.Project, string) {
	cred, ok := a.credential(hashedToken)
	if !ok {
		return nil, MsgInvalidToken
	}
	if projectID <= 0 {
		return nil, MsgInvalidProjectID
	}

	cred.mu.Lock()
	p, ok := cred.projects[projectID]
	cred.mu.Unlock()
	if ok {
		return p, ""
	}

	summary, err := cred.session.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, models.ErrProjectNotFound) {
			return nil, MsgInvalidProjectID
		}
		a.log.Error("Failed to look up project", zap.Int("project_id", projectID), zap.Error(err))
		return nil, err.Error()
	}

	cred.mu.Lock()
	defer cred.mu.Unlock()
	if p, ok := cred.projects[projectID]; ok {
		return p, ""
	}
	p = project.New(projectID, summary, cred.session, a.projectOpts...)
	cred.projects[projectID] = p
	return p, ""
}

// read validates the pair and applies fn to the aggregate.
func read[T any](ctx context.Context, a *Analyzer, hashedToken string, projectID int, fn func(*project.Project) T) Result[T] {
	p, msg := a.resolve(ctx, hashedToken, projectID)
	if msg != "" {
		return Failure[T](msg)
	}
	return success(fn(p))
}

// ProjectList returns the projects visible to the credential.
func (a *Analyzer) ProjectList(ctx context.Context, hashedToken string) Result[[]models.ProjectSummary] {
	cred, ok := a.credential(hashedToken)
	if !ok {
		return Failure[[]models.ProjectSummary](MsgInvalidToken)
	}

	projects, err := cred.session.GetProjectList(ctx)
	if err != nil {
		a.log.Error("Failed to list projects", zap.Error(err))
		return Failure[[]models.ProjectSummary](err.Error())
	}
	return success(projects)
}

// SyncProject validates the pair and schedules a sync of the project. It never
// waits for a worker. While a sync of the project is running, one follow-up pass
// is queued behind it and later calls return that queued job.
func (a *Analyzer) SyncProject(ctx context.Context, hashedToken string, projectID int) Result[*Job] {
	p, msg := a.resolve(ctx, hashedToken, projectID)
	if msg != "" {
		return Failure[*Job](msg)
	}
	if err := a.ctx.Err(); err != nil {
		return Failure[*Job]("analyzer is closed")
	}

	return success(a.schedule(syncKey{hashedToken: hashedToken, projectID: projectID}, p))
}

func (a *Analyzer) schedule(key syncKey, p *project.Project) *Job {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	f, ok := a.flights[key]
	if !ok {
		job := newJob(p.ID())
		a.flights[key] = &flight{current: job}
		a.dispatch(key, p, job)
		return job
	}
	if f.next == nil {
		f.next = newJob(p.ID())
	}
	return f.next
}

// dispatch hands the job to the pool from its own goroutine, so a saturated pool
// never holds up the caller.
func (a *Analyzer) dispatch(key syncKey, p *project.Project, job *Job) {
	task := func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("sync of project %d panicked: %v", p.ID(), r)
			}
			a.advance(key, p)
			job.finish(err)
		}()

		err = a.runSync(p)
	}

	go func() {
		if err := a.pool.Submit(task); err != nil {
			a.log.Error("Failed to submit sync", zap.Int("project_id", p.ID()), zap.Error(err))
			a.advance(key, p)
			job.finish(fmt.Errorf("failed to submit sync: %w", err))
		}
	}()
}

// advance starts the queued follow-up of the key, or forgets the key when
// nothing is queued.
func (a *Analyzer) advance(key syncKey, p *project.Project) {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	f, ok := a.flights[key]
	if !ok {
		return
	}
	if f.next == nil {
		delete(a.flights, key)
		return
	}
	f.current, f.next = f.next, nil
	a.dispatch(key, p, f.current)
}

func (a *Analyzer) runSync(p *project.Project) error {
	start := time.Now()
	if err := p.Sync(a.ctx); err != nil {
		a.log.Error("Project sync failed", zap.Int("project_id", p.ID()), zap.Error(err))
		return err
	}

	if a.persister != nil {
		if err := a.persister.PersistProject(a.ctx, p); err != nil {
			a.log.Error("Failed to persist project", zap.Int("project_id", p.ID()), zap.Error(err))
			return fmt.Errorf("persist project %d: %w", p.ID(), err)
		}
	}

	a.log.Info("Project sync finished",
		zap.Int("project_id", p.ID()),
		zap.Duration("took", time.Since(start)))
	return nil
}

// SyncStatus is the sync bookkeeping of a project plus whether a submitted sync
// has not finished yet.
type SyncStatus struct {
	project.SyncState
	Pending bool `json:"pending"`
}

// CheckSyncState returns the sync bookkeeping of the project.
func (a *Analyzer) CheckSyncState(ctx context.Context, hashedToken string, projectID int) Result[SyncStatus] {
	return read(ctx, a, hashedToken, projectID, func(p *project.Project) SyncStatus {
		a.syncMu.Lock()
		_, pending := a.flights[syncKey{hashedToken: hashedToken, projectID: projectID}]
		a.syncMu.Unlock()

		return SyncStatus{
			SyncState: p.SyncState(),
			Pending:   pending,
		}
	})
}

// RefreshAll submits a sync of every aggregate created so far.
func (a *Analyzer) RefreshAll() []*Job {
	a.mu.RLock()
	type target struct {
		key syncKey
		p   *project.Project
	}
	var targets []target
	for hashedToken, cred := range a.credentials {
		cred.mu.Lock()
		for id, p := range cred.projects {
			targets = append(targets, target{key: syncKey{hashedToken: hashedToken, projectID: id}, p: p})
		}
		cred.mu.Unlock()
	}
	a.mu.RUnlock()

	if a.ctx.Err() != nil {
		return nil
	}

	jobs := make([]*Job, 0, len(targets))
	for _, t := range targets {
		jobs = append(jobs, a.schedule(t.key, t.p))
	}

	a.log.Info("Refresh submitted", zap.Int("projects", len(jobs)))
	return jobs
}
