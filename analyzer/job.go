package analyzer

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Job is the handle of a submitted sync.
type Job struct {
	ProjectID   int
	SubmittedAt time.Time

	done chan struct{}
	once sync.Once
	err  error
}

func newJob(projectID int) *Job {
	return &Job{
		ProjectID:   projectID,
		SubmittedAt: time.Now().UTC(),
		done:        make(chan struct{}),
	}
}

func (j *Job) finish(err error) {
	j.once.Do(func() {
		j.err = err
		close(j.done)
	})
}

// Done is closed when the sync has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the sync error. It is nil while the job is running.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Finished reports whether the sync has finished.
func (j *Job) Finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the sync finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MarshalJSON encodes the observable state of the job.
func (j *Job) MarshalJSON() ([]byte, error) {
	state := struct {
		ProjectID   int       `json:"project_id"`
		SubmittedAt time.Time `json:"submitted_at"`
		Finished    bool      `json:"finished"`
		Error       string    `json:"error,omitempty"`
	}{
		ProjectID:   j.ProjectID,
		SubmittedAt: j.SubmittedAt,
		Finished:    j.Finished(),
	}
	if err := j.Err(); err != nil {
		state.Error = err.Error()
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(state)
}
