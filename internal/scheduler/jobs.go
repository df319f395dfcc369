package scheduler

import (
	"context"
	"time"
)

// jobTimeout bounds each background run; jobs call out to the provider and
// must not hang the scheduler.
const jobTimeout = 5 * time.Minute

// FuncJob adapts a context-taking function to the Job interface
type FuncJob struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFuncJob creates a named job from a function
func NewFuncJob(name string, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{name: name, fn: fn}
}

// Name returns the job name
func (j *FuncJob) Name() string {
	return j.name
}

// Run executes the job with a bounded context
func (j *FuncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	return j.fn(ctx)
}
