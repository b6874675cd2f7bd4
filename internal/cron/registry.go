package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one maintenance task run by the worker each cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs by name in registration order.
type Registry struct {
	order []string
	byKey map[string]Job
}

// NewRegistry rejects unnamed jobs and duplicate names so every metric
// series and log line maps to exactly one job.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		name := strings.TrimSpace(job.Name())
		if name == "" {
			return nil, fmt.Errorf("job %T has no name", job)
		}
		if _, dup := r.byKey[name]; dup {
			return nil, fmt.Errorf("job %q registered twice", name)
		}
		r.order = append(r.order, name)
		r.byKey[name] = job
	}
	return r, nil
}

// Names lists job names in run order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Select returns the named jobs, or every job when names is empty.
func (r *Registry) Select(names ...string) ([]Job, error) {
	if len(names) == 0 {
		names = r.order
	}
	jobs := make([]Job, 0, len(names))
	for _, name := range names {
		job, ok := r.byKey[name]
		if !ok {
			return nil, fmt.Errorf("unknown job %q (have %s)", name, strings.Join(r.order, ", "))
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
