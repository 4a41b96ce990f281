package cron

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Job is one maintenance task run by the cron worker or by `toolsctl job run`.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in run order. Names are unique so a job can be run on
// its own by name.
type Registry struct {
	jobs   []Job
	byName map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]int{}}
}

// Register appends jobs in order. Nil jobs are skipped; a blank or repeated
// name fails and leaves the registry as it was before the call.
func (r *Registry) Register(jobs ...Job) error {
	pending := map[string]int{}
	added := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		name := strings.TrimSpace(job.Name())
		if name == "" {
			return fmt.Errorf("job %T has no name", job)
		}
		if _, dup := r.byName[name]; dup {
			return fmt.Errorf("job %q already registered", name)
		}
		if _, dup := pending[name]; dup {
			return fmt.Errorf("job %q registered twice", name)
		}
		pending[name] = len(r.jobs) + len(added)
		added = append(added, job)
	}
	for name, idx := range pending {
		r.byName[name] = idx
	}
	r.jobs = append(r.jobs, added...)
	return nil
}

// Jobs returns a copy of the registered jobs in run order.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}

func (r *Registry) Find(name string) (Job, bool) {
	idx, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	return r.jobs[idx], true
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
