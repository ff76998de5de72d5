package cron

import (
	"context"
	"time"
)

// Job is one maintenance task run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry holds jobs with their run cadence.
type Registry struct {
	entries []*entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register schedules job to run at most once per every. Nil jobs and
// non-positive cadences are ignored.
func (r *Registry) Register(job Job, every time.Duration) {
	if job == nil || every <= 0 {
		return
	}
	r.entries = append(r.entries, &entry{job: job, every: every})
}

// Due returns the jobs whose cadence has elapsed at now, in registration order.
func (r *Registry) Due(now time.Time) []Job {
	var due []Job
	for _, e := range r.entries {
		if e.lastRun.IsZero() || !now.Before(e.lastRun.Add(e.every)) {
			due = append(due, e.job)
		}
	}
	return due
}

// MarkRun records that the named job ran at now.
func (r *Registry) MarkRun(name string, now time.Time) {
	for _, e := range r.entries {
		if e.job.Name() == name {
			e.lastRun = now
		}
	}
}

func (r *Registry) Len() int {
	return len(r.entries)
}
