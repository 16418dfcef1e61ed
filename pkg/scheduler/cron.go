package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Cron wraps robfig/cron with panic recovery and a fixed location.
type Cron struct {
	c   *cron.Cron
	loc *time.Location
}

func NewCron(loc *time.Location) *Cron {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Cron{c: c, loc: loc}
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for running jobs to return.
func (cr *Cron) Stop() { ctx := cr.c.Stop(); <-ctx.Done() }

// Add registers job under a standard five-field cron expression.
func (cr *Cron) Add(expr string, job Job) (cron.EntryID, error) {
	return cr.c.AddFunc(expr, func() { safeRun(context.Background(), job) })
}

func (cr *Cron) Remove(id cron.EntryID) { cr.c.Remove(id) }

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }
