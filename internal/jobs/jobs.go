// Package jobs holds the periodic background work: notification dispatch,
// due-date reminders and recurring chore generation.
package jobs

import (
	"context"
	"fmt"
)

// Job is a single pass of periodic work. Scheduling is the caller's concern.
type Job interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

// Result summarises one run.
type Result struct {
	Processed int
	Skipped   int
	Failed    int
}

func (r Result) String() string {
	return fmt.Sprintf("processed=%d skipped=%d failed=%d", r.Processed, r.Skipped, r.Failed)
}
