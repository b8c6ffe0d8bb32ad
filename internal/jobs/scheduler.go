package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/homebase/internal/metrics"
)

type entry struct {
	job      Job
	interval time.Duration
}

// Scheduler runs each registered job on its own fixed interval. Runs of the
// same job never overlap: a trigger that arrives while the job is running
// joins the in-flight run instead of starting a second one.
type Scheduler struct {
	mu      sync.Mutex
	entries []entry
	group   singleflight.Group
	logger  *slog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers job. It must be called before Start.
func (s *Scheduler) Add(job Job, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{job: job, interval: interval})
}

// Start launches one ticker loop per job.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
}

// Stop cancels every loop and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, e.job)
		}
	}
}

// RunOnce runs job now, or waits for and shares the result of a run already
// in progress.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) (Result, error) {
	v, err, shared := s.group.Do(job.Name(), func() (any, error) {
		start := time.Now()
		res, err := job.Run(ctx)
		elapsed := time.Since(start)
		record(job.Name(), res, err, elapsed)
		log := s.logger.With("job", job.Name(), "duration", elapsed, "processed", res.Processed, "skipped", res.Skipped, "failed", res.Failed)
		if err != nil {
			log.Error("job run failed", "error", err)
		} else {
			log.Info("job run complete")
		}
		return res, err
	})
	if shared {
		s.logger.Debug("joined in-flight job run", "job", job.Name())
	}
	res, _ := v.(Result)
	return res, err
}

func record(name string, res Result, err error, elapsed time.Duration) {
	metrics.JobRuns.WithLabelValues(name, metrics.Outcome(err)).Inc()
	metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	metrics.JobItems.WithLabelValues(name, "processed").Add(float64(res.Processed))
	metrics.JobItems.WithLabelValues(name, "skipped").Add(float64(res.Skipped))
	metrics.JobItems.WithLabelValues(name, "failed").Add(float64(res.Failed))
}
