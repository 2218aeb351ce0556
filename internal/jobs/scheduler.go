package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/karloscodes/cartridge"
)

// Job is a unit of background work run on a fixed interval.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Scheduler is responsible for running background jobs
type Scheduler struct {
	logger *slog.Logger
	jobs   []Job

	mu        sync.Mutex
	cancel    context.CancelFunc
	isRunning bool
	wg        sync.WaitGroup

	// running guards against overlapping executions of the same job
	running sync.Map
}

// The scheduler runs alongside the server as a cartridge background worker.
var _ cartridge.BackgroundWorker = (*Scheduler)(nil)

func NewScheduler(logger *slog.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{logger: logger, jobs: jobs}
}

// executeJobSafely runs a job unless its previous run is still executing.
// Panics are logged, not propagated.
func (s *Scheduler) executeJobSafely(ctx context.Context, job Job) {
	if _, busy := s.running.LoadOrStore(job.Name(), struct{}{}); busy {
		s.logger.Debug("Skipping job execution - previous run still in progress", slog.String("job", job.Name()))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", job.Name()),
				slog.Any("panic", r))
		}
		s.running.Delete(job.Name())
	}()

	if err := job.Run(ctx); err != nil {
		s.logger.Error("Error executing job", slog.String("job", job.Name()), slog.Any("error", err))
	}
}

// Start runs every job once and then on its interval until Stop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.isRunning = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}

	s.logger.Info("Background jobs started", slog.Int("jobs", len(s.jobs)))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	interval := job.Interval()
	s.logger.Info("Starting job", slog.String("job", job.Name()), slog.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.executeJobSafely(ctx, job)
	for {
		select {
		case <-ticker.C:
			s.executeJobSafely(ctx, job)
		case <-ctx.Done():
			s.logger.Info("Job stopped", slog.String("job", job.Name()))
			return
		}
	}
}

// Stop halts all background jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.logger.Info("Stopping background jobs...")
	s.cancel()
	s.isRunning = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow executes one job by name outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) bool {
	for _, job := range s.jobs {
		if job.Name() == name {
			s.executeJobSafely(ctx, job)
			return true
		}
	}
	return false
}
