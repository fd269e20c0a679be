package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	jobrepo "github.com/Ramsey-B/fern/internal/repositories/job"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
)

// dispatchLockKey serializes claiming across instances. Claiming itself is
// safe under SKIP LOCKED; the lock just stops instances from polling over
// each other.
const dispatchLockKey = "dispatch"

// Dispatcher polls for ready jobs and feeds them to a bounded worker pool
type Dispatcher struct {
	logger  ectologger.Logger
	config  *config.Config
	jobRepo *jobrepo.Repository
	locker  *redis.Locker
	runner  *Runner

	jobs   chan models.Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(logger ectologger.Logger, cfg *config.Config, jobRepo *jobrepo.Repository, locker *redis.Locker, runner *Runner) *Dispatcher {
	return &Dispatcher{
		logger:  logger,
		config:  cfg,
		jobRepo: jobRepo,
		locker:  locker,
		runner:  runner,
		jobs:    make(chan models.Job),
	}
}

// Start launches the poll loop and the worker pool
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)

	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}

	d.wg.Add(1)
	go d.poll(ctx)

	d.logger.WithFields(map[string]any{
		"workers":       d.config.WorkerCount,
		"poll_interval": d.config.DispatchPollInterval.String(),
		"batch_size":    d.config.DispatchBatchSize,
	}).Info("Dispatcher started")
}

// Stop cancels the poll loop and waits for in-flight jobs to settle
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.logger.Info("Dispatcher stopped")
}

func (d *Dispatcher) poll(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DispatchPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(d.jobs)
			return
		case <-ticker.C:
			d.dispatch(ctx)
		}
	}
}

// dispatch claims one batch of ready jobs under the distributed lock and
// hands them off. Losing the lock means another instance is claiming this
// tick, so skip quietly.
func (d *Dispatcher) dispatch(ctx context.Context) {
	lock, err := d.locker.Acquire(ctx, dispatchLockKey, 2*d.config.DispatchPollInterval)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return
		}
		d.logger.WithContext(ctx).WithError(err).Error("Failed to acquire dispatch lock")
		return
	}

	jobs, err := d.jobRepo.ClaimReady(ctx, d.config.DispatchBatchSize)
	if releaseErr := lock.Release(ctx); releaseErr != nil && !errors.Is(releaseErr, redis.ErrLockNotHeld) {
		d.logger.WithContext(ctx).WithError(releaseErr).Warn("Failed to release dispatch lock")
	}
	if err != nil {
		d.logger.WithContext(ctx).WithError(err).Error("Failed to claim ready jobs")
		return
	}
	if len(jobs) == 0 {
		return
	}

	metrics.DispatchClaimedTotal.Add(float64(len(jobs)))
	d.logger.WithContext(ctx).WithFields(map[string]any{"claimed": len(jobs)}).Debug("Claimed ready jobs")

	for _, job := range jobs {
		select {
		case <-ctx.Done():
			return
		case d.jobs <- job:
		}
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()

	for job := range d.jobs {
		d.runner.Run(ctx, job)
	}
}
