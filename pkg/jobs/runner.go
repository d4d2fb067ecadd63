package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunFunc is one execution of a periodic job.
type RunFunc func(context.Context) error

// RunnerConfig configures periodic execution.
type RunnerConfig struct {
	Interval   time.Duration
	RunTimeout time.Duration
	Logger     *zap.Logger
}

// Runner executes a job on a fixed interval until stopped. Failed runs are
// logged and do not stop the ticker; retry happens on the next tick.
type Runner struct {
	name       string
	run        RunFunc
	interval   time.Duration
	runTimeout time.Duration
	logger     *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewRunner builds a runner for the given job.
func NewRunner(name string, run RunFunc, cfg RunnerConfig) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Runner{
		name:       name,
		run:        run,
		interval:   cfg.Interval,
		runTimeout: cfg.RunTimeout,
		logger:     cfg.Logger,
	}
}

// Start begins the tick loop. Safe to call once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.loop()
	r.started = true
	r.logger.Sugar().Infow("job runner started", "job", r.name, "interval", r.interval)
}

// Stop cancels the loop and waits for any in-flight run to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
	r.logger.Sugar().Infow("job runner stopped", "job", r.name)
}

func (r *Runner) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce()
		}
	}
}

// RunOnce executes the job a single time with the configured timeout. It is
// exported so operators can trigger a run outside the tick cadence.
func (r *Runner) RunOnce() {
	r.mu.Lock()
	parent := r.ctx
	r.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, r.runTimeout)
	defer cancel()

	start := time.Now()
	if err := r.run(ctx); err != nil {
		r.logger.Sugar().Errorw("job run failed", "job", r.name, "elapsed", time.Since(start), "error", err)
		return
	}
	r.logger.Sugar().Debugw("job run completed", "job", r.name, "elapsed", time.Since(start))
}
