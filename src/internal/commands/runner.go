package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/multihome/mhroute/src/internal/log"
)

// RestartableRunner keeps a long-running function alive. A failed or
// panicking run is restarted with exponential backoff until the context is
// cancelled.
type RestartableRunner struct {
	name    string
	runFunc func(ctx context.Context) error

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	lastError    error
	restartCount int

	maxRestarts    int
	restartBackoff time.Duration
	maxBackoff     time.Duration
}

// RunnerConfig contains configuration for RestartableRunner.
type RunnerConfig struct {
	Name           string
	MaxRestarts    int           // 0 = unlimited restarts
	RestartBackoff time.Duration // default 1s
	MaxBackoff     time.Duration // default 30s
}

// NewRestartableRunner creates a new restartable runner.
func NewRestartableRunner(cfg RunnerConfig, runFunc func(ctx context.Context) error) *RestartableRunner {
	if cfg.RestartBackoff == 0 {
		cfg.RestartBackoff = time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}

	return &RestartableRunner{
		name:           cfg.Name,
		runFunc:        runFunc,
		maxRestarts:    cfg.MaxRestarts,
		restartBackoff: cfg.RestartBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}
}

// Start runs the function in a goroutine.
func (r *RestartableRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("%s is already running", r.name)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true
	r.restartCount = 0
	r.lastError = nil

	go r.runLoop(runCtx, r.done)
	return nil
}

// Stop cancels the run context and waits up to timeout for the loop to exit.
func (r *RestartableRunner) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-time.After(timeout):
		return fmt.Errorf("%s: timeout waiting for stop", r.name)
	}
	return nil
}

// IsRunning reports whether the loop is still active.
func (r *RestartableRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastError returns the error of the most recent run.
func (r *RestartableRunner) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// RestartCount returns the number of restarts so far.
func (r *RestartableRunner) RestartCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.restartCount
}

func (r *RestartableRunner) runLoop(ctx context.Context, done chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(done)
	}()

	backoff := r.restartBackoff
	for {
		err := r.runWithRecovery(ctx)

		r.mu.Lock()
		r.lastError = err
		r.mu.Unlock()

		if err == nil {
			log.Infof("%s: exited cleanly", r.name)
			return
		}
		if ctx.Err() != nil {
			return
		}

		r.mu.Lock()
		r.restartCount++
		restarts := r.restartCount
		r.mu.Unlock()

		if r.maxRestarts > 0 && restarts > r.maxRestarts {
			log.Errorf("%s: max restarts (%d) reached, giving up. Last error: %v", r.name, r.maxRestarts, err)
			return
		}

		log.Errorf("%s: failed: %v. Restarting in %v (restart #%d)", r.name, err, backoff, restarts)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}
}

func (r *RestartableRunner) runWithRecovery(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return r.runFunc(ctx)
}
