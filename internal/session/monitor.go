package session

import (
	"context"
	"log/slog"
	"time"
)

// ObservedState is the snapshot the polling engine diffs between ticks.
type ObservedState struct {
	HasText      bool
	HasImage     bool
	HasOwnership bool
}

// Run represents one execution of the change-detection loop. At most one run
// is alive per session; starting a new one supersedes (cancels) any prior
// run without waiting for it.
type Run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed when the run's loop has exited.
func (r *Run) Done() <-chan struct{} { return r.done }

// Stop signals the run to exit. It does not wait; receive from Done for
// that.
func (r *Run) Stop() { r.cancel() }

// completedRun is what StartMonitoring hands back when change detection is
// disabled: not an error, just a run that has already finished.
func completedRun() *Run {
	r := &Run{cancel: func() {}, done: make(chan struct{})}
	close(r.done)
	return r
}

// StartMonitoring begins change detection. The loop stops when ctx is
// cancelled, the run is stopped, or the session is closed — whichever comes
// first. Any previous run is cancelled and superseded.
//
// When change detection is disabled in the config, the returned run is
// already completed and no loop is started.
func (s *Session) StartMonitoring(ctx context.Context) (*Run, error) {
	if !s.cfg.ChangeDetection {
		if s.disposed.Load() {
			return nil, ErrDisposed
		}
		return completedRun(), nil
	}

	rctx, cancel := context.WithCancel(ctx)
	run := &Run{cancel: cancel, done: make(chan struct{})}

	s.runMu.Lock()
	if s.disposed.Load() {
		s.runMu.Unlock()
		cancel()
		return nil, ErrDisposed
	}
	prev := s.run
	s.run = run
	s.runMu.Unlock()

	if prev != nil {
		// Superseding, not serialising: the old run is told to stop but the
		// new one does not wait for it.
		prev.Stop()
	}

	go s.monitor(rctx, run)
	return run, nil
}

// StopMonitoring cancels the active run without waiting for it to exit.
//
// Deprecated: cancel the context passed to StartMonitoring instead.
func (s *Session) StopMonitoring() {
	s.runMu.Lock()
	run := s.run
	s.run = nil
	s.runMu.Unlock()
	if run != nil {
		run.Stop()
	}
}

// monitor is the polling loop. One goroutine per run; nothing else touches
// the baseline state, so no locking is needed inside the loop.
func (s *Session) monitor(ctx context.Context, run *Run) {
	defer close(run.done)
	defer run.cancel()

	// Baseline, captured once before the first wait.
	last := s.observe()

	ticker := time.NewTicker(s.cfg.PollingInterval)
	defer ticker.Stop()

	for {
		// The wait is the cancellation point: cancellation unblocks it
		// immediately rather than waiting out the interval.
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.disposed.Load() {
			return
		}
		s.pollOnce(&last)
	}
}

// pollOnce runs a single iteration. Native failures are contained here: the
// loop must outlive transient errors and keep polling.
func (s *Session) pollOnce(last *ObservedState) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("clipboard poll iteration failed", "panic", v)
		}
	}()

	changed := s.lib.Poll(s.ref.h)
	if changed < 0 {
		slog.Warn("clipboard poll failed", "status", changed)
		return
	}
	if changed == 0 {
		// No native-side change signal; skip the state queries entirely.
		return
	}

	cur := s.observe()
	if cur == *last {
		// Contents may have changed but the observable flags did not:
		// no event.
		return
	}
	*last = cur
	s.dispatch(Event{
		Time:         time.Now(),
		HasText:      cur.HasText,
		HasImage:     cur.HasImage,
		HasOwnership: cur.HasOwnership,
	})
}

// observe queries the three state flags directly off the library.
func (s *Session) observe() ObservedState {
	return ObservedState{
		HasText:      s.lib.HasText(s.ref.h),
		HasImage:     s.lib.HasImage(s.ref.h),
		HasOwnership: s.lib.HasOwnership(s.ref.h),
	}
}
