package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"berth/internal/manifest"
)

// supervisor drives one service instance through its lifecycle: start,
// health polling, and policy-driven restarts. Each supervisor runs on its
// own goroutine; polling for one service never blocks another.
type supervisor struct {
	project   string
	spec      manifest.ServiceSpec
	container string

	rt       ContainerRuntime
	health   HealthChecker
	reporter *Reporter
	store    StateStore
	clock    Clock
	runID    string

	restartMax int
	backoff    time.Duration

	// adopted means the container is already running; the first loop
	// iteration skips ContainerStart.
	adopted bool

	cancel       context.CancelFunc
	done         chan struct{}
	operatorStop atomic.Bool

	phase    ServicePhase
	restarts int
}

type runOutcome uint8

const (
	outcomeCanceled runOutcome = iota + 1
	outcomeExited
	outcomeUnhealthy
)

// stop requests shutdown and waits for the supervisor goroutine to exit.
// The operator-stop mark keeps unless-stopped from resurrecting the
// service.
func (s *supervisor) stop() {
	s.operatorStop.Store(true)
	s.cancel()
	<-s.done
}

func (s *supervisor) run(ctx context.Context) {
	defer close(s.done)

	log := slog.With("project", s.project, "service", s.spec.Name, "container", s.container)
	skipStart := s.adopted
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		if !skipStart {
			s.setPhase(PhaseStarting, nil)
			if err := s.rt.ContainerStart(ctx, s.container); err != nil {
				log.Warn("container start failed", "err", err)
				if !s.restartAfterStartFailure() || attempts >= s.restartMax {
					s.setPhase(PhaseFailed, err)
					return
				}
				attempts++
				s.bumpRestarts()
				s.setPhase(PhaseRestarting, err)
				if !sleepCtx(ctx, s.backoff) {
					return
				}
				continue
			}
		}
		skipStart = false
		s.setPhase(PhaseRunning, nil)

		waitCtx, cancelWait := context.WithCancel(ctx)
		exitCh := make(chan int64, 1)
		go func() {
			code, err := s.rt.ContainerWait(waitCtx, s.container)
			if err != nil {
				return
			}
			exitCh <- code
		}()

		outcome, exitCode, probeErr := s.superviseRunning(ctx, exitCh)
		cancelWait()

		switch outcome {
		case outcomeCanceled:
			return

		case outcomeExited:
			if s.operatorStop.Load() {
				s.setPhase(PhaseStopped, nil)
				return
			}
			log.Info("container exited", "code", exitCode)
			if !s.restartAfterExit(exitCode) {
				if exitCode == 0 {
					s.setPhase(PhaseStopped, nil)
				} else {
					s.setPhase(PhaseFailed, fmt.Errorf("container exited with code %d", exitCode))
				}
				return
			}

		case outcomeUnhealthy:
			log.Warn("restarting unhealthy container", "err", probeErr)
			if err := s.rt.ContainerStop(ctx, s.container); err != nil && ctx.Err() == nil {
				log.Warn("stop before restart failed", "err", err)
			}
		}

		if attempts >= s.restartMax {
			s.setPhase(PhaseFailed, fmt.Errorf("restart attempts exhausted after %d tries", attempts))
			return
		}
		attempts++
		s.bumpRestarts()
		s.setPhase(PhaseRestarting, nil)
		if !sleepCtx(ctx, s.backoff) {
			return
		}
	}
}

// superviseRunning watches a running container until it exits, turns
// unhealthy with a restart-eligible policy, or the context is canceled.
func (s *supervisor) superviseRunning(ctx context.Context, exitCh <-chan int64) (runOutcome, int64, error) {
	hc := s.spec.HealthCheck
	if hc == nil {
		select {
		case <-ctx.Done():
			return outcomeCanceled, 0, nil
		case code := <-exitCh:
			return outcomeExited, code, nil
		}
	}

	s.setPhase(PhaseHealthChecking, nil)

	if hc.StartPeriod > 0 {
		if !sleepCtx(ctx, hc.StartPeriod) {
			return outcomeCanceled, 0, nil
		}
	}

	interval := hc.EffectiveInterval()
	retries := hc.EffectiveRetries()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consecutive := 0
	var lastProbeErr error
	for {
		select {
		case <-ctx.Done():
			return outcomeCanceled, 0, nil
		case code := <-exitCh:
			return outcomeExited, code, nil
		case <-ticker.C:
			err := s.health.Probe(ctx, s.container, *hc)
			if ctx.Err() != nil {
				return outcomeCanceled, 0, nil
			}
			if err == nil {
				consecutive = 0
				s.setPhase(PhaseHealthy, nil)
				continue
			}
			consecutive++
			lastProbeErr = err
			if consecutive < retries {
				continue
			}

			s.setPhase(PhaseUnhealthy, lastProbeErr)
			if s.restartAfterUnhealthy() {
				return outcomeUnhealthy, 0, lastProbeErr
			}
			// Keep polling; the service may recover to healthy.
			consecutive = 0
		}
	}
}

func (s *supervisor) restartAfterExit(code int64) bool {
	switch s.spec.RestartPolicy {
	case manifest.RestartAlways:
		return true
	case manifest.RestartUnlessStopped:
		return !s.operatorStop.Load()
	case manifest.RestartOnFailure:
		return code != 0
	default:
		return false
	}
}

func (s *supervisor) restartAfterStartFailure() bool {
	switch s.spec.RestartPolicy {
	case manifest.RestartAlways, manifest.RestartOnFailure:
		return true
	case manifest.RestartUnlessStopped:
		return !s.operatorStop.Load()
	default:
		return false
	}
}

// restartAfterUnhealthy: a failed probe is not an exit, so on-failure does
// not apply; only the unconditional policies restart an unhealthy service.
func (s *supervisor) restartAfterUnhealthy() bool {
	switch s.spec.RestartPolicy {
	case manifest.RestartAlways, manifest.RestartUnlessStopped:
		return !s.operatorStop.Load()
	default:
		return false
	}
}

func (s *supervisor) bumpRestarts() {
	s.restarts++
}

func (s *supervisor) setPhase(to ServicePhase, cause error) {
	if s.phase == to {
		return
	}
	s.phase = s.phase.Transition(to)

	st := ServiceStatus{
		Service:   s.spec.Name,
		Container: s.container,
		Phase:     s.phase,
		Restarts:  s.restarts,
		UpdatedAt: s.clock.Now(),
	}
	if cause != nil {
		st.Err = cause.Error()
	}
	s.reporter.set(st)

	if s.store == nil {
		return
	}
	row := InstanceRow{
		Project:       s.project,
		Service:       s.spec.Name,
		ContainerName: s.container,
		RunID:         s.runID,
		Phase:         s.phase.String(),
		Restarts:      s.restarts,
		LastError:     st.Err,
		UpdatedAt:     s.clock.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.store.UpsertInstance(context.Background(), row); err != nil {
		slog.Warn("persist instance state", "service", s.spec.Name, "err", err)
	}
}

// sleepCtx sleeps for d, returning false if ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
