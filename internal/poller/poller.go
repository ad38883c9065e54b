// Package poller drives the periodic state refresh: fetch, parse, ingest.
// The loop is strictly sequential, so a slow poll suppresses the next tick
// instead of overlapping it. Transient fetch failures enter a degraded mode
// with exponentially growing intervals capped at a configured maximum; the
// first failure and the eventual recovery each emit exactly one connectivity
// event.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"vmixctl/internal/logging"
	"vmixctl/internal/state"
)

// Connectivity describes a transition of the poll loop's health.
type Connectivity string

const (
	// ConnectivityDegraded fires on the first failed poll after a healthy one.
	ConnectivityDegraded Connectivity = "degraded"
	// ConnectivityLost fires once the failure streak passes the configured
	// threshold.
	ConnectivityLost Connectivity = "lost"
	// ConnectivityRestored fires on the first successful fetch after a
	// degraded period.
	ConnectivityRestored Connectivity = "restored"
)

// fetcher is the transport surface the poller needs.
type fetcher interface {
	FetchState(ctx context.Context) ([]byte, error)
}

// ingester receives parsed snapshots.
type ingester interface {
	IngestSnapshot(*state.Snapshot)
}

// Options tunes the poll loop.
type Options struct {
	Interval          time.Duration
	MaxBackoff        time.Duration
	LostAfterFailures int
}

// Poller owns the background refresh task.
type Poller struct {
	client fetcher
	engine ingester
	logger *slog.Logger
	opts   Options

	// OnConnectivity receives health transitions; optional.
	OnConnectivity func(Connectivity, error)
	// OnPoll observes every poll outcome; optional, used for metrics.
	OnPoll func(ok bool, elapsed time.Duration)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// backoff state, guarded by mu; Degraded reads it from other goroutines.
	degraded bool
	failures int
	backoff  time.Duration
}

// New builds a poller. Interval must be positive; MaxBackoff below Interval
// is raised to it.
func New(client fetcher, engine ingester, opts Options, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.MaxBackoff < opts.Interval {
		opts.MaxBackoff = opts.Interval
	}
	if opts.LostAfterFailures <= 0 {
		opts.LostAfterFailures = 5
	}
	return &Poller{
		client: client,
		engine: engine,
		logger: logger.With(logging.String("component", "poller")),
		opts:   opts,
	}
}

// Start launches the poll loop. The loop never terminates on its own; it
// runs until Stop or context cancellation.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("poller already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.degraded = false
	p.failures = 0
	p.backoff = 0

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(runCtx)
	}()
	return nil
}

// Stop halts the loop and waits for the in-flight poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Degraded reports whether the loop is currently in backoff.
func (p *Poller) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

func (p *Poller) run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		wait := p.step(ctx)
		if ctx.Err() != nil {
			return
		}
		timer.Reset(wait)
	}
}

// step performs one poll and returns the wait before the next one.
func (p *Poller) step(ctx context.Context) time.Duration {
	started := time.Now()
	data, err := p.client.FetchState(ctx)
	elapsed := time.Since(started)

	if err != nil {
		if ctx.Err() != nil {
			return p.opts.Interval
		}
		p.observe(false, elapsed)
		return p.handleFailure(err)
	}
	p.observe(true, elapsed)

	p.recover()

	snap, perr := state.Parse(data)
	if perr != nil {
		// Prior snapshot stays authoritative; the host is reachable, so this
		// is not a connectivity problem.
		p.logger.Warn("state document unusable", logging.Error(perr))
		return p.opts.Interval
	}

	p.engine.IngestSnapshot(snap)
	p.logger.Debug("snapshot ingested",
		logging.Int("inputs", len(snap.Inputs)),
		logging.Duration("elapsed", elapsed))
	return p.opts.Interval
}

func (p *Poller) handleFailure(err error) time.Duration {
	p.mu.Lock()
	first := !p.degraded
	p.degraded = true
	p.failures++
	if p.backoff == 0 {
		p.backoff = p.opts.Interval
	}
	wait := p.backoff
	if next := p.backoff * 2; next <= p.opts.MaxBackoff {
		p.backoff = next
	} else {
		p.backoff = p.opts.MaxBackoff
	}
	lost := p.failures == p.opts.LostAfterFailures
	p.mu.Unlock()

	if first {
		p.logger.Warn("poll failed, entering degraded mode", logging.Error(err))
		p.notify(ConnectivityDegraded, err)
	} else {
		p.logger.Debug("poll failed", logging.Error(err), logging.Duration("next_poll", wait))
	}
	if lost {
		p.logger.Error("connectivity lost", logging.Error(err), logging.Int("failures", p.opts.LostAfterFailures))
		p.notify(ConnectivityLost, err)
	}
	return wait
}

func (p *Poller) recover() {
	p.mu.Lock()
	wasDegraded := p.degraded
	p.degraded = false
	p.failures = 0
	p.backoff = 0
	p.mu.Unlock()

	if wasDegraded {
		p.logger.Info("connectivity restored")
		p.notify(ConnectivityRestored, nil)
	}
}

func (p *Poller) notify(c Connectivity, err error) {
	if p.OnConnectivity != nil {
		p.OnConnectivity(c, err)
	}
}

func (p *Poller) observe(ok bool, elapsed time.Duration) {
	if p.OnPoll != nil {
		p.OnPoll(ok, elapsed)
	}
}
