// Package dispatch sends user commands to the vMix host. Commands register
// with the reconciliation engine before the network round-trip so the
// optimistic view updates immediately; transient failures retry with
// exponential backoff, except transitions which are sent at most once.
package dispatch

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"vmixctl/internal/engine"
	"vmixctl/internal/logging"
	"vmixctl/internal/vmix"
)

// registry is the engine surface the dispatcher needs.
type registry interface {
	Submit(cmd vmix.Command) (engine.PendingCommand, error)
	Fail(id, detail string)
}

// Options tunes dispatch behavior.
type Options struct {
	MaxRetries     int
	RetryBackoff   time.Duration
	UseCutFallback bool
}

// Dispatcher owns the short-lived send tasks for user commands.
type Dispatcher struct {
	client   vmix.Client
	registry registry
	logger   *slog.Logger
	opts     Options

	wg sync.WaitGroup
}

// New builds a dispatcher backed by the given transport and engine.
func New(client vmix.Client, reg registry, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 250 * time.Millisecond
	}
	return &Dispatcher{
		client:   client,
		registry: reg,
		logger:   logger.With(logging.String("component", "dispatch")),
		opts:     opts,
	}
}

// Dispatch registers the command and sends it asynchronously. The returned
// PendingCommand reflects the registered optimistic state; a stale target or
// invalid command is refused synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd vmix.Command) (engine.PendingCommand, error) {
	if _, _, err := cmd.Encode(); err != nil {
		return engine.PendingCommand{}, err
	}

	pc, err := d.registry.Submit(cmd)
	if err != nil {
		return engine.PendingCommand{}, err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(ctx, pc)
	}()
	return pc, nil
}

// Wait blocks until all in-flight send tasks finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, pc engine.PendingCommand) {
	attempts := 1
	if pc.Command.Retryable() {
		attempts = d.opts.MaxRetries + 1
	}

	backoff := d.opts.RetryBackoff
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if !sleepCtx(ctx, backoff) {
				d.registry.Fail(pc.ID, "dispatch canceled")
				return
			}
			backoff *= 2
		}

		err := d.client.SendCommand(ctx, pc.Command)
		if err == nil {
			// Confirmation arrives with a later snapshot; nothing to do.
			return
		}
		lastErr = err

		if vmix.IsRejected(err) {
			d.logger.Warn("command rejected",
				logging.String("command", pc.Command.String()),
				logging.Error(err))
			d.registry.Fail(pc.ID, err.Error())
			if pc.Command.Kind == vmix.KindQuickPlay && d.opts.UseCutFallback {
				d.cutFallback(ctx, pc.Command.Input)
			}
			return
		}

		d.logger.Debug("command send failed",
			logging.String("command", pc.Command.String()),
			logging.Int("attempt", attempt+1),
			logging.Error(err))
	}

	d.registry.Fail(pc.ID, lastErr.Error())
	d.logger.Warn("command gave up after retries",
		logging.String("command", pc.Command.String()),
		logging.Int("attempts", attempts),
		logging.Error(lastErr))
}

// cutFallback issues a single hard cut after vMix refused a fade, matching
// the behavior operators expect from the desktop controller.
func (d *Dispatcher) cutFallback(ctx context.Context, input string) {
	d.logger.Info("falling back to cut", logging.String("input", input))
	pc, err := d.registry.Submit(vmix.Command{Kind: vmix.KindCut, Input: input})
	if err != nil {
		d.logger.Warn("cut fallback refused", logging.Error(err))
		return
	}
	if err := d.client.SendCommand(ctx, pc.Command); err != nil {
		d.registry.Fail(pc.ID, err.Error())
		d.logger.Warn("cut fallback failed", logging.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
