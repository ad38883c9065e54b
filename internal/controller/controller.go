// Package controller is the session facade over the reconciliation core. It
// owns the poller, engine, and dispatcher for one connection target, exposes
// the inbound operations UI layers call, and fans change events out to
// subscribers. Switching targets fails all in-flight commands, clears the
// snapshot, and restarts polling from scratch.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"vmixctl/internal/config"
	"vmixctl/internal/dispatch"
	"vmixctl/internal/engine"
	"vmixctl/internal/history"
	"vmixctl/internal/logging"
	"vmixctl/internal/metrics"
	"vmixctl/internal/notifications"
	"vmixctl/internal/poller"
	"vmixctl/internal/vmix"
)

// ErrNotConnected is returned for commands issued without an active session.
var ErrNotConnected = errors.New("not connected to a vMix host")

// ClientFactory builds a transport client for a connection target. Tests
// substitute fakes here.
type ClientFactory func(host string, port int) vmix.Client

// Options carries the optional collaborators.
type Options struct {
	ClientFactory ClientFactory
	Metrics       *metrics.Metrics
	Notifier      notifications.Service
	History       *history.Store
}

// Status is the session summary served to status surfaces.
type Status struct {
	Connected      bool       `json:"connected"`
	Host           string     `json:"host"`
	Port           int        `json:"port"`
	Degraded       bool       `json:"degraded"`
	PendingCount   int        `json:"pending_count"`
	Inputs         int        `json:"inputs"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
	LastSnapshotAt *time.Time `json:"last_snapshot_at,omitempty"`
}

// Controller drives one vMix control session.
type Controller struct {
	cfg    *config.Config
	logger *slog.Logger
	opts   Options
	hub    *hub
	engine *engine.Engine

	mu          sync.Mutex
	connected   bool
	host        string
	port        int
	client      vmix.Client
	poll        *poller.Poller
	dispatcher  *dispatch.Dispatcher
	sessionCtx  context.Context
	cancel      context.CancelFunc
	connectedAt time.Time
}

// New builds a controller. The engine persists across reconnects; transport,
// poller, and dispatcher are rebuilt per connection target.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.ClientFactory == nil {
		opts.ClientFactory = func(host string, port int) vmix.Client {
			return vmix.NewHTTPClient(host, port, nil)
		}
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(cfg)
	}

	c := &Controller{
		cfg:    cfg,
		logger: logger.With(logging.String("component", "controller")),
		opts:   opts,
		hub:    newHub(),
	}
	c.engine = engine.New(cfg.CommandTimeout(), logger, c.handleEngineEvent)
	return c
}

// Connect starts (or restarts) a session against the given target. Empty
// host selects the configured connection. ctx bounds the whole session
// lifetime, not the call.
func (c *Controller) Connect(ctx context.Context, host string, port int) error {
	if host == "" {
		host = c.cfg.Connection.Host
	}
	if port == 0 {
		port = c.cfg.Connection.Port
	}

	c.disconnect()

	c.mu.Lock()
	sessionCtx, cancel := context.WithCancel(ctx)
	client := c.opts.ClientFactory(host, port)
	dispatcher := dispatch.New(client, c.engine, dispatch.Options{
		MaxRetries:     c.cfg.Commands.MaxRetries,
		RetryBackoff:   c.cfg.RetryBackoff(),
		UseCutFallback: c.cfg.Commands.UseCutFallback,
	}, c.logger)
	poll := poller.New(client, c.engine, poller.Options{
		Interval:          c.cfg.PollInterval(),
		MaxBackoff:        c.cfg.BackoffMax(),
		LostAfterFailures: c.cfg.Polling.LostAfterFailures,
	}, c.logger)
	poll.OnConnectivity = c.handleConnectivity
	poll.OnPoll = c.opts.Metrics.ObservePoll

	c.host = host
	c.port = port
	c.client = client
	c.dispatcher = dispatcher
	c.poll = poll
	c.sessionCtx = sessionCtx
	c.cancel = cancel
	c.connected = true
	c.connectedAt = time.Now().UTC()
	c.mu.Unlock()

	if err := poll.Start(sessionCtx); err != nil {
		c.disconnect()
		return fmt.Errorf("start poller: %w", err)
	}

	c.logger.Info("session started",
		logging.String("host", host),
		logging.Int("port", port))
	return nil
}

// Disconnect tears the session down: polling stops, in-flight commands fail,
// the snapshot resets to nil.
func (c *Controller) Disconnect() {
	c.disconnect()
}

func (c *Controller) disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	poll := c.poll
	dispatcher := c.dispatcher
	cancel := c.cancel
	host := c.host
	c.connected = false
	c.poll = nil
	c.dispatcher = nil
	c.sessionCtx = nil
	c.cancel = nil
	c.client = nil
	c.mu.Unlock()

	poll.Stop()
	cancel()
	dispatcher.Wait()
	c.engine.Reset()
	c.opts.Metrics.SetDegraded(false)
	c.opts.Metrics.SetPendingCommands(0)
	c.opts.Metrics.SetSnapshotInputs(0)

	c.logger.Info("session stopped", logging.String("host", host))
}

// SelectPreview puts the given input into preview.
func (c *Controller) SelectPreview(inputID string) (engine.PendingCommand, error) {
	return c.dispatchCommand(vmix.Command{Kind: vmix.KindPreview, Input: inputID})
}

// QuickPlay transitions the current preview input to program.
func (c *Controller) QuickPlay() (engine.PendingCommand, error) {
	view := c.engine.CurrentView()
	if view.PreviewID == "" {
		return engine.PendingCommand{}, errors.New("no input in preview")
	}
	return c.dispatchCommand(vmix.Command{Kind: vmix.KindQuickPlay, Input: view.PreviewID})
}

// SetOverlay assigns an input to an overlay layer (1-4).
func (c *Controller) SetOverlay(layer int, inputID string) (engine.PendingCommand, error) {
	return c.dispatchCommand(vmix.Command{Kind: vmix.KindOverlaySet, Layer: layer, Input: inputID})
}

// ClearOverlay removes the assignment from an overlay layer.
func (c *Controller) ClearOverlay(layer int) (engine.PendingCommand, error) {
	return c.dispatchCommand(vmix.Command{Kind: vmix.KindOverlayOut, Layer: layer})
}

// ClearAllOverlays removes every overlay assignment.
func (c *Controller) ClearAllOverlays() error {
	var firstErr error
	for layer := 1; layer <= 4; layer++ {
		if _, err := c.ClearOverlay(layer); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ToggleFTB flips fade-to-black.
func (c *Controller) ToggleFTB() (engine.PendingCommand, error) {
	return c.dispatchCommand(vmix.Command{Kind: vmix.KindFadeToBlack})
}

// Notifier exposes the configured notification service.
func (c *Controller) Notifier() notifications.Service {
	return c.opts.Notifier
}

// CurrentView returns the merged optimistic view.
func (c *Controller) CurrentView() engine.View {
	return c.engine.CurrentView()
}

// Subscribe attaches to the change-event stream. The returned cancel func
// must be called to release the subscription.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.hub.subscribe()
}

// Status summarizes the session.
func (c *Controller) Status() Status {
	c.mu.Lock()
	status := Status{
		Connected: c.connected,
		Host:      c.host,
		Port:      c.port,
	}
	if c.connected {
		since := c.connectedAt
		status.ConnectedSince = &since
		if c.poll != nil {
			status.Degraded = c.poll.Degraded()
		}
	}
	c.mu.Unlock()

	status.PendingCount = c.engine.PendingCount()
	if snap := c.engine.Snapshot(); snap != nil {
		status.Inputs = len(snap.Inputs)
		captured := snap.CapturedAt
		status.LastSnapshotAt = &captured
	}
	return status
}

func (c *Controller) dispatchCommand(cmd vmix.Command) (engine.PendingCommand, error) {
	c.mu.Lock()
	dispatcher := c.dispatcher
	sessionCtx := c.sessionCtx
	connected := c.connected
	c.mu.Unlock()

	if !connected || dispatcher == nil {
		return engine.PendingCommand{}, ErrNotConnected
	}

	pc, err := dispatcher.Dispatch(sessionCtx, cmd)
	if err != nil {
		return engine.PendingCommand{}, err
	}
	c.opts.Metrics.CommandDispatched(string(cmd.Kind))
	return pc, nil
}

func (c *Controller) handleEngineEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EventSnapshot:
		c.opts.Metrics.SetPendingCommands(c.engine.PendingCount())
		if snap := c.engine.Snapshot(); snap != nil {
			c.opts.Metrics.SetSnapshotInputs(len(snap.Inputs))
		}
		c.hub.publish(Event{Type: EventSnapshot})
	case engine.EventCommandSubmitted:
		c.recordSubmitted(ev.Command)
		c.hub.publish(Event{Type: EventCommandSubmitted, Command: ev.Command})
	case engine.EventCommandResolved:
		c.opts.Metrics.CommandResolved(string(ev.Command.Status))
		c.recordResolved(ev.Command)
		if ev.Command.Status == engine.StatusFailed || ev.Command.Status == engine.StatusTimedOut {
			c.notifyFailure(ev.Command)
		}
		c.hub.publish(Event{Type: EventCommandResolved, Command: ev.Command})
	case engine.EventReset:
		c.hub.publish(Event{Type: EventReset})
	}
}

func (c *Controller) handleConnectivity(conn poller.Connectivity, err error) {
	c.opts.Metrics.SetDegraded(conn != poller.ConnectivityRestored)
	c.hub.publish(Event{Type: EventConnectivity, Connectivity: string(conn)})

	c.mu.Lock()
	host := c.host
	c.mu.Unlock()

	notifier := c.opts.Notifier
	switch conn {
	case poller.ConnectivityLost:
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if nerr := notifier.NotifyConnectivityLost(ctx, host, err); nerr != nil {
				c.logger.Warn("connectivity-lost notification failed", logging.Error(nerr))
			}
		}()
	case poller.ConnectivityRestored:
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if nerr := notifier.NotifyConnectivityRestored(ctx, host); nerr != nil {
				c.logger.Warn("connectivity-restored notification failed", logging.Error(nerr))
			}
		}()
	}
}

func (c *Controller) recordSubmitted(pc *engine.PendingCommand) {
	store := c.opts.History
	if store == nil || pc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := store.Record(ctx, history.Entry{
		ID:          pc.ID,
		Kind:        string(pc.Command.Kind),
		InputID:     pc.Command.Input,
		Layer:       pc.Command.Layer,
		SubmittedAt: pc.SubmittedAt,
		Status:      string(pc.Status),
	})
	if err != nil {
		c.logger.Warn("record command history", logging.Error(err))
	}
}

func (c *Controller) recordResolved(pc *engine.PendingCommand) {
	store := c.opts.History
	if store == nil || pc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Resolve(ctx, pc.ID, string(pc.Status), pc.Detail); err != nil {
		c.logger.Warn("resolve command history", logging.Error(err))
	}
}

func (c *Controller) notifyFailure(pc *engine.PendingCommand) {
	notifier := c.opts.Notifier
	command := pc.Command.String()
	detail := pc.Detail
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := notifier.NotifyCommandFailed(ctx, command, detail); err != nil {
			c.logger.Warn("command-failure notification failed", logging.Error(err))
		}
	}()
}
