package coordinator

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/joshuapare/plcmirror/internal/events"
	"github.com/joshuapare/plcmirror/pkg/model"
	"github.com/joshuapare/plcmirror/symbolgraph"
	"github.com/joshuapare/plcmirror/typeregistry"
)

// DefaultSourceChangePath is the system-info variable the source-change
// probe subscribes to at connect: a controller-maintained timestamp that
// changes whenever a new program image is downloaded. Callers targeting a
// different controller family can override it with WithSourcePath.
const DefaultSourceChangePath = "TwinCAT_SystemInfoVarList._AppInfo.CompileTimestamp"

// Option configures a Coordinator at construction.
type Option func(*Coordinator)

// WithLogger sets the structured logger used for lifecycle events
// (initialize, kill, reinitialize, rebuild-on-change at Info; per-type
// resolution failures at Debug). A nil logger (the default) discards all
// output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithSettings overrides the default transport-facing settings record.
func WithSettings(s model.Settings) Option {
	return func(c *Coordinator) { c.settings = s }
}

// WithSourcePath overrides the wire path the source-change probe watches.
func WithSourcePath(path string) Option {
	return func(c *Coordinator) { c.sourcePath = path }
}

// WithSourceChangeHandler overrides the default reaction to a detected
// source change (Reinitialize) with a caller-supplied callback.
func WithSourceChangeHandler(fn func(ctx context.Context, c *Coordinator)) Option {
	return func(c *Coordinator) { c.onSourceChange = fn }
}

// Coordinator owns one transport end-to-end: connect, type-catalogue
// resolution, symbol-graph construction, and the source-change probe that
// rebuilds everything when the controller's program image changes.
type Coordinator struct {
	name       string
	transport  model.Transport
	settings   model.Settings
	log        *slog.Logger
	sourcePath string

	onSourceChange func(ctx context.Context, c *Coordinator)

	root *events.Emitter

	mu          sync.Mutex
	initialized bool
	registry    *typeregistry.Registry
	namespaces  map[string]*symbolgraph.NamespaceSym
	sourceSub   model.Subscription
	lastSource  []byte
}

// New constructs a Coordinator named name over transport. name is attached
// to every error this coordinator raises (model.Error.Coordinator), so
// programs running more than one coordinator can tell which one failed.
func New(name string, transport model.Transport, opts ...Option) *Coordinator {
	c := &Coordinator{
		name:       name,
		transport:  transport,
		settings:   model.DefaultSettings(),
		sourcePath: DefaultSourceChangePath,
		root:       events.New(nil, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.onSourceChange == nil {
		c.onSourceChange = func(ctx context.Context, c *Coordinator) { _ = c.Reinitialize(ctx) }
	}
	return c
}

func (c *Coordinator) fail(kind model.ErrKind, msg string, cause error) error {
	return model.NewError(kind, msg, cause).WithCoordinator(c.name)
}

// Name reports the coordinator's tag.
func (c *Coordinator) Name() string { return c.name }

// Registry returns the resolved type registry, or nil if not yet
// initialized.
func (c *Coordinator) Registry() *typeregistry.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry
}

// Namespace returns the top-level namespace symbol registered at name, or
// (nil, false) if it does not exist or the coordinator is not initialized.
func (c *Coordinator) Namespace(name string) (*symbolgraph.NamespaceSym, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ns, ok := c.namespaces[name]
	return ns, ok
}

// Namespaces returns the full set of top-level namespace symbols.
func (c *Coordinator) Namespaces() map[string]*symbolgraph.NamespaceSym {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*symbolgraph.NamespaceSym, len(c.namespaces))
	for k, v := range c.namespaces {
		out[k] = v
	}
	return out
}

// On, Once, and Off subscribe to coordinator-level and bubbled-up symbol
// events: created/destroyed on the registries, connected/disconnected/
// sourceChanged/connectionLost/reconnected on the transport, killed/
// reinitialized on the coordinator itself, plus every set/get/cleared/
// changed event any symbol in the graph emits. A single handler registered
// here sees every event the coordinator and its whole symbol tree raise.
func (c *Coordinator) On(event string, listener func(model.Event))   { c.root.On(event, listener) }
func (c *Coordinator) Once(event string, listener func(model.Event)) { c.root.Once(event, listener) }
func (c *Coordinator) Off(event string, listener func(model.Event))  { c.root.Off(event, listener) }

// Initialize runs transport.connect -> install source-change probe ->
// types.build -> symbols.build. Calling Initialize on an already-initialized
// coordinator fails with TransportBusy.
func (c *Coordinator) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return c.fail(model.ErrTransportBusy, "coordinator already initialized", nil)
	}
	c.mu.Unlock()

	c.log.InfoContext(ctx, "coordinator initializing", "coordinator", c.name)

	if err := c.transport.Connect(ctx); err != nil {
		return c.fail(model.ErrConnectFailed, "transport connect", err)
	}
	c.transport.OnConnectionEvent(c.handleConnectionEvent)
	c.root.Emit(model.EventConnected, nil, ctx)

	if err := c.installSourceProbe(ctx); err != nil {
		_ = c.transport.Disconnect(ctx, true)
		return err
	}

	rawTypes, err := c.transport.ReadAndCacheDataTypes(ctx)
	if err != nil {
		_ = c.transport.Disconnect(ctx, true)
		return c.fail(model.ErrTypeQueryFailed, "read data type catalogue", err)
	}
	registry, err := typeregistry.Build(ctx, rawTypes, c.transport, c.log)
	if err != nil {
		_ = c.transport.Disconnect(ctx, true)
		if me, ok := err.(*model.Error); ok {
			err = me.WithCoordinator(c.name)
		}
		return err
	}
	c.root.Emit(model.EventCreated, registry.Len(), ctx)

	rawSymbols, err := c.transport.ReadAndCacheSymbols(ctx)
	if err != nil {
		_ = c.transport.Disconnect(ctx, true)
		return c.fail(model.ErrSymbolQueryFailed, "read symbol catalogue", err)
	}
	namespaces, err := symbolgraph.Build(ctx, c.transport, registry, rawSymbols, c.root, c.log)
	if err != nil {
		_ = c.transport.Disconnect(ctx, true)
		if me, ok := err.(*model.Error); ok {
			err = me.WithCoordinator(c.name)
		}
		return err
	}

	c.mu.Lock()
	c.registry = registry
	c.namespaces = namespaces
	c.initialized = true
	c.mu.Unlock()

	c.log.InfoContext(ctx, "coordinator initialized", "coordinator", c.name, "namespaces", len(namespaces))
	return nil
}

// installSourceProbe subscribes sourcePath and arranges for a changed value
// to invoke onSourceChange (default: Reinitialize).
func (c *Coordinator) installSourceProbe(ctx context.Context) error {
	sub, err := c.transport.Subscribe(ctx, c.sourcePath, func(data []byte) {
		c.mu.Lock()
		changed := c.lastSource != nil && !bytes.Equal(c.lastSource, data)
		c.lastSource = append([]byte(nil), data...)
		c.mu.Unlock()
		if !changed {
			return
		}
		c.log.InfoContext(ctx, "source change detected", "coordinator", c.name)
		c.root.Emit(model.EventSourceChanged, nil, ctx)
		c.onSourceChange(ctx, c)
	}, int(c.settings.HealthCheckInterval.Milliseconds()))
	if err != nil {
		return c.fail(model.ErrChangeDetectionFailed, "subscribe source-change probe", err)
	}
	c.mu.Lock()
	c.sourceSub = sub
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) handleConnectionEvent(kind string) {
	switch kind {
	case "connectionLost":
		c.root.Emit(model.EventConnectionLost, nil, context.Background())
	case "reconnect":
		c.root.Emit(model.EventReconnected, nil, context.Background())
	}
}

// Kill tears down a running coordinator: symbols.destroy (children-first)
// -> types.destroy -> transport.disconnect. It is best-effort: every step
// runs even if an earlier one failed, but the first failure encountered is
// re-raised once the coordinator's state has been torn down.
func (c *Coordinator) Kill(ctx context.Context) error {
	c.mu.Lock()
	namespaces := c.namespaces
	sourceSub := c.sourceSub
	hadState := c.namespaces != nil || c.registry != nil
	c.mu.Unlock()

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, ns := range namespaces {
		ns.Invalidate()
	}

	if sourceSub != nil {
		record(c.wrapUnsub(sourceSub.Unsubscribe(ctx)))
	}
	record(c.wrapUnsub(c.transport.UnsubscribeAll(ctx)))

	c.mu.Lock()
	c.registry = nil
	c.namespaces = nil
	c.sourceSub = nil
	c.lastSource = nil
	c.initialized = false
	c.mu.Unlock()

	if hadState {
		c.root.Emit(model.EventDestroyed, nil, ctx)
	}

	if err := c.transport.Disconnect(ctx, true); err != nil {
		record(c.fail(model.ErrDisconnectFailed, "transport disconnect", err))
	} else {
		c.root.Emit(model.EventDisconnected, nil, ctx)
	}

	c.root.Emit(model.EventKilled, nil, ctx)
	c.log.InfoContext(ctx, "coordinator killed", "coordinator", c.name)
	return firstErr
}

func (c *Coordinator) wrapUnsub(err error) error {
	if err == nil {
		return nil
	}
	return c.fail(model.ErrUnsubscribeFailed, "teardown subscription", err)
}

// Reinitialize is Kill followed by Initialize.
func (c *Coordinator) Reinitialize(ctx context.Context) error {
	if err := c.Kill(ctx); err != nil {
		c.log.InfoContext(ctx, "reinitialize: kill reported error, continuing", "coordinator", c.name, "error", err)
	}
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	c.root.Emit(model.EventReinitialized, nil, ctx)
	return nil
}
