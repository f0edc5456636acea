package symbolgraph

import (
	"context"
	"sync"

	"github.com/joshuapare/plcmirror/binding"
	"github.com/joshuapare/plcmirror/internal/events"
	"github.com/joshuapare/plcmirror/pkg/model"
)

var (
	_ model.SymbolNode = (*BooleanSym)(nil)
	_ model.SymbolNode = (*NumericSym)(nil)
	_ model.SymbolNode = (*StringSym)(nil)
	_ model.SymbolNode = (*EnumSym)(nil)
)

// base is the state and behavior shared by every SymbolNode variant: a
// binding to delegate I/O to, a bubbling event emitter, and a set of
// onInvalidated callbacks that fire exactly once, in registration order,
// the first time this node is invalidated.
type base struct {
	binding    binding.Binding
	emitter    *events.Emitter
	path       string
	mu         sync.Mutex
	onInvalid  []func()
	invalidRan bool
}

func newBase(b binding.Binding, path string, parent *events.Emitter, self model.SymbolNode) base {
	return base{binding: b, path: path, emitter: events.New(self, parent)}
}

func (s *base) Path() string   { return s.path }
func (s *base) ReadOnly() bool { return s.binding.ReadOnly() }
func (s *base) Valid() bool    { return s.binding.Valid() }

// eventName resolves the onSet/onGet/onClear/onChange alias attribute for
// one of the four standard event names, falling back to the standard name
// itself.
func (s *base) eventName(std string) string {
	b := s.binding.TypeNode().Base()
	switch std {
	case model.EventSet:
		if b.OnSet != "" {
			return b.OnSet
		}
	case model.EventGet:
		if b.OnGet != "" {
			return b.OnGet
		}
	case model.EventCleared:
		if b.OnClear != "" {
			return b.OnClear
		}
	case model.EventChanged:
		if b.OnChange != "" {
			return b.OnChange
		}
	}
	return std
}

func (s *base) Get(ctx context.Context) (any, error) {
	v, err := s.binding.Read(ctx)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(s.eventName(model.EventGet), v, ctx)
	return v, nil
}

func (s *base) Set(ctx context.Context, value any) (any, error) {
	v, err := s.binding.Write(ctx, value)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(s.eventName(model.EventSet), v, ctx)
	return v, nil
}

func (s *base) Clear(ctx context.Context) error {
	if err := s.binding.Clear(ctx); err != nil {
		return err
	}
	s.emitter.Emit(s.eventName(model.EventCleared), nil, ctx)
	return nil
}

func (s *base) Subscribe(ctx context.Context, sampleIntervalMillis int, cb func(any)) error {
	return s.binding.Subscribe(ctx, sampleIntervalMillis, func(v any) {
		s.emitter.Emit(s.eventName(model.EventChanged), v, ctx)
		cb(v)
	})
}

func (s *base) Unsubscribe(ctx context.Context) error {
	return s.binding.Unsubscribe(ctx)
}

func (s *base) OnInvalidated(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidRan {
		cb()
		return
	}
	s.onInvalid = append(s.onInvalid, cb)
}

func (s *base) On(event string, listener func(model.Event))   { s.emitter.On(event, listener) }
func (s *base) Once(event string, listener func(model.Event)) { s.emitter.Once(event, listener) }
func (s *base) Off(event string, listener func(model.Event))  { s.emitter.Off(event, listener) }

// invalidateCascade invalidates this node's own binding and fires every
// registered onInvalidated callback exactly once. Composite variants
// override it to recurse into their children first, so invalidation always
// reaches a leaf before any of its ancestors.
func (s *base) invalidateCascade() {
	s.binding.Invalidate()
	s.mu.Lock()
	cbs := s.onInvalid
	s.onInvalid = nil
	s.invalidRan = true
	s.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

// invalidator is implemented by every concrete Sym type so composite
// parents can cascade without knowing the child's concrete type.
type invalidator interface {
	invalidateCascade()
}

// ---------------------------------------------------------------------------
// Leaf symbols
// ---------------------------------------------------------------------------

// BooleanSym wraps a boolean leaf binding.
type BooleanSym struct{ base }

// NumericSym wraps a numeric leaf binding.
type NumericSym struct{ base }

// StringSym wraps a string leaf binding.
type StringSym struct{ base }

// EnumSym wraps an enum leaf binding.
type EnumSym struct{ base }
