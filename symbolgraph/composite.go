package symbolgraph

import (
	"context"
	"fmt"
	"strconv"

	"github.com/joshuapare/plcmirror/internal/events"
	"github.com/joshuapare/plcmirror/pkg/model"
)

var (
	_ model.SymbolNode      = (*StructSym)(nil)
	_ model.SymbolNode      = (*ArraySym)(nil)
	_ model.SymbolNode      = (*NamespaceSym)(nil)
	_ model.CompositeSymbol = (*StructSym)(nil)
	_ model.CompositeSymbol = (*ArraySym)(nil)
	_ model.CompositeSymbol = (*NamespaceSym)(nil)
	_ model.MethodInvoker   = (*StructSym)(nil)
)

// compositeSym is the shared machinery behind Struct, Array, and Namespace
// symbols: a declaration-ordered child table over model.SymbolNode.
//
// Construction is staged by the caller (wrap.go), not by a constructor
// here: a composite's own emitter must exist before its children are built
// (they bubble to it), so fields are assigned directly onto the
// already-allocated pointer rather than copied in through a by-value
// constructor.
type compositeSym struct {
	base
	order    []string
	children map[string]model.SymbolNode
}

func (s *compositeSym) Child(key string) (model.SymbolNode, bool) {
	c, ok := s.children[key]
	return c, ok
}

func (s *compositeSym) Each(fn func(key string, n model.SymbolNode) error) error {
	for _, key := range s.order {
		if err := fn(key, s.children[key]); err != nil {
			return err
		}
	}
	return nil
}

// Index is a no-op on struct/namespace symbols; only ArraySym offsets by
// startIndex.
func (s *compositeSym) Index(int) (model.SymbolNode, bool) { return nil, false }

// invalidateCascade recurses into every child before invalidating this
// node's own binding, so a parent never reports invalid while a child still
// thinks it's live.
func (s *compositeSym) invalidateCascade() {
	for _, key := range s.order {
		if inv, ok := s.children[key].(invalidator); ok {
			inv.invalidateCascade()
		}
	}
	s.base.invalidateCascade()
}

// ---------------------------------------------------------------------------
// Struct
// ---------------------------------------------------------------------------

// StructSym wraps a struct binding, exposing its members as keyed children
// and its RPC methods both as a CallMethod surface and as reserved-prefixed
// invokable children.
type StructSym struct {
	compositeSym
	transport model.Transport
	methods   []string
}

// attachMethods appends a reserved-prefixed methodChild for each declared
// RPC method name, after s.order/s.children/s.emitter are already set.
func (s *StructSym) attachMethods(transport model.Transport, methods []string) {
	s.transport = transport
	s.methods = methods
	for _, m := range methods {
		key := model.ReservedPrefix + m
		mc := &methodChild{structPath: s.path, name: m, transport: transport}
		mc.emitter = events.New(mc, s.emitter)
		s.children[key] = mc
		s.order = append(s.order, key)
	}
}

// CallMethod forwards (fullPath, methodName, args) to the transport's RPC
// facade, rejecting names the struct type did not declare.
func (s *StructSym) CallMethod(ctx context.Context, methodName string, args []any) (any, []any, error) {
	declared := false
	for _, m := range s.methods {
		if m == methodName {
			declared = true
			break
		}
	}
	if !declared {
		return nil, nil, model.NewError(model.ErrOutOfRange, fmt.Sprintf("%q is not a declared RPC method of %s", methodName, s.path), nil)
	}
	res, err := s.transport.InvokeRPCMethod(ctx, s.path, methodName, args)
	if err != nil {
		return nil, nil, model.NewError(model.ErrRpcCallFailed, fmt.Sprintf("invoke %s.%s", s.path, methodName), err)
	}
	return res.ReturnValue, res.Outputs, nil
}

// methodChild is the reserved-prefixed pseudo-child attached for each RPC
// method name. It carries no binding of its own; Get invokes the method
// with no arguments and reports { result, outputs }. Set/Clear/Subscribe
// are not meaningful on a method and fail.
type methodChild struct {
	structPath string
	name       string
	transport  model.Transport
	emitter    *events.Emitter
}

func (m *methodChild) Path() string   { return m.structPath + "." + model.ReservedPrefix + m.name }
func (m *methodChild) ReadOnly() bool { return true }
func (m *methodChild) Valid() bool    { return true }

func (m *methodChild) Get(ctx context.Context) (any, error) {
	res, err := m.transport.InvokeRPCMethod(ctx, m.structPath, m.name, nil)
	if err != nil {
		return nil, model.NewError(model.ErrRpcCallFailed, fmt.Sprintf("invoke %s.%s", m.structPath, m.name), err)
	}
	return map[string]any{"result": res.ReturnValue, "outputs": res.Outputs}, nil
}

func (m *methodChild) Set(context.Context, any) (any, error) {
	return nil, model.NewError(model.ErrInvalidType, "method children are not writable", nil)
}

func (m *methodChild) Clear(context.Context) error {
	return model.NewError(model.ErrInvalidType, "method children do not support clear", nil)
}

func (m *methodChild) Subscribe(context.Context, int, func(any)) error {
	return model.NewError(model.ErrInvalidType, "method children do not support subscribe", nil)
}

func (m *methodChild) Unsubscribe(context.Context) error      { return nil }
func (m *methodChild) OnInvalidated(func())                   {}
func (m *methodChild) On(event string, l func(model.Event))   { m.emitter.On(event, l) }
func (m *methodChild) Once(event string, l func(model.Event)) { m.emitter.Once(event, l) }
func (m *methodChild) Off(event string, l func(model.Event))  { m.emitter.Off(event, l) }

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

// ArraySym wraps one depth of an (possibly multidimensional) array binding.
// dim is the declared dimension this level represents; caller-facing
// indices are offset by dim.StartIndex before reaching the flat child key
// the binding layer uses.
type ArraySym struct {
	compositeSym
	dim model.RawArrayDimension
}

// Index returns the element at caller-facing absolute index i, or (nil,
// false) if i falls outside [startIndex, startIndex+length).
func (s *ArraySym) Index(i int) (model.SymbolNode, bool) {
	flat := i - s.dim.StartIndex
	if flat < 0 || flat >= len(s.order) {
		return nil, false
	}
	return s.Child(strconv.Itoa(flat))
}

// ---------------------------------------------------------------------------
// Namespace
// ---------------------------------------------------------------------------

// NamespaceSym is the root-level grouping node the builder hands out one of
// per top-level program namespace.
type NamespaceSym struct {
	compositeSym
}

// Invalidate tears down this namespace and every descendant, children
// first, so no handed-out handle outlives the children it composes.
func (s *NamespaceSym) Invalidate() { s.invalidateCascade() }
