package binding

import (
	"context"
	"fmt"
	"sync"

	"github.com/joshuapare/plcmirror/pkg/model"
)

var (
	_ Binding = (*StructBinding)(nil)
	_ Binding = (*ArrayBinding)(nil)
	_ Binding = (*NamespaceBinding)(nil)

	_ batchDecoder = (*compositeBinding)(nil)
	_ batchEncoder = (*compositeBinding)(nil)
)

// Child is one named, ordered member of a composite binding: a struct
// member, an array element (keyed by its flat index as a decimal string),
// or a namespace entry.
type Child struct {
	Key     string
	Binding Binding
}

// compositeBinding is the shared machinery behind Struct, Array, and
// Namespace bindings: an ordered set of children whose flattened read/clear
// packages are served by a single batched transport call.
type compositeBinding struct {
	subscriptionState
	transport model.Transport
	typ       model.TypeNode
	order     []string
	children  map[string]Binding
	readOnly  bool
	valid     bool
	isArray   bool
}

func newComposite(transport model.Transport, typ model.TypeNode, children []Child, isArray bool) *compositeBinding {
	c := &compositeBinding{
		transport: transport,
		typ:       typ,
		order:     make([]string, 0, len(children)),
		children:  make(map[string]Binding, len(children)),
		valid:     true,
		isArray:   isArray,
	}
	c.readOnly = typ.Base().ReadOnly
	for _, ch := range children {
		c.order = append(c.order, ch.Key)
		c.children[ch.Key] = ch.Binding
	}
	return c
}

func (c *compositeBinding) TypeNode() model.TypeNode { return c.typ }
func (c *compositeBinding) ReadOnly() bool           { return c.readOnly }
func (c *compositeBinding) Valid() bool              { return c.valid }

// Invalidate cascades children-first, then marks this node unusable: a
// caller holding a reference to a child never observes it outliving its
// parent's validity.
func (c *compositeBinding) Invalidate() {
	for _, key := range c.order {
		c.children[key].Invalidate()
	}
	c.valid = false
}

// Pointer returns the smallest range spanning every descendant leaf.
func (c *compositeBinding) Pointer() model.Pointer {
	pkgs := c.ReadPackages()
	if len(pkgs) == 0 {
		return model.Pointer{}
	}
	group := pkgs[0].IndexGroup
	lo := pkgs[0].IndexOffset
	hi := pkgs[0].End()
	for _, p := range pkgs[1:] {
		if p.IndexOffset < lo {
			lo = p.IndexOffset
		}
		if p.End() > hi {
			hi = p.End()
		}
	}
	return model.Pointer{IndexGroup: group, IndexOffset: lo, Size: int(hi - lo)}
}

func (c *compositeBinding) ReadPackages() []model.Pointer {
	var out []model.Pointer
	for _, key := range c.order {
		out = append(out, c.children[key].ReadPackages()...)
	}
	return out
}

func (c *compositeBinding) ClearPackages() []ClearPackage {
	var out []ClearPackage
	for _, key := range c.order {
		out = append(out, c.children[key].ClearPackages()...)
	}
	return out
}

func (c *compositeBinding) checkValid() error {
	if !c.valid {
		return model.NewError(model.ErrInvalidBinding, "binding has been invalidated", nil)
	}
	return nil
}

// Read fetches the full flattened descendant range in a single (possibly
// split) transport call, then recursively decodes each child's slice
// concurrently without any further I/O.
func (c *compositeBinding) Read(ctx context.Context) (any, error) {
	if err := c.checkValid(); err != nil {
		return nil, err
	}
	data, err := readRaw(ctx, c.transport, c.ReadPackages())
	if err != nil {
		return nil, err
	}
	return c.decodeBatch(ctx, data)
}

func (c *compositeBinding) decodeBatch(ctx context.Context, data []model.RawPointerData) (any, error) {
	results := make([]any, len(c.order))
	errs := make([]error, len(c.order))
	offset := 0
	var wg sync.WaitGroup
	for i, key := range c.order {
		child := c.children[key]
		n := len(child.ReadPackages())
		slice := data[offset : offset+n]
		offset += n
		wg.Add(1)
		go func(i int, child Binding, slice []model.RawPointerData) {
			defer wg.Done()
			bd, ok := child.(batchDecoder)
			if !ok {
				errs[i] = model.NewError(model.ErrReadFailed, "child binding does not support batched decode", nil)
				return
			}
			v, err := bd.decodeBatch(ctx, slice)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = v
		}(i, child, slice)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return c.assemble(results), nil
}

func (c *compositeBinding) assemble(results []any) any {
	if c.isArray {
		out := make([]any, len(results))
		copy(out, results)
		return out
	}
	out := make(map[string]any, len(results))
	for i, key := range c.order {
		out[key] = results[i]
	}
	return out
}

// Write validates and encodes every present descendant, then issues one
// batched transport write. Struct/namespace writes accept a partial
// map[string]any: keys absent from value are left untouched. Array writes
// accept a []any no longer than the declared length: element i goes to the
// i-th child and children past the end of value are left untouched.
func (c *compositeBinding) Write(ctx context.Context, value any) (any, error) {
	if err := c.checkValid(); err != nil {
		return nil, err
	}
	if c.readOnly {
		return nil, model.NewError(model.ErrReadOnly, "binding is read-only", nil)
	}
	items, normalized, err := c.encodeBatch(ctx, value)
	if err != nil {
		return nil, err
	}
	if err := writeRaw(ctx, c.transport, items); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (c *compositeBinding) encodeBatch(ctx context.Context, value any) ([]model.RawWriteItem, any, error) {
	var values map[string]any
	if c.isArray {
		seq, ok := value.([]any)
		if !ok {
			return nil, nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("array binding rejects Go type %T", value), nil)
		}
		if len(seq) > len(c.order) {
			return nil, nil, model.NewError(model.ErrOutOfRange, fmt.Sprintf("array write length %d exceeds declared length %d", len(seq), len(c.order)), nil)
		}
		values = make(map[string]any, len(seq))
		for i, v := range seq {
			values[c.order[i]] = v
		}
	} else {
		m, ok := value.(map[string]any)
		if !ok {
			return nil, nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("composite binding rejects Go type %T", value), nil)
		}
		for key := range m {
			if _, ok := c.children[key]; !ok {
				return nil, nil, model.NewError(model.ErrOutOfRange, fmt.Sprintf("%q is not a declared member of this binding", key), nil)
			}
		}
		values = m
	}

	present := make([]string, 0, len(values))
	for _, key := range c.order {
		if _, ok := values[key]; ok {
			present = append(present, key)
		}
	}

	var items []model.RawWriteItem
	normalized := make(map[string]any, len(present))
	for _, key := range present {
		child := c.children[key]
		if child.ReadOnly() {
			// Clear already skips read-only descendants; a write carrying a
			// value for one applies the same leniency rather than failing
			// the whole batched write.
			continue
		}
		be, ok := child.(batchEncoder)
		if !ok {
			return nil, nil, model.NewError(model.ErrWriteFailed, fmt.Sprintf("child %q does not support batched encode", key), nil)
		}
		childItems, v, err := be.encodeBatch(ctx, values[key])
		if err != nil {
			return nil, nil, err
		}
		items = append(items, childItems...)
		normalized[key] = v
	}
	if c.isArray {
		seq := make([]any, len(values))
		for i, key := range c.order[:len(values)] {
			if v, ok := normalized[key]; ok {
				seq[i] = v
				continue
			}
			seq[i] = values[key]
		}
		return items, seq, nil
	}
	return items, normalized, nil
}

func (c *compositeBinding) Clear(ctx context.Context) error {
	if err := c.checkValid(); err != nil {
		return err
	}
	if c.readOnly {
		return model.NewError(model.ErrReadOnly, "binding is read-only", nil)
	}
	pkgs := c.ClearPackages()
	if len(pkgs) == 0 {
		return nil
	}
	items := make([]model.RawWriteItem, len(pkgs))
	for i, p := range pkgs {
		items[i] = model.RawWriteItem{IndexGroup: p.Pointer.IndexGroup, IndexOffset: p.Pointer.IndexOffset, Data: p.Default}
	}
	return writeRaw(ctx, c.transport, items)
}

func (c *compositeBinding) Subscribe(ctx context.Context, sampleIntervalMillis int, cb func(any)) error {
	if err := c.checkValid(); err != nil {
		return err
	}
	return c.subscriptionState.subscribe(ctx, c.transport, c.Pointer(), sampleIntervalMillis, c.Read, cb)
}

func (c *compositeBinding) Unsubscribe(ctx context.Context) error {
	return c.subscriptionState.unsubscribe(ctx)
}

// Child returns the named child binding, or (nil, false).
func (c *compositeBinding) Child(key string) (Binding, bool) {
	b, ok := c.children[key]
	return b, ok
}

// Order returns the declaration-order child keys.
func (c *compositeBinding) Order() []string { return c.order }

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// StructBinding binds a model.StructType over its resolved member bindings.
type StructBinding struct{ *compositeBinding }

// NewStruct constructs a Binding for a struct over already-built member
// bindings in declaration order.
func NewStruct(transport model.Transport, typ *model.StructType, members []Child) *StructBinding {
	return &StructBinding{compositeBinding: newComposite(transport, typ, members, false)}
}

// ArrayBinding binds a model.ArrayType over its resolved element bindings,
// keyed "0".."N-1" in flat storage order.
type ArrayBinding struct{ *compositeBinding }

// NewArray constructs a Binding for an array over already-built element
// bindings in flat storage order.
func NewArray(transport model.Transport, typ *model.ArrayType, elements []Child) *ArrayBinding {
	return &ArrayBinding{compositeBinding: newComposite(transport, typ, elements, true)}
}

// NamespaceBinding binds a synthetic grouping node (a declared namespace, or
// the program-level root) over its named children. Unlike Struct/Array it
// has no backing TypeNode of its own — addressing is entirely derived from
// its children's absorbed ranges.
type NamespaceBinding struct{ *compositeBinding }

// NewNamespace constructs a Binding absorbing the given children into one
// spanning range. It returns model.ErrInvalidNamespace if the children do
// not all share one index group.
func NewNamespace(transport model.Transport, children []Child) (*NamespaceBinding, error) {
	group, ok := uint32(0), false
	for _, ch := range children {
		for _, p := range ch.Binding.ReadPackages() {
			if !ok {
				group, ok = p.IndexGroup, true
				continue
			}
			if p.IndexGroup != group {
				return nil, model.NewError(model.ErrInvalidNamespace, "namespace children span more than one index group", nil)
			}
		}
	}
	namespaceType := &model.StructType{}
	return &NamespaceBinding{compositeBinding: newComposite(transport, namespaceType, children, false)}, nil
}
