package binding

import (
	"context"
	"sync"

	"github.com/joshuapare/plcmirror/pkg/model"
)

// ClearPackage is one leaf's contribution to a Clear() walk: the address to
// write and the pre-encoded default bytes for it. Read-only leaves and
// leaves with no default contribute nothing.
type ClearPackage struct {
	Pointer model.Pointer
	Default []byte
}

// Binding is the capability every symbol-graph node delegates to for wire
// I/O. Implementations are safe for concurrent use except where noted.
type Binding interface {
	// Read fetches and decodes this binding's current value.
	Read(ctx context.Context) (any, error)
	// Write validates, encodes, and writes value, returning the value
	// actually written (after any kind-specific normalization).
	Write(ctx context.Context, value any) (any, error)
	// Clear writes every non-read-only leaf's default value in one batched
	// call (split into RequestCap-sized requests) and returns any transport
	// error.
	Clear(ctx context.Context) error
	// Subscribe installs a transport-side change notifier over this
	// binding's address range. Idempotent: a second call replaces the
	// callback rather than installing a second notifier.
	Subscribe(ctx context.Context, sampleIntervalMillis int, cb func(value any)) error
	// Unsubscribe removes the change notifier. Idempotent.
	Unsubscribe(ctx context.Context) error

	// Invalidate marks this binding (and, for composites, every descendant)
	// permanently unusable. Irreversible.
	Invalidate()
	// Valid reports whether Invalidate has not been called.
	Valid() bool

	// ReadOnly reports whether writes/clears are rejected.
	ReadOnly() bool
	// Pointer is this binding's own address range (for a composite, the
	// smallest range spanning every descendant).
	Pointer() model.Pointer
	// TypeNode is the resolved type backing this binding.
	TypeNode() model.TypeNode
	// ReadPackages returns the flattened, ordered list of leaf address
	// ranges a full Read of this binding requires.
	ReadPackages() []model.Pointer
	// ClearPackages returns the flattened, ordered list of (address,
	// default-bytes) pairs a full Clear of this binding requires.
	ClearPackages() []ClearPackage
}

// batchDecoder is implemented by every binding variant so a composite can
// decode an already-fetched, pre-sliced result without each child issuing
// its own transport round trip.
type batchDecoder interface {
	decodeBatch(ctx context.Context, data []model.RawPointerData) (any, error)
}

// batchEncoder is implemented by every binding variant so a composite write
// can validate and encode every descendant before issuing a single batched
// transport call.
type batchEncoder interface {
	encodeBatch(ctx context.Context, value any) (items []model.RawWriteItem, normalized any, err error)
}

// subscriptionState is embedded by every binding variant; Subscribe/
// Unsubscribe are identical across leaf and composite bindings: firing
// schedules a read() and invokes the callback with its result.
type subscriptionState struct {
	mu  sync.Mutex
	sub model.Subscription
}

func (s *subscriptionState) subscribe(ctx context.Context, transport model.Transport, ptr model.Pointer, cycleMillis int, read func(context.Context) (any, error), cb func(any)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		if err := s.sub.Unsubscribe(ctx); err != nil {
			return model.NewError(model.ErrUnsubscribeFailed, "replace existing subscription", err)
		}
		s.sub = nil
	}
	sub, err := transport.SubscribeRaw(ctx, ptr.IndexGroup, ptr.IndexOffset, ptr.Size, func([]byte) {
		go func() {
			v, err := read(context.Background())
			if err != nil {
				return
			}
			cb(v)
		}()
	}, cycleMillis)
	if err != nil {
		return model.NewError(model.ErrSubscribeFailed, "install change notifier", err)
	}
	s.sub = sub
	return nil
}

func (s *subscriptionState) unsubscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil
	}
	if err := s.sub.Unsubscribe(ctx); err != nil {
		return model.NewError(model.ErrUnsubscribeFailed, "remove change notifier", err)
	}
	s.sub = nil
	return nil
}

// chunk splits pointers into groups of at most model.RequestCap items, so a
// composite read/write of arbitrary size never issues a single transport
// call larger than the wire protocol's per-request limit.
func chunk(pointers []model.Pointer) [][]model.Pointer {
	if len(pointers) <= model.RequestCap {
		return [][]model.Pointer{pointers}
	}
	var out [][]model.Pointer
	for len(pointers) > 0 {
		n := model.RequestCap
		if n > len(pointers) {
			n = len(pointers)
		}
		out = append(out, pointers[:n])
		pointers = pointers[n:]
	}
	return out
}

func chunkWrites(items []model.RawWriteItem) [][]model.RawWriteItem {
	if len(items) <= model.RequestCap {
		return [][]model.RawWriteItem{items}
	}
	var out [][]model.RawWriteItem
	for len(items) > 0 {
		n := model.RequestCap
		if n > len(items) {
			n = len(items)
		}
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}

// readRaw reads pointers from transport, splitting across multiple calls if
// necessary, and returns the concatenated, order-preserved result.
func readRaw(ctx context.Context, transport model.Transport, pointers []model.Pointer) ([]model.RawPointerData, error) {
	var out []model.RawPointerData
	for _, batch := range chunk(pointers) {
		if len(batch) == 0 {
			continue
		}
		items, err := transport.ReadRawMulti(ctx, batch)
		if err != nil {
			return nil, model.NewError(model.ErrReadFailed, "read raw multi", err)
		}
		out = append(out, items...)
	}
	return out, nil
}

// writeRaw writes items to transport, splitting across multiple calls if
// necessary.
func writeRaw(ctx context.Context, transport model.Transport, items []model.RawWriteItem) error {
	for _, batch := range chunkWrites(items) {
		if len(batch) == 0 {
			continue
		}
		if err := transport.WriteRawMulti(ctx, batch); err != nil {
			return model.NewError(model.ErrWriteFailed, "write raw multi", err)
		}
	}
	return nil
}
