package fakebus

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/joshuapare/plcmirror/pkg/model"
)

// typeInfo is the encode/decode rule fakebus associates with one wire type
// name, enough to round-trip the handful of primitive kinds the Quick Look
// fixture needs.
type typeInfo struct {
	kind model.Kind
	size int
}

// Bus is an in-memory model.Transport: a byte-addressed (indexGroup,
// indexOffset) store plus a flat type/symbol catalogue, with no socket and
// no background scheduler of its own. Subscriptions fire synchronously
// when a write starts at exactly a subscription's (indexGroup, indexOffset);
// a write that only overlaps a subscribed range does not fire it. This
// stands in for a real cyclic-poll subscription.
type Bus struct {
	mu sync.Mutex

	connected   bool
	connEventCb func(kind string)

	rawTypes   map[string]*model.RawTypeDescriptor
	rawSymbols map[string]*model.RawSymbolDescriptor
	types      map[string]typeInfo

	mem map[uint32]map[uint32][]byte

	rawSubs  []*rawSub
	pathSubs map[string][]*pathSub

	pathValues map[string][]byte

	rpcHandlers map[string]func(args []any) (model.RPCResult, error)

	connectErr    error
	disconnectErr error
}

type rawSub struct {
	group, offset uint32
	size          int
	cb            func([]byte)
	live          bool
}

type pathSub struct {
	path string
	cb   func([]byte)
	live bool
}

func (s *rawSub) Unsubscribe(context.Context) error  { s.live = false; return nil }
func (s *pathSub) Unsubscribe(context.Context) error { s.live = false; return nil }

// New constructs an empty Bus; callers register types/symbols/memory
// directly or via NewMainProgram for the canonical fixture.
func New() *Bus {
	return &Bus{
		rawTypes:    make(map[string]*model.RawTypeDescriptor),
		rawSymbols:  make(map[string]*model.RawSymbolDescriptor),
		types:       make(map[string]typeInfo),
		mem:         map[uint32]map[uint32][]byte{1: {}},
		pathSubs:    make(map[string][]*pathSub),
		pathValues:  make(map[string][]byte),
		rpcHandlers: make(map[string]func(args []any) (model.RPCResult, error)),
	}
}

// RegisterType adds a raw type descriptor to the catalogue ReadAndCacheDataTypes
// returns, keyed by lowercased catalogue name, and records the wire rule
// ConvertToRaw/ConvertFromRaw uses for it (by its own declared Name).
func (b *Bus) RegisterType(catalogueKey string, desc *model.RawTypeDescriptor, kind model.Kind, size int) {
	b.rawTypes[catalogueKey] = desc
	b.types[desc.Name] = typeInfo{kind: kind, size: size}
}

// RegisterSymbol adds a top-level symbol to the catalogue ReadAndCacheSymbols
// returns. It does not seed memory itself: for a leaf symbol, follow with
// SeedBytes at the symbol's own pointer; for a composite symbol, SeedBytes
// each leaf descendant at its own absolute (group, parentOffset+memberOffset)
// pair, since the binding layer addresses members individually rather than
// as one contiguous blob write.
func (b *Bus) RegisterSymbol(fullPath string, desc *model.RawSymbolDescriptor) {
	b.rawSymbols[fullPath] = desc
}

// SeedBytes writes data directly into the backing store at (group, offset),
// with no subscription side effects — used to set up a fixture's initial
// state before Connect.
func (b *Bus) SeedBytes(group, offset uint32, data []byte) {
	b.writeAt(group, offset, data)
}

// RegisterRPCMethod installs a handler InvokeRPCMethod dispatches to for
// (symbolPath, methodName).
func (b *Bus) RegisterRPCMethod(symbolPath, methodName string, handler func(args []any) (model.RPCResult, error)) {
	b.rpcHandlers[symbolPath+"."+methodName] = handler
}

// SetPathValue updates the value a path-based Subscribe observes (used for
// the source-change probe's system-info variable) and fires every live
// subscriber.
func (b *Bus) SetPathValue(path string, data []byte) {
	b.mu.Lock()
	b.pathValues[path] = append([]byte(nil), data...)
	subs := append([]*pathSub(nil), b.pathSubs[path]...)
	b.mu.Unlock()
	for _, s := range subs {
		if s.live {
			s.cb(data)
		}
	}
}

// ---------------------------------------------------------------------------
// model.Transport
// ---------------------------------------------------------------------------

func (b *Bus) Connect(context.Context) error {
	if b.connectErr != nil {
		return b.connectErr
	}
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	return nil
}

func (b *Bus) Disconnect(ctx context.Context, force bool) error {
	if b.disconnectErr != nil {
		return b.disconnectErr
	}
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	return b.UnsubscribeAll(ctx)
}

func (b *Bus) UnsubscribeAll(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.rawSubs {
		s.live = false
	}
	b.rawSubs = nil
	for path, subs := range b.pathSubs {
		for _, s := range subs {
			s.live = false
		}
		delete(b.pathSubs, path)
	}
	return nil
}

func (b *Bus) OnConnectionEvent(cb func(kind string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connEventCb = cb
}

// SimulateConnectionLost and SimulateReconnect let tests/demos drive the
// connection-event channel Transport.OnConnectionEvent exposes.
func (b *Bus) SimulateConnectionLost() { b.fireConnEvent("connectionLost") }
func (b *Bus) SimulateReconnect()      { b.fireConnEvent("reconnect") }

func (b *Bus) fireConnEvent(kind string) {
	b.mu.Lock()
	cb := b.connEventCb
	b.mu.Unlock()
	if cb != nil {
		cb(kind)
	}
}

func (b *Bus) ReadAndCacheDataTypes(context.Context) (map[string]*model.RawTypeDescriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]*model.RawTypeDescriptor, len(b.rawTypes))
	for k, v := range b.rawTypes {
		out[k] = v
	}
	return out, nil
}

func (b *Bus) ReadAndCacheSymbols(context.Context) (map[string]*model.RawSymbolDescriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]*model.RawSymbolDescriptor, len(b.rawSymbols))
	for k, v := range b.rawSymbols {
		out[k] = v
	}
	return out, nil
}

func (b *Bus) InvokeRPCMethod(ctx context.Context, symbolPath, methodName string, args []any) (model.RPCResult, error) {
	b.mu.Lock()
	h, ok := b.rpcHandlers[symbolPath+"."+methodName]
	b.mu.Unlock()
	if !ok {
		return model.RPCResult{}, fmt.Errorf("fakebus: no RPC handler registered for %s.%s", symbolPath, methodName)
	}
	return h(args)
}

func (b *Bus) Subscribe(ctx context.Context, symbolPath string, cb func([]byte), cycleMillis int) (model.Subscription, error) {
	b.mu.Lock()
	sub := &pathSub{path: symbolPath, cb: cb, live: true}
	b.pathSubs[symbolPath] = append(b.pathSubs[symbolPath], sub)
	initial, ok := b.pathValues[symbolPath]
	b.mu.Unlock()
	if ok {
		cb(initial)
	}
	return sub, nil
}

func (b *Bus) SubscribeRaw(ctx context.Context, group, offset uint32, size int, cb func([]byte), cycleMillis int) (model.Subscription, error) {
	b.mu.Lock()
	sub := &rawSub{group: group, offset: offset, size: size, cb: cb, live: true}
	b.rawSubs = append(b.rawSubs, sub)
	data := b.readAt(group, offset, size)
	b.mu.Unlock()
	cb(data)
	return sub, nil
}

func (b *Bus) ReadRawMulti(ctx context.Context, pointers []model.Pointer) ([]model.RawPointerData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.RawPointerData, len(pointers))
	for i, p := range pointers {
		out[i] = model.RawPointerData{IndexGroup: p.IndexGroup, IndexOffset: p.IndexOffset, Data: b.readAt(p.IndexGroup, p.IndexOffset, p.Size)}
	}
	return out, nil
}

type firedSub struct {
	cb   func([]byte)
	data []byte
}

func (b *Bus) WriteRawMulti(ctx context.Context, items []model.RawWriteItem) error {
	b.mu.Lock()
	var fired []firedSub
	for _, it := range items {
		b.writeAtLocked(it.IndexGroup, it.IndexOffset, it.Data)
		for _, s := range b.rawSubs {
			if s.live && s.group == it.IndexGroup && s.offset == it.IndexOffset {
				fired = append(fired, firedSub{cb: s.cb, data: b.readAt(s.group, s.offset, s.size)})
			}
		}
	}
	b.mu.Unlock()
	for _, f := range fired {
		f.cb(f.data)
	}
	return nil
}

func (b *Bus) readAt(group, offset uint32, size int) []byte {
	data := b.mem[group][offset]
	if data == nil {
		return make([]byte, size)
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}

func (b *Bus) writeAt(group, offset uint32, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeAtLocked(group, offset, data)
}

func (b *Bus) writeAtLocked(group, offset uint32, data []byte) {
	if b.mem[group] == nil {
		b.mem[group] = map[uint32][]byte{}
	}
	b.mem[group][offset] = append([]byte(nil), data...)
}

// ConvertToRaw and ConvertFromRaw round-trip the wire kinds the Quick Look
// fixture uses: BOOL, signed/unsigned integers up to 64 bits, REAL/LREAL,
// and narrow strings.
func (b *Bus) ConvertToRaw(value any, typeName string) ([]byte, error) {
	info, ok := b.types[typeName]
	if !ok {
		return nil, fmt.Errorf("fakebus: unknown type %q", typeName)
	}
	return encode(info, value)
}

func (b *Bus) ConvertFromRaw(data []byte, typeName string) (any, error) {
	info, ok := b.types[typeName]
	if !ok {
		return nil, fmt.Errorf("fakebus: unknown type %q", typeName)
	}
	return decode(info, data)
}

func encode(info typeInfo, value any) ([]byte, error) {
	buf := make([]byte, info.size)
	switch info.kind {
	case model.KindBool:
		if value.(bool) {
			buf[0] = 1
		}
	case model.KindInt8, model.KindUint8:
		buf[0] = byte(toInt64(value))
	case model.KindInt16, model.KindUint16:
		binary.LittleEndian.PutUint16(buf, uint16(toInt64(value)))
	case model.KindInt32, model.KindUint32:
		binary.LittleEndian.PutUint32(buf, uint32(toInt64(value)))
	case model.KindInt64, model.KindUint64:
		binary.LittleEndian.PutUint64(buf, uint64(toInt64(value)))
	case model.KindFloat32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(toFloat64(value))))
	case model.KindFloat64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(toFloat64(value)))
	case model.KindStringNarrow:
		s, _ := value.(string)
		if len(s) > info.size-1 {
			s = s[:info.size-1]
		}
		copy(buf, s)
	default:
		return nil, fmt.Errorf("fakebus: unsupported kind %v", info.kind)
	}
	return buf, nil
}

func decode(info typeInfo, data []byte) (any, error) {
	switch info.kind {
	case model.KindBool:
		return data[0] != 0, nil
	case model.KindInt8:
		return int64(int8(data[0])), nil
	case model.KindUint8:
		return int64(data[0]), nil
	case model.KindInt16:
		return int64(int16(binary.LittleEndian.Uint16(data))), nil
	case model.KindUint16:
		return int64(binary.LittleEndian.Uint16(data)), nil
	case model.KindInt32:
		return int64(int32(binary.LittleEndian.Uint32(data))), nil
	case model.KindUint32:
		return int64(binary.LittleEndian.Uint32(data)), nil
	case model.KindInt64:
		return int64(binary.LittleEndian.Uint64(data)), nil
	case model.KindUint64:
		return binary.LittleEndian.Uint64(data), nil
	case model.KindFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), nil
	case model.KindFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
	case model.KindStringNarrow:
		end := len(data)
		for i, c := range data {
			if c == 0 {
				end = i
				break
			}
		}
		return string(data[:end]), nil
	default:
		return nil, fmt.Errorf("fakebus: unsupported kind %v", info.kind)
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
