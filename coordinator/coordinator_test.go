package coordinator

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/joshuapare/plcmirror/pkg/model"
	"github.com/stretchr/testify/require"
)

// fakeTransport is a from-scratch, in-memory model.Transport double used
// only by this package's unit tests; the scenario tests and the example use
// the in-memory fixture in internal/fakebus instead.
type fakeTransport struct {
	mu           sync.Mutex
	connected    bool
	disconnected int
	mem          map[uint32]map[uint32][]byte
	rawTypes     map[string]*model.RawTypeDescriptor
	rawSymbols   map[string]*model.RawSymbolDescriptor
	sourceValue  []byte
	sourceSub    *recordingSub
	sourceCb     func([]byte)
	connEventCb  func(kind string)
	connectErr   error
	disconnErr   error
}

type recordingSub struct {
	unsubbed bool
}

func (s *recordingSub) Unsubscribe(context.Context) error {
	s.unsubbed = true
	return nil
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		mem: map[uint32]map[uint32][]byte{1: {}},
		rawTypes: map[string]*model.RawTypeDescriptor{
			"bool": {Name: "BOOL", Kind: model.KindBool, ByteSize: 1},
		},
		rawSymbols: map[string]*model.RawSymbolDescriptor{
			"MAIN.booleanValue": {
				FullPath: "MAIN.booleanValue", TypeName: "bool",
				Pointer: model.Pointer{IndexGroup: 1, IndexOffset: 0, Size: 1},
			},
		},
		sourceValue: []byte{1, 0, 0, 0},
	}
}

func (t *fakeTransport) ConvertToRaw(value any, typeName string) ([]byte, error) {
	b := byte(0)
	if value.(bool) {
		b = 1
	}
	return []byte{b}, nil
}

func (t *fakeTransport) ConvertFromRaw(data []byte, typeName string) (any, error) {
	return data[0] != 0, nil
}

func (t *fakeTransport) Connect(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connectErr != nil {
		return t.connectErr
	}
	t.connected = true
	return nil
}

func (t *fakeTransport) Disconnect(context.Context, bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnected++
	t.connected = false
	return t.disconnErr
}

func (t *fakeTransport) UnsubscribeAll(context.Context) error { return nil }

func (t *fakeTransport) OnConnectionEvent(cb func(kind string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connEventCb = cb
}

func (t *fakeTransport) ReadAndCacheDataTypes(context.Context) (map[string]*model.RawTypeDescriptor, error) {
	return t.rawTypes, nil
}

func (t *fakeTransport) ReadAndCacheSymbols(context.Context) (map[string]*model.RawSymbolDescriptor, error) {
	return t.rawSymbols, nil
}

func (t *fakeTransport) InvokeRPCMethod(ctx context.Context, symbolPath, methodName string, args []any) (model.RPCResult, error) {
	return model.RPCResult{}, nil
}

func (t *fakeTransport) Subscribe(ctx context.Context, symbolPath string, cb func([]byte), cycleMillis int) (model.Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := &recordingSub{}
	t.sourceSub = sub
	t.sourceCb = cb
	cb(t.sourceValue) // deliver the initial value, like a real cyclic subscription would
	return sub, nil
}

// deliverSourceChange re-invokes the most recently installed source-path
// subscription callback with the current source value, as a real cyclic
// subscription would on its next tick.
func (t *fakeTransport) deliverSourceChange() {
	t.mu.Lock()
	cb := t.sourceCb
	v := append([]byte(nil), t.sourceValue...)
	t.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

func (t *fakeTransport) SubscribeRaw(ctx context.Context, group, offset uint32, size int, cb func([]byte), cycleMillis int) (model.Subscription, error) {
	return &recordingSub{}, nil
}

func (t *fakeTransport) ReadRawMulti(ctx context.Context, pointers []model.Pointer) ([]model.RawPointerData, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.RawPointerData, len(pointers))
	for i, p := range pointers {
		data := t.mem[p.IndexGroup][p.IndexOffset]
		if data == nil {
			data = make([]byte, p.Size)
		}
		out[i] = model.RawPointerData{IndexGroup: p.IndexGroup, IndexOffset: p.IndexOffset, Data: data}
	}
	return out, nil
}

func (t *fakeTransport) WriteRawMulti(ctx context.Context, items []model.RawWriteItem) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, it := range items {
		if t.mem[it.IndexGroup] == nil {
			t.mem[it.IndexGroup] = map[uint32][]byte{}
		}
		t.mem[it.IndexGroup][it.IndexOffset] = append([]byte(nil), it.Data...)
	}
	return nil
}

func (t *fakeTransport) changeSource() {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := binary.LittleEndian.Uint32(t.sourceValue) + 1
	binary.LittleEndian.PutUint32(t.sourceValue, v)
}

func TestInitializeBuildsRegistryAndNamespaces(t *testing.T) {
	tr := newFakeTransport()
	c := New("test", tr)

	require.NoError(t, c.Initialize(context.Background()))
	require.Equal(t, 1, c.Registry().Len())

	ns, ok := c.Namespace("MAIN")
	require.True(t, ok)
	boolSym, ok := ns.Child("booleanValue")
	require.True(t, ok)
	v, err := boolSym.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, false, v)
}

func TestInitializeTwiceFailsWithTransportBusy(t *testing.T) {
	tr := newFakeTransport()
	c := New("test", tr)
	require.NoError(t, c.Initialize(context.Background()))

	err := c.Initialize(context.Background())
	require.Error(t, err)
	var perr *model.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, model.ErrTransportBusy, perr.Kind)
	require.Equal(t, "test", perr.Coordinator)
}

func TestKillInvalidatesNamespacesAndDisconnects(t *testing.T) {
	tr := newFakeTransport()
	c := New("test", tr)
	require.NoError(t, c.Initialize(context.Background()))

	ns, _ := c.Namespace("MAIN")
	require.NoError(t, c.Kill(context.Background()))

	require.False(t, ns.Valid())
	require.Equal(t, 1, tr.disconnected)
	_, ok := c.Namespace("MAIN")
	require.False(t, ok)
}

func TestReinitializeRebuildsGraph(t *testing.T) {
	tr := newFakeTransport()
	c := New("test", tr)
	require.NoError(t, c.Initialize(context.Background()))
	oldNs, _ := c.Namespace("MAIN")

	var reinitFired bool
	c.On(model.EventReinitialized, func(model.Event) { reinitFired = true })

	require.NoError(t, c.Reinitialize(context.Background()))
	require.True(t, reinitFired)
	require.False(t, oldNs.Valid())

	newNs, ok := c.Namespace("MAIN")
	require.True(t, ok)
	require.True(t, newNs.Valid())
}

func TestSourceChangeTriggersDefaultReinitialize(t *testing.T) {
	tr := newFakeTransport()
	c := New("test", tr)
	require.NoError(t, c.Initialize(context.Background()))
	oldNs, _ := c.Namespace("MAIN")

	tr.changeSource()
	tr.deliverSourceChange()

	require.False(t, oldNs.Valid())
	_, ok := c.Namespace("MAIN")
	require.True(t, ok)
}

func TestSourceChangeHandlerOverrideSuppressesDefaultReinitialize(t *testing.T) {
	tr := newFakeTransport()
	var called bool
	c := New("test", tr, WithSourceChangeHandler(func(ctx context.Context, c *Coordinator) {
		called = true
	}))
	require.NoError(t, c.Initialize(context.Background()))
	oldNs, _ := c.Namespace("MAIN")

	tr.changeSource()
	tr.deliverSourceChange()

	require.True(t, called)
	require.True(t, oldNs.Valid()) // override never called Reinitialize
}
