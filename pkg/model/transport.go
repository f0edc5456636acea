package model

import "context"

// Subscription is a handle returned by Transport.Subscribe/SubscribeRaw.
type Subscription interface {
	Unsubscribe(ctx context.Context) error
}

// RawPointerData is one item of a ReadRawMulti result: the bytes read back
// for one requested Pointer, tagged with the group/offset it came from.
type RawPointerData struct {
	IndexGroup  uint32
	IndexOffset uint32
	Data        []byte
}

// RawWriteItem is one item of a WriteRawMulti request.
type RawWriteItem struct {
	IndexGroup  uint32
	IndexOffset uint32
	Data        []byte
}

// RPCResult is the decoded result of an RPC method invocation.
type RPCResult struct {
	ReturnValue any
	Outputs     []any
}

// Transport is the external collaborator contract for the raw field-bus
// protocol client. The core (type registry, binding layer, symbol graph,
// coordinator) only ever calls through this interface — it never frames a
// wire message itself.
type Transport interface {
	Encoder

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context, force bool) error

	Subscribe(ctx context.Context, symbolPath string, cb func([]byte), cycleMillis int) (Subscription, error)
	SubscribeRaw(ctx context.Context, group, offset uint32, size int, cb func([]byte), cycleMillis int) (Subscription, error)
	UnsubscribeAll(ctx context.Context) error

	ConvertFromRaw(data []byte, typeName string) (any, error)
	// ConvertToRaw is re-declared via Encoder, embedded above.

	ReadRawMulti(ctx context.Context, pointers []Pointer) ([]RawPointerData, error)
	WriteRawMulti(ctx context.Context, items []RawWriteItem) error

	ReadAndCacheDataTypes(ctx context.Context) (map[string]*RawTypeDescriptor, error)
	ReadAndCacheSymbols(ctx context.Context) (map[string]*RawSymbolDescriptor, error)

	InvokeRPCMethod(ctx context.Context, symbolPath, methodName string, args []any) (RPCResult, error)

	// OnConnectionEvent registers a callback for the transport's
	// connectionLost / reconnect channel.
	OnConnectionEvent(cb func(kind string))
}

// RequestCap is the transport-imposed maximum items per multi-read/write
// call; a composite binding larger than this splits into multiple calls.
const RequestCap = 500
