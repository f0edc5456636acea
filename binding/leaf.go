package binding

import (
	"context"
	"fmt"
	"math/big"
	"reflect"

	"github.com/joshuapare/plcmirror/pkg/model"
)

var (
	_ Binding = (*BooleanBinding)(nil)
	_ Binding = (*NumericBinding)(nil)
	_ Binding = (*StringBinding)(nil)
	_ Binding = (*EnumBinding)(nil)

	_ batchDecoder = (*BooleanBinding)(nil)
	_ batchDecoder = (*NumericBinding)(nil)
	_ batchDecoder = (*StringBinding)(nil)
	_ batchDecoder = (*EnumBinding)(nil)

	_ batchEncoder = (*BooleanBinding)(nil)
	_ batchEncoder = (*NumericBinding)(nil)
	_ batchEncoder = (*StringBinding)(nil)
	_ batchEncoder = (*EnumBinding)(nil)
)

// leafBinding carries the state common to every scalar binding variant.
type leafBinding struct {
	subscriptionState
	transport model.Transport
	typ       model.TypeNode
	ptr       model.Pointer
	valid     bool
}

func newLeaf(transport model.Transport, typ model.TypeNode, ptr model.Pointer) leafBinding {
	return leafBinding{transport: transport, typ: typ, ptr: ptr, valid: true}
}

func (b *leafBinding) Pointer() model.Pointer        { return b.ptr }
func (b *leafBinding) TypeNode() model.TypeNode      { return b.typ }
func (b *leafBinding) ReadOnly() bool                { return b.typ.Base().ReadOnly }
func (b *leafBinding) Valid() bool                   { return b.valid }
func (b *leafBinding) Invalidate()                   { b.valid = false }
func (b *leafBinding) ReadPackages() []model.Pointer { return []model.Pointer{b.ptr} }

func (b *leafBinding) ClearPackages() []ClearPackage {
	if b.ReadOnly() {
		return nil
	}
	base := b.typ.Base()
	if base.DefaultRawBytes == nil {
		return nil
	}
	return []ClearPackage{{Pointer: b.ptr, Default: base.DefaultRawBytes}}
}

func (b *leafBinding) checkValid() error {
	if !b.valid {
		return model.NewError(model.ErrInvalidBinding, "binding has been invalidated", nil)
	}
	return nil
}

func (b *leafBinding) checkWritable() error {
	if err := b.checkValid(); err != nil {
		return err
	}
	if b.ReadOnly() {
		return model.NewError(model.ErrReadOnly, "binding is read-only", nil)
	}
	return nil
}

func (b *leafBinding) Clear(ctx context.Context) error {
	if err := b.checkWritable(); err != nil {
		return err
	}
	pkgs := b.ClearPackages()
	if len(pkgs) == 0 {
		return nil
	}
	return writeRaw(ctx, b.transport, []model.RawWriteItem{{IndexGroup: pkgs[0].Pointer.IndexGroup, IndexOffset: pkgs[0].Pointer.IndexOffset, Data: pkgs[0].Default}})
}

func (b *leafBinding) subscribeSelf(ctx context.Context, sampleIntervalMillis int, cb func(any), read func(context.Context) (any, error)) error {
	if err := b.checkValid(); err != nil {
		return err
	}
	return b.subscriptionState.subscribe(ctx, b.transport, b.ptr, sampleIntervalMillis, read, cb)
}

func (b *leafBinding) Unsubscribe(ctx context.Context) error {
	return b.subscriptionState.unsubscribe(ctx)
}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

// BooleanBinding binds a model.BooleanType leaf.
type BooleanBinding struct{ leafBinding }

// NewBoolean constructs a Binding for a boolean leaf at ptr.
func NewBoolean(transport model.Transport, typ model.TypeNode, ptr model.Pointer) *BooleanBinding {
	return &BooleanBinding{leafBinding: newLeaf(transport, typ, ptr)}
}

func (b *BooleanBinding) Read(ctx context.Context) (any, error) {
	if err := b.checkValid(); err != nil {
		return nil, err
	}
	data, err := readRaw(ctx, b.transport, b.ReadPackages())
	if err != nil {
		return nil, err
	}
	return b.decodeBatch(ctx, data)
}

func (b *BooleanBinding) decodeBatch(ctx context.Context, data []model.RawPointerData) (any, error) {
	if len(data) != 1 {
		return nil, model.NewError(model.ErrReadFailed, "boolean binding expects exactly one data package", nil)
	}
	v, err := b.transport.ConvertFromRaw(data[0].Data, b.typ.Base().Name)
	if err != nil {
		return nil, model.NewError(model.ErrFromRawFailed, "decode boolean", err)
	}
	bv, ok := v.(bool)
	if !ok {
		return nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("decoded boolean has unexpected Go type %T", v), nil)
	}
	return bv, nil
}

func (b *BooleanBinding) Write(ctx context.Context, value any) (any, error) {
	if err := b.checkWritable(); err != nil {
		return nil, err
	}
	items, normalized, err := b.encodeBatch(ctx, value)
	if err != nil {
		return nil, err
	}
	if err := writeRaw(ctx, b.transport, items); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (b *BooleanBinding) encodeBatch(ctx context.Context, value any) ([]model.RawWriteItem, any, error) {
	bv, ok := value.(bool)
	if !ok {
		return nil, nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("boolean binding rejects Go type %T", value), nil)
	}
	data, err := b.transport.ConvertToRaw(bv, b.typ.Base().Name)
	if err != nil {
		return nil, nil, model.NewError(model.ErrToRawFailed, "encode boolean", err)
	}
	return []model.RawWriteItem{{IndexGroup: b.ptr.IndexGroup, IndexOffset: b.ptr.IndexOffset, Data: data}}, bv, nil
}

func (b *BooleanBinding) Subscribe(ctx context.Context, sampleIntervalMillis int, cb func(any)) error {
	return b.subscribeSelf(ctx, sampleIntervalMillis, cb, b.Read)
}

// ---------------------------------------------------------------------------
// Numeric
// ---------------------------------------------------------------------------

// NumericBinding binds a model.NumericType leaf, enforcing its declared
// lower/upper bound on every write.
type NumericBinding struct {
	leafBinding
	numeric *model.NumericType
}

// NewNumeric constructs a Binding for a numeric leaf at ptr.
func NewNumeric(transport model.Transport, typ *model.NumericType, ptr model.Pointer) *NumericBinding {
	return &NumericBinding{leafBinding: newLeaf(transport, typ, ptr), numeric: typ}
}

func (b *NumericBinding) Read(ctx context.Context) (any, error) {
	if err := b.checkValid(); err != nil {
		return nil, err
	}
	data, err := readRaw(ctx, b.transport, b.ReadPackages())
	if err != nil {
		return nil, err
	}
	return b.decodeBatch(ctx, data)
}

func (b *NumericBinding) decodeBatch(ctx context.Context, data []model.RawPointerData) (any, error) {
	if len(data) != 1 {
		return nil, model.NewError(model.ErrReadFailed, "numeric binding expects exactly one data package", nil)
	}
	v, err := b.transport.ConvertFromRaw(data[0].Data, b.typ.Base().Name)
	if err != nil {
		return nil, model.NewError(model.ErrFromRawFailed, "decode numeric", err)
	}
	if b.numeric.B.AdsKind.IsUnsigned() {
		v = maskUnsigned64(v)
	}
	return v, nil
}

// maskUnsigned64 reinterprets a signed 64-bit decode as its unsigned bit
// pattern. Some transports hand back the full 64 bits as a signed big
// integer (there being no native unsigned 64-bit Go type); an unsigned
// leaf's decoded value must still compare and print as unsigned.
func maskUnsigned64(v any) any {
	switch n := v.(type) {
	case *big.Int:
		if n.Sign() < 0 {
			return new(big.Int).Add(n, new(big.Int).Lsh(big.NewInt(1), 64))
		}
		return n
	case big.Int:
		if n.Sign() < 0 {
			return *new(big.Int).Add(&n, new(big.Int).Lsh(big.NewInt(1), 64))
		}
		return n
	case int64:
		return uint64(n)
	default:
		return v
	}
}

func (b *NumericBinding) Write(ctx context.Context, value any) (any, error) {
	if err := b.checkWritable(); err != nil {
		return nil, err
	}
	items, normalized, err := b.encodeBatch(ctx, value)
	if err != nil {
		return nil, err
	}
	if err := writeRaw(ctx, b.transport, items); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (b *NumericBinding) encodeBatch(ctx context.Context, value any) ([]model.RawWriteItem, any, error) {
	bound, err := numericBoundOf(value)
	if err != nil {
		return nil, nil, model.NewError(model.ErrInvalidType, "numeric binding rejects value", err)
	}
	if bound.Cmp(b.numeric.Lower) < 0 || bound.Cmp(b.numeric.Upper) > 0 {
		return nil, nil, model.NewError(model.ErrOutOfRange, fmt.Sprintf("value %s outside [%s, %s]", bound, b.numeric.Lower, b.numeric.Upper), nil)
	}
	data, err := b.transport.ConvertToRaw(value, b.typ.Base().Name)
	if err != nil {
		return nil, nil, model.NewError(model.ErrToRawFailed, "encode numeric", err)
	}
	return []model.RawWriteItem{{IndexGroup: b.ptr.IndexGroup, IndexOffset: b.ptr.IndexOffset, Data: data}}, value, nil
}

func (b *NumericBinding) Subscribe(ctx context.Context, sampleIntervalMillis int, cb func(any)) error {
	return b.subscribeSelf(ctx, sampleIntervalMillis, cb, b.Read)
}

// numericBoundOf coerces a Go numeric value (any sized int/uint, float32/64,
// or big.Int/*big.Int) into a model.NumericBound for comparison against a
// NumericType's declared range.
func numericBoundOf(v any) (model.NumericBound, error) {
	switch n := v.(type) {
	case *big.Int:
		return model.NumericBound{Big: n}, nil
	case big.Int:
		c := n
		return model.NumericBound{Big: &c}, nil
	case float32:
		return model.NumericBound{F: float64(n)}, nil
	case float64:
		return model.NumericBound{F: n}, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return model.NumericBound{Big: big.NewInt(rv.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return model.NumericBound{Big: new(big.Int).SetUint64(rv.Uint())}, nil
	default:
		return model.NumericBound{}, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}

// ---------------------------------------------------------------------------
// String
// ---------------------------------------------------------------------------

// StringBinding binds a model.StringType leaf, enforcing its declared
// maxLen on every write.
type StringBinding struct {
	leafBinding
	str *model.StringType
}

// NewString constructs a Binding for a string leaf at ptr.
func NewString(transport model.Transport, typ *model.StringType, ptr model.Pointer) *StringBinding {
	return &StringBinding{leafBinding: newLeaf(transport, typ, ptr), str: typ}
}

func (b *StringBinding) Read(ctx context.Context) (any, error) {
	if err := b.checkValid(); err != nil {
		return nil, err
	}
	data, err := readRaw(ctx, b.transport, b.ReadPackages())
	if err != nil {
		return nil, err
	}
	return b.decodeBatch(ctx, data)
}

func (b *StringBinding) decodeBatch(ctx context.Context, data []model.RawPointerData) (any, error) {
	if len(data) != 1 {
		return nil, model.NewError(model.ErrReadFailed, "string binding expects exactly one data package", nil)
	}
	v, err := b.transport.ConvertFromRaw(data[0].Data, b.typ.Base().Name)
	if err != nil {
		return nil, model.NewError(model.ErrFromRawFailed, "decode string", err)
	}
	sv, ok := v.(string)
	if !ok {
		return nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("decoded string has unexpected Go type %T", v), nil)
	}
	return sv, nil
}

func (b *StringBinding) Write(ctx context.Context, value any) (any, error) {
	if err := b.checkWritable(); err != nil {
		return nil, err
	}
	items, normalized, err := b.encodeBatch(ctx, value)
	if err != nil {
		return nil, err
	}
	if err := writeRaw(ctx, b.transport, items); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (b *StringBinding) encodeBatch(ctx context.Context, value any) ([]model.RawWriteItem, any, error) {
	sv, ok := value.(string)
	if !ok {
		return nil, nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("string binding rejects Go type %T", value), nil)
	}
	if len(sv) > b.str.MaxLen {
		return nil, nil, model.NewError(model.ErrOutOfRange, fmt.Sprintf("value length %d exceeds maxLen %d", len(sv), b.str.MaxLen), nil)
	}
	data, err := b.transport.ConvertToRaw(sv, b.typ.Base().Name)
	if err != nil {
		return nil, nil, model.NewError(model.ErrToRawFailed, "encode string", err)
	}
	return []model.RawWriteItem{{IndexGroup: b.ptr.IndexGroup, IndexOffset: b.ptr.IndexOffset, Data: data}}, sv, nil
}

func (b *StringBinding) Subscribe(ctx context.Context, sampleIntervalMillis int, cb func(any)) error {
	return b.subscribeSelf(ctx, sampleIntervalMillis, cb, b.Read)
}

// ---------------------------------------------------------------------------
// Enum
// ---------------------------------------------------------------------------

// EnumBinding binds a model.EnumType leaf. Reads and writes never invoke the
// transport's encoder/decoder: each member's wire bytes are pre-computed by
// the type registry, so the binding only ever does a table lookup.
type EnumBinding struct {
	leafBinding
	enum   *model.EnumType
	decode map[string]string // string(bytes) -> qualified field name
}

// NewEnum constructs a Binding for an enum leaf at ptr.
func NewEnum(transport model.Transport, typ *model.EnumType, ptr model.Pointer) *EnumBinding {
	decode := make(map[string]string, len(typ.Encoding))
	for name, bytes := range typ.Encoding {
		decode[string(bytes)] = name
	}
	return &EnumBinding{leafBinding: newLeaf(transport, typ, ptr), enum: typ, decode: decode}
}

func (b *EnumBinding) Read(ctx context.Context) (any, error) {
	if err := b.checkValid(); err != nil {
		return nil, err
	}
	data, err := readRaw(ctx, b.transport, b.ReadPackages())
	if err != nil {
		return nil, err
	}
	return b.decodeBatch(ctx, data)
}

func (b *EnumBinding) decodeBatch(ctx context.Context, data []model.RawPointerData) (any, error) {
	if len(data) != 1 {
		return nil, model.NewError(model.ErrReadFailed, "enum binding expects exactly one data package", nil)
	}
	name, ok := b.decode[string(data[0].Data)]
	if !ok {
		return nil, model.NewError(model.ErrOutOfRange, "wire value does not match any declared enum member", nil)
	}
	return name, nil
}

func (b *EnumBinding) Write(ctx context.Context, value any) (any, error) {
	if err := b.checkWritable(); err != nil {
		return nil, err
	}
	items, normalized, err := b.encodeBatch(ctx, value)
	if err != nil {
		return nil, err
	}
	if err := writeRaw(ctx, b.transport, items); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (b *EnumBinding) encodeBatch(ctx context.Context, value any) ([]model.RawWriteItem, any, error) {
	name, ok := value.(string)
	if !ok {
		return nil, nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("enum binding rejects Go type %T", value), nil)
	}
	data, ok := b.enum.Encoding[name]
	if !ok {
		return nil, nil, model.NewError(model.ErrOutOfRange, fmt.Sprintf("%q is not a member of enum %s", name, b.enum.B.Name), nil)
	}
	return []model.RawWriteItem{{IndexGroup: b.ptr.IndexGroup, IndexOffset: b.ptr.IndexOffset, Data: data}}, name, nil
}

func (b *EnumBinding) Subscribe(ctx context.Context, sampleIntervalMillis int, cb func(any)) error {
	return b.subscribeSelf(ctx, sampleIntervalMillis, cb, b.Read)
}
