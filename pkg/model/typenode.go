package model

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/joshuapare/plcmirror/internal/attrs"
)

// Base carries the attributes common to every TypeNode variant.
type Base struct {
	Name            string
	AdsKind         Kind
	Offset          uint32
	ByteSize        int
	ReadOnly        bool
	Ignored         bool
	DefaultValue    any
	DefaultRawBytes []byte
	OnSet           string
	OnGet           string
	OnClear         string
	OnChange        string
}

func (b Base) clone() Base { return b } // Base has no reference fields worth deep-copying

// seedDefault sets DefaultValue and re-encodes DefaultRawBytes so the two
// stay consistent with each other.
func (b *Base) seedDefault(enc Encoder, value any) error {
	b.DefaultValue = value
	raw, err := enc.ConvertToRaw(value, b.Name)
	if err != nil {
		return NewError(ErrToRawFailed, fmt.Sprintf("encode default for %s", b.Name), err)
	}
	b.DefaultRawBytes = raw
	return nil
}

func toAttrs(raw []RawAttribute) []attrs.RawAttribute {
	out := make([]attrs.RawAttribute, len(raw))
	for i, a := range raw {
		out[i] = attrs.RawAttribute{Key: a.Key, Value: a.Value}
	}
	return out
}

// applyCommon applies the attribute-independent parts of a Mutation (every
// key except "default", "lowerborder", "upperborder", which are kind-specific)
// plus the offset carried by the raw descriptor/child/symbol. It returns true
// if the resulting node must be dropped (the "ignored" attribute fired).
func (b *Base) applyCommon(m attrs.Mutation, offset uint32, hasOffset bool) (ignored bool) {
	if hasOffset {
		b.Offset = offset
	}
	if m.ReadOnly != nil {
		b.ReadOnly = *m.ReadOnly
	}
	if m.OnSet != nil {
		b.OnSet = *m.OnSet
	}
	if m.OnGet != nil {
		b.OnGet = *m.OnGet
	}
	if m.OnClear != nil {
		b.OnClear = *m.OnClear
	}
	if m.OnChange != nil {
		b.OnChange = *m.OnChange
	}
	if m.Ignored != nil && *m.Ignored {
		b.Ignored = true
	}
	return b.Ignored
}

// Encoder is the subset of Transport the type node model needs to keep
// DefaultRawBytes consistent with DefaultValue after a default override.
type Encoder interface {
	ConvertToRaw(value any, typeName string) ([]byte, error)
}

// TypeNode is the canonical, bindable shape a raw type descriptor resolves
// to. It is a closed sum of the six variants below.
type TypeNode interface {
	// Base returns the common attribute block.
	Base() *Base
	// Clone produces a deep copy sharing no mutable state with the receiver.
	// If mutator is non-nil its attributes (and, for symbols/children, its
	// offset) are applied; if the result is ignored, Clone returns
	// (nil, nil) — not an error.
	Clone(enc Encoder, mutator *RawTypeDescriptor, hasOffset bool, offset uint32) (TypeNode, error)
	// Extend is invoked when a child's raw kind matches the receiver's kind
	// during parent resolution or array/enum reclassification.
	Extend(enc Encoder, raw *RawTypeDescriptor) (TypeNode, error)
	isTypeNode()
}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

type BooleanType struct{ B Base }

func (t *BooleanType) Base() *Base { return &t.B }
func (*BooleanType) isTypeNode()   {}

func (t *BooleanType) Clone(enc Encoder, mutator *RawTypeDescriptor, hasOffset bool, offset uint32) (TypeNode, error) {
	out := &BooleanType{B: t.B.clone()}
	if out.B.DefaultValue == nil {
		if err := out.B.seedDefault(enc, false); err != nil {
			return nil, err
		}
	}
	if mutator == nil {
		return out, nil
	}
	m := attrs.Parse(toAttrs(mutator.Attributes))
	if out.B.applyCommon(m, offset, hasOffset) {
		return nil, nil
	}
	if m.Default != nil {
		v := strings.EqualFold(strings.TrimSpace(*m.Default), "true")
		if err := out.B.seedDefault(enc, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *BooleanType) Extend(enc Encoder, raw *RawTypeDescriptor) (TypeNode, error) {
	return extendGeneric(t, enc, raw)
}

// ---------------------------------------------------------------------------
// Numeric
// ---------------------------------------------------------------------------

// NumericBound holds a numeric bound as a *big.Int for every integer kind
// (so an unsigned 64-bit value can exceed the range of Go's native int64)
// or a float64 for the float kinds.
type NumericBound struct {
	Big *big.Int
	F   float64
}

func (b NumericBound) Cmp(other NumericBound) int {
	if b.Big != nil && other.Big != nil {
		return b.Big.Cmp(other.Big)
	}
	bf, of := b.F, other.F
	if b.Big != nil {
		bf, _ = new(big.Float).SetInt(b.Big).Float64()
	}
	if other.Big != nil {
		of, _ = new(big.Float).SetInt(other.Big).Float64()
	}
	switch {
	case bf < of:
		return -1
	case bf > of:
		return 1
	default:
		return 0
	}
}

func (b NumericBound) String() string {
	if b.Big != nil {
		return b.Big.String()
	}
	return strconv.FormatFloat(b.F, 'g', -1, 64)
}

// naturalBounds returns the natural representable range for a numeric kind.
func naturalBounds(k Kind) (lower, upper NumericBound) {
	switch k {
	case KindInt8:
		return NumericBound{Big: big.NewInt(-128)}, NumericBound{Big: big.NewInt(127)}
	case KindUint8:
		return NumericBound{Big: big.NewInt(0)}, NumericBound{Big: big.NewInt(255)}
	case KindInt16:
		return NumericBound{Big: big.NewInt(-32768)}, NumericBound{Big: big.NewInt(32767)}
	case KindUint16:
		return NumericBound{Big: big.NewInt(0)}, NumericBound{Big: big.NewInt(65535)}
	case KindInt32:
		return NumericBound{Big: big.NewInt(-2147483648)}, NumericBound{Big: big.NewInt(2147483647)}
	case KindUint32:
		return NumericBound{Big: big.NewInt(0)}, NumericBound{Big: big.NewInt(4294967295)}
	case KindInt64:
		lo := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 63))
		hi := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 63), big.NewInt(1))
		return NumericBound{Big: lo}, NumericBound{Big: hi}
	case KindUint64:
		hi := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))
		return NumericBound{Big: big.NewInt(0)}, NumericBound{Big: hi}
	case KindFloat32:
		return NumericBound{F: -3.4028235e38}, NumericBound{F: 3.4028235e38}
	case KindFloat64:
		return NumericBound{F: -1.7976931348623157e308}, NumericBound{F: 1.7976931348623157e308}
	default:
		return NumericBound{F: 0}, NumericBound{F: 0}
	}
}

func parseBound(k Kind, s string) (NumericBound, error) {
	s = strings.TrimSpace(s)
	if k.Is64Bit() {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return NumericBound{}, fmt.Errorf("model: invalid big-integer bound %q", s)
		}
		return NumericBound{Big: v}, nil
	}
	if k.IsInteger() {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Only text outside the int64 range (or malformed text) gets here;
			// fall back to big.Int, which keeps the value as parsed without
			// clamping it to the kind's width.
			bv, ok := new(big.Int).SetString(s, 10)
			if !ok {
				return NumericBound{}, fmt.Errorf("model: invalid integer bound %q", s)
			}
			return NumericBound{Big: bv}, nil
		}
		return NumericBound{Big: big.NewInt(v)}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NumericBound{}, fmt.Errorf("model: invalid float bound %q", s)
	}
	return NumericBound{F: f}, nil
}

// NumericType is every integer and floating-point leaf kind.
type NumericType struct {
	B     Base
	Lower NumericBound
	Upper NumericBound
}

func (t *NumericType) Base() *Base { return &t.B }
func (*NumericType) isTypeNode()   {}

func (t *NumericType) Clone(enc Encoder, mutator *RawTypeDescriptor, hasOffset bool, offset uint32) (TypeNode, error) {
	out := &NumericType{B: t.B.clone(), Lower: t.Lower, Upper: t.Upper}
	if out.B.DefaultValue == nil {
		zero := any(0.0)
		if out.Lower.Big != nil {
			zero = big.NewInt(0)
		}
		if err := out.B.seedDefault(enc, zero); err != nil {
			return nil, err
		}
	}
	if mutator == nil {
		return out, nil
	}
	m := attrs.Parse(toAttrs(mutator.Attributes))
	if out.B.applyCommon(m, offset, hasOffset) {
		return nil, nil
	}
	defaultSet := false
	if m.LowerBorder != nil {
		b, err := parseBound(out.B.AdsKind, *m.LowerBorder)
		if err != nil {
			return nil, NewError(ErrOutOfRange, "parse lowerborder", err)
		}
		out.Lower = b
		// A narrowed lower bound also becomes the default, replacing any
		// inherited or seeded default; only a default attribute in the same
		// list (applied below) takes precedence over it.
		out.B.DefaultValue = boundValue(b)
		defaultSet = true
	}
	if m.UpperBorder != nil {
		b, err := parseBound(out.B.AdsKind, *m.UpperBorder)
		if err != nil {
			return nil, NewError(ErrOutOfRange, "parse upperborder", err)
		}
		out.Upper = b
		// No extra check: a narrowed lower past upper is accepted as-is.
	}
	if m.Default != nil {
		b, err := parseBound(out.B.AdsKind, *m.Default)
		if err != nil {
			return nil, NewError(ErrOutOfRange, "parse default", err)
		}
		out.B.DefaultValue = boundValue(b)
		defaultSet = true
	}
	if defaultSet {
		raw, err := enc.ConvertToRaw(out.B.DefaultValue, out.B.Name)
		if err != nil {
			return nil, NewError(ErrToRawFailed, "encode numeric default", err)
		}
		out.B.DefaultRawBytes = raw
	}
	return out, nil
}

func boundValue(b NumericBound) any {
	if b.Big != nil {
		return new(big.Int).Set(b.Big)
	}
	return b.F
}

func (t *NumericType) Extend(enc Encoder, raw *RawTypeDescriptor) (TypeNode, error) {
	// model.Extend already wraps arrays before reaching here; a numeric
	// parent whose child descriptor carries enumFields reclassifies to Enum
	// (the enum's underlying numeric kind is discarded).
	if len(raw.EnumFields) > 0 {
		return newEnum(raw)
	}
	return extendGeneric(t, enc, raw)
}

// ---------------------------------------------------------------------------
// String
// ---------------------------------------------------------------------------

type StringType struct {
	B      Base
	MaxLen int
}

func (t *StringType) Base() *Base { return &t.B }
func (*StringType) isTypeNode()   {}

func (t *StringType) Clone(enc Encoder, mutator *RawTypeDescriptor, hasOffset bool, offset uint32) (TypeNode, error) {
	out := &StringType{B: t.B.clone(), MaxLen: t.MaxLen}
	if out.B.DefaultValue == nil {
		if err := out.B.seedDefault(enc, ""); err != nil {
			return nil, err
		}
	}
	if mutator == nil {
		return out, nil
	}
	m := attrs.Parse(toAttrs(mutator.Attributes))
	if out.B.applyCommon(m, offset, hasOffset) {
		return nil, nil
	}
	if m.Default != nil {
		if len(*m.Default) > out.MaxLen {
			return nil, NewError(ErrOutOfRange, fmt.Sprintf("default value longer than maxLen %d", out.MaxLen), nil)
		}
		out.B.DefaultValue = *m.Default
		raw, err := enc.ConvertToRaw(out.B.DefaultValue, out.B.Name)
		if err != nil {
			return nil, NewError(ErrToRawFailed, "encode string default", err)
		}
		out.B.DefaultRawBytes = raw
	}
	return out, nil
}

func (t *StringType) Extend(enc Encoder, raw *RawTypeDescriptor) (TypeNode, error) {
	return extendGeneric(t, enc, raw)
}

// ---------------------------------------------------------------------------
// Enum
// ---------------------------------------------------------------------------

type EnumType struct {
	B        Base
	Fields   []string          // ordered qualified names, "<typeName>.<name>"
	Encoding map[string][]byte // qualified name -> pre-encoded wire bytes
}

func (t *EnumType) Base() *Base { return &t.B }
func (*EnumType) isTypeNode()   {}

func newEnum(raw *RawTypeDescriptor) (*EnumType, error) {
	e := &EnumType{
		B: Base{
			Name:     raw.Name,
			AdsKind:  raw.Kind,
			Offset:   raw.Offset,
			ByteSize: raw.ByteSize,
		},
		Encoding: make(map[string][]byte, len(raw.EnumFields)),
	}
	for _, f := range raw.EnumFields {
		qualified := raw.Name + "." + f.Name
		e.Fields = append(e.Fields, qualified)
		e.Encoding[qualified] = f.RawBytes
	}
	if len(e.Fields) > 0 {
		e.B.DefaultValue = e.Fields[0]
		e.B.DefaultRawBytes = e.Encoding[e.Fields[0]]
	}
	return e, nil
}

func (t *EnumType) Clone(enc Encoder, mutator *RawTypeDescriptor, hasOffset bool, offset uint32) (TypeNode, error) {
	fields := make([]string, len(t.Fields))
	copy(fields, t.Fields)
	encoding := make(map[string][]byte, len(t.Encoding))
	for k, v := range t.Encoding {
		encoding[k] = v
	}
	out := &EnumType{B: t.B.clone(), Fields: fields, Encoding: encoding}
	if mutator == nil {
		return out, nil
	}
	m := attrs.Parse(toAttrs(mutator.Attributes))
	if out.B.applyCommon(m, offset, hasOffset) {
		return nil, nil
	}
	if m.Default != nil {
		qualified := strings.TrimSpace(*m.Default)
		if _, ok := out.Encoding[qualified]; !ok {
			return nil, NewError(ErrOutOfRange, fmt.Sprintf("default %q is not a member of enum %s", qualified, out.B.Name), nil)
		}
		out.B.DefaultValue = qualified
		out.B.DefaultRawBytes = out.Encoding[qualified]
	}
	return out, nil
}

func (t *EnumType) Extend(enc Encoder, raw *RawTypeDescriptor) (TypeNode, error) {
	// A child whose raw descriptor still advertises enum fields re-classifies
	// from scratch, discarding the parent's fields.
	if len(raw.EnumFields) > 0 {
		return newEnum(raw)
	}
	return extendGeneric(t, enc, raw)
}

// ---------------------------------------------------------------------------
// Struct
// ---------------------------------------------------------------------------

// StructMember is one surviving, ordered member of a Struct/Union TypeNode.
type StructMember struct {
	Key  string
	Type TypeNode
}

type StructType struct {
	B          Base
	Members    []StructMember
	RPCMethods []string
}

func (t *StructType) Base() *Base { return &t.B }
func (*StructType) isTypeNode()   {}

func (t *StructType) Clone(enc Encoder, mutator *RawTypeDescriptor, hasOffset bool, offset uint32) (TypeNode, error) {
	// Struct clones share children by reference; children are immutable
	// after registration.
	out := &StructType{B: t.B.clone(), Members: t.Members, RPCMethods: t.RPCMethods}
	if mutator == nil {
		return out, nil
	}
	m := attrs.Parse(toAttrs(mutator.Attributes))
	if out.B.applyCommon(m, offset, hasOffset) {
		return nil, nil
	}
	return out, nil
}

func (t *StructType) Extend(enc Encoder, raw *RawTypeDescriptor) (TypeNode, error) {
	return extendGeneric(t, enc, raw)
}

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

type ArrayType struct {
	B          Base
	Element    TypeNode
	Dimensions []RawArrayDimension
}

func (t *ArrayType) Base() *Base { return &t.B }
func (*ArrayType) isTypeNode()   {}

func newArray(element TypeNode, dims []RawArrayDimension) *ArrayType {
	eb := element.Base()
	total := 1
	for _, d := range dims {
		total *= d.Length
	}
	return &ArrayType{
		B: Base{
			Name:     eb.Name,
			AdsKind:  eb.AdsKind,
			Offset:   eb.Offset,
			ByteSize: eb.ByteSize * total,
			ReadOnly: eb.ReadOnly,
		},
		Element:    element,
		Dimensions: dims,
	}
}

func (t *ArrayType) Clone(enc Encoder, mutator *RawTypeDescriptor, hasOffset bool, offset uint32) (TypeNode, error) {
	out := &ArrayType{B: t.B.clone(), Element: t.Element, Dimensions: t.Dimensions}
	if mutator == nil {
		return out, nil
	}
	m := attrs.Parse(toAttrs(mutator.Attributes))
	if out.B.applyCommon(m, offset, hasOffset) {
		return nil, nil
	}
	return out, nil
}

func (t *ArrayType) Extend(enc Encoder, raw *RawTypeDescriptor) (TypeNode, error) {
	return extendGeneric(t, enc, raw)
}

// extendGeneric implements the non-array, non-enum branch of Extend common
// to every leaf/struct variant: clone with mutator = raw.
func extendGeneric(t TypeNode, enc Encoder, raw *RawTypeDescriptor) (TypeNode, error) {
	return t.Clone(enc, raw, true, raw.Offset)
}

// Extend dispatches the shape-changing cases common to every variant:
// wrapping in Array when the raw descriptor declares dimensions, else
// delegating to the variant-specific Extend for enum reclassification or a
// plain clone-with-mutator.
func Extend(t TypeNode, enc Encoder, raw *RawTypeDescriptor) (TypeNode, error) {
	if len(raw.ArrayDimensions) > 0 {
		return newArray(t, raw.ArrayDimensions), nil
	}
	return t.Extend(enc, raw)
}

// ---------------------------------------------------------------------------
// Fresh construction (step 5 of the registry's classify-and-construct walk)
// ---------------------------------------------------------------------------

// NewBoolean constructs a fresh, un-attributed Boolean leaf from a raw
// descriptor classified as a bit kind.
func NewBoolean(raw *RawTypeDescriptor) *BooleanType {
	return &BooleanType{B: Base{Name: raw.Name, AdsKind: raw.Kind, Offset: raw.Offset, ByteSize: raw.ByteSize}}
}

// NewNumeric constructs a fresh Numeric leaf with the kind's natural bounds.
func NewNumeric(raw *RawTypeDescriptor) *NumericType {
	lo, hi := naturalBounds(raw.Kind)
	return &NumericType{
		B:     Base{Name: raw.Name, AdsKind: raw.Kind, Offset: raw.Offset, ByteSize: raw.ByteSize},
		Lower: lo,
		Upper: hi,
	}
}

// NewString constructs a fresh String leaf; maxLen = byteSize - 1 for narrow
// strings (one byte reserved for the NUL terminator) and byteSize/2 - 1 for
// wide strings.
func NewString(raw *RawTypeDescriptor) *StringType {
	maxLen := raw.ByteSize - 1
	if raw.Kind == KindStringWide {
		maxLen = raw.ByteSize/2 - 1
	}
	if maxLen < 0 {
		maxLen = 0
	}
	return &StringType{
		B:      Base{Name: raw.Name, AdsKind: raw.Kind, Offset: raw.Offset, ByteSize: raw.ByteSize},
		MaxLen: maxLen,
	}
}

// NewStruct constructs a fresh Struct/Union over already-resolved members.
func NewStruct(raw *RawTypeDescriptor, members []StructMember) *StructType {
	return &StructType{
		B:          Base{Name: raw.Name, AdsKind: raw.Kind, Offset: raw.Offset, ByteSize: raw.ByteSize},
		Members:    members,
		RPCMethods: raw.RPCMethodNames,
	}
}
