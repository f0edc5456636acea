package model

// Pointer is a (indexGroup, indexOffset, size) byte range in the
// controller's address space — the unit the transport reads and writes.
type Pointer struct {
	IndexGroup  uint32
	IndexOffset uint32
	Size        int
}

// End returns the exclusive end offset of p, used when growing a namespace
// binding's spanning interval.
func (p Pointer) End() uint32 { return p.IndexOffset + uint32(p.Size) }

// RawAttribute is a single (key, value) pair as delivered by the transport;
// keys are matched case-insensitively and whitespace-trimmed by internal/attrs.
type RawAttribute struct {
	Key   string
	Value string
}

// RawChild is one declared member of a composite raw type descriptor. Real
// TwinCAT struct members can carry their own pragma block (e.g. a per-member
// 'readonly' or 'ignored' override) distinct from the member type's own
// attributes, so Attributes supplements the base (memberName, typeName,
// offset) shape rather than replacing it.
type RawChild struct {
	MemberName string
	TypeName   string
	Offset     uint32
	Attributes []RawAttribute
}

// RawArrayDimension is one declared dimension of an array type or symbol.
type RawArrayDimension struct {
	StartIndex int
	Length     int
}

// RawEnumField is one declared enumerator of an enum type, carrying its
// pre-encoded wire representation so the binding layer never needs to
// invoke the transport's encoder for enum writes.
type RawEnumField struct {
	Name     string
	RawBytes []byte
}

// RawTypeDescriptor is one entry of the controller's flat type catalogue,
// as fetched by Transport.ReadAndCacheDataTypes.
type RawTypeDescriptor struct {
	Name            string
	ParentName      string
	Kind            Kind
	ByteSize        int
	Offset          uint32
	Attributes      []RawAttribute
	Children        []RawChild
	ArrayDimensions []RawArrayDimension
	EnumFields      []RawEnumField // non-nil only when Kind.IsNumeric()
	RPCMethodNames  []string
}

// RawSymbolDescriptor is one entry of the controller's top-level variable
// catalogue, as fetched by Transport.ReadAndCacheSymbols.
type RawSymbolDescriptor struct {
	FullPath string
	TypeName string
	Pointer  Pointer
}
