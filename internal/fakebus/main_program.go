package fakebus

import (
	"github.com/joshuapare/plcmirror/pkg/model"
)

// NewMainProgram builds a small "Quick Look" fixture: a MAIN program
// exposing
//
//	booleanValue   : BOOL      = true
//	numericValue   : INT       = 10
//	structuredValue: ST_MAIN   = { realValue: REAL = 0, stringValue: STRING(20) = "hello world" }
//	arrayValue     : ARRAY[0..9] OF STRING(8) = ["a".."h", "j", ""]
//
// Memory is seeded leaf-by-leaf at each member's absolute offset (parent
// offset + member offset), matching how the binding layer addresses
// composite descendants — a single blob write at the composite's own base
// offset would land nowhere the binding layer ever reads.
//
// Three more symbols round out the fixture for properties the Quick Look
// values alone don't exercise: siblingValue and ptrValue (a POINTER TO INT
// next to a plain sibling, for the pointer-filter scenario) and
// readonlyStruct (a struct with one read-only member, for Clear's
// skip-read-only-descendants rule).
func NewMainProgram() *Bus {
	b := New()

	b.RegisterType("bool", &model.RawTypeDescriptor{Name: "BOOL", Kind: model.KindBool, ByteSize: 1}, model.KindBool, 1)
	b.RegisterType("int", &model.RawTypeDescriptor{Name: "INT", Kind: model.KindInt16, ByteSize: 2}, model.KindInt16, 2)
	b.RegisterType("real", &model.RawTypeDescriptor{Name: "REAL", Kind: model.KindFloat32, ByteSize: 4}, model.KindFloat32, 4)
	b.RegisterType("string20", &model.RawTypeDescriptor{Name: "STRING(20)", Kind: model.KindStringNarrow, ByteSize: 21}, model.KindStringNarrow, 21)
	b.RegisterType("string8", &model.RawTypeDescriptor{Name: "STRING(8)", Kind: model.KindStringNarrow, ByteSize: 9}, model.KindStringNarrow, 9)

	b.RegisterType("st_main", &model.RawTypeDescriptor{
		Name: "ST_MAIN", Kind: model.KindStruct, ByteSize: 25,
		Children: []model.RawChild{
			{MemberName: "realValue", TypeName: "real", Offset: 0},
			{MemberName: "stringValue", TypeName: "string20", Offset: 4},
		},
	}, model.KindStruct, 25)

	b.RegisterType("arr_string", &model.RawTypeDescriptor{
		Name: "ARR_STRING", ParentName: "string8", Kind: model.KindStringNarrow, ByteSize: 9,
		ArrayDimensions: []model.RawArrayDimension{{StartIndex: 0, Length: 10}},
	}, model.KindStringNarrow, 9)

	const group = uint32(1)

	boolPtr := model.Pointer{IndexGroup: group, IndexOffset: 0, Size: 1}
	b.RegisterSymbol("MAIN.booleanValue", &model.RawSymbolDescriptor{FullPath: "MAIN.booleanValue", TypeName: "bool", Pointer: boolPtr})
	seed(b, boolPtr, model.KindBool, true)

	intPtr := model.Pointer{IndexGroup: group, IndexOffset: 2, Size: 2}
	b.RegisterSymbol("MAIN.numericValue", &model.RawSymbolDescriptor{FullPath: "MAIN.numericValue", TypeName: "int", Pointer: intPtr})
	seed(b, intPtr, model.KindInt16, 10)

	const structBase = uint32(10)
	structPtr := model.Pointer{IndexGroup: group, IndexOffset: structBase, Size: 25}
	b.RegisterSymbol("MAIN.structuredValue", &model.RawSymbolDescriptor{FullPath: "MAIN.structuredValue", TypeName: "st_main", Pointer: structPtr})
	seed(b, model.Pointer{IndexGroup: group, IndexOffset: structBase + 0, Size: 4}, model.KindFloat32, 0.0)
	seed(b, model.Pointer{IndexGroup: group, IndexOffset: structBase + 4, Size: 21}, model.KindStringNarrow, "hello world")

	const arrBase = uint32(40)
	const elemSize = uint32(9)
	arrPtr := model.Pointer{IndexGroup: group, IndexOffset: arrBase, Size: 90}
	b.RegisterSymbol("MAIN.arrayValue", &model.RawSymbolDescriptor{FullPath: "MAIN.arrayValue", TypeName: "arr_string", Pointer: arrPtr})
	elems := []string{"a", "b", "c", "d", "e", "f", "g", "h", "j", ""}
	for i, e := range elems {
		seed(b, model.Pointer{IndexGroup: group, IndexOffset: arrBase + uint32(i)*elemSize, Size: int(elemSize)}, model.KindStringNarrow, e)
	}

	// siblingValue sits next to a pointer-typed symbol so a test can confirm
	// the pointer filter drops only the unbindable symbol, not its siblings.
	siblingPtr := model.Pointer{IndexGroup: group, IndexOffset: 140, Size: 2}
	b.RegisterSymbol("MAIN.siblingValue", &model.RawSymbolDescriptor{FullPath: "MAIN.siblingValue", TypeName: "int", Pointer: siblingPtr})
	seed(b, siblingPtr, model.KindInt16, 3)

	b.RegisterType("pointer to int", &model.RawTypeDescriptor{Name: "POINTER TO INT", Kind: model.KindUint32, ByteSize: 4}, model.KindUint32, 4)
	b.RegisterSymbol("MAIN.ptrValue", &model.RawSymbolDescriptor{
		FullPath: "MAIN.ptrValue", TypeName: "POINTER TO INT",
		Pointer: model.Pointer{IndexGroup: group, IndexOffset: 144, Size: 4},
	})

	// ST_RO carries one read-only member (label) alongside a writable one
	// (counter), for exercising Clear's "skip read-only descendants" rule.
	b.RegisterType("st_ro", &model.RawTypeDescriptor{
		Name: "ST_RO", Kind: model.KindStruct, ByteSize: 11,
		Children: []model.RawChild{
			{MemberName: "label", TypeName: "string8", Offset: 0, Attributes: []model.RawAttribute{{Key: "readonly", Value: "true"}}},
			{MemberName: "counter", TypeName: "int", Offset: 9},
		},
	}, model.KindStruct, 11)

	const roBase = uint32(150)
	roPtr := model.Pointer{IndexGroup: group, IndexOffset: roBase, Size: 11}
	b.RegisterSymbol("MAIN.readonlyStruct", &model.RawSymbolDescriptor{FullPath: "MAIN.readonlyStruct", TypeName: "st_ro", Pointer: roPtr})
	seed(b, model.Pointer{IndexGroup: group, IndexOffset: roBase + 0, Size: 9}, model.KindStringNarrow, "fixed")
	seed(b, model.Pointer{IndexGroup: group, IndexOffset: roBase + 9, Size: 2}, model.KindInt16, 7)

	return b
}

func seed(b *Bus, ptr model.Pointer, kind model.Kind, value any) {
	data, err := encode(typeInfo{kind: kind, size: ptr.Size}, value)
	if err != nil {
		panic(err) // fixture construction must not fail
	}
	b.SeedBytes(ptr.IndexGroup, ptr.IndexOffset, data)
}
