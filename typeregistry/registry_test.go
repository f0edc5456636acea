package typeregistry

import (
	"context"
	"testing"

	"github.com/joshuapare/plcmirror/pkg/model"
	"github.com/stretchr/testify/require"
)

// stubEncoder satisfies model.Encoder with fixed-size zero-filled defaults,
// enough to drive Clone's seedDefault step without a real transport.
type stubEncoder struct{}

func (stubEncoder) ConvertToRaw(value any, typeName string) ([]byte, error) {
	switch typeName {
	case "BOOL":
		return []byte{0}, nil
	case "INT", "UDINT_LOCAL":
		return []byte{0, 0}, nil
	case "STRING(8)":
		return make([]byte, 8), nil
	default:
		return []byte{0, 0, 0, 0}, nil
	}
}

func boolDesc(name string) *model.RawTypeDescriptor {
	return &model.RawTypeDescriptor{Name: name, Kind: model.KindBool, ByteSize: 1}
}

func intDesc(name string) *model.RawTypeDescriptor {
	return &model.RawTypeDescriptor{Name: name, Kind: model.KindInt16, ByteSize: 2}
}

func TestBuildResolvesPlainLeaf(t *testing.T) {
	raw := map[string]*model.RawTypeDescriptor{
		"bool": boolDesc("BOOL"),
	}
	reg, err := Build(context.Background(), raw, stubEncoder{}, nil)
	require.NoError(t, err)
	node, ok := reg.Lookup("BOOL")
	require.True(t, ok)
	require.IsType(t, &model.BooleanType{}, node)
	require.Equal(t, 1, reg.Len())
}

func TestBuildDropsPointerAndReferenceEntries(t *testing.T) {
	raw := map[string]*model.RawTypeDescriptor{
		"pointer to int":   {Name: "POINTER TO INT", Kind: model.KindUint32, ByteSize: 4},
		"reference to int": {Name: "REFERENCE TO INT", Kind: model.KindUint32, ByteSize: 4},
		"int":              intDesc("INT"),
	}
	reg, err := Build(context.Background(), raw, stubEncoder{}, nil)
	require.NoError(t, err)
	_, ok := reg.Lookup("POINTER TO INT")
	require.False(t, ok)
	_, ok = reg.Lookup("REFERENCE TO INT")
	require.False(t, ok)
	_, ok = reg.Lookup("INT")
	require.True(t, ok)
	require.Equal(t, 1, reg.Len())
}

func TestBuildExtendsNamedParent(t *testing.T) {
	raw := map[string]*model.RawTypeDescriptor{
		"int": intDesc("INT"),
		"counter": {
			Name: "COUNTER", ParentName: "INT", Kind: model.KindInt16, ByteSize: 2,
		},
	}
	reg, err := Build(context.Background(), raw, stubEncoder{}, nil)
	require.NoError(t, err)
	node, ok := reg.Lookup("COUNTER")
	require.True(t, ok)
	numeric, ok := node.(*model.NumericType)
	require.True(t, ok)
	require.Equal(t, model.KindInt16, numeric.B.AdsKind)
}

func TestBuildBreaksSelfReferentialCycle(t *testing.T) {
	raw := map[string]*model.RawTypeDescriptor{
		"a": {Name: "A", ParentName: "B", Kind: model.KindInt16, ByteSize: 2},
		"b": {Name: "B", ParentName: "A", Kind: model.KindInt16, ByteSize: 2},
	}
	reg, err := Build(context.Background(), raw, stubEncoder{}, nil)
	require.NoError(t, err)
	_, ok := reg.Lookup("A")
	require.False(t, ok)
	_, ok = reg.Lookup("B")
	require.False(t, ok)
}

func TestBuildDropsIgnoredType(t *testing.T) {
	raw := map[string]*model.RawTypeDescriptor{
		"int": {
			Name: "INT", Kind: model.KindInt16, ByteSize: 2,
			Attributes: []model.RawAttribute{{Key: "ignored", Value: "true"}},
		},
	}
	reg, err := Build(context.Background(), raw, stubEncoder{}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, reg.Len())
}

func TestBuildStructDropsIgnoredMemberWithoutGap(t *testing.T) {
	raw := map[string]*model.RawTypeDescriptor{
		"bool": boolDesc("BOOL"),
		"int":  intDesc("INT"),
		"st_mixed": {
			Name: "ST_MIXED", Kind: model.KindStruct, ByteSize: 3,
			Children: []model.RawChild{
				{MemberName: "flag", TypeName: "bool", Offset: 0, Attributes: []model.RawAttribute{{Key: "ignored", Value: "true"}}},
				{MemberName: "count", TypeName: "int", Offset: 1},
			},
		},
	}
	reg, err := Build(context.Background(), raw, stubEncoder{}, nil)
	require.NoError(t, err)
	node, ok := reg.Lookup("ST_MIXED")
	require.True(t, ok)
	st, ok := node.(*model.StructType)
	require.True(t, ok)
	require.Len(t, st.Members, 1)
	require.Equal(t, "count", st.Members[0].Key)
}

func TestBuildStructWithNoResolvableMembersDropped(t *testing.T) {
	raw := map[string]*model.RawTypeDescriptor{
		"st_empty": {
			Name: "ST_EMPTY", Kind: model.KindStruct, ByteSize: 2,
			Children: []model.RawChild{
				{MemberName: "missing", TypeName: "does_not_exist", Offset: 0},
			},
		},
	}
	reg, err := Build(context.Background(), raw, stubEncoder{}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, reg.Len())
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	raw := map[string]*model.RawTypeDescriptor{"bool": boolDesc("BOOL")}
	reg, err := Build(context.Background(), raw, stubEncoder{}, nil)
	require.NoError(t, err)
	_, ok := reg.Lookup("bool")
	require.True(t, ok)
	_, ok = reg.Lookup("Bool")
	require.True(t, ok)
}

func TestHasParent(t *testing.T) {
	require.False(t, hasParent(&model.RawTypeDescriptor{Name: "INT"}))
	require.False(t, hasParent(&model.RawTypeDescriptor{Name: "INT", ParentName: "INT"}))
	require.True(t, hasParent(&model.RawTypeDescriptor{Name: "COUNTER", ParentName: "INT"}))
}
