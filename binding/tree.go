package binding

import (
	"fmt"
	"strconv"

	"github.com/joshuapare/plcmirror/pkg/model"
)

// FromType recursively builds the Binding tree backing one resolved
// TypeNode anchored at ptr, computing each descendant's absolute address
// from its own Base().Offset (struct members) or flat storage index (array
// elements).
func FromType(transport model.Transport, typ model.TypeNode, ptr model.Pointer) (Binding, error) {
	switch t := typ.(type) {
	case *model.BooleanType:
		return NewBoolean(transport, t, ptr), nil
	case *model.NumericType:
		return NewNumeric(transport, t, ptr), nil
	case *model.StringType:
		return NewString(transport, t, ptr), nil
	case *model.EnumType:
		return NewEnum(transport, t, ptr), nil
	case *model.StructType:
		return fromStruct(transport, t, ptr)
	case *model.ArrayType:
		return fromArray(transport, t, ptr)
	default:
		return nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("binding: unsupported type node %T", typ), nil)
	}
}

func fromStruct(transport model.Transport, t *model.StructType, ptr model.Pointer) (Binding, error) {
	children := make([]Child, 0, len(t.Members))
	for _, m := range t.Members {
		memberBase := m.Type.Base()
		memberPtr := model.Pointer{
			IndexGroup:  ptr.IndexGroup,
			IndexOffset: ptr.IndexOffset + memberBase.Offset,
			Size:        memberBase.ByteSize,
		}
		child, err := FromType(transport, m.Type, memberPtr)
		if err != nil {
			return nil, err
		}
		children = append(children, Child{Key: m.Key, Binding: child})
	}
	return NewStruct(transport, t, children), nil
}

// fromArray builds nested ArrayBindings, one level per declared dimension.
// A level at depth d < N-1 is a proxy with one child per index of its
// dimension, each child an array binding for the next dimension spanning
// size/length bytes of the parent range; the
// innermost level's children are element bindings spaced by the element's
// byte size.
func fromArray(transport model.Transport, t *model.ArrayType, ptr model.Pointer) (Binding, error) {
	return arrayLevel(transport, t, t.Dimensions, ptr)
}

func arrayLevel(transport model.Transport, t *model.ArrayType, dims []model.RawArrayDimension, ptr model.Pointer) (Binding, error) {
	length := dims[0].Length
	if len(dims) == 1 {
		elemSize := t.Element.Base().ByteSize
		children := make([]Child, length)
		for i := 0; i < length; i++ {
			elemPtr := model.Pointer{
				IndexGroup:  ptr.IndexGroup,
				IndexOffset: ptr.IndexOffset + uint32(i*elemSize),
				Size:        elemSize,
			}
			child, err := FromType(transport, t.Element, elemPtr)
			if err != nil {
				return nil, err
			}
			children[i] = Child{Key: strconv.Itoa(i), Binding: child}
		}
		return NewArray(transport, t, children), nil
	}

	span := ptr.Size / length
	children := make([]Child, length)
	for i := 0; i < length; i++ {
		childPtr := model.Pointer{
			IndexGroup:  ptr.IndexGroup,
			IndexOffset: ptr.IndexOffset + uint32(i*span),
			Size:        span,
		}
		child, err := arrayLevel(transport, t, dims[1:], childPtr)
		if err != nil {
			return nil, err
		}
		children[i] = Child{Key: strconv.Itoa(i), Binding: child}
	}
	return NewArray(transport, t, children), nil
}
