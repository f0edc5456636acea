package symbolgraph

import (
	"fmt"
	"strconv"

	"github.com/joshuapare/plcmirror/binding"
	"github.com/joshuapare/plcmirror/internal/events"
	"github.com/joshuapare/plcmirror/pkg/model"
)

// wrap recursively builds the SymbolNode tree mirroring an already-built
// Binding tree, assigning each node's path and chaining its emitter to
// parent.
func wrap(transport model.Transport, b binding.Binding, path string, parent *events.Emitter) (model.SymbolNode, error) {
	switch bt := b.(type) {
	case *binding.BooleanBinding:
		s := &BooleanSym{}
		s.base = newBase(b, path, parent, s)
		return s, nil
	case *binding.NumericBinding:
		s := &NumericSym{}
		s.base = newBase(b, path, parent, s)
		return s, nil
	case *binding.StringBinding:
		s := &StringSym{}
		s.base = newBase(b, path, parent, s)
		return s, nil
	case *binding.EnumBinding:
		s := &EnumSym{}
		s.base = newBase(b, path, parent, s)
		return s, nil
	case *binding.StructBinding:
		return wrapStruct(transport, bt, path, parent)
	case *binding.ArrayBinding:
		arr, ok := b.TypeNode().(*model.ArrayType)
		if !ok {
			return nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("array binding carries non-array type node %T", b.TypeNode()), nil)
		}
		return wrapArray(transport, bt, arr.Dimensions, path, parent)
	case *binding.NamespaceBinding:
		return wrapNamespace(transport, bt, path, parent)
	default:
		return nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("symbolgraph: unsupported binding %T", b), nil)
	}
}

func wrapStruct(transport model.Transport, sb *binding.StructBinding, path string, parent *events.Emitter) (*StructSym, error) {
	s := &StructSym{}
	s.base = newBase(sb, path, parent, s)

	order := sb.Order()
	children := make(map[string]model.SymbolNode, len(order))
	for _, key := range order {
		childBinding, ok := sb.Child(key)
		if !ok {
			continue
		}
		childSym, err := wrap(transport, childBinding, path+"."+key, s.emitter)
		if err != nil {
			return nil, err
		}
		children[key] = childSym
	}
	s.order = order
	s.children = children

	structType, ok := sb.TypeNode().(*model.StructType)
	if ok {
		s.attachMethods(transport, structType.RPCMethods)
	}
	return s, nil
}

// wrapArray builds one ArraySym level. dims[0] is this level's own
// dimension; len(dims) > 1 means every child is itself a nested proxy
// ArrayBinding representing dims[1:].
func wrapArray(transport model.Transport, ab *binding.ArrayBinding, dims []model.RawArrayDimension, path string, parent *events.Emitter) (*ArraySym, error) {
	s := &ArraySym{dim: dims[0]}
	s.base = newBase(ab, path, parent, s)

	order := ab.Order()
	children := make(map[string]model.SymbolNode, len(order))
	for _, key := range order {
		childBinding, ok := ab.Child(key)
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("array child key %q is not numeric", key), nil)
		}
		childPath := fmt.Sprintf("%s[%d]", path, dims[0].StartIndex+idx)

		var childSym model.SymbolNode
		if len(dims) > 1 {
			nestedArray, ok := childBinding.(*binding.ArrayBinding)
			if !ok {
				return nil, model.NewError(model.ErrInvalidType, fmt.Sprintf("array proxy expected nested ArrayBinding, got %T", childBinding), nil)
			}
			childSym, err = wrapArray(transport, nestedArray, dims[1:], childPath, s.emitter)
		} else {
			childSym, err = wrap(transport, childBinding, childPath, s.emitter)
		}
		if err != nil {
			return nil, err
		}
		children[key] = childSym
	}
	s.order = order
	s.children = children
	return s, nil
}

func wrapNamespace(transport model.Transport, nb *binding.NamespaceBinding, path string, parent *events.Emitter) (*NamespaceSym, error) {
	s := &NamespaceSym{}
	s.base = newBase(nb, path, parent, s)

	order := nb.Order()
	children := make(map[string]model.SymbolNode, len(order))
	for _, key := range order {
		childBinding, ok := nb.Child(key)
		if !ok {
			continue
		}
		childSym, err := wrap(transport, childBinding, path+"."+key, s.emitter)
		if err != nil {
			return nil, err
		}
		children[key] = childSym
	}
	s.order = order
	s.children = children
	return s, nil
}
