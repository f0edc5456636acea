package typeregistry

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joshuapare/plcmirror/pkg/model"
)

// Registry is the canonical, read-only-after-build mapping of original type
// name to TypeNode. It is safe for concurrent reads once Build returns.
type Registry struct {
	byName map[string]model.TypeNode // lower-cased original name -> resolved node
}

// Lookup returns the canonical TypeNode for name (case-insensitive), or
// (nil, false) if the type was unresolvable or never existed.
func (r *Registry) Lookup(name string) (model.TypeNode, bool) {
	n, ok := r.byName[strings.ToLower(name)]
	return n, ok
}

// Len reports the number of bindable types in the registry.
func (r *Registry) Len() int { return len(r.byName) }

const pointerPrefix = "pointer to "
const referencePrefix = "reference to "

// Build resolves raw — the controller's flat catalogue keyed by lowercased
// type name — into a Registry. raw is consumed destructively: unresolvable
// entries are deleted from it during the walk.
func Build(ctx context.Context, raw map[string]*model.RawTypeDescriptor, enc model.Encoder, log *slog.Logger) (*Registry, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(nilWriter{}, nil))
	}
	res := &resolver{
		raw:        raw,
		resolved:   make(map[string]model.TypeNode),
		inProgress: make(map[string]bool),
		enc:        enc,
		log:        log,
	}
	byName := make(map[string]model.TypeNode)
	// Snapshot the catalogue keys up front: resolve() mutates raw as it
	// walks, and an extended node's Base.Name is its *parent's* name (the
	// wire-format name passed to the encoder), not the subtype's own
	// declared name — so the registry key must come from the catalogue
	// entry being resolved, captured before it can be deleted out from
	// under us.
	keys := make([]string, 0, len(raw))
	names := make(map[string]string, len(raw))
	for key, desc := range raw {
		keys = append(keys, key)
		names[key] = desc.Name
	}
	for _, key := range keys {
		node, err := res.resolve(key)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		byName[strings.ToLower(names[key])] = node
	}
	return &Registry{byName: byName}, nil
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

// resolver holds the working state of one Build call.
type resolver struct {
	raw        map[string]*model.RawTypeDescriptor
	resolved   map[string]model.TypeNode
	inProgress map[string]bool
	enc        model.Encoder
	log        *slog.Logger
}

// resolve turns one catalogue entry into a TypeNode: memoize, break cycles,
// strip pointer/reference wrappers, extend a named parent if one exists, and
// otherwise build the node directly from its own descriptor. A nil, nil
// return means "this name is not bindable" — not an error.
func (r *resolver) resolve(name string) (model.TypeNode, error) {
	key := strings.ToLower(name)

	// 1. Memoized?
	if node, ok := r.resolved[key]; ok {
		return node, nil
	}

	// Cycle guard: a name already on the in-flight resolution chain cannot
	// be resolved from within itself.
	if r.inProgress[key] {
		return nil, nil
	}

	// 2. Pointer/reference filter.
	lowerName := strings.ToLower(name)
	if strings.HasPrefix(lowerName, pointerPrefix) || strings.HasPrefix(lowerName, referencePrefix) {
		delete(r.raw, key)
		return nil, nil
	}

	// 3. Absent from catalogue.
	desc, ok := r.raw[key]
	if !ok {
		return nil, nil
	}

	r.inProgress[key] = true
	defer delete(r.inProgress, key)

	// 4. Parent extension.
	if hasParent(desc) {
		parentKey := strings.ToLower(desc.ParentName)
		if parentDesc, ok := r.raw[parentKey]; ok && parentDesc.Kind == desc.Kind {
			parent, err := r.resolve(desc.ParentName)
			if err != nil {
				return nil, err
			}
			if parent == nil {
				delete(r.raw, key)
				return nil, nil
			}
			extended, err := model.Extend(parent, r.enc, desc)
			if err != nil {
				return nil, err
			}
			if extended == nil {
				delete(r.raw, key)
				return nil, nil
			}
			return r.finish(key, extended)
		}
	}

	// 5. Classify by wire kind and construct.
	var fresh model.TypeNode
	var err error
	switch {
	case desc.Kind == model.KindBool:
		fresh = model.NewBoolean(desc)
	case desc.Kind.IsNumeric():
		if len(desc.EnumFields) > 0 {
			fresh, err = model.Extend(model.NewNumeric(desc), r.enc, desc)
		} else {
			fresh = model.NewNumeric(desc)
		}
	case desc.Kind.IsString():
		fresh = model.NewString(desc)
	case desc.Kind.IsComposite():
		if len(desc.Children) == 0 {
			return nil, nil
		}
		members, merr := r.resolveChildren(desc)
		if merr != nil {
			return nil, merr
		}
		if len(members) == 0 {
			return nil, nil
		}
		fresh = model.NewStruct(desc, members)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Apply the type's own attribute block (readonly/ignored/default/...)
	// now that classification is done.
	applied, err := fresh.Clone(r.enc, desc, true, desc.Offset)
	if err != nil {
		return nil, err
	}
	if applied == nil {
		// 6. Ignored per attributes.
		delete(r.raw, key)
		r.log.Debug("type dropped: ignored", "type", desc.Name)
		return nil, nil
	}
	return r.finish(key, applied)
}

func (r *resolver) finish(key string, node model.TypeNode) (model.TypeNode, error) {
	r.resolved[key] = node
	return node, nil
}

// hasParent reports whether desc extends a distinct named parent type,
// rather than describing itself directly.
func hasParent(desc *model.RawTypeDescriptor) bool {
	return desc.ParentName != "" && !strings.EqualFold(desc.ParentName, desc.Name)
}

// resolveChildren resolves each declared child, applying its own attribute
// block + offset as a mutator on the resolved member type, dropping any
// child that resolves to nothing (ignored or otherwise unbindable) without
// leaving a gap in the ordered member list.
func (r *resolver) resolveChildren(desc *model.RawTypeDescriptor) ([]model.StructMember, error) {
	members := make([]model.StructMember, 0, len(desc.Children))
	for _, child := range desc.Children {
		base, err := r.resolve(child.TypeName)
		if err != nil {
			return nil, err
		}
		if base == nil {
			continue
		}
		mutator := &model.RawTypeDescriptor{Attributes: child.Attributes}
		cloned, err := base.Clone(r.enc, mutator, true, child.Offset)
		if err != nil {
			return nil, err
		}
		if cloned == nil {
			r.log.Debug("struct member dropped: ignored", "struct", desc.Name, "member", child.MemberName)
			continue
		}
		members = append(members, model.StructMember{Key: child.MemberName, Type: cloned})
	}
	return members, nil
}
