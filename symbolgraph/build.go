package symbolgraph

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/joshuapare/plcmirror/binding"
	"github.com/joshuapare/plcmirror/internal/events"
	"github.com/joshuapare/plcmirror/pkg/model"
	"github.com/joshuapare/plcmirror/typeregistry"
)

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

// splitPath splits a raw symbol's fullPath on the first '.' into
// (namespace, localName). A path with no '.' belongs entirely to its own
// single-element namespace.
func splitPath(fullPath string) (namespace, localName string) {
	i := strings.IndexByte(fullPath, '.')
	if i < 0 {
		return fullPath, fullPath
	}
	return fullPath[:i], fullPath[i+1:]
}

// job is one raw symbol whose type resolved, queued for concurrent
// clone-and-bind.
type job struct {
	namespace string
	localName string
	raw       *model.RawSymbolDescriptor
	typ       model.TypeNode
}

// outcome is one job's concurrently-produced result.
type outcome struct {
	job
	binding binding.Binding
	err     error
}

// Build constructs the complete symbol graph over rawSymbols, resolving
// each entry's type through registry and binding it to transport. Every
// top-level NamespaceSym's events bubble to root, so a single listener
// there observes the whole graph.
func Build(ctx context.Context, transport model.Transport, registry *typeregistry.Registry, rawSymbols map[string]*model.RawSymbolDescriptor, root *events.Emitter, log *slog.Logger) (map[string]*NamespaceSym, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(nilWriter{}, nil))
	}

	var jobs []job
	for path, raw := range rawSymbols {
		typ, ok := registry.Lookup(raw.TypeName)
		if !ok {
			log.DebugContext(ctx, "symbol type not in registry, skipping", "path", path, "type", raw.TypeName)
			continue
		}
		namespace, localName := splitPath(path)
		jobs = append(jobs, job{namespace: namespace, localName: localName, raw: raw, typ: typ})
	}

	outcomes := make([]outcome, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			outcomes[i] = buildOne(transport, j)
		}(i, j)
	}
	wg.Wait()

	byNamespace := make(map[string][]binding.Child)
	for _, o := range outcomes {
		if o.err != nil {
			return nil, o.err
		}
		if o.binding == nil {
			continue // type clone reported "ignored" — symbol has no binding
		}
		byNamespace[o.namespace] = append(byNamespace[o.namespace], binding.Child{Key: o.localName, Binding: o.binding})
	}

	namespaces := make(map[string]*NamespaceSym, len(byNamespace))
	for name, children := range byNamespace {
		nb, err := binding.NewNamespace(transport, children)
		if err != nil {
			return nil, err
		}
		ns, err := wrapNamespace(transport, nb, name, root)
		if err != nil {
			return nil, err
		}
		namespaces[name] = ns
	}

	if root != nil {
		root.Emit(model.EventCreated, len(namespaces), ctx)
	}
	return namespaces, nil
}

// buildOne performs the pure in-memory portion of one symbol's
// construction: cloning its type and building the Binding tree over it.
// Issues no transport I/O of its own, so it is safe to run concurrently
// with every other job.
func buildOne(transport model.Transport, j job) outcome {
	// The raw symbol catalogue in this data model carries no per-symbol
	// attribute block of its own (model.RawSymbolDescriptor has only
	// FullPath/TypeName/Pointer), so the "clone with the raw symbol as
	// mutator" step degenerates to a plain deep copy: each symbol gets its
	// own TypeNode instance rather than aliasing the registry's.
	cloned, err := j.typ.Clone(transport, nil, false, 0)
	if err != nil {
		return outcome{job: j, err: err}
	}
	if cloned == nil {
		return outcome{job: j} // ignored
	}
	b, err := binding.FromType(transport, cloned, j.raw.Pointer)
	if err != nil {
		return outcome{job: j, err: err}
	}
	return outcome{job: j, binding: b}
}
