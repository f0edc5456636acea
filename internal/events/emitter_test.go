package events

import (
	"testing"

	"github.com/joshuapare/plcmirror/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitBubblesToRoot(t *testing.T) {
	root := New(nil, nil)
	child := New(nil, root)
	leaf := New(nil, child)

	var seenAtRoot []string
	root.On(model.EventChanged, func(ev model.Event) {
		seenAtRoot = append(seenAtRoot, ev.Payload.(string))
	})

	leaf.Emit(model.EventChanged, "leaf-value", nil)

	require.Len(t, seenAtRoot, 1)
	assert.Equal(t, "leaf-value", seenAtRoot[0])
}

func TestStopHaltsPropagation(t *testing.T) {
	root := New(nil, nil)
	child := New(nil, root)

	rootFired := false
	root.On(model.EventSet, func(ev model.Event) { rootFired = true })
	child.On(model.EventSet, func(ev model.Event) { ev.Stop() })

	child.Emit(model.EventSet, nil, nil)

	assert.False(t, rootFired, "root must not observe an event whose propagation was stopped")
}

func TestOnceFiresAtMostOnce(t *testing.T) {
	e := New(nil, nil)
	count := 0
	e.Once(model.EventGet, func(ev model.Event) { count++ })

	e.Emit(model.EventGet, nil, nil)
	e.Emit(model.EventGet, nil, nil)

	assert.Equal(t, 1, count)
}

func TestOffRemovesListener(t *testing.T) {
	e := New(nil, nil)
	count := 0
	listener := func(ev model.Event) { count++ }
	e.On(model.EventCleared, listener)
	e.Emit(model.EventCleared, nil, nil)
	e.Off(model.EventCleared, listener)
	e.Emit(model.EventCleared, nil, nil)

	assert.Equal(t, 1, count)
}

func TestRootSeesExactlyOneEmission(t *testing.T) {
	root := New(nil, nil)
	a := New(nil, root)
	b := New(nil, a)
	c := New(nil, b)

	n := 0
	root.On(model.EventChanged, func(ev model.Event) { n++ })

	c.Emit(model.EventChanged, 1, nil)
	a.Emit(model.EventChanged, 2, nil)

	assert.Equal(t, 2, n)
}
