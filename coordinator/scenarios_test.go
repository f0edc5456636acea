package coordinator_test

import (
	"context"
	"testing"

	"github.com/joshuapare/plcmirror/coordinator"
	"github.com/joshuapare/plcmirror/internal/fakebus"
	"github.com/joshuapare/plcmirror/pkg/model"
	"github.com/stretchr/testify/require"
)

// TestQuickLookFixtureReadsVerbatim exercises scenario 1: reading MAIN back
// through the coordinator yields exactly the Quick Look fixture values.
func TestQuickLookFixtureReadsVerbatim(t *testing.T) {
	ctx := context.Background()
	c := coordinator.New("demo", fakebus.NewMainProgram())
	require.NoError(t, c.Initialize(ctx))
	defer c.Kill(ctx)

	ns, ok := c.Namespace("MAIN")
	require.True(t, ok)

	boolSym, _ := ns.Child("booleanValue")
	v, err := boolSym.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, true, v)

	numSym, _ := ns.Child("numericValue")
	v, err = numSym.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10), v)

	structSym, _ := ns.Child("structuredValue")
	v, err = structSym.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"realValue": float64(0), "stringValue": "hello world"}, v)

	arrSym, _ := ns.Child("arrayValue")
	v, err = arrSym.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b", "c", "d", "e", "f", "g", "h", "j", ""}, v)
}

// TestStructClearZeroesWritableMembers exercises scenario 2: clearing a
// struct resets every writable member to its default.
func TestStructClearZeroesWritableMembers(t *testing.T) {
	ctx := context.Background()
	c := coordinator.New("demo", fakebus.NewMainProgram())
	require.NoError(t, c.Initialize(ctx))
	defer c.Kill(ctx)

	ns, _ := c.Namespace("MAIN")
	structSym, _ := ns.Child("structuredValue")

	require.NoError(t, structSym.Clear(ctx))

	v, err := structSym.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"realValue": float64(0), "stringValue": ""}, v)
}

// TestNumericSetThenGet exercises scenario 3.
func TestNumericSetThenGet(t *testing.T) {
	ctx := context.Background()
	c := coordinator.New("demo", fakebus.NewMainProgram())
	require.NoError(t, c.Initialize(ctx))
	defer c.Kill(ctx)

	ns, _ := c.Namespace("MAIN")
	numSym, _ := ns.Child("numericValue")

	_, err := numSym.Set(ctx, 5)
	require.NoError(t, err)

	v, err := numSym.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
}

// TestArrayPartialSetLeavesTailUntouched exercises scenario 4: setting the
// first three elements of a ten-element array leaves the remaining
// pre-existing elements alone.
func TestArrayPartialSetLeavesTailUntouched(t *testing.T) {
	ctx := context.Background()
	c := coordinator.New("demo", fakebus.NewMainProgram())
	require.NoError(t, c.Initialize(ctx))
	defer c.Kill(ctx)

	ns, _ := c.Namespace("MAIN")
	arrSym, _ := ns.Child("arrayValue")

	current, err := arrSym.Get(ctx)
	require.NoError(t, err)
	require.Len(t, current.([]any), 10)

	_, err = arrSym.Set(ctx, []any{"1", "2", "3"})
	require.NoError(t, err)

	v, err := arrSym.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{"1", "2", "3", "d", "e", "f", "g", "h", "j", ""}, v)
}

// TestReadOnlyMemberSurvivesClear exercises scenario 5: a struct's
// read-only member is untouched by Clear while its writable sibling is
// zeroed.
func TestReadOnlyMemberSurvivesClear(t *testing.T) {
	ctx := context.Background()
	c := coordinator.New("demo", fakebus.NewMainProgram())
	require.NoError(t, c.Initialize(ctx))
	defer c.Kill(ctx)

	ns, _ := c.Namespace("MAIN")
	roSym, ok := ns.Child("readonlyStruct")
	require.True(t, ok)

	before, err := roSym.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "fixed", before.(map[string]any)["label"])
	require.Equal(t, int64(7), before.(map[string]any)["counter"])

	require.NoError(t, roSym.Clear(ctx))

	after, err := roSym.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "fixed", after.(map[string]any)["label"], "read-only member must survive Clear")
	require.Equal(t, int64(0), after.(map[string]any)["counter"], "writable sibling is zeroed")
}

// TestPointerTypedSymbolAbsentSiblingPresent exercises scenario 6: a symbol
// whose type is POINTER TO INT never makes it into the graph, while its
// plain sibling does.
func TestPointerTypedSymbolAbsentSiblingPresent(t *testing.T) {
	ctx := context.Background()
	c := coordinator.New("demo", fakebus.NewMainProgram())
	require.NoError(t, c.Initialize(ctx))
	defer c.Kill(ctx)

	ns, _ := c.Namespace("MAIN")

	_, ok := ns.Child("ptrValue")
	require.False(t, ok, "a pointer-typed symbol must not appear in the graph")

	sibling, ok := ns.Child("siblingValue")
	require.True(t, ok, "a sibling declared next to an unbindable symbol must still be present")
	v, err := sibling.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), v)
}

// TestSourceChangeInvalidatesHandlesAndRebuilds exercises scenario 7: a
// detected source change invalidates every handed-out handle and emits
// reinitialized, after which fresh handles from the new namespace map work
// normally.
func TestSourceChangeInvalidatesHandlesAndRebuilds(t *testing.T) {
	ctx := context.Background()
	bus := fakebus.NewMainProgram()
	// Prime the source-change path before Initialize so the probe's first
	// subscribe delivery (establishing its baseline) has something to read.
	bus.SetPathValue(coordinator.DefaultSourceChangePath, []byte{0, 0, 0, 0})

	c := coordinator.New("demo", bus)
	require.NoError(t, c.Initialize(ctx))
	defer c.Kill(ctx)

	oldNs, _ := c.Namespace("MAIN")
	oldBool, _ := oldNs.Child("booleanValue")

	var reinitFired bool
	c.On(model.EventReinitialized, func(model.Event) { reinitFired = true })

	bus.SetPathValue(coordinator.DefaultSourceChangePath, []byte{1, 2, 3, 4})

	require.True(t, reinitFired)
	require.False(t, oldNs.Valid())

	_, err := oldBool.Get(ctx)
	require.Error(t, err)
	var perr *model.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, model.ErrInvalidBinding, perr.Kind)

	newNs, ok := c.Namespace("MAIN")
	require.True(t, ok)
	newBool, _ := newNs.Child("booleanValue")
	v, err := newBool.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, true, v)
}
