package binding

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/joshuapare/plcmirror/pkg/model"
	"github.com/stretchr/testify/require"
)

// capCountingTransport wraps memTransport and records the size of every
// ReadRawMulti/WriteRawMulti call it observes, so tests can assert on how a
// composite binding split a payload across transport calls.
type capCountingTransport struct {
	*memTransport
	mu         sync.Mutex
	readSizes  []int
	writeSizes []int
}

func newCapCountingTransport() *capCountingTransport {
	return &capCountingTransport{memTransport: newMemTransport()}
}

func (c *capCountingTransport) ReadRawMulti(ctx context.Context, pointers []model.Pointer) ([]model.RawPointerData, error) {
	c.mu.Lock()
	c.readSizes = append(c.readSizes, len(pointers))
	c.mu.Unlock()
	return c.memTransport.ReadRawMulti(ctx, pointers)
}

func (c *capCountingTransport) WriteRawMulti(ctx context.Context, items []model.RawWriteItem) error {
	c.mu.Lock()
	c.writeSizes = append(c.writeSizes, len(items))
	c.mu.Unlock()
	return c.memTransport.WriteRawMulti(ctx, items)
}

// TestArrayBindingSplitsReadsAndWritesAtRequestCap drives a composite
// binding with more elements than model.RequestCap through Read and Write
// and checks the transport saw ceil(m/RequestCap) calls, each no larger
// than RequestCap.
func TestArrayBindingSplitsReadsAndWritesAtRequestCap(t *testing.T) {
	const count = model.RequestCap*2 + 200 // 1200: three calls of 500, 500, 200
	tr := newCapCountingTransport()

	elems := make([]Child, count)
	values := make([]any, count)
	for i := 0; i < count; i++ {
		elems[i] = Child{
			Key:     fmt.Sprintf("%d", i),
			Binding: NewBoolean(tr, boolType(false), model.Pointer{IndexGroup: 1, IndexOffset: uint32(i), Size: 1}),
		}
		values[i] = i%2 == 0
	}
	at := &model.ArrayType{
		B:          model.Base{Name: "BOOL", ByteSize: count},
		Element:    boolType(false),
		Dimensions: []model.RawArrayDimension{{Length: count}},
	}
	arr := NewArray(tr, at, elems)

	_, err := arr.Write(context.Background(), values)
	require.NoError(t, err)

	expectedCalls := (count + model.RequestCap - 1) / model.RequestCap
	require.Len(t, tr.writeSizes, expectedCalls)
	for _, n := range tr.writeSizes {
		require.LessOrEqual(t, n, model.RequestCap)
	}
	require.Equal(t, count, sum(tr.writeSizes))

	tr.mu.Lock()
	tr.readSizes = nil
	tr.mu.Unlock()

	got, err := arr.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, got.([]any), count)

	require.Len(t, tr.readSizes, expectedCalls)
	for _, n := range tr.readSizes {
		require.LessOrEqual(t, n, model.RequestCap)
	}
	require.Equal(t, count, sum(tr.readSizes))
}

func sum(ns []int) int {
	total := 0
	for _, n := range ns {
		total += n
	}
	return total
}
