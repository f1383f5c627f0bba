package core

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConsChainSurvivesGC(t *testing.T) {
	Initialize()

	var root *Node
	RegisterMarker(func() { Mark(root) })

	const pairs = 10000
	root = Null
	for i := 0; i < pairs; i++ {
		// keep the fixnum rooted across the cons allocation; building
		// this chain exhausts the first block and collects mid-loop
		RegStack.Push(NewFixnum(int64(i)))
		root = NewCons(RegStack.Top(), root)
		RegStack.Pop()
	}
	// the fixnums were consumed into the chain; only the pairs and their
	// cars are live
	GC(false)
	require.Equal(t, TotalNodeCount-3-2*pairs, FreeNodeCount)
	require.EqualValues(t, pairs, ListLength(root))

	root = Null
	GC(false)
	require.Equal(t, TotalNodeCount-3, FreeNodeCount)
}

func TestSymbolValueSurvivesCollections(t *testing.T) {
	Initialize()

	var sym *Node
	RegisterMarker(func() { Mark(sym) })

	sym = NewSymbol("x")
	Set(sym, NewFixnum(42))

	GC(false)
	GC(true)
	GC(false)

	require.EqualValues(t, 42, FixnumValue(Value(sym)))
	require.Equal(t, "x", Name(sym))
}

func TestSymbolValueDoesNotDisturbPlist(t *testing.T) {
	Initialize()

	var sym *Node
	RegisterMarker(func() { Mark(sym) })

	sym = NewSymbol("p")
	SetPlist(sym, NewCons(NewFixnum(1), Null))
	Set(sym, NewFixnum(2))

	GC(false)
	require.EqualValues(t, 2, FixnumValue(Value(sym)))
	require.EqualValues(t, 1, ListLength(Plist(sym)))
}

func TestMarkIsIdempotent(t *testing.T) {
	Initialize()

	n := NewCons(NewFixnum(1), NewFixnum(2))
	Mark(n)
	require.True(t, markedp(n))
	require.True(t, markedp(n.car()))
	require.True(t, markedp(n.cdr()))

	Mark(n)
	require.True(t, markedp(n))

	// sweep twice: the first pass clears the stray marks, the second
	// reclaims the garbage
	GC(false)
	GC(false)
	require.Equal(t, TotalNodeCount-3, FreeNodeCount)
}

func TestNoMarksSurviveCollection(t *testing.T) {
	Initialize()

	var root *Node
	RegisterMarker(func() { Mark(root) })
	root = NewVector(10)
	for i := uint32(0); i < 10; i++ {
		VSet(root, i, NewFixnum(int64(i)))
	}

	GC(false)
	for _, block := range blocks {
		for i := range block.nodes {
			require.False(t, markedp(&block.nodes[i]))
		}
	}
}

func TestSuspendedGCIsNoop(t *testing.T) {
	Initialize()

	release := SuspendGC()
	before := CollectionCount
	GC(false)
	GC(true)
	require.Equal(t, before, CollectionCount)
	release()

	GC(false)
	require.Equal(t, before+1, CollectionCount)
}

func TestNestedSuspensions(t *testing.T) {
	Initialize()

	release1 := SuspendGC()
	release2 := SuspendGC()
	release1()

	before := CollectionCount
	GC(false)
	require.Equal(t, before, CollectionCount)

	release2()
	GC(false)
	require.Equal(t, before+1, CollectionCount)
}

func TestMarkersFireInRegistrationOrder(t *testing.T) {
	Initialize()

	var order []int
	RegisterMarker(func() { order = append(order, 1) })
	RegisterMarker(func() { order = append(order, 2) })
	RegisterMarker(func() { order = append(order, 3) })

	GC(false)
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestMarkFreeNodeIsFatal(t *testing.T) {
	Initialize()

	free := freeNodeList
	fe := catchFatal(t, func() { Mark(free) })
	require.Contains(t, fe.Msg, "bad node")
}

func TestMarkNilIsFatal(t *testing.T) {
	Initialize()

	fe := catchFatal(t, func() { Mark(nil) })
	require.Contains(t, fe.Msg, "nil")
}

func TestReclamationCounts(t *testing.T) {
	Initialize()

	for i := 0; i < 5; i++ {
		NewStringOf("doomed")
		NewCons(Null, Null)
	}
	NewByteVector(8)

	GC(false)
	require.EqualValues(t, 5, ReclamationCounts[KindString])
	require.EqualValues(t, 1, ReclamationCounts[KindByteVector])
	require.GreaterOrEqual(t, ReclamationCounts[KindCons], uint32(5))
}

func TestSweepClosesDeadPorts(t *testing.T) {
	Initialize()

	f, err := os.CreateTemp(t.TempDir(), "port")
	require.NoError(t, err)

	NewPort(f, PortInput|PortOutput)
	GC(false)

	// the sweep closed the file; a second close reports an error
	require.Error(t, f.Close())
}
