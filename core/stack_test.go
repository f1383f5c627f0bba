package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackBasics(t *testing.T) {
	Initialize()

	s := NewStack("teststack", 4)
	require.Zero(t, s.Depth())

	a, b := NewFixnum(1), NewFixnum(2)
	s.Push(a)
	s.Push(b)
	require.Equal(t, 2, s.Depth())
	require.True(t, s.Top() == b)
	require.True(t, s.Ref(0) == a)

	c := NewFixnum(3)
	s.SetTop(c)
	require.True(t, s.Pop() == c)
	require.True(t, s.Pop() == a)
	require.Zero(t, s.Depth())
}

func TestStackOverflowIsFatal(t *testing.T) {
	Initialize()

	s := NewStack("tiny", 2)
	s.Push(Null)
	s.Push(Null)
	fe := catchFatal(t, func() { s.Push(Null) })
	require.Contains(t, fe.Msg, "tiny overflow")
}

func TestStackUnderflowIsFatal(t *testing.T) {
	Initialize()

	s := NewStack("tiny", 2)
	fe := catchFatal(t, func() { s.Pop() })
	require.Contains(t, fe.Msg, "underflow")

	fe = catchFatal(t, func() { s.Top() })
	require.Contains(t, fe.Msg, "underflow")
}

func TestStackFlush(t *testing.T) {
	Initialize()

	s := NewStack("teststack", 8)
	s.Push(NewFixnum(1))
	s.Push(NewFixnum(2))
	s.Flush()
	require.Zero(t, s.Depth())
}

func TestMarkStackKeepsRootsAlive(t *testing.T) {
	Initialize()

	// ArgStack's marker is registered by Initialize
	for i := 0; i < 100; i++ {
		ArgStack.Push(NewCons(NewFixnum(int64(i)), Null))
	}

	GC(false)
	require.Equal(t, TotalNodeCount-3-200, FreeNodeCount)
	require.EqualValues(t, 99, FixnumValue(Car(ArgStack.Top())))

	ArgStack.Flush()
	GC(false)
	require.Equal(t, TotalNodeCount-3, FreeNodeCount)
}

func TestArgumentFrame(t *testing.T) {
	Initialize()

	ArgStack.Push(NewFixnum(1))
	ArgStack.Push(NewFixnum(2))
	ArgStack.Push(NewFixnum(3))
	require.Equal(t, 3, ArgStack.Argc())
	require.Equal(t, 0, ArgStack.FirstArgIndex())

	it := ArgStack.Args()
	var got []int64
	for it.More() {
		got = append(got, FixnumValue(it.Next()))
	}
	require.Equal(t, []int64{1, 2, 3}, got)

	// a second iterator rewinds to the frame's first argument
	it = ArgStack.Args()
	require.EqualValues(t, 1, FixnumValue(it.Next()))

	ArgStack.PopArgs()
	require.Zero(t, ArgStack.Argc())
	require.Zero(t, ArgStack.Depth())
}

func TestArgumentFrameSaveRestore(t *testing.T) {
	Initialize()

	ArgStack.Push(NewFixnum(1))
	ArgStack.Push(NewFixnum(2))

	// a nested application saves the enclosing count and builds its own
	// frame on top
	saved := ArgStack.Argc()
	ArgStack.SetArgc(0)
	ArgStack.Push(NewFixnum(10))
	require.Equal(t, 1, ArgStack.Argc())
	require.Equal(t, 2, ArgStack.FirstArgIndex())
	it0 := ArgStack.Args()
	require.EqualValues(t, 10, FixnumValue(it0.Next()))

	ArgStack.PopArgs()
	ArgStack.SetArgc(saved)
	require.Equal(t, 2, ArgStack.Argc())

	it := ArgStack.Args()
	require.EqualValues(t, 1, FixnumValue(it.Next()))
	require.EqualValues(t, 2, FixnumValue(it.Last()))
	ArgStack.PopArgs()
}

func TestArgIteratorExhaustionIsSevere(t *testing.T) {
	Initialize()

	ArgStack.Push(NewFixnum(1))
	it := ArgStack.Args()
	it.Next()

	se := catchSevere(t, func() { it.Next() })
	require.Contains(t, se.Msg, "too few")

	ArgStack.Push(NewFixnum(2))
	it2 := ArgStack.Args()
	se = catchSevere(t, func() { it2.Last() })
	require.Contains(t, se.Msg, "too many")
	ArgStack.PopArgs()
}

func TestRegStackGuardsConstruction(t *testing.T) {
	Initialize()

	RegStack.Push(NewCons(Null, Null))
	GC(false)
	kept := RegStack.Pop()
	require.True(t, Consp(kept))
}
