package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	Initialize()

	t.Run("fixnum", func(t *testing.T) {
		n := NewFixnum(-7)
		require.Equal(t, KindFixnum, n.Kind())
		require.EqualValues(t, -7, FixnumValue(n))
	})

	t.Run("flonum", func(t *testing.T) {
		n := NewFlonum(2.5)
		require.Equal(t, KindFlonum, n.Kind())
		require.EqualValues(t, 2.5, FlonumValue(n))
	})

	t.Run("char", func(t *testing.T) {
		n := NewChar('q')
		require.Equal(t, KindChar, n.Kind())
		require.EqualValues(t, 'q', CharValue(n))
	})

	t.Run("string", func(t *testing.T) {
		n := NewString(4)
		require.EqualValues(t, 4, StringLength(n))
		require.Len(t, StringData(n), 5)
		require.EqualValues(t, 0, StringData(n)[0])
		require.EqualValues(t, 0, StringIndex(n))
	})

	t.Run("cons", func(t *testing.T) {
		car, cdr := NewFixnum(1), NewFixnum(2)
		n := NewCons(car, cdr)
		require.True(t, Car(n) == car)
		require.True(t, Cdr(n) == cdr)
	})

	t.Run("vector", func(t *testing.T) {
		n := NewVector(6)
		require.EqualValues(t, 6, VectorLength(n))
		for i := uint32(0); i < 6; i++ {
			require.True(t, Nullp(VRef(n, i)))
		}
	})

	t.Run("byte vector", func(t *testing.T) {
		n := NewByteVector(6)
		require.EqualValues(t, 6, BvecLength(n))
		for i := uint32(0); i < 6; i++ {
			require.EqualValues(t, 0, BvecRef(n, i))
		}
	})

	t.Run("symbol", func(t *testing.T) {
		n := NewSymbol("alpha")
		require.Equal(t, "alpha", Name(n))
		require.True(t, Consp(n.sympair()))
		require.True(t, Nullp(Value(n)))
		require.True(t, Nullp(Plist(n)))
	})

	t.Run("continuation", func(t *testing.T) {
		n := NewContinuation()
		require.True(t, Contp(n))
		require.True(t, Nullp(ContState(n)))
	})

	t.Run("closure", func(t *testing.T) {
		code, env := NewFixnum(0), NewEnvironment(0, Null, Null)
		n := NewClosure(code, env)
		require.True(t, ClosureCode(n) == code)
		require.True(t, ClosureBenv(n) == env)
		require.True(t, Nullp(ClosureVars(n)))
		require.Zero(t, ClosureNumv(n))
		require.Zero(t, ClosureRargs(n))

		SetClosureNumv(n, 3)
		SetClosureRargs(n, 1)
		require.EqualValues(t, 3, ClosureNumv(n))
		require.EqualValues(t, 1, ClosureRargs(n))
	})

	t.Run("environment", func(t *testing.T) {
		vars := NewCons(Null, Null)
		base := NewEnvironment(0, Null, Null)
		n := NewEnvironment(3, vars, base)
		frame := EnvFrame(n)
		require.EqualValues(t, 3, frame.Nslots())
		require.True(t, frame.Vars() == vars)
		require.True(t, Nullp(frame.Closure()))
		require.True(t, EnvBase(n) == base)
		for i := uint32(0); i < 3; i++ {
			require.True(t, Nullp(FRef(frame, i)))
		}
	})

	t.Run("promise", func(t *testing.T) {
		exp := NewFixnum(1)
		n := NewPromise(exp)
		require.True(t, PromiseExp(n) == exp)
		require.True(t, Nullp(PromiseVal(n)))
	})

	t.Run("code", func(t *testing.T) {
		b, s := NewByteVector(2), NewVector(2)
		n := NewCode(b, s)
		require.True(t, CodeBcodes(n) == b)
		require.True(t, CodeSexprs(n) == s)
	})

	t.Run("gref", func(t *testing.T) {
		sym := NewSymbol("g")
		n := NewGref(sym)
		require.True(t, GrefSymbol(n) == sym)
	})

	t.Run("fref", func(t *testing.T) {
		n := NewFref(2, 5)
		require.EqualValues(t, 2, FrefDepth(n))
		require.EqualValues(t, 5, FrefIndex(n))
	})
}

func TestStringPortCopiesSource(t *testing.T) {
	Initialize()

	src := NewStringOf("scheme")
	sp := NewStringPort(src, PortInput)

	require.True(t, InStringPortp(sp))
	require.EqualValues(t, 0, StringPortIndex(sp))

	backing := StringPortString(sp)
	require.False(t, backing == src)
	require.Equal(t, "scheme", StringValue(backing))

	// mutating the source leaves the port alone
	StringData(src)[0] = 'X'
	require.Equal(t, "scheme", StringValue(backing))

	SetStringPortIndex(sp, 3)
	require.EqualValues(t, 3, StringPortIndex(sp))
}

func TestEmptyStringPort(t *testing.T) {
	Initialize()

	sp := NewEmptyStringPort(PortOutput)
	require.True(t, OutStringPortp(sp))
	backing := StringPortString(sp)
	require.False(t, backing == StringNull)
	require.EqualValues(t, 0, StringLength(backing))
}

func TestStringPortRejectsNonString(t *testing.T) {
	Initialize()

	se := catchSevere(t, func() { NewStringPort(NewFixnum(1), PortInput) })
	require.Contains(t, se.Msg, "string")
}

func TestResizeString(t *testing.T) {
	Initialize()

	s := NewStringOf("abc")
	ResizeString(s, 4)
	require.EqualValues(t, 7, StringLength(s))
	require.Len(t, StringData(s), 8)
	require.Equal(t, "abc", string(StringData(s)[:3]))
	require.EqualValues(t, 0, StringData(s)[7])
}

func TestResizeStringOverflowIsSevere(t *testing.T) {
	Initialize()

	s := NewStringOf("x")
	se := catchSevere(t, func() { ResizeString(s, MaxStringSize) })
	require.Contains(t, se.Msg, "maximum size")
	require.True(t, Fixnump(se.Node))
}

func TestSymbolConstructionIsRooted(t *testing.T) {
	Initialize()

	// drain the pool so the symbol's node allocation lands exactly on a
	// collection; the value/plist pair must survive it
	var syms []*Node
	RegisterMarker(func() {
		for _, s := range syms {
			Mark(s)
		}
	})

	for i := 0; i < 2*NodeBlockSize; i++ {
		syms = append(syms, NewSymbol("s"))
	}
	for _, s := range syms {
		require.True(t, Consp(s.sympair()))
		require.True(t, Nullp(Value(s)))
	}
}
