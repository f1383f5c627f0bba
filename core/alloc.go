package core

import "os"

// Public allocation functions. Each constructor allocates a node (and any
// payload buffers), initialises every field and returns the node. A
// constructor that needs more than one node keeps the intermediates rooted
// on the register stack so the collection a later newnode may trigger can
// never reap a half-built structure.

var frameStore FrameStore

// NewFixnum allocates a fixnum node.
func NewFixnum(fixnum int64) *Node {
	n := newnode(KindFixnum)
	n.fix = fixnum
	return n
}

// NewFlonum allocates a flonum node.
func NewFlonum(flonum float64) *Node {
	n := newnode(KindFlonum)
	n.flo = flonum
	return n
}

// NewChar allocates a character node.
func NewChar(ch byte) *Node {
	n := newnode(KindChar)
	n.fix = int64(ch)
	return n
}

// NewSymbol allocates a symbol. The value/plist cons is built first and
// parked on the register stack, then the symbol node is allocated and the
// pair popped into it; this ordering is load-bearing.
func NewSymbol(s string) *Node {
	RegStack.Push(NewCons(Null, Null))
	n := newnode(KindSymbol)
	n.buf = []byte(s)
	n.a = RegStack.Pop()
	return n
}

// NewString allocates a string of the given length with empty contents.
// The data buffer carries a trailing NUL byte.
func NewString(length uint32) *Node {
	n := newnode(KindString)
	n.length = length
	n.index = 0
	n.buf = make([]byte, length+1)
	return n
}

// NewStringOf allocates a string holding s. The empty string is the
// string_null singleton.
func NewStringOf(s string) *Node {
	if len(s) == 0 {
		return StringNull
	}
	n := NewString(uint32(len(s)))
	copy(n.buf, s)
	return n
}

// NewCons allocates a pair.
func NewCons(car, cdr *Node) *Node {
	n := newnode(KindCons)
	n.a = car
	n.b = cdr
	return n
}

// NewVector allocates a vector with every slot null. The data lives in the
// nursery when vectors participate in it.
func NewVector(length uint32) *Node {
	n := newnode(KindVector)
	n.length = length
	if varpoolVector {
		n.cells = newspace.alloc(int(length))
	} else {
		n.cells = make([]cell, length)
	}
	for i := uint32(0); i < length; i++ {
		n.cells[i].ref = Null
	}
	return n
}

// NewByteVector allocates a byte vector of zeroes.
func NewByteVector(length uint32) *Node {
	n := newnode(KindByteVector)
	n.length = length
	n.buf = make([]byte, length)
	return n
}

// NewContinuation allocates a continuation with null state.
func NewContinuation() *Node {
	n := newnode(KindContinuation)
	n.a = Null
	return n
}

// NewPrim allocates a primitive of the given kind (KindFunc or one of the
// special kinds).
func NewPrim(fn Function, kind NodeKind) *Node {
	n := newnode(kind)
	n.fn = fn
	return n
}

// NewPort allocates a file port. The file is closed when the port is swept.
func NewPort(file *os.File, mode byte) *Node {
	n := newnode(KindPort)
	n.file = file
	n.mode = mode
	return n
}

// NewStringPort allocates a string port over a private copy of src's
// contents, with the cursor at zero.
func NewStringPort(src *Node, mode byte) *Node {
	Guard(src, Stringp)
	str := NewString(src.strlen())
	copy(str.buf, src.buf)
	RegStack.Push(str)
	n := newnode(KindStringPort)
	n.mode = mode
	n.index = 0
	n.a = RegStack.Pop()
	return n
}

// NewEmptyStringPort allocates a string port over a fresh empty string.
func NewEmptyStringPort(mode byte) *Node {
	RegStack.Push(NewString(0))
	n := newnode(KindStringPort)
	n.mode = mode
	n.index = 0
	n.a = RegStack.Pop()
	return n
}

// NewClosure allocates a closure over code and env, with vars null and the
// arity bytes zero.
func NewClosure(code, env *Node) *Node {
	n := newnode(KindClosure)
	n.cells = make([]cell, 3)
	n.cells[0].ref = code
	n.cells[1].ref = env
	n.cells[2].ref = Null
	return n
}

// NewEnvironment allocates an environment with a fresh frame of nvars
// slots, all null. The frame lives in the nursery when frames participate
// in it, otherwise it comes from the frame store.
func NewEnvironment(nvars uint32, vars, env *Node) *Node {
	n := newnode(KindEnvironment)
	var frame Frame
	if varpoolFrame {
		frame = Frame(newspace.alloc(frameNcells(nvars)))
		frame.setSize(uint32(frameNcells(nvars)))
		frame.setNslots(nvars)
		frame.SetClosure(Null)
		for i := uint32(0); i < nvars; i++ {
			frame.setslot(i, Null)
		}
	} else {
		frame = frameStore.alloc(nvars)
	}
	frame.SetVars(vars)

	n.b = env
	n.frame = frame
	return n
}

// NewPromise allocates a promise with null value.
func NewPromise(exp *Node) *Node {
	n := newnode(KindPromise)
	n.a = exp
	n.b = Null
	return n
}

// NewCode allocates a code node over a byte-code vector and a literal
// vector.
func NewCode(bcodes, sexprs *Node) *Node {
	n := newnode(KindCode)
	n.a = bcodes
	n.b = sexprs
	return n
}

// NewGref allocates a global symbol reference.
func NewGref(symbol *Node) *Node {
	n := newnode(KindGref)
	n.a = symbol
	return n
}

// NewFref allocates a lexical address.
func NewFref(depth, index uint32) *Node {
	n := newnode(KindFref)
	n.length = depth
	n.index = index
	return n
}

// ResizeString grows a string's buffer by delta bytes, preserving its
// contents.
func ResizeString(str *Node, delta uint32) {
	Guard(str, Stringp)

	oldLength := str.strlen()
	newLength := oldLength + delta

	if newLength > MaxStringSize {
		severe("string length exceeds maximum size", NewFixnum(int64(newLength)))
	}

	data := make([]byte, newLength+1)
	copy(data, str.buf)

	str.length = newLength
	str.buf = data
}

// Initialize creates the node pool and the memory managed roots:
//
//	()  -- null
//	""  -- null string
//	#() -- null vector
//
// The null object is not allocated from node space. Initialize may be
// called again to reset the whole subsystem.
func Initialize() {
	blocks = nil
	freeNodeList = Null
	TotalNodeCount = 0
	FreeNodeCount = 0
	CollectionCount = 0
	NewSpaceSwapCount = 0
	suspensions = 0
	nsCopy = false
	markers = nil
	frameStore = FrameStore{}
	newspace = newNewSpace("ns", varpoolStartSize)
	ReclamationCounts = [NumKinds]uint32{}
	RegStack.Flush()
	ArgStack.Flush()

	newNodeBlock()
	StringNull = NewString(0)
	VectorNull = NewVector(0)
	ListTail = Null
	ListHead = NewCons(Null, Null)

	RegisterMarker(func() {
		MarkStack(RegStack)
		MarkStack(&ArgStack.Stack)
	})
}
