// Package core implements the memory manager of the escheme interpreter:
// a pool of uniformly sized tagged nodes, a two-space nursery for
// variable-size payloads, a size-bucketed frame recycler and a cooperative
// mark-and-sweep collector.
//
// Marking is a cooperative process. Marking clients register callbacks that
// are invoked during the marking phase of garbage collection. The success of
// a collection depends entirely upon the dutiful marking of client
// structures by the client: failure to mark an essential object will lead
// to disaster.
package core

import (
	"fmt"
	"os"
)

// configuration constants
const (
	NodeBlockSize = 5000
	ArgStackSize  = 500
	RegStackSize  = 1000
	MaxStringSize = 0xFFFFFFFE

	varpoolStartSize  = 8192 // cells per nursery half
	frameStoreBuckets = 64

	tenureAge = 5   // nursery age at which a payload moves to the heap
	maxAge    = 127 // age saturation cap

	// payload kinds participating in the nursery protocol
	varpoolFrame  = true
	varpoolVector = true

	gcStatisticsDetailed = true
	checkedAccess        = false
)

// NodeKind is the type tag of a Node.
type NodeKind byte

const (
	KindFree NodeKind = iota
	KindNull
	KindSymbol
	KindFixnum
	KindFlonum
	KindChar
	KindString
	KindCons
	KindVector
	KindByteVector
	KindEnvironment
	KindPromise
	KindClosure
	KindContinuation
	KindPort
	KindStringPort
	KindFunc
	KindEval
	KindApply
	KindCallCC
	KindMap
	KindForEach
	KindForce
	KindCode
	KindGref
	KindFref
	NumKinds // keep me last
)

var kindNames = [NumKinds]string{
	"free", "null", "symbol", "fixnum", "flonum", "char", "string", "cons",
	"vector", "byte-vector", "environment", "promise", "closure",
	"continuation", "port", "stringport", "func", "eval", "apply", "call/cc",
	"map", "foreach", "force", "code", "gref", "fref",
}

func (k NodeKind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("<kind %d>", byte(k))
}

// port mode bits
const (
	PortNone   byte = 0x00
	PortInput  byte = 0x01
	PortOutput byte = 0x02
)

// Function is the signature of a primitive. Primitives take their arguments
// from the argument stack and leave the result in the caller's hands.
type Function func() *Node

// cell is the unit of the variable-size pools: a frame or vector payload is
// a run of cells. A cell carries either a node reference or a raw count
// (frame header words use the count).
type cell struct {
	ref *Node
	n   uint32
}

// Node is the fixed-size tagged heap cell, the unit of mark and sweep.
//
// The forematter bytes:
//
//	kind   type tag
//	mark   used by the collector; zero between collections
//	Form   used by eval for fast dispatch
//	Recu   used by the printer to guard against recursive printing
//	aux1   closure numv, or the nursery age of the payload
//	aux2   closure rest-args flag
//
// The payload fields below the forematter play the role of the C union:
// which of them are live is determined by kind alone.
type Node struct {
	kind NodeKind
	mark byte
	Form byte
	Recu byte
	aux1 byte
	aux2 byte

	next *Node // free-list link, valid only while kind == KindFree

	a *Node // car, exp, bcodes, state, pair, symbol-ref, backing string
	b *Node // cdr, val, sexprs, baseenv

	fix int64   // fixnum and char
	flo float64 // flonum

	length uint32 // string/bvec/vector length, fref depth
	index  uint32 // string working index, string-port cursor, fref index

	buf   []byte // string data, byte-vector data, symbol name
	cells []cell // vector data (may alias the nursery), closure triple
	frame Frame  // environment frame

	file     *os.File
	mode     byte
	fn       Function
	primName string
}

// Kind returns the node's type tag.
func (n *Node) Kind() NodeKind { return n.kind }

// ID is the node's identity, used in diagnostics.
func (n *Node) ID() string { return fmt.Sprintf("%p", n) }

// String renders a one-line description of the node for diagnostics.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if Nullp(n) {
		return "nil"
	}
	if n.kind == KindSymbol {
		return fmt.Sprintf("%s(%p) [%s]", n.kind, n, string(n.buf))
	}
	return fmt.Sprintf("%s(%p)", n.kind, n)
}

// Null is the null singleton. It is never allocated from node space;
// null tests are pointer identity against it.
var Null = &Node{kind: KindNull}

// the memory managed roots, created by Initialize
var (
	StringNull *Node // ""
	VectorNull *Node // #()
	ListHead   *Node
	ListTail   *Node
)

func markedp(n *Node) bool { return n.mark != 0 }
func setmark(n *Node)      { n.mark = 1 }
func resetmark(n *Node)    { n.mark = 0 }

func (n *Node) age() byte { return n.aux1 }

func (n *Node) incrementAge() {
	if n.aux1 < maxAge {
		n.aux1++
	}
}

// typecheck backs the checked-access build: the raw mutators setcar and
// setcdr and the vector accessors vref and vset verify the node kind before
// touching the payload, and a mismatch is unrecoverable. The other raw
// accessors do not check.
func typecheck(n *Node, p Predicate) {
	if !p(n) {
		fatalf("type check failed--expected %s", predicateName(p))
	}
}

// raw accessors; the guarded layer in accessors.go wraps these

// cons
func (n *Node) car() *Node { return n.a }
func (n *Node) cdr() *Node { return n.b }
func (n *Node) setcar(x *Node) {
	if checkedAccess {
		typecheck(n, Consp)
	}
	n.a = x
}
func (n *Node) setcdr(x *Node) {
	if checkedAccess {
		typecheck(n, Consp)
	}
	n.b = x
}

// vector
func (n *Node) vlen() uint32 { return n.length }
func (n *Node) vref(i uint32) *Node {
	if checkedAccess {
		typecheck(n, Vectorp)
	}
	return n.cells[i].ref
}
func (n *Node) vset(i uint32, x *Node) {
	if checkedAccess {
		typecheck(n, Vectorp)
	}
	n.cells[i].ref = x
}

// string
func (n *Node) strdata() []byte  { return n.buf }
func (n *Node) strlen() uint32   { return n.length }
func (n *Node) strindex() uint32 { return n.index }

// symbol; value and plist live in a dedicated cons so that value
// assignment does not disturb the plist
func (n *Node) symname() []byte { return n.buf }
func (n *Node) sympair() *Node  { return n.a }
func (n *Node) symvalue() *Node { return n.a.a }
func (n *Node) symplist() *Node { return n.a.b }

// closure; the triple lives in a 3-cell auxiliary buffer
func (n *Node) clcode() *Node { return n.cells[0].ref }
func (n *Node) clbenv() *Node { return n.cells[1].ref }
func (n *Node) clvars() *Node { return n.cells[2].ref }

// environment
func (n *Node) envframe() Frame { return n.frame }
func (n *Node) envbase() *Node  { return n.b }

// byte vector
func (n *Node) bveclen() uint32  { return n.length }
func (n *Node) bvecdata() []byte { return n.buf }

// promise
func (n *Node) prexp() *Node { return n.a }
func (n *Node) prval() *Node { return n.b }

// code
func (n *Node) codebcodes() *Node { return n.a }
func (n *Node) codesexprs() *Node { return n.b }

// continuation
func (n *Node) contstate() *Node { return n.a }

// gref / fref
func (n *Node) grefsym() *Node    { return n.a }
func (n *Node) frefdepth() uint32 { return n.length }
func (n *Node) frefindex() uint32 { return n.index }

// string port
func (n *Node) spstring() *Node { return n.a }
