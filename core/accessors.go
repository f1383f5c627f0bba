package core

import "os"

// Guarded accessors. Each verifies the node's kind through the predicate
// table and raises a severe typed error naming the expected kind on a
// mismatch. Code inside this package that has already established the kind
// uses the raw layer, the unexported node methods in node.go.

// Car returns the car of a pair, or null for null.
func Car(n *Node) *Node {
	if Anyp(n) {
		return Guard(n, Consp).car()
	}
	return Null
}

// Cdr returns the cdr of a pair, or null for null.
func Cdr(n *Node) *Node {
	if Anyp(n) {
		return Guard(n, Consp).cdr()
	}
	return Null
}

// Rplaca replaces the car of a pair.
func Rplaca(n, car *Node) { Guard(n, Consp).setcar(car) }

// Rplacd replaces the cdr of a pair.
func Rplacd(n, cdr *Node) { Guard(n, Consp).setcdr(cdr) }

// NthCar returns the n-th element of a list, zero based.
func NthCar(list *Node, n uint32) *Node {
	s := list
	for i := int(n); i > 0 && Consp(s); s = s.cdr() {
		i--
	}
	return Car(s)
}

// NthCdr returns the n-th tail of a list, zero based.
func NthCdr(list *Node, n uint32) *Node {
	s := list
	for i := int(n); i > 0 && Consp(s); s = s.cdr() {
		i--
	}
	return Cdr(s)
}

// ListLength walks cons cells until reaching a non-cons and returns the
// count. It does not detect cycles.
func ListLength(x *Node) uint32 {
	var length uint32

	// while a pair
	for s := x; Consp(s); s = s.cdr() {
		length++
	}

	return length
}

// numbers

func FixnumValue(n *Node) int64   { return Guard(n, Fixnump).fix }
func FlonumValue(n *Node) float64 { return Guard(n, Flonump).flo }
func CharValue(n *Node) byte      { return byte(Guard(n, Charp).fix) }

// strings

// StringData exposes the string's byte buffer, including the trailing NUL.
func StringData(n *Node) []byte { return Guard(n, Stringp).strdata() }

func StringLength(n *Node) uint32 { return Guard(n, Stringp).strlen() }

// StringIndex is the string's working cursor, manipulated by callers.
func StringIndex(n *Node) uint32 { return Guard(n, Stringp).strindex() }

func SetStringIndex(n *Node, i uint32) { Guard(n, Stringp).index = i }

// StringValue returns the string contents up to its recorded length.
func StringValue(n *Node) string {
	s := Guard(n, Stringp)
	return string(s.buf[:s.length])
}

// symbols

// Name returns the symbol's print name.
func Name(n *Node) string { return string(Guard(n, Symbolp).symname()) }

// Value returns the symbol's global value.
func Value(n *Node) *Node { return Guard(n, Symbolp).symvalue() }

// Set assigns the symbol's global value and returns the symbol.
func Set(n, value *Node) *Node {
	Guard(n, Symbolp).a.a = value
	return n
}

// Plist returns the symbol's property list.
func Plist(n *Node) *Node { return Guard(n, Symbolp).symplist() }

// SetPlist assigns the symbol's property list.
func SetPlist(n, plist *Node) { Guard(n, Symbolp).a.b = plist }

// vectors

func VectorLength(n *Node) uint32 { return Guard(n, Vectorp).vlen() }

func VRef(v *Node, index uint32) *Node {
	Guard(v, Vectorp)
	if index >= v.vlen() {
		severe("vref range error", v)
	}
	return v.vref(index)
}

func VSet(v *Node, index uint32, value *Node) {
	Guard(v, Vectorp)
	if index >= v.vlen() {
		severe("vset range error", v)
	}
	v.vset(index, value)
}

// byte vectors

func BvecLength(n *Node) uint32 { return Guard(n, Bvecp).bveclen() }

func BvecRef(n *Node, index uint32) byte {
	Guard(n, Bvecp)
	if index >= n.bveclen() {
		severe("bvec-ref range error", n)
	}
	return n.buf[index]
}

func BvecSet(n *Node, index uint32, value byte) {
	Guard(n, Bvecp)
	if index >= n.bveclen() {
		severe("bvec-set range error", n)
	}
	n.buf[index] = value
}

// frames

// FRef reads a frame slot.
func FRef(frame Frame, index uint32) *Node {
	if frame == nil {
		severe("fref on null frame", Null)
	}
	if index >= frame.Nslots() {
		severe("fref range error", Null)
	}
	return frame.slot(index)
}

// FSet writes a frame slot.
func FSet(frame Frame, index uint32, value *Node) {
	if frame == nil {
		severe("fset on null frame", Null)
	}
	if index >= frame.Nslots() {
		severe("fset range error", Null)
	}
	frame.setslot(index, value)
}

// environments

func EnvFrame(n *Node) Frame { return Guard(n, Envp).envframe() }
func EnvBase(n *Node) *Node  { return Guard(n, Envp).envbase() }

// closures

func ClosureCode(n *Node) *Node { return Guard(n, Closurep).clcode() }
func ClosureBenv(n *Node) *Node { return Guard(n, Closurep).clbenv() }
func ClosureVars(n *Node) *Node { return Guard(n, Closurep).clvars() }

func SetClosureVars(n, vars *Node) { Guard(n, Closurep).cells[2].ref = vars }

// ClosureNumv is the closure's formal parameter count.
func ClosureNumv(n *Node) byte          { return Guard(n, Closurep).aux1 }
func SetClosureNumv(n *Node, numv byte) { Guard(n, Closurep).aux1 = numv }

// ClosureRargs is the closure's rest-args flag.
func ClosureRargs(n *Node) byte           { return Guard(n, Closurep).aux2 }
func SetClosureRargs(n *Node, rargs byte) { Guard(n, Closurep).aux2 = rargs }

// promises

func PromiseExp(n *Node) *Node { return Guard(n, Promisep).prexp() }
func PromiseVal(n *Node) *Node { return Guard(n, Promisep).prval() }

func SetPromiseExp(n, exp *Node) { Guard(n, Promisep).a = exp }
func SetPromiseVal(n, val *Node) { Guard(n, Promisep).b = val }

// code

func CodeBcodes(n *Node) *Node { return Guard(n, Codep).codebcodes() }
func CodeSexprs(n *Node) *Node { return Guard(n, Codep).codesexprs() }

// continuations

func ContState(n *Node) *Node     { return Guard(n, Contp).contstate() }
func SetContState(n, state *Node) { Guard(n, Contp).a = state }

// ports

func PortFile(n *Node) *os.File { return Guard(n, Portp).file }
func PortMode(n *Node) byte     { return Guard(n, AnyPortp).mode }

// StringPortString returns the port's backing string node.
func StringPortString(n *Node) *Node { return Guard(n, StringPortp).spstring() }

func StringPortIndex(n *Node) uint32       { return Guard(n, StringPortp).index }
func SetStringPortIndex(n *Node, i uint32) { Guard(n, StringPortp).index = i }

// primitives

func PrimFunc(n *Node) Function { return Guard(n, Primp).fn }

func PrimName(n *Node) string          { return Guard(n, Primp).primName }
func SetPrimName(n *Node, name string) { Guard(n, Primp).primName = name }

// gref / fref

func GrefSymbol(n *Node) *Node { return Guard(n, Grefp).grefsym() }

func FrefDepth(n *Node) uint32 { return Guard(n, Frefp).frefdepth() }
func FrefIndex(n *Node) uint32 { return Guard(n, Frefp).frefindex() }
