package core

import "reflect"

// Predicate reports whether a node has a particular shape.
type Predicate func(*Node) bool

// Nullp is true only for the null singleton.
func Nullp(n *Node) bool { return n == Null }

// Anyp is the complement of Nullp.
func Anyp(n *Node) bool { return n != Null }

func Symbolp(n *Node) bool { return n.kind == KindSymbol }
func Fixnump(n *Node) bool { return n.kind == KindFixnum }
func Flonump(n *Node) bool { return n.kind == KindFlonum }
func Numberp(n *Node) bool { return n.kind == KindFixnum || n.kind == KindFlonum }
func Stringp(n *Node) bool { return n.kind == KindString }
func Charp(n *Node) bool   { return n.kind == KindChar }
func Vectorp(n *Node) bool { return n.kind == KindVector }
func Consp(n *Node) bool   { return n.kind == KindCons }
func Funcp(n *Node) bool   { return n.kind == KindFunc }
func Portp(n *Node) bool   { return n.kind == KindPort }

func StringPortp(n *Node) bool { return n.kind == KindStringPort }
func AnyPortp(n *Node) bool    { return Portp(n) || StringPortp(n) }

func Closurep(n *Node) bool { return n.kind == KindClosure }

func Specialp(n *Node) bool {
	switch n.kind {
	case KindEval, KindApply, KindCallCC, KindMap, KindForEach, KindForce:
		return true
	}
	return false
}

func Primp(n *Node) bool { return Funcp(n) || Specialp(n) }

func Contp(n *Node) bool    { return n.kind == KindContinuation }
func Envp(n *Node) bool     { return n.kind == KindEnvironment }
func Bvecp(n *Node) bool    { return n.kind == KindByteVector }
func Listp(n *Node) bool    { return Nullp(n) || n.kind == KindCons }
func Atomp(n *Node) bool    { return Nullp(n) || n.kind != KindCons }
func Promisep(n *Node) bool { return n.kind == KindPromise }
func Codep(n *Node) bool    { return n.kind == KindCode }
func Grefp(n *Node) bool    { return n.kind == KindGref }
func Frefp(n *Node) bool    { return n.kind == KindFref }

func InPortp(n *Node) bool  { return Portp(n) && n.mode&PortInput != 0 }
func OutPortp(n *Node) bool { return Portp(n) && n.mode&PortOutput != 0 }

func InStringPortp(n *Node) bool  { return StringPortp(n) && n.mode&PortInput != 0 }
func OutStringPortp(n *Node) bool { return StringPortp(n) && n.mode&PortOutput != 0 }

func AnyInPortp(n *Node) bool  { return InPortp(n) || InStringPortp(n) }
func AnyOutPortp(n *Node) bool { return OutPortp(n) || OutStringPortp(n) }

// Lastp is true for the last pair of a proper list.
func Lastp(n *Node) bool { return Nullp(Cdr(n)) }

type predMap struct {
	pred Predicate
	name string
}

var predicateMap []predMap

func init() {
	predicateMap = []predMap{
		{Symbolp, "symbol"},
		{Fixnump, "fixnum"},
		{Flonump, "flonum"},
		{Numberp, "number"},
		{Stringp, "string"},
		{Charp, "char"},
		{Vectorp, "vector"},
		{Consp, "pair"},
		{Funcp, "func"},
		{Portp, "port"},
		{StringPortp, "string port"},
		{Closurep, "closure"},
		{Specialp, "special"},
		{Contp, "continuation"},
		{Envp, "environment"},
		{Bvecp, "byte vector"},
		{Listp, "list"},
		{Atomp, "atom"},
		{InPortp, "input port"},
		{OutPortp, "output port"},
		{InStringPortp, "input string port"},
		{OutStringPortp, "output string port"},
		{AnyInPortp, "any input port"},
		{AnyOutPortp, "any output port"},
		{Lastp, "last argument"},
		{Promisep, "promise"},
		{AnyPortp, "port or stringport"},
		{Primp, "func or special"},
		{Grefp, "global symbol reference"},
		{Frefp, "frame symbol reference"},
	}
}

// predicateName maps a predicate back to its human readable name for error
// messages. Go functions are not comparable, so the lookup goes through the
// code pointer.
func predicateName(p Predicate) string {
	pp := reflect.ValueOf(p).Pointer()
	for _, x := range predicateMap {
		if reflect.ValueOf(x.pred).Pointer() == pp {
			return x.name
		}
	}
	return "<unknown>"
}

// Guard returns n if the predicate holds and raises a severe typed error
// naming the expected kind otherwise.
func Guard(n *Node, predicate Predicate) *Node {
	if !predicate(n) {
		severe("argument wrong type--expected "+predicateName(predicate), n)
	}
	return n
}
