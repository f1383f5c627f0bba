package core

// Garbage collection consists of mark and sweep phases. The mark phase
// marks all nodes reachable from the execution environment; the sweep phase
// collects unmarked nodes onto the free list. When a collection runs in
// copy mode, marking additionally relocates live nursery payloads into the
// inactive half, or tenures them onto the heap once they have survived
// enough collections.

// Marker is a root-scan callback contributed by a collaborator. It must
// call Mark on every root the collaborator owns.
type Marker func()

var markers []Marker

// RegisterMarker appends a marker callback. Registration is append-only and
// must be completed before the registering collaborator's first allocation;
// at collection time callbacks fire in registration order.
func RegisterMarker(marker Marker) {
	markers = append(markers, marker)
}

// suspensions suppresses collection entirely while positive; see SuspendGC.
var suspensions int

// SuspendGC disables collection until the returned release function is
// called. Code that builds multi-node structures holds a suspension open so
// a collection never observes a partially initialised graph:
//
//	defer SuspendGC()()
func SuspendGC() func() {
	suspensions++
	return func() { suspensions-- }
}

// nursery state

var newspace = newNewSpace("ns", varpoolStartSize)

var (
	nsCopy            = false
	NewSpaceSwapCount int
)

// NewSpaceSize is the cell capacity of the nursery's active half.
func NewSpaceSize() int { return newspace.getsize() }

// NewSpaceIndex is the high-watermark of the active half since the last
// swap.
func NewSpaceIndex() int { return newspace.getindex() }

// ReclamationCounts tallies nodes reclaimed per kind during the last sweep.
var ReclamationCounts [NumKinds]uint32

func nsCopyFrame(n *Node) Frame {
	return Frame(newspace.copyToInactive(n.frame))
}

func tenureFrame(n *Node) Frame {
	// clone the old frame
	return frameStore.clone(n.envframe())
}

func nsCopyVector(n *Node) []cell {
	return newspace.copyToInactive(n.cells)
}

func tenureVector(n *Node) []cell {
	v := make([]cell, len(n.cells))
	copy(v, n.cells)
	return v
}

func badnode(n *Node) {
	fatalf("bad node (%p,%d) during gc", n, n.kind)
}

// Mark marks n and everything reachable from it. The graph may be freely
// cyclic; the mark bit guarantees each node is visited at most once.
func Mark(n *Node) {
	if n == nil {
		fatalf("marking nil node; abandoning gc")
	}

	if Nullp(n) || markedp(n) {
		return
	}

	switch n.kind {
	case KindCons:
		setmark(n)
		Mark(n.car())
		Mark(n.cdr())

	case KindPromise:
		setmark(n)
		Mark(n.prexp())
		Mark(n.prval())

	case KindCode:
		setmark(n)
		Mark(n.codebcodes())
		Mark(n.codesexprs())

	case KindEnvironment:
		setmark(n)
		// frame
		if varpoolFrame && nsCopy {
			n.incrementAge()
			if n.age() < tenureAge {
				n.frame = nsCopyFrame(n)
			} else if n.age() == tenureAge {
				n.frame = tenureFrame(n)
			}
		}
		frame := n.envframe()
		Mark(frame.Vars())
		Mark(frame.Closure())
		nslots := frame.Nslots()
		for i := uint32(0); i < nslots; i++ {
			Mark(frame.slot(i))
		}
		// benv
		Mark(n.envbase())

	case KindStringPort:
		setmark(n)
		Mark(n.spstring())

	case KindContinuation:
		setmark(n)
		Mark(n.contstate())

	case KindVector:
		setmark(n)
		if varpoolVector && nsCopy {
			n.incrementAge()
			if n.age() < tenureAge {
				n.cells = nsCopyVector(n)
			} else if n.age() == tenureAge {
				n.cells = tenureVector(n)
			}
		}
		length := n.vlen()
		for i := uint32(0); i < length; i++ {
			Mark(n.vref(i))
		}

	case KindSymbol:
		setmark(n)
		Mark(n.sympair())

	case KindClosure:
		setmark(n)
		Mark(n.clcode())
		Mark(n.clbenv())
		Mark(n.clvars())

	case KindGref:
		setmark(n)
		Mark(n.grefsym())

	case KindFixnum, KindFlonum, KindString, KindPort, KindChar,
		KindByteVector, KindFunc, KindFref:
		setmark(n)

	case KindEval, KindApply, KindCallCC, KindMap, KindForEach, KindForce:
		setmark(n)

	case KindNull:
		// null is not allocated from node space

	default:
		badnode(n)
	}
}

// MarkStack marks every node on an externally owned node-reference stack.
func MarkStack(stack *Stack) {
	depth := stack.Depth()
	for i := 0; i < depth; i++ {
		Mark(stack.Ref(i))
	}
}

func sweep() {
	freeNodeList = Null
	FreeNodeCount = 0

	if gcStatisticsDetailed {
		for i := range ReclamationCounts {
			ReclamationCounts[i] = 0
		}
	}

	for _, block := range blocks {
		for i := range block.nodes {
			p := &block.nodes[i]

			if markedp(p) {
				resetmark(p)
				continue
			}

			// reclaim the node
			switch p.kind {
			case KindSymbol:
				p.buf = nil

			case KindClosure:
				p.cells = nil

			case KindString:
				p.buf = nil

			case KindVector:
				if !varpoolVector || p.age() >= tenureAge {
					p.cells = nil
				}
				// nursery-resident data is recycled wholesale at swap

			case KindByteVector:
				p.buf = nil

			case KindPort:
				if p.file != nil {
					p.file.Close()
				}

			case KindEnvironment:
				if !varpoolFrame || p.age() >= tenureAge {
					frameStore.free(p.envframe())
				}
			}

			FreeNodeCount++
			if gcStatisticsDetailed {
				ReclamationCounts[p.kind]++
			}

			// minimal reinitialization
			*p = Node{kind: KindFree, next: freeNodeList}
			freeNodeList = p
		}
	}
}

// GC runs a full collection. With copy set, live nursery payloads are
// relocated into the inactive half (or tenured) during the mark phase and
// the halves swap after the sweep. A collection requested while a
// suspension is open is a no-op.
func GC(copy bool) {
	if suspensions > 0 {
		return
	}

	CollectionCount++

	nsCopy = copy

	if nsCopy {
		newspace.prep()
	}

	// mark memory managed roots
	Mark(StringNull)
	Mark(VectorNull)
	Mark(ListTail)
	Mark(ListHead)

	// notify all clients to mark their active roots
	for _, marker := range markers {
		marker()
	}

	// collect the unused nodes
	sweep()

	if nsCopy {
		NewSpaceSwapCount++
		newspace.swap()
		nsCopy = false
	}
}
