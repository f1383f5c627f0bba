package core

// Node space is managed in a pool of node blocks. All heap-visible values
// are allocated from this uniform pool; blocks are never returned to the
// host.

var (
	TotalNodeCount  int
	FreeNodeCount   int
	CollectionCount int
)

// freeNodeList threads all free nodes through their link payload,
// terminated by the null singleton.
var freeNodeList = Null

type nodeBlock struct {
	nodes [NodeBlockSize]Node
}

var blocks []*nodeBlock

// newNodeBlock allocates a new node block and populates the free list.
func newNodeBlock() {
	block := &nodeBlock{}
	blocks = append(blocks, block)

	TotalNodeCount += NodeBlockSize
	FreeNodeCount += NodeBlockSize

	for i := range block.nodes {
		p := &block.nodes[i]
		*p = Node{kind: KindFree, next: freeNodeList}
		freeNodeList = p
	}
}

// newnode unlinks a free node and tags it. All header bytes other than the
// kind are already zero: sweep resets them when it reclaims. When the free
// list is exhausted a collection runs first; if it recovers less than a
// fifth of a block, a new block is linked rather than waiting for the pool
// to run completely dry again.
func newnode(kind NodeKind) *Node {
	if Nullp(freeNodeList) {
		GC(copyPolicy())

		if FreeNodeCount < NodeBlockSize/5 {
			newNodeBlock()
		}
	}

	FreeNodeCount--

	n := freeNodeList
	freeNodeList = n.next
	n.next = nil
	n.kind = kind

	return n
}

// copyPolicy decides whether a collection triggered by pool exhaustion also
// copies the nursery: copy once the active half passes its watermark.
func copyPolicy() bool {
	return 2*newspace.getindex() >= newspace.getsize()
}
