package core

// Frame is the out-of-line record backing an Environment: a run of cells
// with a fixed header followed by the value slots. Frames are not nodes
// because the slot array is variable-length. Layout, in cells:
//
//	[0] size    total record size in cells
//	[1] nslots  number of value slots
//	[2] vars    list of formal names, or null
//	[3] closure owning closure, or null
//	[4:]        slots
//
// A live frame is owned by exactly one Environment node; a nursery-resident
// frame is owned by its half and recycled wholesale at swap.
type Frame []cell

const frameHeaderCells = 4

func frameNcells(nslots uint32) int { return frameHeaderCells + int(nslots) }

func (fr Frame) size() uint32       { return fr[0].n }
func (fr Frame) setSize(x uint32)   { fr[0].n = x }
func (fr Frame) setNslots(x uint32) { fr[1].n = x }

// Nslots is the number of value slots.
func (fr Frame) Nslots() uint32 { return fr[1].n }

// Vars is the list of formal names, or null.
func (fr Frame) Vars() *Node        { return fr[2].ref }
func (fr Frame) SetVars(x *Node)    { fr[2].ref = x }
func (fr Frame) Closure() *Node     { return fr[3].ref }
func (fr Frame) SetClosure(x *Node) { fr[3].ref = x }

func (fr Frame) slot(i uint32) *Node       { return fr[frameHeaderCells+int(i)].ref }
func (fr Frame) setslot(i uint32, x *Node) { fr[frameHeaderCells+int(i)].ref = x }

// FrameStore recycles heap-owned frames on per-size free lists. Activation
// frames dominate allocation in a call-heavy interpreter; reusing them by
// slot count keeps call/return from churning the heap. Frames too large
// for the bucket table fall through to ordinary allocation.
type FrameStore struct {
	store [frameStoreBuckets][]Frame
	count [frameStoreBuckets]int
}

func (fs *FrameStore) alloc(nslots uint32) Frame {
	// allocate a frame with all slots defined
	//    nslots = nslots
	//    vars = null
	//    closure = null
	//    slots = {null}
	//    size = header + slots
	var frame Frame

	if nslots < frameStoreBuckets && len(fs.store[nslots]) > 0 {
		// reuse an existing frame
		bucket := fs.store[nslots]
		frame = bucket[len(bucket)-1]
		fs.store[nslots] = bucket[:len(bucket)-1]
		fs.count[nslots]--

		if frame.Nslots() != nslots {
			fatalf("recycled frame size inconsistent with request")
		}
	} else {
		frame = make(Frame, frameNcells(nslots))
		frame.setSize(uint32(frameNcells(nslots)))
		frame.setNslots(nslots)
	}

	frame.SetVars(Null)
	frame.SetClosure(Null)

	for i := uint32(0); i < nslots; i++ {
		frame.setslot(i, Null)
	}

	return frame
}

// clone copies src into a recycled or fresh heap frame; used when tenuring
// a nursery-resident frame.
func (fs *FrameStore) clone(src Frame) Frame {
	var frame Frame
	nslots := src.Nslots()

	if nslots < frameStoreBuckets && len(fs.store[nslots]) > 0 {
		bucket := fs.store[nslots]
		frame = bucket[len(bucket)-1]
		fs.store[nslots] = bucket[:len(bucket)-1]
		fs.count[nslots]--

		if frame.Nslots() != nslots {
			fatalf("recycled frame size inconsistent with request")
		}
	} else {
		frame = make(Frame, src.size())
	}

	copy(frame, src[:src.size()])
	return frame
}

func (fs *FrameStore) free(frame Frame) {
	// some frames might be nil
	if frame == nil {
		return
	}

	nslots := frame.Nslots()
	if nslots < frameStoreBuckets {
		fs.store[nslots] = append(fs.store[nslots], frame)
		fs.count[nslots]++
	}
	// larger frames are left to the host allocator
}
