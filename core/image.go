package core

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/xerrors"
)

// Heap images. An image is a snapshot of the graph reachable from a root
// node: a node table with references encoded as table indices, digested
// with blake2b-160 so a damaged image is rejected before any node is
// rebuilt. Kinds whose payload is host state (open files, function
// pointers) do not serialize.

var (
	// ErrUnserializable marks a graph that reaches a port or primitive.
	ErrUnserializable = xerrors.New("node kind cannot be serialized")
	// ErrImageFormat marks a malformed image stream.
	ErrImageFormat = xerrors.New("bad image format")
	// ErrImageChecksum marks an image whose digest does not match.
	ErrImageChecksum = xerrors.New("image checksum mismatch")
)

const (
	imageMagic   = "ESCI"
	imageVersion = 1
	imageHashLen = 20
)

// reference encoding: 0 is null, k+1 is the node at table index k
const nullRef = 0

type imageEncoder struct {
	index map[*Node]uint32
	order []*Node
}

// collect walks the graph and assigns a table index to every reachable
// node, rejecting kinds that cannot serialize.
func (enc *imageEncoder) collect(root *Node) error {
	work := []*Node{root}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]

		if Nullp(n) {
			continue
		}
		if _, ok := enc.index[n]; ok {
			continue
		}

		switch n.kind {
		case KindPort, KindFunc, KindEval, KindApply, KindCallCC,
			KindMap, KindForEach, KindForce:
			return xerrors.Errorf("image: %s: %w", n.kind, ErrUnserializable)
		case KindFree, KindNull:
			return xerrors.Errorf("image: %s in live graph: %w", n.kind, ErrImageFormat)
		}

		enc.index[n] = uint32(len(enc.order))
		enc.order = append(enc.order, n)
		work = append(work, children(n)...)
	}
	return nil
}

// children mirrors the mark phase's dispatch.
func children(n *Node) []*Node {
	switch n.kind {
	case KindCons:
		return []*Node{n.car(), n.cdr()}
	case KindPromise:
		return []*Node{n.prexp(), n.prval()}
	case KindCode:
		return []*Node{n.codebcodes(), n.codesexprs()}
	case KindContinuation:
		return []*Node{n.contstate()}
	case KindSymbol:
		return []*Node{n.sympair()}
	case KindStringPort:
		return []*Node{n.spstring()}
	case KindGref:
		return []*Node{n.grefsym()}
	case KindClosure:
		return []*Node{n.clcode(), n.clbenv(), n.clvars()}
	case KindVector:
		out := make([]*Node, 0, n.vlen())
		for i := uint32(0); i < n.vlen(); i++ {
			out = append(out, n.vref(i))
		}
		return out
	case KindEnvironment:
		frame := n.envframe()
		out := []*Node{frame.Vars(), frame.Closure()}
		for i := uint32(0); i < frame.Nslots(); i++ {
			out = append(out, frame.slot(i))
		}
		return append(out, n.envbase())
	}
	return nil
}

func (enc *imageEncoder) ref(n *Node) uint32 {
	if Nullp(n) {
		return nullRef
	}
	return enc.index[n] + 1
}

func putByte(buf *bytes.Buffer, b byte) { buf.WriteByte(b) }

func putUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func putUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func putBytes32(buf *bytes.Buffer, data []byte) {
	putUint32(buf, uint32(len(data)))
	buf.Write(data)
}

func (enc *imageEncoder) encodeNode(buf *bytes.Buffer, n *Node) {
	putByte(buf, byte(n.kind))
	putByte(buf, n.Form)
	putByte(buf, n.Recu)
	putByte(buf, n.aux1)
	putByte(buf, n.aux2)

	switch n.kind {
	case KindSymbol:
		putBytes32(buf, n.symname())
		putUint32(buf, enc.ref(n.sympair()))
	case KindFixnum:
		putUint64(buf, uint64(n.fix))
	case KindFlonum:
		putUint64(buf, math.Float64bits(n.flo))
	case KindChar:
		putByte(buf, byte(n.fix))
	case KindString:
		putUint32(buf, n.index)
		putBytes32(buf, n.buf[:n.length])
	case KindCons:
		putUint32(buf, enc.ref(n.car()))
		putUint32(buf, enc.ref(n.cdr()))
	case KindVector:
		putUint32(buf, n.vlen())
		for i := uint32(0); i < n.vlen(); i++ {
			putUint32(buf, enc.ref(n.vref(i)))
		}
	case KindByteVector:
		putBytes32(buf, n.bvecdata())
	case KindEnvironment:
		frame := n.envframe()
		putUint32(buf, frame.Nslots())
		putUint32(buf, enc.ref(frame.Vars()))
		putUint32(buf, enc.ref(frame.Closure()))
		for i := uint32(0); i < frame.Nslots(); i++ {
			putUint32(buf, enc.ref(frame.slot(i)))
		}
		putUint32(buf, enc.ref(n.envbase()))
	case KindPromise:
		putUint32(buf, enc.ref(n.prexp()))
		putUint32(buf, enc.ref(n.prval()))
	case KindClosure:
		putUint32(buf, enc.ref(n.clcode()))
		putUint32(buf, enc.ref(n.clbenv()))
		putUint32(buf, enc.ref(n.clvars()))
	case KindContinuation:
		putUint32(buf, enc.ref(n.contstate()))
	case KindStringPort:
		putByte(buf, n.mode)
		putUint32(buf, n.index)
		putUint32(buf, enc.ref(n.spstring()))
	case KindCode:
		putUint32(buf, enc.ref(n.codebcodes()))
		putUint32(buf, enc.ref(n.codesexprs()))
	case KindGref:
		putUint32(buf, enc.ref(n.grefsym()))
	case KindFref:
		putUint32(buf, n.frefdepth())
		putUint32(buf, n.frefindex())
	}
}

// WriteImage serializes the graph reachable from root into w, trailed by a
// blake2b-160 digest of the stream.
func WriteImage(w io.Writer, root *Node) error {
	if root == nil {
		return xerrors.Errorf("image: nil root: %w", ErrImageFormat)
	}

	enc := &imageEncoder{index: make(map[*Node]uint32)}
	if err := enc.collect(root); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString(imageMagic)
	putByte(&buf, imageVersion)
	putUint32(&buf, uint32(len(enc.order)))
	putUint32(&buf, enc.ref(root))
	for _, n := range enc.order {
		enc.encodeNode(&buf, n)
	}

	digest := blake2b160(buf.Bytes())
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(digest[:])
	return err
}

func blake2b160(data []byte) (ret [imageHashLen]byte) {
	hash, _ := blake2b.New(imageHashLen, nil)
	hash.Write(data)
	copy(ret[:], hash.Sum(nil))
	return
}

// decoding

type imageRecord struct {
	kind                   NodeKind
	form, recu, aux1, aux2 byte
	mode                   byte
	u1, u2                 uint32
	i64                    int64
	f64                    float64
	data                   []byte
	refs                   []uint32
}

type imageDecoder struct {
	data []byte
	pos  int
	err  error
}

func (d *imageDecoder) fail() {
	if d.err == nil {
		d.err = xerrors.Errorf("image: truncated stream: %w", ErrImageFormat)
	}
}

func (d *imageDecoder) u8() byte {
	if d.err != nil || d.pos+1 > len(d.data) {
		d.fail()
		return 0
	}
	v := d.data[d.pos]
	d.pos++
	return v
}

func (d *imageDecoder) u32() uint32 {
	if d.err != nil || d.pos+4 > len(d.data) {
		d.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v
}

func (d *imageDecoder) u64() uint64 {
	if d.err != nil || d.pos+8 > len(d.data) {
		d.fail()
		return 0
	}
	v := binary.LittleEndian.Uint64(d.data[d.pos:])
	d.pos += 8
	return v
}

func (d *imageDecoder) bytes32() []byte {
	length := d.u32()
	if d.err != nil || d.pos+int(length) > len(d.data) {
		d.fail()
		return nil
	}
	v := d.data[d.pos : d.pos+int(length)]
	d.pos += int(length)
	return v
}

func (d *imageDecoder) record() imageRecord {
	rec := imageRecord{
		kind: NodeKind(d.u8()),
		form: d.u8(),
		recu: d.u8(),
		aux1: d.u8(),
		aux2: d.u8(),
	}
	if d.err != nil {
		return rec
	}

	nrefs := func(k int) {
		rec.refs = make([]uint32, k)
		for i := range rec.refs {
			rec.refs[i] = d.u32()
		}
	}

	switch rec.kind {
	case KindSymbol:
		rec.data = d.bytes32()
		nrefs(1)
	case KindFixnum:
		rec.i64 = int64(d.u64())
	case KindFlonum:
		rec.f64 = math.Float64frombits(d.u64())
	case KindChar:
		rec.i64 = int64(d.u8())
	case KindString:
		rec.u2 = d.u32()
		rec.data = d.bytes32()
	case KindCons, KindPromise, KindCode:
		nrefs(2)
	case KindVector:
		rec.u1 = d.u32()
		if d.err == nil {
			nrefs(int(rec.u1))
		}
	case KindByteVector:
		rec.data = d.bytes32()
	case KindEnvironment:
		rec.u1 = d.u32()
		if d.err == nil {
			nrefs(2 + int(rec.u1) + 1)
		}
	case KindClosure:
		nrefs(3)
	case KindContinuation, KindGref:
		nrefs(1)
	case KindStringPort:
		rec.mode = d.u8()
		rec.u2 = d.u32()
		nrefs(1)
	case KindFref:
		rec.u1 = d.u32()
		rec.u2 = d.u32()
	default:
		d.err = xerrors.Errorf("image: unknown kind %d: %w", byte(rec.kind), ErrImageFormat)
	}

	return rec
}

// ReadImage rebuilds a heap image and returns its root. Nodes are rebuilt
// through the allocator with collection suspended, so a collection can
// never observe the half-wired graph.
func ReadImage(r io.Reader) (*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < len(imageMagic)+1+4+4+imageHashLen {
		return nil, xerrors.Errorf("image: short stream: %w", ErrImageFormat)
	}

	payload, digest := data[:len(data)-imageHashLen], data[len(data)-imageHashLen:]
	want := blake2b160(payload)
	if !bytes.Equal(digest, want[:]) {
		return nil, ErrImageChecksum
	}

	d := &imageDecoder{data: payload}
	if string(payload[:len(imageMagic)]) != imageMagic {
		return nil, xerrors.Errorf("image: bad magic: %w", ErrImageFormat)
	}
	d.pos = len(imageMagic)
	if v := d.u8(); v != imageVersion {
		return nil, xerrors.Errorf("image: unsupported version %d: %w", v, ErrImageFormat)
	}

	count := d.u32()
	rootRef := d.u32()

	records := make([]imageRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		records = append(records, d.record())
		if d.err != nil {
			return nil, d.err
		}
	}
	if d.pos != len(payload) {
		return nil, xerrors.Errorf("image: trailing bytes: %w", ErrImageFormat)
	}
	if rootRef > count {
		return nil, xerrors.Errorf("image: root out of range: %w", ErrImageFormat)
	}
	for _, rec := range records {
		for _, ref := range rec.refs {
			if ref > count {
				return nil, xerrors.Errorf("image: reference out of range: %w", ErrImageFormat)
			}
		}
	}

	defer SuspendGC()()

	nodes := make([]*Node, count)
	for i, rec := range records {
		nodes[i] = rebuildNode(rec)
	}

	resolve := func(ref uint32) *Node {
		if ref == nullRef {
			return Null
		}
		return nodes[ref-1]
	}

	for i, rec := range records {
		wireNode(nodes[i], rec, resolve)
	}

	return resolve(rootRef), nil
}

func rebuildNode(rec imageRecord) *Node {
	var n *Node
	switch rec.kind {
	case KindSymbol:
		n = NewSymbol(string(rec.data))
	case KindFixnum:
		n = NewFixnum(rec.i64)
	case KindFlonum:
		n = NewFlonum(rec.f64)
	case KindChar:
		n = NewChar(byte(rec.i64))
	case KindString:
		n = NewString(uint32(len(rec.data)))
		copy(n.buf, rec.data)
		n.index = rec.u2
	case KindCons:
		n = NewCons(Null, Null)
	case KindVector:
		n = NewVector(rec.u1)
	case KindByteVector:
		n = NewByteVector(uint32(len(rec.data)))
		copy(n.buf, rec.data)
	case KindEnvironment:
		n = NewEnvironment(rec.u1, Null, Null)
	case KindPromise:
		n = NewPromise(Null)
	case KindClosure:
		n = NewClosure(Null, Null)
	case KindContinuation:
		n = NewContinuation()
	case KindStringPort:
		n = NewEmptyStringPort(rec.mode)
		n.index = rec.u2
	case KindCode:
		n = NewCode(Null, Null)
	case KindGref:
		n = NewGref(Null)
	case KindFref:
		n = NewFref(rec.u1, rec.u2)
	}

	n.Form = rec.form
	n.Recu = rec.recu
	switch rec.kind {
	case KindEnvironment, KindVector:
		// rebuilt payloads are nursery-fresh; ages restart
	default:
		n.aux1 = rec.aux1
		n.aux2 = rec.aux2
	}
	return n
}

func wireNode(n *Node, rec imageRecord, resolve func(uint32) *Node) {
	switch rec.kind {
	case KindSymbol:
		n.a = resolve(rec.refs[0])
	case KindCons, KindPromise, KindCode:
		n.a = resolve(rec.refs[0])
		n.b = resolve(rec.refs[1])
	case KindVector:
		for i := uint32(0); i < rec.u1; i++ {
			n.vset(i, resolve(rec.refs[i]))
		}
	case KindEnvironment:
		frame := n.envframe()
		frame.SetVars(resolve(rec.refs[0]))
		frame.SetClosure(resolve(rec.refs[1]))
		for i := uint32(0); i < rec.u1; i++ {
			frame.setslot(i, resolve(rec.refs[2+i]))
		}
		n.b = resolve(rec.refs[2+rec.u1])
	case KindClosure:
		n.cells[0].ref = resolve(rec.refs[0])
		n.cells[1].ref = resolve(rec.refs[1])
		n.cells[2].ref = resolve(rec.refs[2])
	case KindContinuation, KindGref, KindStringPort:
		n.a = resolve(rec.refs[0])
	}
}
