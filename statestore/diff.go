package statestore

import (
	"bytes"
	"encoding/binary"

	"github.com/taraxa-project/smt-store/common"
)

// sideIndexChange is the undo image for one user key touched by a
// commit, used by Revert to restore the side-index to its pre-commit
// contents.
type sideIndexChange struct {
	Key      []byte
	HadValue bool
	PrevVal  []byte
}

// DiffRecord is the persisted description of one commit (§3's
// "State-diff record"). CreatedNodes holds only node hashes that did
// not already exist in storage before this commit (see DESIGN.md's
// Open Question #3 for why displaced-but-shared nodes are never
// listed here, nor ever deleted by Commit or Revert — only
// Finalize's mark-and-sweep physically removes nodes).
type DiffRecord struct {
	Height       uint64
	PrevRoot     common.Hash
	NewRoot      common.Hash
	CreatedNodes []common.Hash
	SideIndex    []sideIndexChange
}

// Wire format: this is not RLP (the pack's rlp package ships an
// encoder with no matching decoder — see DESIGN.md) and spec.md §6.2
// mandates no list-of-lists recursion, so a flat, fixed-order
// length-prefixed layout is the simplest honest encoding.
func encodeDiff(d *DiffRecord) []byte {
	var buf bytes.Buffer
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], d.Height)
	buf.Write(u64[:])
	buf.Write(d.PrevRoot.Bytes())
	buf.Write(d.NewRoot.Bytes())

	writeUint32(&buf, uint32(len(d.CreatedNodes)))
	for _, h := range d.CreatedNodes {
		buf.Write(h.Bytes())
	}

	writeUint32(&buf, uint32(len(d.SideIndex)))
	for _, sc := range d.SideIndex {
		writeBytes(&buf, sc.Key)
		if sc.HadValue {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		writeBytes(&buf, sc.PrevVal)
	}
	return buf.Bytes()
}

func decodeDiff(raw []byte) (*DiffRecord, error) {
	r := &cursor{buf: raw}
	d := &DiffRecord{}
	d.Height = r.uint64()
	d.PrevRoot = r.hash()
	d.NewRoot = r.hash()

	createdCount := r.uint32()
	d.CreatedNodes = make([]common.Hash, createdCount)
	for i := range d.CreatedNodes {
		d.CreatedNodes[i] = r.hash()
	}

	sideCount := r.uint32()
	d.SideIndex = make([]sideIndexChange, sideCount)
	for i := range d.SideIndex {
		d.SideIndex[i].Key = r.bytes()
		d.SideIndex[i].HadValue = r.byte_() == 1
		d.SideIndex[i].PrevVal = r.bytes()
	}
	if r.err != nil {
		return nil, ErrCorruption
	}
	return d, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint32(buf, uint32(len(b)))
	buf.Write(b)
}

// cursor reads a flat diff record without panicking on truncated or
// malformed input; any read past the end sets err and every
// subsequent read becomes a no-op, so decodeDiff only has to check
// err once at the end.
type cursor struct {
	buf []byte
	pos int
	err error
}

func (c *cursor) need(n int) bool {
	if c.err != nil || c.pos+n > len(c.buf) {
		c.err = ErrCorruption
		return false
	}
	return true
}

func (c *cursor) uint64() uint64 {
	if !c.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v
}

func (c *cursor) uint32() uint32 {
	if !c.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v
}

func (c *cursor) byte_() byte {
	if !c.need(1) {
		return 0
	}
	v := c.buf[c.pos]
	c.pos++
	return v
}

func (c *cursor) hash() common.Hash {
	if !c.need(common.HashLength) {
		return common.Hash{}
	}
	h := common.BytesToHash(c.buf[c.pos : c.pos+common.HashLength])
	c.pos += common.HashLength
	return h
}

func (c *cursor) bytes() []byte {
	n := c.uint32()
	if !c.need(int(n)) {
		return nil
	}
	b := common.CopyBytes(c.buf[c.pos : c.pos+int(n)])
	c.pos += int(n)
	return b
}
