package wire

import (
	"encoding/binary"
)

// Encoder handles low-level protobuf wire format encoding.
//
// Output goes into one growable buffer. Nested messages are written without
// a sizing pre-pass: each length prefix is reserved as a single byte and
// fixed up once the outermost open message is complete.
type Encoder struct {
	buf []byte // len(buf) is the usable capacity; pos is the write offset
	pos int

	// Body starts of messages still being written, innermost last.
	active []int
	// Completed bodies whose length needs more than one byte, in ascending
	// end order. Each one has n-1 spare bytes appended after it.
	shift []lengthRange
	// Scratch stack for resolve.
	sites []lengthRange

	cur *Sink
}

// lengthRange is a body [start, end) whose length prefix needs n bytes.
type lengthRange struct {
	start, end int
	n          int
}

const initialSize = 64

// NewEncoder creates a new wire format encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, initialSize)}
}

// Bytes returns the encoded bytes. The slice aliases the encoder's buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf[:e.pos]
}

// Reset clears the encoder so it can be reused. Outstanding sinks become
// inactive.
func (e *Encoder) Reset() {
	e.pos = 0
	e.active = e.active[:0]
	e.shift = e.shift[:0]
	e.sites = e.sites[:0]
	e.cur = nil
}

// Sink returns a fresh top-level sink. Any sink handed out earlier stops
// being active.
func (e *Encoder) Sink() *Sink {
	s := &Sink{enc: e}
	e.cur = s
	return s
}

// grow makes room for n more bytes: capacity x1.5, or exactly what is
// needed if that is more.
func (e *Encoder) grow(n int) {
	need := e.pos + n
	if need <= len(e.buf) {
		return
	}
	size := len(e.buf) + len(e.buf)/2
	if size < need {
		size = need
	}
	buf := make([]byte, size)
	copy(buf, e.buf[:e.pos])
	e.buf = buf
}

func (e *Encoder) appendByte(c byte) {
	e.grow(1)
	e.buf[e.pos] = c
	e.pos++
}

func (e *Encoder) appendVarint(v uint64) {
	e.grow(MaxVarintLen)
	e.pos += PutVarint(e.buf[e.pos:], v)
}

func (e *Encoder) appendTag(num Number, typ Type) {
	e.appendVarint(uint64(MakeTag(num, typ)))
}

func (e *Encoder) appendFixed32(v uint32) {
	e.grow(4)
	binary.LittleEndian.PutUint32(e.buf[e.pos:], v)
	e.pos += 4
}

func (e *Encoder) appendFixed64(v uint64) {
	e.grow(8)
	binary.LittleEndian.PutUint64(e.buf[e.pos:], v)
	e.pos += 8
}

func (e *Encoder) appendRaw(b []byte) {
	e.grow(len(b))
	e.pos += copy(e.buf[e.pos:], b)
}

// beginLength reserves one byte for a length prefix and opens a body.
func (e *Encoder) beginLength() {
	e.appendByte(0)
	e.active = append(e.active, e.pos)
}

// endLength closes the innermost open body. A short body gets its prefix
// written in place. A longer one gets spare bytes appended and is left for
// resolve, which runs once nothing is open any more.
func (e *Encoder) endLength() {
	start := e.active[len(e.active)-1]
	e.active = e.active[:len(e.active)-1]

	length := e.pos - start
	n := SizeVarint(uint64(length))
	if n == 1 {
		e.buf[start-1] = byte(length)
	} else {
		end := e.pos
		e.grow(n - 1)
		e.pos += n - 1
		e.shift = append(e.shift, lengthRange{start: start, end: end, n: n})
	}

	if len(e.active) == 0 && len(e.shift) > 0 {
		e.resolve()
	}
}

// resolve walks the pending ranges from the end of the buffer backwards.
// shift is how far the bytes currently being visited must move forward:
// it grows past every block of spare bytes and shrinks again past every
// length prefix that consumes them.
func (e *Encoder) resolve() {
	buf := e.buf
	shift := 0
	hi := e.pos
	sites := e.sites[:0]

	for len(e.shift) > 0 || len(sites) > 0 {
		takeGap := len(sites) == 0
		if !takeGap && len(e.shift) > 0 {
			takeGap = e.shift[len(e.shift)-1].end > sites[len(sites)-1].start
		}

		if takeGap {
			r := e.shift[len(e.shift)-1]
			e.shift = e.shift[:len(e.shift)-1]
			extra := r.n - 1
			from := r.end + extra
			copy(buf[from+shift:hi+shift], buf[from:hi])
			hi = r.end
			shift += extra
			sites = append(sites, r)
			continue
		}

		r := sites[len(sites)-1]
		sites = sites[:len(sites)-1]
		copy(buf[r.start+shift:hi+shift], buf[r.start:hi])
		PutVarint(buf[r.start+shift-r.n:], uint64(r.end-r.start))
		shift -= r.n - 1
		hi = r.start - 1
	}
	e.sites = sites
}
