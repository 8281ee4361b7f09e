package wire

import (
	"math"
)

// MaxDepth is how deeply groups and submessages may nest in one input.
const MaxDepth = 10000

// MessageReader resolves field numbers to field readers for one message type.
type MessageReader interface {
	// FieldReader returns the reader for num, or nil if the field is unknown.
	FieldReader(num Number) FieldReader
	// Finish runs after the last field of obj has been read.
	Finish(obj any) error
}

// FieldReader stores decoded values into a message object.
type FieldReader interface {
	Flags() Flags
	// SetField stores one decoded value. Values from a packed run arrive one
	// at a time with the element wire type.
	SetField(obj any, typ Type, v Value) error
	// SetGroup attaches a fresh group object to obj and returns it together
	// with its reader. A field that cannot hold a group returns
	// ErrUnexpectedGroup.
	SetGroup(obj any) (sub any, r MessageReader, err error)
}

// Decoder handles low-level protobuf wire format decoding.
//
// The cursor only moves forward and every read is bounds-checked first.
type Decoder struct {
	buf []byte
	pos int
	// depth counts the groups and submessages enclosing the current field.
	depth int
}

// NewDecoder creates a new wire format decoder over data. data is not copied.
func NewDecoder(data []byte) (*Decoder, error) {
	if err := checkSize(int64(len(data))); err != nil {
		return nil, err
	}
	return &Decoder{buf: data}, nil
}

// NestedDecoder returns a decoder over the body of a LEN value that holds a
// submessage. It continues the depth count of the decoder v came from.
func NestedDecoder(v Value) (*Decoder, error) {
	if v.depth >= MaxDepth {
		return nil, ErrTooDeep
	}
	return &Decoder{buf: v.Bytes, depth: v.depth + 1}, nil
}

func checkSize(n int64) error {
	if n > math.MaxInt32 {
		return ErrTooLarge
	}
	return nil
}

func (d *Decoder) enter() error {
	if d.depth >= MaxDepth {
		return ErrTooDeep
	}
	d.depth++
	return nil
}

func (d *Decoder) leave() { d.depth-- }

// Pos returns the current offset into the input.
func (d *Decoder) Pos() int { return d.pos }

// Done reports whether the whole input has been consumed.
func (d *Decoder) Done() bool { return d.pos >= len(d.buf) }

// ReadTag reads a tag and validates its field number.
func (d *Decoder) ReadTag() (Number, Type, error) {
	v, n, err := ConsumeVarint32(d.buf[d.pos:])
	if err != nil {
		return 0, 0, err
	}
	num, typ := ParseTag(Tag(v))
	if num == 0 {
		return 0, 0, ErrFieldNumberZero
	}
	d.pos += n
	return num, typ, nil
}

// ReadValue reads one value of wire type typ. flags select 32- or 64-bit
// varint rules. SGROUP and EGROUP have no value and are rejected here.
func (d *Decoder) ReadValue(typ Type, flags Flags) (Value, error) {
	v, n, err := consumeValue(d.buf[d.pos:], typ, flags)
	if err != nil {
		return Value{}, err
	}
	d.pos += n
	v.depth = d.depth
	return v, nil
}

func consumeValue(b []byte, typ Type, flags Flags) (Value, int, error) {
	switch typ {
	case TypeVarint:
		if flags.Has(FlagVarint64) {
			v, n, err := ConsumeVarint(b)
			return Value{Num: v}, n, err
		}
		v, n, err := ConsumeVarint32(b)
		return Value{Num: uint64(v)}, n, err
	case TypeI64:
		v, n, err := ConsumeFixed64(b)
		return Value{Num: v}, n, err
	case TypeI32:
		v, n, err := ConsumeFixed32(b)
		return Value{Num: uint64(v)}, n, err
	case TypeLen:
		v, n, err := ConsumeBytes(b)
		return Value{Bytes: v}, n, err
	default:
		return Value{}, 0, ErrWireType
	}
}

// ReadMessage decodes fields into obj until the input ends.
func (d *Decoder) ReadMessage(obj any, r MessageReader) error {
	return d.readMessage(obj, r, 0)
}

// readMessage is the decode loop. expectEGroup is the field number of the
// enclosing group, or 0 at the top level.
func (d *Decoder) readMessage(obj any, r MessageReader, expectEGroup Number) error {
	for !d.Done() {
		num, typ, err := d.ReadTag()
		if err != nil {
			return err
		}
		if typ == TypeEGroup {
			if num != expectEGroup {
				return ErrGroupMismatch
			}
			return r.Finish(obj)
		}

		fr := r.FieldReader(num)
		if fr == nil {
			if err := d.skip(num, typ); err != nil {
				return err
			}
			continue
		}

		flags := fr.Flags()
		switch {
		case typ == TypeSGroup:
			sub, subReader, err := fr.SetGroup(obj)
			if err != nil {
				return err
			}
			if err := d.enter(); err != nil {
				return err
			}
			err = d.readMessage(sub, subReader, num)
			d.leave()
			if err != nil {
				return err
			}
		case typ == TypeLen && flags.Has(FlagPackable):
			if err := d.readPacked(obj, fr, flags); err != nil {
				return err
			}
		default:
			v, err := d.ReadValue(typ, flags)
			if err != nil {
				return err
			}
			if err := fr.SetField(obj, typ, v); err != nil {
				return err
			}
		}
	}
	if expectEGroup != 0 {
		return ErrUnterminatedGroup
	}
	return r.Finish(obj)
}

// readPacked reads a LEN run of raw values and hands each to fr. The run
// must be consumed exactly.
func (d *Decoder) readPacked(obj any, fr FieldReader, flags Flags) error {
	run, n, err := ConsumeBytes(d.buf[d.pos:])
	if err != nil {
		return err
	}
	d.pos += n

	elem := flags.packedType()
	for len(run) > 0 {
		v, m, err := consumeValue(run, elem, flags)
		if err == ErrTruncated {
			return ErrPackedOverflow
		}
		if err != nil {
			return err
		}
		run = run[m:]
		if err := fr.SetField(obj, elem, v); err != nil {
			return err
		}
	}
	return nil
}

// skip discards the value of an unknown field. Groups are skipped
// recursively and must be closed by an EGROUP with the same number.
func (d *Decoder) skip(num Number, typ Type) error {
	switch typ {
	case TypeSGroup:
		if err := d.enter(); err != nil {
			return err
		}
		defer d.leave()
		for {
			if d.Done() {
				return ErrUnterminatedGroup
			}
			inner, innerTyp, err := d.ReadTag()
			if err != nil {
				return err
			}
			if innerTyp == TypeEGroup {
				if inner != num {
					return ErrGroupMismatch
				}
				return nil
			}
			if err := d.skip(inner, innerTyp); err != nil {
				return err
			}
		}
	case TypeEGroup:
		return ErrGroupMismatch
	default:
		// Unknown varints may be 64-bit.
		_, err := d.ReadValue(typ, FlagVarint64)
		return err
	}
}
