package wire

import (
	"math"
	"unicode/utf8"
)

// Sink is the write handle passed to message writers. Only the innermost
// sink is active: while WriteSubMessage or WriteGroup runs its body, the
// outer sink rejects writes with ErrSinkInactive.
type Sink struct {
	enc *Encoder
}

// Encode runs write against a fresh encoder and returns the output. On
// error no bytes are returned.
func Encode(write func(*Sink) error) ([]byte, error) {
	e := NewEncoder()
	if err := write(e.Sink()); err != nil {
		return nil, err
	}
	e.cur = nil
	return e.Bytes(), nil
}

func (s *Sink) check(num Number) error {
	if s.enc == nil || s.enc.cur != s {
		return ErrSinkInactive
	}
	if !num.IsValid() {
		return ErrInvalidNumber
	}
	return nil
}

// WriteVarint writes a VARINT field.
func (s *Sink) WriteVarint(num Number, v uint64) error {
	if err := s.check(num); err != nil {
		return err
	}
	s.enc.appendTag(num, TypeVarint)
	s.enc.appendVarint(v)
	return nil
}

// WriteFixed32 writes an I32 field.
func (s *Sink) WriteFixed32(num Number, v uint32) error {
	if err := s.check(num); err != nil {
		return err
	}
	s.enc.appendTag(num, TypeI32)
	s.enc.appendFixed32(v)
	return nil
}

// WriteFixed64 writes an I64 field.
func (s *Sink) WriteFixed64(num Number, v uint64) error {
	if err := s.check(num); err != nil {
		return err
	}
	s.enc.appendTag(num, TypeI64)
	s.enc.appendFixed64(v)
	return nil
}

func (s *Sink) WriteFloat(num Number, v float32) error {
	return s.WriteFixed32(num, math.Float32bits(v))
}

func (s *Sink) WriteDouble(num Number, v float64) error {
	return s.WriteFixed64(num, math.Float64bits(v))
}

// WriteBytes writes a LEN field holding b.
func (s *Sink) WriteBytes(num Number, b []byte) error {
	if err := s.check(num); err != nil {
		return err
	}
	s.enc.appendTag(num, TypeLen)
	s.enc.appendVarint(uint64(len(b)))
	s.enc.appendRaw(b)
	return nil
}

// WriteString writes a LEN field holding str, which must be valid UTF-8.
// Nothing is written if it is not.
func (s *Sink) WriteString(num Number, str string) error {
	if err := s.check(num); err != nil {
		return err
	}
	if !utf8.ValidString(str) {
		return ErrInvalidString
	}
	s.enc.appendTag(num, TypeLen)
	s.enc.appendVarint(uint64(len(str)))
	s.enc.grow(len(str))
	s.enc.pos += copy(s.enc.buf[s.enc.pos:], str)
	return nil
}

// WriteSubMessage writes a LEN field whose content is produced by body.
// The length prefix is patched in after body returns.
func (s *Sink) WriteSubMessage(num Number, body func(*Sink) error) error {
	if err := s.check(num); err != nil {
		return err
	}
	e := s.enc
	e.appendTag(num, TypeLen)
	e.beginLength()
	if err := s.delegate(body); err != nil {
		return err
	}
	e.endLength()
	return nil
}

// WriteGroup writes body between an SGROUP and an EGROUP tag for num.
func (s *Sink) WriteGroup(num Number, body func(*Sink) error) error {
	if err := s.check(num); err != nil {
		return err
	}
	s.enc.appendTag(num, TypeSGroup)
	if err := s.delegate(body); err != nil {
		return err
	}
	s.enc.appendTag(num, TypeEGroup)
	return nil
}

// delegate runs body against a child sink. s is inactive meanwhile and the
// child is inactive forever after.
func (s *Sink) delegate(body func(*Sink) error) error {
	child := &Sink{enc: s.enc}
	s.enc.cur = child
	err := body(child)
	s.enc.cur = s
	return err
}

// WritePackedVarint writes values as one packed run. An empty run is
// omitted.
func (s *Sink) WritePackedVarint(num Number, values []uint64) error {
	if err := s.check(num); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	size := 0
	for _, v := range values {
		size += SizeVarint(v)
	}
	e := s.enc
	e.appendTag(num, TypeLen)
	e.appendVarint(uint64(size))
	e.grow(size)
	for _, v := range values {
		e.pos += PutVarint(e.buf[e.pos:], v)
	}
	return nil
}

// WritePackedFixed32 writes values as one packed run of I32 values.
func (s *Sink) WritePackedFixed32(num Number, values []uint32) error {
	if err := s.check(num); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	e := s.enc
	e.appendTag(num, TypeLen)
	e.appendVarint(uint64(4 * len(values)))
	for _, v := range values {
		e.appendFixed32(v)
	}
	return nil
}

// WritePackedFixed64 writes values as one packed run of I64 values.
func (s *Sink) WritePackedFixed64(num Number, values []uint64) error {
	if err := s.check(num); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	e := s.enc
	e.appendTag(num, TypeLen)
	e.appendVarint(uint64(8 * len(values)))
	for _, v := range values {
		e.appendFixed64(v)
	}
	return nil
}
