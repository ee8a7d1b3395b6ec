package asm

import (
	"encoding/binary"

	"tlog.app/go/errors"

	"github.com/slowlang/kl27/compiler/diag"
)

type (
	Op  uint16
	Reg uint16

	// Unit is an element of the code stream.
	// It is either Raw bytes or a Label placeholder.
	Unit interface {
		Len() int
		Resolve(t Table) (Raw, error)

		unit()
	}

	Raw []byte

	// Label is the 2-byte address of the named label, known after the first pass.
	Label struct {
		Name string
		Pos  diag.Pos // where referenced, if known
	}

	Stream []Unit

	Table interface {
		Offset(name string) (off int, ok bool)
	}
)

const (
	WordSize = 4

	// LabelSize is the width of a resolved label address.
	LabelSize = 2
)

const (
	OpNOP  Op = 0x00
	OpHLT  Op = 0x01
	OpSL   Op = 0x02
	OpSPOP Op = 0x03
	OpLLBL Op = 0x04

	OpRGW Op = 0x10
	OpRGR Op = 0x11
	OpMMR Op = 0x12
	OpMMW Op = 0x13

	OpJMPR Op = 0x20
	OpRET  Op = 0x21
	OpJMPA Op = 0x23

	OpADD Op = 0x30
	OpMUL Op = 0x31
	OpSUB Op = 0x32
)

func Word(op Op, arg uint16) Raw {
	var b [WordSize]byte

	binary.BigEndian.PutUint16(b[:], uint16(op))
	binary.BigEndian.PutUint16(b[2:], arg)

	return b[:]
}

func (r Raw) Len() int { return len(r) }

func (r Raw) Resolve(Table) (Raw, error) { return r, nil }

func (Raw) unit() {}

func (l Label) Len() int { return LabelSize }

func (l Label) Resolve(t Table) (Raw, error) {
	off, ok := t.Offset(l.Name)
	if !ok {
		return nil, errors.Wrap(diag.ErrUnresolvedLabel, "%q", l.Name)
	}

	if off < 0 || off > 0xffff {
		return nil, errors.Wrap(diag.ErrAddressRange, "label %q at %#x", l.Name, off)
	}

	return binary.BigEndian.AppendUint16(nil, uint16(off)), nil
}

func (Label) unit() {}

func (s Stream) Len() (n int) {
	for _, u := range s {
		n += u.Len()
	}

	return n
}

// Labels returns the number of unresolved placeholders.
func (s Stream) Labels() (n int) {
	for _, u := range s {
		if _, ok := u.(Label); ok {
			n++
		}
	}

	return n
}

// Bytes concatenates a fully resolved stream.
func (s Stream) Bytes() ([]byte, error) {
	b := make([]byte, 0, s.Len())

	for _, u := range s {
		r, ok := u.(Raw)
		if !ok {
			return nil, errors.Wrap(diag.ErrUnresolvedLabel, "%q", u.(Label).Name)
		}

		b = append(b, r...)
	}

	return b, nil
}
