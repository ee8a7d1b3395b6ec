package asm

import (
	"strconv"

	"tlog.app/go/errors"

	"github.com/slowlang/kl27/compiler/diag"
)

const (
	MaxWord = 0xffff

	// Radix is the multiplier used to synthesize literals wider than a word.
	Radix = 0x7fff

	MaxLiteral = MaxWord*Radix + Radix - 1
)

// ParseInt parses an integer literal in any base Go literal syntax accepts.
func ParseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, errors.Wrap(diag.ErrBadOperand, "integer literal %q", s)
	}

	return v, nil
}

// ParseWord parses a literal which must fit one operand word.
func ParseWord(s string) (uint16, error) {
	v, err := ParseInt(s)
	if err != nil {
		return 0, err
	}

	if v < 0 || v > MaxWord {
		return 0, errors.Wrap(diag.ErrBadOperand, "%v does not fit 16 bits", v)
	}

	return uint16(v), nil
}

// Literal emits the code that leaves v on top of the stack.
//
// Values wider than a word are loaded as q*Radix + r
// since the stack load operand is 16 bits only.
func Literal(v int64) ([]Unit, error) {
	if v < 0 || v > MaxLiteral {
		return nil, errors.Wrap(diag.ErrBadOperand, "literal %v out of range [0, %d]", v, int64(MaxLiteral))
	}

	if v <= MaxWord {
		return []Unit{Word(OpSL, uint16(v))}, nil
	}

	q, r := v/Radix, v%Radix

	return []Unit{
		Word(OpSL, uint16(q)),
		Word(OpSL, Radix),
		Word(OpMUL, 0),
		Word(OpSL, uint16(r)),
		Word(OpADD, 0),
	}, nil
}
