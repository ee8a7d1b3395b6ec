package asm

import (
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/kl27/compiler/diag"
)

type (
	// Encoder turns instruction operands into code units.
	Encoder func(args []string) ([]Unit, error)
)

var encoders = map[string]Encoder{
	"nop": noArg(OpNOP),
	"hlt": noArg(OpHLT),

	"sl":   encodeSL,
	"spop": countArg(OpSPOP, 1),
	"llbl": labelArg(OpLLBL),

	"rgw": regArg(OpRGW),
	"rgr": regArg(OpRGR),
	"mmr": countArg(OpMMR, 4),
	"mmw": countArg(OpMMW, 4),

	"jmpl": encodeJMPL,
	"jmpr": labelArg(OpJMPR),
	"ret":  noArg(OpRET),
	"jmpa": noArg(OpJMPA),

	"add": mathOp(OpADD),
	"mul": mathOp(OpMUL),
	"sub": mathOp(OpSUB),
}

// Encode encodes one instruction.
// Mnemonic is case-insensitive, args is the rest of the line.
func Encode(mnemonic, args string) ([]Unit, error) {
	enc, ok := encoders[strings.ToLower(mnemonic)]
	if !ok {
		return nil, errors.Wrap(diag.ErrUnknownInstruction, "%q", mnemonic)
	}

	u, err := enc(strings.Fields(args))
	if err != nil {
		return nil, errors.Wrap(err, "%v", strings.ToLower(mnemonic))
	}

	return u, nil
}

func Len(u []Unit) (n int) {
	for _, u := range u {
		n += u.Len()
	}

	return n
}

func noArg(op Op) Encoder {
	return func(args []string) ([]Unit, error) {
		if err := argc(args, 0, 0); err != nil {
			return nil, err
		}

		return []Unit{Word(op, 0)}, nil
	}
}

func countArg(op Op, def uint16) Encoder {
	return func(args []string) ([]Unit, error) {
		if err := argc(args, 0, 1); err != nil {
			return nil, err
		}

		n := def

		if len(args) != 0 {
			var err error

			n, err = ParseWord(args[0])
			if err != nil {
				return nil, err
			}
		}

		return []Unit{Word(op, n)}, nil
	}
}

func regArg(op Op) Encoder {
	return func(args []string) ([]Unit, error) {
		if err := argc(args, 1, 1); err != nil {
			return nil, err
		}

		r, err := ParseReg(args[0])
		if err != nil {
			return nil, err
		}

		return []Unit{Word(op, uint16(r))}, nil
	}
}

func labelArg(op Op) Encoder {
	return func(args []string) ([]Unit, error) {
		if err := argc(args, 1, 1); err != nil {
			return nil, err
		}

		return []Unit{
			Word(op, 0)[:2],
			Label{Name: args[0]},
		}, nil
	}
}

func mathOp(op Op) Encoder {
	return func(args []string) (u []Unit, err error) {
		if err := argc(args, 0, 1); err != nil {
			return nil, err
		}

		if len(args) != 0 {
			v, err := ParseInt(args[0])
			if err != nil {
				return nil, err
			}

			u, err = Literal(v)
			if err != nil {
				return nil, err
			}
		}

		return append(u, Word(op, 0)), nil
	}
}

func encodeSL(args []string) ([]Unit, error) {
	if err := argc(args, 1, 1); err != nil {
		return nil, err
	}

	v, err := ParseInt(args[0])
	if err != nil {
		return nil, err
	}

	return Literal(v)
}

// jmpl is not a machine instruction: llbl <label>; jmpa.
func encodeJMPL(args []string) ([]Unit, error) {
	u, err := labelArg(OpLLBL)(args)
	if err != nil {
		return nil, err
	}

	return append(u, Word(OpJMPA, 0)), nil
}

func argc(args []string, lo, hi int) error {
	switch {
	case len(args) < lo && lo == hi:
		return errors.Wrap(diag.ErrBadOperand, "expected %d operand(s), got %d", lo, len(args))
	case len(args) < lo:
		return errors.Wrap(diag.ErrBadOperand, "expected at least %d operand(s), got %d", lo, len(args))
	case len(args) > hi:
		return errors.Wrap(diag.ErrBadOperand, "unexpected operand %q", args[hi])
	}

	return nil
}
