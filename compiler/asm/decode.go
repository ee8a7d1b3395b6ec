package asm

import (
	"encoding/binary"
	"fmt"

	"tlog.app/go/errors"
)

type (
	// Instr is one decoded machine word.
	Instr struct {
		Addr int
		Op   Op
		Arg  uint16
	}
)

var opNames = map[Op]string{
	OpNOP:  "nop",
	OpHLT:  "hlt",
	OpSL:   "sl",
	OpSPOP: "spop",
	OpLLBL: "llbl",
	OpRGW:  "rgw",
	OpRGR:  "rgr",
	OpMMR:  "mmr",
	OpMMW:  "mmw",
	OpJMPR: "jmpr",
	OpRET:  "ret",
	OpJMPA: "jmpa",
	OpADD:  "add",
	OpMUL:  "mul",
	OpSUB:  "sub",
}

// Decode splits a resolved code body into instructions.
func Decode(code []byte) ([]Instr, error) {
	if len(code)%WordSize != 0 {
		return nil, errors.New("code size %d is not a multiple of %d", len(code), WordSize)
	}

	l := make([]Instr, 0, len(code)/WordSize)

	for i := 0; i < len(code); i += WordSize {
		l = append(l, Instr{
			Addr: i,
			Op:   Op(binary.BigEndian.Uint16(code[i:])),
			Arg:  binary.BigEndian.Uint16(code[i+2:]),
		})
	}

	return l, nil
}

func (op Op) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}

	return fmt.Sprintf("op(0x%04x)", uint16(op))
}

func (x Instr) String() string {
	switch x.Op {
	case OpSL, OpSPOP, OpMMR, OpMMW:
		return fmt.Sprintf("%v %d", x.Op, x.Arg)
	case OpRGW, OpRGR:
		return fmt.Sprintf("%v %v", x.Op, Reg(x.Arg))
	case OpLLBL, OpJMPR:
		return fmt.Sprintf("%v 0x%04x", x.Op, x.Arg)
	case OpNOP, OpHLT, OpRET, OpJMPA, OpADD, OpMUL, OpSUB:
		return x.Op.String()
	default:
		return fmt.Sprintf("%v 0x%04x", x.Op, x.Arg)
	}
}
