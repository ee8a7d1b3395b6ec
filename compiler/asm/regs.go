package asm

import (
	"fmt"
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/kl27/compiler/diag"
)

const (
	RegMAR Reg = 8 + iota
	RegMVR
	RegPC
)

var regs = map[string]Reg{
	"R0": 0,
	"R1": 1,
	"R2": 2,
	"R3": 3,
	"R4": 4,
	"R5": 5,
	"R6": 6,
	"R7": 7,

	"MAR": RegMAR,
	"MVR": RegMVR,
	"PC":  RegPC,
}

// ParseReg maps a register name to its index. Names are case-insensitive.
func ParseReg(name string) (Reg, error) {
	r, ok := regs[strings.ToUpper(name)]
	if !ok {
		return 0, errors.Wrap(diag.ErrUnknownRegister, "%q", name)
	}

	return r, nil
}

func (r Reg) String() string {
	switch r {
	case RegMAR:
		return "MAR"
	case RegMVR:
		return "MVR"
	case RegPC:
		return "PC"
	}

	if r < 8 {
		return fmt.Sprintf("R%d", int(r))
	}

	return fmt.Sprintf("reg(%d)", int(r))
}
