package diag

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	Pos struct {
		File string
		Line int
	}

	WarningKind int

	Warning struct {
		Kind WarningKind
		Pos  Pos
		Msg  string
	}

	// Warnings collects non-fatal diagnostics of one compilation.
	Warnings struct {
		List []Warning
	}
)

const (
	_ WarningKind = iota
	RedefinedLabel
	UnusedLabel
	RepeatedInclusion
	InclusionWithoutIdentifier
	ImplicitLabel
)

// Fatal conditions. Every one of them aborts the compilation.
var (
	ErrUnknownDirective   = errors.New("unknown directive")
	ErrMissingIncludeFile = errors.New("missing include file")
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrUnknownRegister    = errors.New("unknown register")
	ErrUnresolvedLabel    = errors.New("unresolved label")
	ErrMissingEntryPoint  = errors.New("missing entry point")

	ErrBadOperand   = errors.New("bad operand")
	ErrBadLabel     = errors.New("bad label")
	ErrNoLabel      = errors.New("no label specified")
	ErrAddressRange = errors.New("address out of range")
	ErrIncludeLimit = errors.New("too many inclusions")
)

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("line %d", p.Line)
	}

	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

func (k WarningKind) String() string {
	switch k {
	case RedefinedLabel:
		return "redefined label"
	case UnusedLabel:
		return "unused label"
	case RepeatedInclusion:
		return "repeated inclusion"
	case InclusionWithoutIdentifier:
		return "inclusion without identifier"
	case ImplicitLabel:
		return "implicit label"
	default:
		return fmt.Sprintf("warning(%d)", int(k))
	}
}

func (w Warning) String() string {
	if w.Pos == (Pos{}) {
		return fmt.Sprintf("warning: %v: %s", w.Kind, w.Msg)
	}

	return fmt.Sprintf("%v: warning: %v: %s", w.Pos, w.Kind, w.Msg)
}

// Warn records a warning and logs it to the span in ctx.
func (ws *Warnings) Warn(ctx context.Context, k WarningKind, pos Pos, format string, args ...any) {
	w := Warning{
		Kind: k,
		Pos:  pos,
		Msg:  fmt.Sprintf(format, args...),
	}

	ws.List = append(ws.List, w)

	tlog.SpanFromContext(ctx).Printw(w.Msg, "kind", k, "pos", pos, "", tlog.Warn)
}

func (ws *Warnings) Len() int {
	if ws == nil {
		return 0
	}

	return len(ws.List)
}

// Of returns warnings of the given kind in the order they were reported.
func (ws *Warnings) Of(k WarningKind) (r []Warning) {
	if ws == nil {
		return nil
	}

	for _, w := range ws.List {
		if w.Kind == k {
			r = append(r, w)
		}
	}

	return r
}
