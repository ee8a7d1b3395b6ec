package front

import (
	"context"
	"strings"
	"unicode"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/kl27/compiler/asm"
	"github.com/slowlang/kl27/compiler/diag"
	"github.com/slowlang/kl27/compiler/link"
	"github.com/slowlang/kl27/compiler/source"
)

type (
	// FS reads source files. fstest.MapFS and os-backed types fit.
	FS interface {
		ReadFile(name string) ([]byte, error)
	}

	Config struct {
		// ImplicitLabel is declared before the first instruction
		// if no label was declared yet. Default is "main".
		ImplicitLabel string

		// NoImplicitLabel makes an instruction before any label an error.
		NoImplicitLabel bool
	}

	State int

	// Assembler is the first pass.
	// It owns all the per-compilation state.
	Assembler struct {
		Config

		fs FS
		ws *diag.Warnings

		q *source.Queue

		labels *link.Table
		code   asm.Stream

		included map[string]struct{}
		includes int

		ptr   int
		label string
		state State
	}
)

const (
	Scanning State = iota
	InLabel
	Error
	Done
)

const (
	CommentPrefix   = "//"
	DirectivePrefix = "#"
	LabelSuffix     = ":"

	DefaultLabel = "main"
)

func New(fs FS, cfg Config, ws *diag.Warnings) *Assembler {
	if cfg.ImplicitLabel == "" {
		cfg.ImplicitLabel = DefaultLabel
	}

	if ws == nil {
		ws = &diag.Warnings{}
	}

	return &Assembler{
		Config:   cfg,
		fs:       fs,
		ws:       ws,
		q:        source.NewQueue(nil),
		labels:   link.NewTable(),
		included: map[string]struct{}{},
	}
}

func (a *Assembler) AddFile(ctx context.Context, name string) error {
	text, err := a.fs.ReadFile(name)
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	a.AddText(name, text)

	return nil
}

func (a *Assembler) AddText(name string, text []byte) {
	a.q.Inject(source.Split(name, text, 1))
}

// Run processes all the queued lines.
func (a *Assembler) Run(ctx context.Context) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: assemble", "lines", a.q.Pending())
	defer tr.Finish("err", &err)

	for {
		l, ok := a.q.Next()
		if !ok {
			break
		}

		err = a.line(ctx, l)
		if err != nil {
			a.state = Error

			return errors.Wrap(err, "%v", l.Pos)
		}
	}

	a.state = Done

	tr.Printw("assembled", "code_size", a.ptr, "labels", a.labels.Len(), "lines", a.q.Processed())

	return nil
}

func (a *Assembler) line(ctx context.Context, l source.Line) error {
	text := strings.TrimSpace(stripComment(l.Text))

	switch {
	case text == "":
		return nil
	case strings.HasPrefix(text, DirectivePrefix):
		return a.directive(ctx, l, text[len(DirectivePrefix):])
	case strings.HasSuffix(text, LabelSuffix):
		return a.declare(ctx, l.Pos, strings.TrimSpace(strings.TrimSuffix(text, LabelSuffix)))
	}

	return a.instruction(ctx, l, text)
}

func (a *Assembler) declare(ctx context.Context, pos diag.Pos, name string) error {
	if name == "" || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return errors.Wrap(diag.ErrBadLabel, "%q", name)
	}

	prev, _ := a.labels.Lookup(name)

	_, redefined := a.labels.Declare(name, a.ptr, pos)
	if redefined {
		a.ws.Warn(ctx, diag.RedefinedLabel, pos, "label %q redefined (was at %v), old code is unreachable", name, prev.Pos)
	}

	tlog.SpanFromContext(ctx).Printw("label", "name", name, "addr", a.ptr, "pos", pos)

	a.label = name
	a.state = InLabel

	return nil
}

func (a *Assembler) instruction(ctx context.Context, l source.Line, text string) (err error) {
	tr := tlog.SpanFromContext(ctx)

	if a.state != InLabel {
		if a.NoImplicitLabel {
			return diag.ErrNoLabel
		}

		a.ws.Warn(ctx, diag.ImplicitLabel, l.Pos, "no label specified, assuming %v", a.ImplicitLabel)

		err = a.declare(ctx, l.Pos, a.ImplicitLabel)
		if err != nil {
			return err
		}
	}

	mnem, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		mnem, args = text[:i], text[i+1:]
	}

	units, err := asm.Encode(mnem, args)
	if err != nil {
		return errors.Wrap(err, "in label %v", a.label)
	}

	for i, u := range units {
		if x, ok := u.(asm.Label); ok {
			x.Pos = l.Pos
			units[i] = x
		}
	}

	size := asm.Len(units)

	if tr.If("asm_lines") {
		tr.Printw("instruction", "mnem", mnem, "args", args, "addr", a.ptr, "size", size, "label", a.label, "pos", l.Pos)
	}

	if tr.If("asm_units") {
		tr.Printw("units", "units", units)
	}

	a.code = append(a.code, units...)
	a.ptr += size

	return nil
}

func (a *Assembler) directive(ctx context.Context, l source.Line, text string) error {
	name, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		name, args = text[:i], strings.TrimSpace(text[i+1:])
	}

	switch name {
	case "include":
		return a.include(ctx, l, args)
	case "ID":
		a.markIncluded(ctx, l.Pos, args)

		return nil
	default:
		return errors.Wrap(diag.ErrUnknownDirective, "%q", name)
	}
}

// stripComment cuts the line at the first comment prefix outside of quotes.
func stripComment(s string) string {
	var q byte

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case q == '"' && c == '\\':
			i++
		case q != 0:
			if c == q {
				q = 0
			}
		case c == '"' || c == '\'':
			q = c
		case strings.HasPrefix(s[i:], CommentPrefix):
			return s[:i]
		}
	}

	return s
}

func (a *Assembler) Labels() *link.Table { return a.labels }

func (a *Assembler) Code() asm.Stream { return a.code }

func (a *Assembler) Pointer() int { return a.ptr }

func (a *Assembler) State() State { return a.state }

func (a *Assembler) Warnings() *diag.Warnings { return a.ws }

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case InLabel:
		return "in_label"
	case Error:
		return "error"
	case Done:
		return "done"
	default:
		return "state(?)"
	}
}
