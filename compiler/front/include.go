package front

import (
	"context"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/kl27/compiler/diag"
	"github.com/slowlang/kl27/compiler/source"
)

const (
	IDDirective = DirectivePrefix + "ID"

	MaxIncludes = 1024
)

func (a *Assembler) include(ctx context.Context, l source.Line, args string) error {
	path, err := includePath(args)
	if err != nil {
		return err
	}

	a.includes++
	if a.includes > MaxIncludes {
		return errors.Wrap(diag.ErrIncludeLimit, "%d files", MaxIncludes)
	}

	name, text, err := a.open(l.Pos.File, path)
	if err != nil {
		return err
	}

	lines := source.Split(name, text, 1)

	id, ok := fileID(lines)
	if !ok {
		a.ws.Warn(ctx, diag.InclusionWithoutIdentifier, l.Pos,
			"included file %q has no %s directive, it may be included multiple times", name, IDDirective)

		a.q.Inject(lines)

		return nil
	}

	if _, ok := a.included[id]; ok {
		a.ws.Warn(ctx, diag.RepeatedInclusion, l.Pos, "not re-including file %q (id %q)", name, id)

		return nil
	}

	a.included[id] = struct{}{}

	tlog.SpanFromContext(ctx).Printw("including file", "name", name, "id", id, "lines", len(lines)-1, "pos", l.Pos)

	a.q.Inject(lines[1:])

	return nil
}

func (a *Assembler) markIncluded(ctx context.Context, pos diag.Pos, id string) {
	if id == "" {
		return
	}

	a.included[id] = struct{}{}

	tlog.SpanFromContext(ctx).Printw("file id", "id", id, "pos", pos)
}

// open looks for path next to the including file first, then as is.
func (a *Assembler) open(from, path string) (name string, text []byte, err error) {
	var try []string

	if from != "" && !filepath.IsAbs(path) {
		if p := filepath.Join(filepath.Dir(from), path); p != path {
			try = append(try, p)
		}
	}

	try = append(try, path)

	for _, p := range try {
		text, err = a.fs.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", nil, errors.Wrap(err, "read %v", p)
		}

		return p, text, nil
	}

	return "", nil, errors.Wrap(diag.ErrMissingIncludeFile, "no such file: %q", path)
}

func includePath(args string) (string, error) {
	if args == "" {
		return "", errors.Wrap(diag.ErrMissingIncludeFile, "no file name given")
	}

	if args[0] == '"' || args[0] == '\'' {
		q := strings.LastIndexByte(args, args[0])
		if q <= 0 || strings.TrimSpace(args[q+1:]) != "" {
			return "", errors.Wrap(diag.ErrBadOperand, "malformed file name: %s", args)
		}

		if args[0] == '\'' {
			return args[1:q], nil
		}

		p, err := strconv.Unquote(args[:q+1])
		if err != nil {
			return "", errors.Wrap(diag.ErrBadOperand, "malformed file name: %s", args)
		}

		return p, nil
	}

	if f := strings.Fields(args); len(f) != 1 {
		return "", errors.Wrap(diag.ErrBadOperand, "unexpected operand %q", f[1])
	}

	return args, nil
}

// fileID returns the identifier from an "#ID name" first line.
func fileID(lines []source.Line) (string, bool) {
	if len(lines) == 0 {
		return "", false
	}

	f := strings.Fields(lines[0].Text)
	if len(f) < 2 || f[0] != IDDirective {
		return "", false
	}

	return strings.Join(f[1:], " "), true
}
