package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/kl27/compiler/diag"
	"github.com/slowlang/kl27/compiler/front"
	"github.com/slowlang/kl27/compiler/image"
	"github.com/slowlang/kl27/compiler/link"
)

type (
	// FS is the file access collaborator.
	FS = front.FS

	// OSFS reads files from the operating system.
	OSFS struct{}

	Config struct {
		// EntryPoint is the label whose address goes to the image header.
		EntryPoint string

		// ImplicitLabel is declared for instructions preceding any label.
		ImplicitLabel string

		// NoAutomaticMain forbids the implicit label.
		NoAutomaticMain bool
	}

	Result struct {
		Image    []byte
		Labels   *link.Table
		Warnings []diag.Warning
	}
)

const DefaultEntryPoint = "main"

func CompileFile(ctx context.Context, name string, cfg Config) (*Result, error) {
	return Compile(ctx, OSFS{}, name, cfg)
}

// Compile assembles file name read from fsys.
// The image is returned only if every stage succeeded.
func Compile(ctx context.Context, fsys FS, name string, cfg Config) (res *Result, err error) {
	a := newAssembler(fsys, cfg)

	err = a.AddFile(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	return compile(ctx, a, name, cfg)
}

// CompileText assembles text. Included files are read from fsys.
func CompileText(ctx context.Context, fsys FS, name string, text []byte, cfg Config) (res *Result, err error) {
	a := newAssembler(fsys, cfg)

	a.AddText(name, text)

	return compile(ctx, a, name, cfg)
}

func newAssembler(fsys FS, cfg Config) *front.Assembler {
	return front.New(fsys, front.Config{
		ImplicitLabel:   cfg.ImplicitLabel,
		NoImplicitLabel: cfg.NoAutomaticMain,
	}, &diag.Warnings{})
}

func compile(ctx context.Context, a *front.Assembler, name string, cfg Config) (res *Result, err error) {
	if cfg.EntryPoint == "" {
		cfg.EntryPoint = DefaultEntryPoint
	}

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "entry", cfg.EntryPoint, "strict", cfg.NoAutomaticMain)
	defer tr.Finish("err", &err)

	err = a.Run(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "assemble")
	}

	code, err := link.Link(ctx, a.Code(), a.Labels(), cfg.EntryPoint, a.Warnings())
	if err != nil {
		return nil, errors.Wrap(err, "resolve labels")
	}

	obj, err := image.Build(ctx, a.Labels(), code, cfg.EntryPoint)
	if err != nil {
		return nil, errors.Wrap(err, "build image")
	}

	tr.Printw("compiled", "size", len(obj), "instructions", len(code)/4, "warnings", a.Warnings().Len())

	return &Result{
		Image:    obj,
		Labels:   a.Labels(),
		Warnings: a.Warnings().List,
	}, nil
}

// Names returns label names in declaration order.
func (r *Result) Names() []string {
	l := r.Labels.Entries()
	names := make([]string, len(l))

	for i, e := range l {
		names[i] = e.Name
	}

	return names
}

func (OSFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}
