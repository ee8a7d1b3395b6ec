package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"
	"golang.org/x/term"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/kl27/compiler"
	"github.com/slowlang/kl27/compiler/format"
	"github.com/slowlang/kl27/compiler/image"
)

const Ext = ".k27"

func main() {
	asmCmd := &cli.Command{
		Name:        "asm",
		Description: "assemble source file into KL27 executable",
		Action:      asmAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("infile,i", "", "input file"),
			cli.NewFlag("outfile,o", "", "output file, - for stdout (default: input file with "+Ext+" extension)"),
			cli.NewFlag("entry-point", env.Str("KL27_ENTRY_POINT", compiler.DefaultEntryPoint), "entry point label"),
			cli.NewFlag("no-automatic-main", env.Bool("KL27_NO_AUTOMATIC_MAIN"), "instructions before the first label are an error"),
		},
	}

	dumpCmd := &cli.Command{
		Name:        "dump",
		Description: "print KL27 executable header, label table and disassembly",
		Action:      dumpAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("source,s", false, "arguments are source files, compile them first to show label names"),
			cli.NewFlag("entry-point", env.Str("KL27_ENTRY_POINT", compiler.DefaultEntryPoint), "entry point label"),
			cli.NewFlag("no-automatic-main", env.Bool("KL27_NO_AUTOMATIC_MAIN"), "instructions before the first label are an error"),
		},
	}

	app := &cli.Command{
		Name:        "kl27asm",
		Description: "kl27asm is the KL27 assembler",
		Commands: []*cli.Command{
			asmCmd,
			dumpCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func asmAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	in := c.String("infile")
	if in == "" && len(c.Args) != 0 {
		in = c.Args[0]
	}

	if in == "" {
		return errors.New("input file expected")
	}

	cfg := compiler.Config{
		EntryPoint:      c.String("entry-point"),
		NoAutomaticMain: c.Bool("no-automatic-main"),
	}

	return assemble(ctx, in, c.String("outfile"), cfg, os.Stdout)
}

func dumpAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	cfg := compiler.Config{
		EntryPoint:      c.String("entry-point"),
		NoAutomaticMain: c.Bool("no-automatic-main"),
	}

	for _, a := range c.Args {
		b, err := dump(ctx, a, c.Bool("source"), cfg)
		if err != nil {
			return err
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

// dump returns the listing of an image file, or of a source file if source is set.
func dump(ctx context.Context, name string, source bool, cfg compiler.Config) ([]byte, error) {
	var x any

	if source {
		res, err := compiler.CompileFile(ctx, name, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "compile %v", name)
		}

		img, err := image.Decode(res.Image)
		if err != nil {
			return nil, errors.Wrap(err, "decode %v", name)
		}

		x = format.Named{Image: img, Names: res.Names()}
	} else {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, errors.Wrap(err, "read file")
		}

		img, err := image.Decode(data)
		if err != nil {
			return nil, errors.Wrap(err, "decode %v", name)
		}

		x = img
	}

	b, err := format.Format(ctx, nil, x)
	if err != nil {
		return nil, errors.Wrap(err, "format %v", name)
	}

	return b, nil
}

// assemble compiles in and writes the image to out.
// Nothing is written if compilation fails.
func assemble(ctx context.Context, in, out string, cfg compiler.Config, stdout *os.File) (err error) {
	if out == "" {
		out = outName(in)
	}

	if out == "-" && term.IsTerminal(int(stdout.Fd())) {
		return errors.New("refusing to write binary image to a terminal")
	}

	tlog.SpanFromContext(ctx).Printw("compiling", "in", in, "out", out)

	res, err := compiler.CompileFile(ctx, in, cfg)
	if err != nil {
		return errors.Wrap(err, "compile %v", in)
	}

	if out == "-" {
		err = writeAll(stdout, res.Image)
	} else {
		err = os.WriteFile(out, res.Image, 0o644)
	}
	if err != nil {
		return errors.Wrap(err, "write %v", out)
	}

	tlog.SpanFromContext(ctx).Printw("compiled file successfully", "out", out, "written", len(res.Image), "warnings", len(res.Warnings))

	return nil
}

func writeAll(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

// outName never returns in itself, so a source named *.k27 is not overwritten.
func outName(in string) string {
	if filepath.Ext(in) == Ext {
		return in + Ext
	}

	return strings.TrimSuffix(in, filepath.Ext(in)) + Ext
}
