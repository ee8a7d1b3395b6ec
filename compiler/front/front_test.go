package front

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/kl27/compiler/asm"
	"github.com/slowlang/kl27/compiler/diag"
	"github.com/slowlang/kl27/compiler/link"
)

func file(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

func run(t *testing.T, fs fstest.MapFS, cfg Config) (*Assembler, error) {
	t.Helper()

	ctx := context.Background()

	a := New(fs, cfg, nil)

	err := a.AddFile(ctx, "main.k27s")
	require.NoError(t, err)

	return a, a.Run(ctx)
}

func words(units ...[]asm.Unit) (b []byte) {
	for _, u := range units {
		for _, x := range u {
			b = append(b, x.(asm.Raw)...)
		}
	}

	return b
}

func enc(t *testing.T, mnem, args string) []asm.Unit {
	t.Helper()

	u, err := asm.Encode(mnem, args)
	require.NoError(t, err)

	return u
}

func TestAssembleSimple(t *testing.T) {
	a, err := run(t, fstest.MapFS{
		"main.k27s": file("main:\n  sl 5\n  hlt"),
	}, Config{})
	require.NoError(t, err)

	assert.Equal(t, Done, a.State())

	b, err := a.Code().Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 2, 0, 5, 0, 1, 0, 0}, b)

	l := a.Labels().Entries()
	require.Len(t, l, 1)
	assert.Equal(t, "main", l[0].Name)
	assert.Equal(t, 0, l[0].Offset)
	assert.Equal(t, 8, a.Pointer())
}

func TestAssembleImplicitLabel(t *testing.T) {
	a, err := run(t, fstest.MapFS{
		"main.k27s": file("sl 100000"),
	}, Config{})
	require.NoError(t, err)

	e, ok := a.Labels().Lookup("main")
	require.True(t, ok)
	assert.Equal(t, 0, e.Offset)

	b, err := a.Code().Bytes()
	require.NoError(t, err)
	assert.Equal(t, words(enc(t, "sl", "100000")), b)
	assert.Len(t, b, 20)

	w := a.Warnings().Of(diag.ImplicitLabel)
	require.Len(t, w, 1)
	assert.Equal(t, diag.Pos{File: "main.k27s", Line: 1}, w[0].Pos)
	assert.Contains(t, w[0].Msg, "assuming main")

	a, err = run(t, fstest.MapFS{
		"main.k27s": file("nop\nstart:\nhlt"),
	}, Config{ImplicitLabel: "start"})
	require.NoError(t, err)

	e, ok = a.Labels().Lookup("start")
	require.True(t, ok)
	assert.Equal(t, 4, e.Offset)
	assert.Len(t, a.Warnings().Of(diag.RedefinedLabel), 1)
	assert.Len(t, a.Warnings().Of(diag.ImplicitLabel), 1)
}

func TestAssembleStrict(t *testing.T) {
	a, err := run(t, fstest.MapFS{
		"main.k27s": file("// header\n\nsl 1"),
	}, Config{NoImplicitLabel: true})

	assert.True(t, errors.Is(err, diag.ErrNoLabel), "%v", err)
	assert.Contains(t, err.Error(), "main.k27s:3")
	assert.Equal(t, Error, a.State())
	assert.Equal(t, 0, a.Labels().Len())
}

func TestAssembleComments(t *testing.T) {
	a, err := run(t, fstest.MapFS{
		"main.k27s": file("// c\n\n\tmain:\r\n  hlt // stop\n  // nop\n"),
	}, Config{})
	require.NoError(t, err)

	b, err := a.Code().Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0, 0}, b)
}

func TestStripComment(t *testing.T) {
	for _, tc := range []struct{ in, out string }{
		{"hlt // stop", "hlt "},
		{"// all", ""},
		{"sl 1", "sl 1"},
		{`#include "lib//a.k27s"`, `#include "lib//a.k27s"`},
		{`#include "lib//a.k27s" // lib`, `#include "lib//a.k27s" `},
		{`#include 'a//b' // c`, `#include 'a//b' `},
		{`#include "a\"//b" // c`, `#include "a\"//b" `},
	} {
		assert.Equal(t, tc.out, stripComment(tc.in), "%q", tc.in)
	}
}

func TestAssembleRedefinedLabel(t *testing.T) {
	a, err := run(t, fstest.MapFS{
		"main.k27s": file("main:\n nop\nloop:\n nop\nmain:\n hlt"),
	}, Config{})
	require.NoError(t, err)

	l := a.Labels().Entries()
	require.Len(t, l, 2)

	assert.Equal(t, link.Entry{Name: "main", Index: 0, Offset: 8, Pos: diag.Pos{File: "main.k27s", Line: 5}}, l[0])
	assert.Equal(t, 4, l[1].Offset)

	assert.Equal(t, 12, a.Code().Len())

	w := a.Warnings().Of(diag.RedefinedLabel)
	require.Len(t, w, 1)
	assert.Equal(t, 5, w[0].Pos.Line)
}

func TestAssembleErrors(t *testing.T) {
	for _, tc := range []struct {
		src  string
		err  error
		msgs []string
	}{
		{"main:\n foo 1", diag.ErrUnknownInstruction, []string{"main.k27s:2", "in label main", "foo"}},
		{"main:\n rgw r9", diag.ErrUnknownRegister, []string{"main.k27s:2", "r9"}},
		{"#define x 1", diag.ErrUnknownDirective, []string{"main.k27s:1", "define"}},
		{"#include nope.k27s", diag.ErrMissingIncludeFile, []string{"nope.k27s"}},
		{"#include", diag.ErrMissingIncludeFile, nil},
		{"main:\n:\n", diag.ErrBadLabel, []string{"main.k27s:2"}},
		{"my label:\n", diag.ErrBadLabel, nil},
		{"main:\n sl 0x1_0000_0000", diag.ErrBadOperand, nil},
	} {
		a, err := run(t, fstest.MapFS{
			"main.k27s": file(tc.src),
		}, Config{})

		if !assert.True(t, errors.Is(err, tc.err), "%q: %v", tc.src, err) {
			continue
		}

		for _, m := range tc.msgs {
			assert.Contains(t, err.Error(), m, "%q", tc.src)
		}

		assert.Equal(t, Error, a.State())
	}
}

func TestAssembleMissingRoot(t *testing.T) {
	a := New(fstest.MapFS{}, Config{}, nil)

	err := a.AddFile(context.Background(), "main.k27s")
	assert.Error(t, err)
}

func TestIncludeOnce(t *testing.T) {
	a, err := run(t, fstest.MapFS{
		"main.k27s": file("#include lib.k27s\nmain:\n jmpr fn\n hlt\n#include lib.k27s\n"),
		"lib.k27s":  file("#ID lib\nfn:\n ret\n"),
	}, Config{})
	require.NoError(t, err)

	b := a.Code()
	assert.Equal(t, 12, b.Len())

	fn, ok := a.Labels().Lookup("fn")
	require.True(t, ok)
	assert.Equal(t, 0, fn.Offset)
	assert.Equal(t, diag.Pos{File: "lib.k27s", Line: 2}, fn.Pos)

	main, ok := a.Labels().Lookup("main")
	require.True(t, ok)
	assert.Equal(t, 4, main.Offset)

	assert.Len(t, a.Warnings().Of(diag.RepeatedInclusion), 1)
	assert.Len(t, a.Warnings().Of(diag.InclusionWithoutIdentifier), 0)
	assert.Len(t, a.Warnings().Of(diag.RedefinedLabel), 0)
}

func TestIncludeWithoutID(t *testing.T) {
	a, err := run(t, fstest.MapFS{
		"main.k27s": file("main:\n#include lib.k27s\n#include lib.k27s\n hlt"),
		"lib.k27s":  file("fn:\n ret"),
	}, Config{})
	require.NoError(t, err)

	assert.Equal(t, 12, a.Code().Len())
	assert.Len(t, a.Warnings().Of(diag.InclusionWithoutIdentifier), 2)
	assert.Len(t, a.Warnings().Of(diag.RedefinedLabel), 1)

	fn, _ := a.Labels().Lookup("fn")
	assert.Equal(t, 4, fn.Offset)
}

func TestIncludeNested(t *testing.T) {
	a, err := run(t, fstest.MapFS{
		"main.k27s":  file("main:\n#include lib/a.k27s\n jmpl b"),
		"lib/a.k27s": file("#ID a\n#include b.k27s\n"),
		"lib/b.k27s": file("#ID b\nb:\n nop"),
	}, Config{})
	require.NoError(t, err)

	b, ok := a.Labels().Lookup("b")
	require.True(t, ok)
	assert.Equal(t, diag.Pos{File: "lib/b.k27s", Line: 2}, b.Pos)
	assert.Equal(t, 0, b.Offset)

	code := a.Code()
	require.Len(t, code, 4)
	assert.Equal(t, asm.Label{Name: "b", Pos: diag.Pos{File: "main.k27s", Line: 3}}, code[2])
}

func TestIncludeSlashesInPath(t *testing.T) {
	a, err := run(t, fstest.MapFS{
		"main.k27s":  file("main:\n#include \"lib//a.k27s\" // helpers\n jmpr a\n hlt"),
		"lib/a.k27s": file("#ID a\na:\n nop"),
	}, Config{})
	require.NoError(t, err)

	e, ok := a.Labels().Lookup("a")
	require.True(t, ok)
	assert.Equal(t, diag.Pos{File: "lib/a.k27s", Line: 2}, e.Pos)
	assert.Equal(t, 12, a.Code().Len())
}

func TestIncludeRootID(t *testing.T) {
	a, err := run(t, fstest.MapFS{
		"main.k27s":   file("#ID prog\n#include \"my lib.k27s\"\nmain:\n hlt"),
		"my lib.k27s": file("#ID prog\nx:\n nop"),
	}, Config{})
	require.NoError(t, err)

	_, ok := a.Labels().Lookup("x")
	assert.False(t, ok)
	assert.Len(t, a.Warnings().Of(diag.RepeatedInclusion), 1)
}

func TestIncludeLimit(t *testing.T) {
	_, err := run(t, fstest.MapFS{
		"main.k27s": file("#include loop.k27s"),
		"loop.k27s": file("#include loop.k27s"),
	}, Config{})

	assert.True(t, errors.Is(err, diag.ErrIncludeLimit), "%v", err)
}

func TestIncludePath(t *testing.T) {
	for _, tc := range []struct {
		in, out string
		err     bool
	}{
		{"a.k27s", "a.k27s", false},
		{`"a b.k27s"`, "a b.k27s", false},
		{`'a b.k27s'`, "a b.k27s", false},
		{`"a\tb"`, "a\tb", false},
		{"a b", "", true},
		{`"a`, "", true},
		{`"a" b`, "", true},
		{"", "", true},
	} {
		p, err := includePath(tc.in)
		if tc.err {
			assert.Error(t, err, "%q", tc.in)
			continue
		}

		require.NoError(t, err, "%q", tc.in)
		assert.Equal(t, tc.out, p)
	}
}
