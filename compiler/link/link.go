package link

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/kl27/compiler/asm"
	"github.com/slowlang/kl27/compiler/diag"
	"github.com/slowlang/kl27/compiler/set"
)

// Resolve replaces label placeholders in s with label addresses from t.
// Labels referenced are added to used by their declaration index.
// Already resolved streams are left as is.
func Resolve(ctx context.Context, s asm.Stream, t *Table, used *set.Bitmap) (err error) {
	tr := tlog.SpanFromContext(ctx)

	for i, u := range s {
		l, ok := u.(asm.Label)
		if !ok {
			continue
		}

		r, err := l.Resolve(t)
		if err != nil {
			return errors.Wrap(err, "%v", l.Pos)
		}

		e, _ := t.Lookup(l.Name)

		if tr.If("link_resolve") {
			tr.Printw("resolve label", "label", l.Name, "offset", e.Offset, "pos", l.Pos, "from", loc.Caller(0))
		}

		s[i] = r

		if used != nil {
			used.Set(e.Index)
		}
	}

	return nil
}

// Link resolves the stream and returns the code body.
// Labels never referenced, except entry, are reported as unused.
func Link(ctx context.Context, s asm.Stream, t *Table, entry string, ws *diag.Warnings) (code []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "link", "labels", t.Len(), "placeholders", s.Labels())
	defer tr.Finish("err", &err)

	used := set.MakeBitmap(t.Len())

	err = Resolve(ctx, s, t, &used)
	if err != nil {
		return nil, err
	}

	tr.Printw("labels resolved", "used", used.Size(), "set", used)

	entries := t.Entries()

	for _, idx := range used.Missing(len(entries)) {
		e := entries[idx]
		if e.Name == entry {
			continue
		}

		if ws != nil {
			ws.Warn(ctx, diag.UnusedLabel, e.Pos, "label %q is never referenced", e.Name)
		}
	}

	code, err = s.Bytes()
	if err != nil {
		return nil, err
	}

	return code, nil
}
