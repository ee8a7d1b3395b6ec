package format

import (
	"context"
	"sort"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/kl27/compiler/asm"
	"github.com/slowlang/kl27/compiler/image"
)

type (
	// Named is an image with label names known from its compilation.
	Named struct {
		*image.Image

		Names []string
	}

	label struct {
		off  int
		name string
	}
)

// Format appends a human readable listing of x to b.
// x is either *image.Image or Named.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	switch x := x.(type) {
	case *image.Image:
		return formatImage(ctx, b, x, nil)
	case Named:
		return formatImage(ctx, b, x.Image, x.Names)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatImage(ctx context.Context, b []byte, x *image.Image, names []string) (_ []byte, err error) {
	labels := make([]label, len(x.Labels))

	for i, off := range x.Labels {
		labels[i] = label{off: int(off), name: labelName(names, i)}
	}

	b = formatHeader(b, x, labels)

	b = hfmt.Appendf(b, "labels   %d\n", len(labels))

	for i, l := range labels {
		b = hfmt.Appendf(b, "  %4d  0x%08x  %s\n", i, l.off, l.name)
	}

	b = hfmt.Appendf(b, "code     %d bytes\n", len(x.Code))

	b, err = formatCode(ctx, b, x.Code, labels)
	if err != nil {
		return nil, errors.Wrap(err, "code")
	}

	return b, nil
}

func formatHeader(b []byte, x *image.Image, labels []label) []byte {
	entry := ""

	for _, l := range labels {
		if l.off == int(x.Entry) {
			entry = l.name
			break
		}
	}

	b = hfmt.Appendf(b, "magic    %s\n", image.Magic)
	b = hfmt.Appendf(b, "version  %d\n", x.Version)
	b = hfmt.Appendf(b, "compress %d\n", x.Compression)
	b = hfmt.Appendf(b, "entry    0x%08x  %s\n", x.Entry, entry)
	b = hfmt.Appendf(b, "stack    %d\n", x.StackSize)
	b = hfmt.Appendf(b, "checksum %08x\n", x.Checksum)

	return b
}

func formatCode(ctx context.Context, b []byte, code []byte, labels []label) ([]byte, error) {
	l, err := asm.Decode(code)
	if err != nil {
		return nil, err
	}

	byOff := append([]label(nil), labels...)
	sort.SliceStable(byOff, func(i, j int) bool { return byOff[i].off < byOff[j].off })

	j := 0

	for _, in := range l {
		for ; j < len(byOff) && byOff[j].off <= in.Addr; j++ {
			b = hfmt.Appendf(b, "%s:\n", byOff[j].name)
		}

		w := code[in.Addr : in.Addr+asm.WordSize]

		b = hfmt.Appendf(b, "  %04x  % x  %v\n", in.Addr, w, in)
	}

	for ; j < len(byOff); j++ {
		b = hfmt.Appendf(b, "%s:\n", byOff[j].name)
	}

	return b, nil
}

func labelName(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}

	return string(hfmt.Appendf(nil, "L%d", i))
}
