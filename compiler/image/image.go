package image

import (
	"context"
	"encoding/binary"
	"hash/crc32"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/kl27/compiler/diag"
	"github.com/slowlang/kl27/compiler/link"
)

type (
	Header struct {
		Version     byte
		Compression byte
		Entry       uint32
		StackSize   uint16
		Checksum    uint32
	}

	// Image is a KL27 executable.
	Image struct {
		Header

		// Labels are label offsets in declaration order.
		Labels []int32

		Code []byte
	}
)

const (
	Magic = "KL27"

	Version      = 1
	Uncompressed = 0
	StackSize    = 4

	HeaderSize = 16

	Sentinel = 0xffffffff
)

var (
	ErrFormat   = errors.New("bad image format")
	ErrChecksum = errors.New("checksum mismatch")
)

// Build makes an executable from a resolved code body.
func Build(ctx context.Context, t *link.Table, code []byte, entry string) (b []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "image: build", "entry", entry, "code_size", len(code))
	defer tr.Finish("err", &err)

	e, ok := t.Lookup(entry)
	if !ok {
		return nil, errors.Wrap(diag.ErrMissingEntryPoint, "could not find entry point label %q", entry)
	}

	tr.Printw("entry point", "label", entry, "addr", e.Offset)

	l := t.Entries()
	if len(l) > 0xffff {
		return nil, errors.Wrap(diag.ErrAddressRange, "%d labels", len(l))
	}

	img := &Image{
		Header: Header{
			Version:     Version,
			Compression: Uncompressed,
			Entry:       uint32(e.Offset),
			StackSize:   StackSize,
			Checksum:    crc32.ChecksumIEEE(code),
		},
		Labels: make([]int32, len(l)),
		Code:   code,
	}

	for i, e := range l {
		img.Labels[i] = int32(e.Offset)
	}

	b = img.Append(nil)

	tr.Printw("image built", "size", len(b), "labels", len(l), "checksum", tlog.FormatNext("%08x"), img.Checksum)

	return b, nil
}

// Size is the encoded image size.
func (img *Image) Size() int {
	return HeaderSize + 2 + 4*len(img.Labels) + 4 + len(img.Code)
}

func (img *Image) Append(b []byte) []byte {
	b = append(b, Magic...)
	b = append(b, img.Version, img.Compression)
	b = binary.BigEndian.AppendUint32(b, img.Entry)
	b = binary.BigEndian.AppendUint16(b, img.StackSize)
	b = binary.BigEndian.AppendUint32(b, img.Checksum)

	b = binary.BigEndian.AppendUint16(b, uint16(len(img.Labels)))

	for _, off := range img.Labels {
		b = binary.BigEndian.AppendUint32(b, uint32(off))
	}

	b = binary.BigEndian.AppendUint32(b, Sentinel)

	return append(b, img.Code...)
}

// Decode parses and verifies an image.
func Decode(b []byte) (img *Image, err error) {
	if len(b) < HeaderSize+2 {
		return nil, errors.Wrap(ErrFormat, "short image: %d bytes", len(b))
	}

	if string(b[:4]) != Magic {
		return nil, errors.Wrap(ErrFormat, "bad magic: %q", b[:4])
	}

	img = &Image{
		Header: Header{
			Version:     b[4],
			Compression: b[5],
			Entry:       binary.BigEndian.Uint32(b[6:]),
			StackSize:   binary.BigEndian.Uint16(b[10:]),
			Checksum:    binary.BigEndian.Uint32(b[12:]),
		},
	}

	if img.Version != Version {
		return nil, errors.Wrap(ErrFormat, "unsupported version: %d", img.Version)
	}

	if img.Compression != Uncompressed {
		return nil, errors.Wrap(ErrFormat, "unsupported compression: %d", img.Compression)
	}

	n := int(binary.BigEndian.Uint16(b[HeaderSize:]))
	i := HeaderSize + 2

	if len(b) < i+4*n+4 {
		return nil, errors.Wrap(ErrFormat, "truncated label table: %d labels", n)
	}

	img.Labels = make([]int32, n)

	for j := range img.Labels {
		img.Labels[j] = int32(binary.BigEndian.Uint32(b[i:]))
		i += 4
	}

	if s := binary.BigEndian.Uint32(b[i:]); s != Sentinel {
		return nil, errors.Wrap(ErrFormat, "label table sentinel: %08x", s)
	}

	i += 4

	img.Code = b[i:]

	if sum := crc32.ChecksumIEEE(img.Code); sum != img.Checksum {
		return nil, errors.Wrap(ErrChecksum, "header %08x, code %08x", img.Checksum, sum)
	}

	return img, nil
}
