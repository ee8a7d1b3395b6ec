package link

import (
	"github.com/slowlang/kl27/compiler/diag"
)

type (
	Entry struct {
		Name   string
		Index  int // declaration order
		Offset int
		Pos    diag.Pos
	}

	// Table maps label names to code offsets.
	// Entries keep the order of first declaration.
	Table struct {
		byName map[string]int
		list   []Entry
	}
)

func NewTable() *Table {
	return &Table{
		byName: map[string]int{},
	}
}

// Declare adds label or moves an existing one to off.
// A moved label keeps its declaration index.
func (t *Table) Declare(name string, off int, pos diag.Pos) (e Entry, redefined bool) {
	if t.byName == nil {
		t.byName = map[string]int{}
	}

	idx, redefined := t.byName[name]
	if !redefined {
		idx = len(t.list)
		t.byName[name] = idx
		t.list = append(t.list, Entry{Name: name, Index: idx})
	}

	t.list[idx].Offset = off
	t.list[idx].Pos = pos

	return t.list[idx], redefined
}

func (t *Table) Lookup(name string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}

	idx, ok := t.byName[name]
	if !ok {
		return Entry{}, false
	}

	return t.list[idx], true
}

func (t *Table) Offset(name string) (int, bool) {
	e, ok := t.Lookup(name)

	return e.Offset, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.list)
}

// Entries returns labels in declaration order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}

	return append([]Entry(nil), t.list...)
}
