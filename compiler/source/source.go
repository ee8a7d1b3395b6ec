package source

import (
	"strings"

	"github.com/slowlang/kl27/compiler/diag"
)

type (
	Line struct {
		Pos  diag.Pos
		Text string
	}

	// Queue is a cursor over an ordered sequence of lines
	// which can be extended at the cursor while scanning.
	Queue struct {
		lines []Line
		next  int
	}
)

// Split splits file text into lines numbered from first.
func Split(name string, text []byte, first int) []Line {
	s := strings.ReplaceAll(string(text), "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")

	if s == "" {
		return nil
	}

	parts := strings.Split(s, "\n")
	l := make([]Line, len(parts))

	for i, p := range parts {
		l[i] = Line{
			Pos:  diag.Pos{File: name, Line: first + i},
			Text: strings.TrimSuffix(p, "\r"),
		}
	}

	return l
}

func NewQueue(lines []Line) *Queue {
	return &Queue{lines: lines}
}

// Next returns the next line to process.
func (q *Queue) Next() (l Line, ok bool) {
	if q.next == len(q.lines) {
		return Line{}, false
	}

	l = q.lines[q.next]
	q.next++

	return l, true
}

// Inject puts lines right after the last returned one,
// so they are returned by the following calls to Next in order.
func (q *Queue) Inject(lines []Line) {
	if len(lines) == 0 {
		return
	}

	rest := q.lines[q.next:]

	l := make([]Line, 0, q.next+len(lines)+len(rest))
	l = append(l, q.lines[:q.next]...)
	l = append(l, lines...)
	l = append(l, rest...)

	q.lines = l
}

// Processed is the number of lines returned so far.
func (q *Queue) Processed() int { return q.next }

// Pending is the number of lines not yet returned.
func (q *Queue) Pending() int { return len(q.lines) - q.next }
