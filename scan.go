package litpatch

import (
	"bytes"
	"fmt"
)

// Span is a half-open byte range [Start, End) within a document.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two non-empty spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

func (s Span) String() string { return fmt.Sprintf("[%d,%d)", s.Start, s.End) }

// Scanner yields the top-level brace groups of a document, one per Next call.
//
// The scanner runs in two modes. In code mode '{' and '}' move the depth counter;
// in string mode (entered on ', " or ` and left on the same unescaped delimiter)
// they are inert. Comments are not understood. Any imbalance stops the scan with a
// *StructuralError and no partial span is produced.
type Scanner struct {
	buf  []byte
	pos  int
	span Span
	err  error
	done bool
}

// NewScanner starts a scan at offset from. A fresh scanner at any offset restarts it.
func NewScanner(doc []byte, from int) *Scanner {
	if from < 0 {
		from = 0
	}
	if from > len(doc) {
		from = len(doc)
	}
	return &Scanner{buf: doc, pos: from}
}

// Next advances to the next balanced group. It returns false at the end of input
// or on error; check Err afterwards.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}
	depth := 0
	start := -1
	for i := s.pos; i < len(s.buf); i++ {
		switch c := s.buf[i]; c {
		case '\'', '"', '`':
			end, ok := skipString(s.buf, i)
			if !ok {
				return s.fail(structural(i, "unterminated %q string", c))
			}
			i = end - 1
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				return s.fail(structural(i, "unmatched closing brace"))
			}
			depth--
			if depth == 0 {
				s.span = Span{Start: start, End: i + 1}
				s.pos = i + 1
				return true
			}
		}
	}
	if depth != 0 {
		return s.fail(structural(start, "brace opened here is never closed"))
	}
	s.done = true
	return false
}

func (s *Scanner) fail(err error) bool {
	s.err = err
	s.done = true
	s.span = Span{}
	return false
}

// Span returns the group found by the last successful Next.
func (s *Scanner) Span() Span { return s.span }

// Err returns the structural error that stopped the scan, if any.
func (s *Scanner) Err() error { return s.err }

// Spans collects every top-level group at or after from.
func Spans(doc []byte, from int) ([]Span, error) {
	sc := NewScanner(doc, from)
	var out []Span
	for sc.Next() {
		out = append(out, sc.Span())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AnchorRange returns the interior of the array literal assigned after anchor
// (e.g. "export const aiToolsData"). The '=' is located first so that a type
// annotation like AITool[] is not mistaken for the array. Brackets inside strings
// are skipped the same way the scanner skips braces.
func AnchorRange(doc []byte, anchor string) (Span, error) {
	if anchor == "" {
		return Span{Start: 0, End: len(doc)}, nil
	}
	at := bytes.Index(doc, []byte(anchor))
	if at < 0 {
		return Span{}, fmt.Errorf("%w: %q", ErrAnchorNotFound, anchor)
	}
	i := at + len(anchor)
	if eq := bytes.IndexByte(doc[i:], '='); eq >= 0 {
		i += eq + 1
	}
	br := bytes.IndexByte(doc[i:], '[')
	if br < 0 {
		return Span{}, fmt.Errorf("%w: no array after %q", ErrAnchorNotFound, anchor)
	}
	open := i + br
	end, err := matchDelim(doc, open)
	if err != nil {
		return Span{}, err
	}
	return Span{Start: open + 1, End: end - 1}, nil
}

// matchDelim returns the offset just past the delimiter closing the '[' or '{' at
// buf[open], skipping string literals.
func matchDelim(buf []byte, open int) (int, error) {
	var stack []byte
	for i := open; i < len(buf); i++ {
		switch c := buf[i]; c {
		case '\'', '"', '`':
			end, ok := skipString(buf, i)
			if !ok {
				return 0, structural(i, "unterminated %q string", c)
			}
			i = end - 1
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, structural(i, "unexpected %q", c)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, structural(open, "%q opened here is never closed", buf[open])
}

// skipString returns the offset just past the string literal opening at buf[i].
func skipString(buf []byte, i int) (int, bool) {
	q := buf[i]
	for j := i + 1; j < len(buf); j++ {
		switch buf[j] {
		case '\\':
			j++
		case q:
			return j + 1, true
		}
	}
	return len(buf), false
}
