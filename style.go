package litpatch

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Style holds the lexical conventions of the target document.
type Style struct {
	Quote  byte   // string delimiter: ', " or `
	Indent string // one nesting level, e.g. "  " or "\t"
	Null   string // token written for Null values: null or undefined
}

// DefaultStyle matches hand-written TypeScript data modules.
var DefaultStyle = Style{Quote: '\'', Indent: "  ", Null: "null"}

func (s Style) normalize() Style {
	switch s.Quote {
	case '\'', '"', '`':
	default:
		s.Quote = DefaultStyle.Quote
	}
	if s.Indent == "" {
		s.Indent = DefaultStyle.Indent
	}
	if s.Null == "" {
		s.Null = DefaultStyle.Null
	}
	return s
}

// Override returns s with every non-zero member of o applied.
func (s Style) Override(o Style) Style {
	if o.Quote != 0 {
		s.Quote = o.Quote
	}
	if o.Indent != "" {
		s.Indent = o.Indent
	}
	if o.Null != "" {
		s.Null = o.Null
	}
	return s.normalize()
}

// Render serializes v at the given nesting depth. Scalars and scalar-only lists stay
// on one line; lists holding lists or maps, and all non-empty maps, go multi-line
// with the closing delimiter at depth.
func (s Style) Render(v Value, depth int) string {
	s = s.normalize()
	var sb strings.Builder
	s.render(&sb, v, depth)
	return sb.String()
}

func (s Style) render(sb *strings.Builder, v Value, depth int) {
	switch v.kind {
	case KindString:
		sb.WriteString(s.quote(v.str))
	case KindNumber:
		sb.WriteString(formatNumber(v.num))
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindNull:
		sb.WriteString(s.Null)
	case KindList:
		s.renderList(sb, v.list, depth)
	case KindMap:
		s.renderMap(sb, v.fields, depth)
	}
}

func (s Style) renderList(sb *strings.Builder, items []Value, depth int) {
	if len(items) == 0 {
		sb.WriteString("[]")
		return
	}
	compact := true
	for _, it := range items {
		if !it.IsScalar() {
			compact = false
			break
		}
	}
	if compact {
		sb.WriteByte('[')
		for i, it := range items {
			if i > 0 {
				sb.WriteString(", ")
			}
			s.render(sb, it, 0)
		}
		sb.WriteByte(']')
		return
	}
	sb.WriteString("[\n")
	for i, it := range items {
		s.writeIndent(sb, depth+1)
		s.render(sb, it, depth+1)
		if i < len(items)-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	s.writeIndent(sb, depth)
	sb.WriteByte(']')
}

func (s Style) renderMap(sb *strings.Builder, fields []Field, depth int) {
	if len(fields) == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteString("{\n")
	for i, f := range fields {
		s.writeIndent(sb, depth+1)
		sb.WriteString(s.key(f.Key))
		sb.WriteString(": ")
		s.render(sb, f.Value, depth+1)
		if i < len(fields)-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	s.writeIndent(sb, depth)
	sb.WriteByte('}')
}

func (s Style) writeIndent(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteString(s.Indent)
	}
}

// key leaves identifier keys bare and quotes the rest ('Free tier': ...).
func (s Style) key(k string) string {
	if isIdent(k) {
		return k
	}
	return s.quote(k)
}

// quote escapes only what would end or break the literal.
func (s Style) quote(str string) string {
	var sb strings.Builder
	sb.Grow(len(str) + 2)
	sb.WriteByte(s.Quote)
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch {
		case c == s.Quote || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '$' && s.Quote == '`' && i+1 < len(str) && str[i+1] == '{':
			sb.WriteString(`\$`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(s.Quote)
	return sb.String()
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isIdent(k string) bool {
	if k == "" {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			continue
		}
		if i > 0 && c >= '0' && c <= '9' {
			continue
		}
		return false
	}
	return true
}

// DetectStyle infers indent unit, quote and null token from an existing document.
func DetectStyle(doc []byte) Style {
	st := DefaultStyle
	st.Indent = detectIndent(doc)
	st.Quote = detectQuote(doc)
	if bytes.Count(doc, []byte(": undefined")) > bytes.Count(doc, []byte(": null")) {
		st.Null = "undefined"
	}
	return st
}

// detectIndent returns the indentation unit: a tab when tab-indented lines
// dominate, else the GCD of all non-zero space indents.
func detectIndent(b []byte) string {
	lines := bytes.Split(b, []byte("\n"))

	tabs, spaced := 0, 0
	indents := []int{}
	for _, ln := range lines {
		if len(bytes.TrimSpace(ln)) == 0 {
			continue
		}
		if ln[0] == '\t' {
			tabs++
			continue
		}
		// Skip comment lines
		trimmed := bytes.TrimLeft(ln, " ")
		if bytes.HasPrefix(trimmed, []byte("//")) || bytes.HasPrefix(trimmed, []byte("*")) {
			continue
		}

		n := leadingSpaces(ln)
		if n > 0 {
			spaced++
			indents = append(indents, n)
		}
	}
	if tabs > spaced {
		return "\t"
	}
	if len(indents) == 0 {
		return DefaultStyle.Indent
	}

	// Find the GCD of all indents to get base indent
	result := indents[0]
	for i := 1; i < len(indents); i++ {
		result = gcd(result, indents[i])
		if result == 1 {
			break
		}
	}

	if result > 0 && result <= 8 {
		return strings.Repeat(" ", result)
	}
	return DefaultStyle.Indent
}

// detectQuote votes on the delimiter used by string values (after a ':').
func detectQuote(b []byte) byte {
	single, double := 0, 0
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '\'', '"', '`':
			end, _ := skipString(b, i)
			i = end - 1
		case ':':
			j := i + 1
			for j < len(b) && (b[j] == ' ' || b[j] == '\t') {
				j++
			}
			if j < len(b) {
				switch b[j] {
				case '\'':
					single++
				case '"':
					double++
				}
			}
		}
	}
	if double > single {
		return '"'
	}
	return '\''
}

// depthAt returns the nesting depth implied by the indentation of the line holding off.
func (s Style) depthAt(doc []byte, off int) int {
	s = s.normalize()
	ls := bytes.LastIndexByte(doc[:off], '\n') + 1
	tabs, spaces := 0, 0
	for i := ls; i < len(doc); i++ {
		if doc[i] == '\t' {
			tabs++
		} else if doc[i] == ' ' {
			spaces++
		} else {
			break
		}
	}
	if s.Indent == "\t" {
		return tabs
	}
	return (spaces + tabs*len(s.Indent)) / len(s.Indent)
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func leadingSpaces(line []byte) int {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}
