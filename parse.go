package litpatch

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseValue reads the literal at the start of lit (leading blanks and comments
// allowed) and returns it with the offset just past it. It understands quoted
// strings, numbers, true/false, null/undefined, lists and maps with bare or quoted
// keys and trailing commas. Anything else (identifiers, calls, templates with
// interpolation) is rejected.
func ParseValue(lit []byte) (Value, int, error) {
	p := &literalParser{buf: lit}
	v, err := p.value()
	if err != nil {
		return Value{}, 0, err
	}
	return v, p.pos, nil
}

type literalParser struct {
	buf []byte
	pos int
}

func (p *literalParser) fail(format string, args ...any) error {
	return structural(p.pos, format, args...)
}

func (p *literalParser) skipBlank() {
	for p.pos < len(p.buf) {
		c := p.buf[p.pos]
		switch {
		case isSpace(c):
			p.pos++
		case c == '/' && p.pos+1 < len(p.buf) && p.buf[p.pos+1] == '/':
			for p.pos < len(p.buf) && p.buf[p.pos] != '\n' {
				p.pos++
			}
		case c == '/' && p.pos+1 < len(p.buf) && p.buf[p.pos+1] == '*':
			end := strings.Index(string(p.buf[p.pos+2:]), "*/")
			if end < 0 {
				p.pos = len(p.buf)
				return
			}
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *literalParser) value() (Value, error) {
	p.skipBlank()
	if p.pos >= len(p.buf) {
		return Value{}, p.fail("unexpected end of literal")
	}
	c := p.buf[p.pos]
	switch {
	case c == '\'' || c == '"' || c == '`':
		s, err := p.str()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case c == '[':
		return p.list()
	case c == '{':
		return p.mapping()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case isIdentStart(c):
		start := p.pos
		for p.pos < len(p.buf) && isIdentPart(p.buf[p.pos]) {
			p.pos++
		}
		switch w := string(p.buf[start:p.pos]); w {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "null", "undefined":
			return Null(), nil
		case "NaN":
			return Number(math.NaN()), nil
		case "Infinity":
			return Number(math.Inf(1)), nil
		default:
			p.pos = start
			return Value{}, p.fail("unsupported expression %q", w)
		}
	}
	return Value{}, p.fail("unexpected %q", c)
}

func (p *literalParser) str() (string, error) {
	end, ok := skipString(p.buf, p.pos)
	if !ok {
		return "", p.fail("unterminated string")
	}
	raw := p.buf[p.pos:end]
	if raw[0] == '`' && hasInterpolation(raw) {
		return "", p.fail("template interpolation is not a literal")
	}
	s, err := unquote(raw)
	if err != nil {
		return "", err
	}
	p.pos = end
	return s, nil
}

// hasInterpolation reports an unescaped ${ inside a template literal.
func hasInterpolation(raw []byte) bool {
	for i := 1; i+1 < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
		case '$':
			if raw[i+1] == '{' {
				return true
			}
		}
	}
	return false
}

func (p *literalParser) number() (Value, error) {
	start := p.pos
	for p.pos < len(p.buf) {
		c := p.buf[p.pos]
		if c == '+' || c == '-' || c == '.' || c == '_' || isIdentPart(c) {
			p.pos++
			continue
		}
		break
	}
	tok := strings.ReplaceAll(string(p.buf[start:p.pos]), "_", "")
	switch tok {
	case "-Infinity":
		return Number(math.Inf(-1)), nil
	case "+Infinity":
		return Number(math.Inf(1)), nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return Number(f), nil
	}
	if i, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return Int(i), nil
	}
	p.pos = start
	return Value{}, p.fail("invalid number %q", tok)
}

func (p *literalParser) list() (Value, error) {
	p.pos++ // [
	items := []Value{}
	for {
		p.skipBlank()
		if p.pos >= len(p.buf) {
			return Value{}, p.fail("unterminated list")
		}
		if p.buf[p.pos] == ']' {
			p.pos++
			return List(items...), nil
		}
		v, err := p.value()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
		p.skipBlank()
		if p.pos < len(p.buf) && p.buf[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.pos < len(p.buf) && p.buf[p.pos] == ']' {
			continue
		}
		return Value{}, p.fail("expected ',' or ']' in list")
	}
}

func (p *literalParser) mapping() (Value, error) {
	p.pos++ // {
	fields := []Field{}
	for {
		p.skipBlank()
		if p.pos >= len(p.buf) {
			return Value{}, p.fail("unterminated map")
		}
		if p.buf[p.pos] == '}' {
			p.pos++
			return Map(fields...), nil
		}
		key, err := p.key()
		if err != nil {
			return Value{}, err
		}
		p.skipBlank()
		if p.pos >= len(p.buf) || p.buf[p.pos] != ':' {
			return Value{}, p.fail("expected ':' after key %q", key)
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return Value{}, err
		}
		fields = append(fields, Field{Key: key, Value: v})
		p.skipBlank()
		if p.pos < len(p.buf) && p.buf[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.pos < len(p.buf) && p.buf[p.pos] == '}' {
			continue
		}
		return Value{}, p.fail("expected ',' or '}' in map")
	}
}

func (p *literalParser) key() (string, error) {
	c := p.buf[p.pos]
	switch {
	case c == '\'' || c == '"':
		return p.str()
	case isIdentStart(c) || (c >= '0' && c <= '9'):
		start := p.pos
		for p.pos < len(p.buf) && isIdentPart(p.buf[p.pos]) {
			p.pos++
		}
		return string(p.buf[start:p.pos]), nil
	}
	return "", p.fail("invalid map key")
}

// unquote decodes a quoted literal including its delimiters.
func unquote(raw []byte) (string, error) {
	if len(raw) < 2 || raw[len(raw)-1] != raw[0] {
		return "", structural(0, "malformed string literal")
	}
	body := raw[1 : len(raw)-1]
	if !strings.ContainsRune(string(body), '\\') {
		return string(body), nil
	}
	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch e := body[i]; e {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '\n':
			// line continuation
		case 'u':
			r, n := decodeUnicodeEscape(body[i+1:])
			if n == 0 {
				sb.WriteByte('u')
				continue
			}
			sb.WriteRune(r)
			i += n
		case 'x':
			if i+2 < len(body) {
				if b, err := strconv.ParseUint(string(body[i+1:i+3]), 16, 8); err == nil {
					sb.WriteRune(rune(b))
					i += 2
					continue
				}
			}
			sb.WriteByte('x')
		default:
			sb.WriteByte(e)
		}
	}
	return sb.String(), nil
}

// decodeUnicodeEscape handles XXXX and {X...} after a \u.
func decodeUnicodeEscape(b []byte) (rune, int) {
	if len(b) > 0 && b[0] == '{' {
		end := strings.IndexByte(string(b), '}')
		if end < 2 {
			return 0, 0
		}
		n, err := strconv.ParseUint(string(b[1:end]), 16, 32)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return 0, 0
		}
		return rune(n), end + 1
	}
	if len(b) < 4 {
		return 0, 0
	}
	n, err := strconv.ParseUint(string(b[:4]), 16, 16)
	if err != nil {
		return 0, 0
	}
	return rune(n), 4
}
