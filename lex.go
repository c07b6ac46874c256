package litpatch

// keyRef locates one `key: value` pair at the top level of a record.
type keyRef struct {
	name       string
	start      int // first byte of the key token (or its opening quote)
	valueStart int // first byte of the value literal
}

// walkKeys calls fn for every key that sits directly inside the outermost brace of
// raw, in order, until fn returns false. A key is an identifier or a quoted string
// that follows '{' or ',' and is followed by ':'. Keys of nested objects, string
// contents and spread/shorthand entries are never reported. Comments are skipped.
func walkKeys(raw []byte, fn func(k keyRef) bool) error {
	depth := 0
	var prev byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case isSpace(c):
			continue
		case c == '/' && i+1 < len(raw) && (raw[i+1] == '/' || raw[i+1] == '*'):
			i = skipComment(raw, i) - 1
			continue
		case c == '\'' || c == '"' || c == '`':
			end, ok := skipString(raw, i)
			if !ok {
				return structural(i, "unterminated %q string", c)
			}
			if depth == 1 && (prev == '{' || prev == ',') && c != '`' {
				if vs, ok := afterColon(raw, end); ok {
					name, err := unquote(raw[i:end])
					if err != nil {
						return err
					}
					if !fn(keyRef{name: name, start: i, valueStart: vs}) {
						return nil
					}
				}
			}
			i = end - 1
			prev = c
		case c == '{' || c == '[' || c == '(':
			depth++
			prev = c
		case c == '}' || c == ']' || c == ')':
			depth--
			if depth < 0 {
				return structural(i, "unexpected %q", c)
			}
			prev = c
		case isIdentStart(c):
			j := i + 1
			for j < len(raw) && isIdentPart(raw[j]) {
				j++
			}
			if depth == 1 && (prev == '{' || prev == ',') {
				if vs, ok := afterColon(raw, j); ok {
					if !fn(keyRef{name: string(raw[i:j]), start: i, valueStart: vs}) {
						return nil
					}
				}
			}
			i = j - 1
			prev = 'a'
		default:
			prev = c
		}
	}
	if depth != 0 {
		return structural(len(raw), "record ends at depth %d", depth)
	}
	return nil
}

// skipComment returns the offset just past the line or block comment at raw[i].
func skipComment(raw []byte, i int) int {
	if raw[i+1] == '/' {
		for i < len(raw) && raw[i] != '\n' {
			i++
		}
		return i
	}
	for j := i + 2; j+1 < len(raw); j++ {
		if raw[j] == '*' && raw[j+1] == '/' {
			return j + 2
		}
	}
	return len(raw)
}

// afterColon checks for ':' after optional blanks at i and returns where the value begins.
func afterColon(raw []byte, i int) (int, bool) {
	for i < len(raw) && isSpace(raw[i]) {
		i++
	}
	if i >= len(raw) || raw[i] != ':' {
		return 0, false
	}
	i++
	for i < len(raw) && isSpace(raw[i]) {
		i++
	}
	return i, true
}

// findKey returns the first top-level key named name.
func findKey(raw []byte, name string) (keyRef, bool, error) {
	var found keyRef
	ok := false
	err := walkKeys(raw, func(k keyRef) bool {
		if k.name == name {
			found, ok = k, true
			return false
		}
		return true
	})
	return found, ok, err
}

// valueEnd returns the offset just past the value literal starting at raw[i].
// Strings end at their closing delimiter and lists/maps at their balancing
// delimiter; anything else runs to the next top-level ',', '}', ']', newline or
// comment.
func valueEnd(raw []byte, i int) (int, error) {
	if i >= len(raw) {
		return 0, structural(i, "missing value")
	}
	switch c := raw[i]; c {
	case '\'', '"', '`':
		end, ok := skipString(raw, i)
		if !ok {
			return 0, structural(i, "unterminated %q string", c)
		}
		return end, nil
	case '[', '{':
		return matchDelim(raw, i)
	case ',', '}', ']', ')', '\n':
		return 0, structural(i, "missing value")
	case '/':
		return 0, structural(i, "comment in place of value")
	}

	depth := 0
	end := i
	for j := i; j < len(raw); j++ {
		c := raw[j]
		switch {
		case c == '\'' || c == '"' || c == '`':
			e, ok := skipString(raw, j)
			if !ok {
				return 0, structural(j, "unterminated %q string", c)
			}
			j = e - 1
			end = e
			continue
		case c == '/' && j+1 < len(raw) && (raw[j+1] == '/' || raw[j+1] == '*'):
			if depth == 0 {
				return end, nil
			}
			j = skipComment(raw, j) - 1
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			if depth == 0 {
				return end, nil
			}
			depth--
		case c == ',' || c == '\n':
			if depth == 0 {
				return end, nil
			}
		}
		if !isSpace(c) {
			end = j + 1
		}
	}
	if depth != 0 {
		return 0, structural(i, "unbalanced value")
	}
	return end, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
