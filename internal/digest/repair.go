package digest

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrRepairFailed means free text could not be turned into valid JSON even
// after tolerant repair.
var ErrRepairFailed = errors.New("could not repair text into valid JSON")

// ExtractJSON locates the outermost JSON object embedded in free text,
// skipping any surrounding prose or markdown fences. If the object is
// truncated, the remainder of the text is returned so repair can close it.
// The second return value is false when no object start is present at all.
func ExtractJSON(text string) (string, bool) {
	text = stripFences(strings.TrimSpace(text))
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
			esc = false
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	// Unbalanced object, likely truncated output.
	return text[start:], true
}

// RepairJSON extracts the outermost JSON object from text and applies one
// tolerant repair pass: markdown fences, surrounding prose, trailing commas,
// unquoted keys, single-quoted strings and truncated closing brackets. It is
// pure: identical input always yields identical output. Returns
// ErrRepairFailed when no valid object can be recovered.
func RepairJSON(text string) (string, error) {
	candidate, ok := ExtractJSON(text)
	if !ok {
		return "", ErrRepairFailed
	}
	if json.Valid([]byte(candidate)) {
		return candidate, nil
	}
	repaired := repairScan(candidate)
	if json.Valid([]byte(repaired)) {
		return repaired, nil
	}
	return "", ErrRepairFailed
}

// repairScan rewrites a near-JSON object byte by byte, fixing the tolerated
// defect classes. It never panics and never consults anything but its input.
func repairScan(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	var stack []byte // pending closing brackets, innermost last
	inStr := false
	esc := false
	expectKey := false // inside an object, before the next key

	i := 0
	for i < len(s) {
		c := s[i]

		if inStr {
			b.WriteByte(c)
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			i++
			continue
		}

		switch {
		case c == '"':
			inStr = true
			esc = false
			b.WriteByte(c)
			i++
		case c == '\'':
			// Single-quoted string: rewrite with double quotes.
			b.WriteByte('"')
			i++
			for i < len(s) {
				if s[i] == '\\' && i+1 < len(s) {
					b.WriteByte(s[i])
					b.WriteByte(s[i+1])
					i += 2
					continue
				}
				if s[i] == '\'' {
					i++
					break
				}
				if s[i] == '"' {
					b.WriteString(`\"`)
					i++
					continue
				}
				b.WriteByte(s[i])
				i++
			}
			b.WriteByte('"')
		case c == '{':
			stack = append(stack, '}')
			expectKey = true
			b.WriteByte(c)
			i++
		case c == '[':
			stack = append(stack, ']')
			expectKey = false
			b.WriteByte(c)
			i++
		case c == '}' || c == ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
			expectKey = false
			b.WriteByte(c)
			i++
		case c == ',':
			// Drop trailing commas before a closing bracket or end of input.
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j >= len(s) || s[j] == '}' || s[j] == ']' {
				i++
				continue
			}
			if len(stack) > 0 && stack[len(stack)-1] == '}' {
				expectKey = true
			}
			b.WriteByte(c)
			i++
		case c == ':':
			expectKey = false
			b.WriteByte(c)
			i++
		case isSpace(c):
			b.WriteByte(c)
			i++
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			word := s[i:j]
			if !expectKey && isBareValue(word) {
				b.WriteString(word)
			} else {
				// Unquoted key, or a stray bare word in value position.
				b.WriteByte('"')
				b.WriteString(word)
				b.WriteByte('"')
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}

	if inStr {
		b.WriteByte('"')
	}
	for len(stack) > 0 {
		b.WriteByte(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}
	return b.String()
}

// stripFences removes a leading and trailing markdown code fence line.
func stripFences(text string) string {
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSpace(strings.TrimSuffix(text, "```"))
	}
	return text
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// isWordByte covers identifier characters, number characters and multi-byte
// UTF-8 sequences, so unquoted keys and bare words stay in one token.
func isWordByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-' || c == '.' || c == '+':
		return true
	case c >= 0x80:
		return true
	}
	return false
}

// isBareValue reports whether a bare word is already a legal JSON value.
func isBareValue(word string) bool {
	switch word {
	case "true", "false", "null":
		return true
	}
	_, err := strconv.ParseFloat(word, 64)
	return err == nil
}
