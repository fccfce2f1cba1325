package services

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// maxRepairCandidates bounds how many cut points are re-parsed for one payload
const maxRepairCandidates = 256

type jsonFrame struct {
	kind      byte // '{' or '['
	expectKey bool
}

type cutPoint struct {
	pos     int
	closers string
}

// repairTruncatedJSON recovers the longest consistent prefix of a JSON object that was cut off,
// for example by an output token limit. It returns the parsed object and true when some prefix,
// closed with the missing brackets, parses to a non-empty object.
func repairTruncatedJSON(text string) (map[string]interface{}, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}
	text = text[start:]

	var (
		stack       []jsonFrame
		cuts        []cutPoint
		inString    bool
		stringIsKey bool
		escaped     bool
		inScalar    bool
	)
	record := func(pos int) {
		cuts = append(cuts, cutPoint{pos: pos, closers: closersFor(stack)})
	}

scan:
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				if !stringIsKey {
					record(i + 1)
				}
			}
			continue
		}
		if inScalar {
			if !isScalarTerminator(c) {
				continue
			}
			inScalar = false
			record(i)
		}

		switch c {
		case '{':
			stack = append(stack, jsonFrame{kind: '{', expectKey: true})
			record(i + 1)
		case '[':
			stack = append(stack, jsonFrame{kind: '['})
			record(i + 1)
		case '}', ']':
			if len(stack) == 0 || !matches(stack[len(stack)-1].kind, c) {
				break scan
			}
			stack = stack[:len(stack)-1]
			record(i + 1)
			if len(stack) == 0 {
				break scan
			}
		case '"':
			inString = true
			top := stack[len(stack)-1]
			stringIsKey = top.kind == '{' && top.expectKey
		case ':':
			if len(stack) > 0 {
				stack[len(stack)-1].expectKey = false
			}
		case ',':
			if len(stack) > 0 && stack[len(stack)-1].kind == '{' {
				stack[len(stack)-1].expectKey = true
			}
		case ' ', '\t', '\r', '\n':
		default:
			inScalar = true
		}
	}

	// Payload ended mid-value: try closing it where it stands before cutting back.
	if len(stack) > 0 {
		switch {
		case inString && !stringIsKey:
			body := trimPartialEscape(trimPartialRune(text))
			if doc, ok := parseObject(body + `"` + closersFor(stack)); ok {
				return doc, true
			}
		case inScalar:
			if doc, ok := parseObject(text + closersFor(stack)); ok {
				return doc, true
			}
		}
	}

	tried := 0
	for i := len(cuts) - 1; i >= 0 && tried < maxRepairCandidates; i-- {
		tried++
		candidate := strings.TrimRight(text[:cuts[i].pos], " \t\r\n,") + cuts[i].closers
		if doc, ok := parseObject(candidate); ok {
			return doc, true
		}
	}
	return nil, false
}

func parseObject(candidate string) (map[string]interface{}, bool) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, false
	}
	return doc, len(doc) > 0
}

func closersFor(stack []jsonFrame) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].kind == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func matches(open, closer byte) bool {
	return (open == '{' && closer == '}') || (open == '[' && closer == ']')
}

func isScalarTerminator(c byte) bool {
	switch c {
	case ',', '}', ']', ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

// trimPartialRune drops a multi-byte character cut in half at the end of s
func trimPartialRune(s string) string {
	for n := 0; n < utf8.UTFMax-1 && len(s) > 0; n++ {
		if r, size := utf8.DecodeLastRuneInString(s); r != utf8.RuneError || size != 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

// trimPartialEscape drops an escape sequence cut in half at the end of a string body
func trimPartialEscape(s string) string {
	idx := strings.LastIndexByte(s, '\\')
	if idx < 0 {
		return s
	}
	// Count the run of backslashes ending at idx; an even run is a literal backslash pair.
	run := 0
	for j := idx; j >= 0 && s[j] == '\\'; j-- {
		run++
	}
	tail := s[idx+1:]
	switch {
	case run%2 == 0:
		return s
	case tail == "":
		return s[:idx]
	case tail[0] == 'u' && len(tail) < 5:
		return s[:idx]
	}
	return s
}
