package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Repairs for the JSON mistakes chat models make most often.
var (
	trailingCommaRegex    = regexp.MustCompile(`,\s*([}\]])`)
	singleQuoteKeyRegex   = regexp.MustCompile(`([{,]\s*)'(\w+)'(\s*:)`)
	singleQuoteValueRegex = regexp.MustCompile(`(:\s*)'((?:[^'\\]|\\.)*)'(\s*[,}\]])`)
)

// ExtractJSON returns the first JSON object or array found in response as
// valid JSON text. Markdown fences, leading prose and trailing text are
// ignored, and common syntax slips are repaired before giving up.
func ExtractJSON(response string) (string, error) {
	cleaned := stripFences(response)
	if cleaned == "" {
		return "", fmt.Errorf("no JSON found in response")
	}

	// A reply may be a JSON string that itself holds the document.
	if strings.HasPrefix(cleaned, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(cleaned), &inner); err == nil {
			return ExtractJSON(inner)
		}
	}

	start := strings.IndexAny(cleaned, "{[")
	if start == -1 {
		return "", fmt.Errorf("no JSON start ({ or [) found")
	}
	body := cleaned[start:]

	if raw, ok := firstValue(body); ok {
		return raw, nil
	}
	if raw, ok := firstValue(repairJSON(body)); ok {
		return raw, nil
	}
	return "", fmt.Errorf("parse JSON: could not repair model output")
}

// firstValue decodes one JSON value from the front of s and returns its text.
func firstValue(s string) (string, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	var v json.RawMessage
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	return string(v), true
}

func repairJSON(input string) string {
	out := escapeStrings(input)
	out = singleQuoteKeyRegex.ReplaceAllString(out, `$1"$2"$3`)
	out = singleQuoteValueRegex.ReplaceAllStringFunc(out, func(match string) string {
		parts := singleQuoteValueRegex.FindStringSubmatch(match)
		value := strings.ReplaceAll(parts[2], `\'`, `'`)
		value = strings.ReplaceAll(value, `"`, `\"`)
		return parts[1] + `"` + value + `"` + parts[3]
	})
	out = trailingCommaRegex.ReplaceAllString(out, `$1`)
	return closeTruncated(out)
}

// escapeStrings fixes the contents of double-quoted strings: raw control
// characters are escaped and backslashes that do not start a valid escape
// (Windows paths, regexes) are doubled.
func escapeStrings(input string) string {
	var b strings.Builder
	b.Grow(len(input) + 16)

	inString := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		switch {
		case c == '\\':
			if i+1 < len(input) && validEscape(input, i+1) {
				b.WriteByte(c)
				i++
				b.WriteByte(input[i])
			} else {
				b.WriteString(`\\`)
			}
		case c == '"':
			inString = false
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			fmt.Fprintf(&b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// validEscape reports whether input[i] continues a legal JSON escape.
// \n, \t and friends followed by a letter are treated as path separators
// when they look like one (C:\new\app), which only matters for repair.
func validEscape(input string, i int) bool {
	switch input[i] {
	case '"', '\\', '/':
		return true
	case 'b', 'f', 'n', 'r', 't':
		return !(i+1 < len(input) && isPathByte(input[i+1]) && looksLikePath(input, i))
	case 'u':
		if i+4 >= len(input) {
			return false
		}
		for _, h := range input[i+1 : i+5] {
			if !strings.ContainsRune("0123456789abcdefABCDEF", h) {
				return false
			}
		}
		return true
	}
	return false
}

func isPathByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// looksLikePath checks for a drive letter or another backslash nearby.
func looksLikePath(input string, i int) bool {
	from := i - 12
	if from < 0 {
		from = 0
	}
	window := input[from:i]
	return strings.Contains(window, `:\`) || strings.Count(window, `\`) > 1
}

// closeTruncated balances an unterminated string and unclosed containers.
func closeTruncated(input string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			stack = append(stack, c)
		case (c == '}' || c == ']') && len(stack) > 0:
			stack = stack[:len(stack)-1]
		}
	}

	var b strings.Builder
	b.WriteString(input)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func stripFences(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		if nl := strings.IndexByte(response, '\n'); nl != -1 && !strings.ContainsAny(response[:nl], "{[") {
			response = response[nl+1:]
		}
	}
	response = strings.TrimSuffix(strings.TrimSpace(response), "```")
	return strings.TrimSpace(response)
}
