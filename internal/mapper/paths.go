package mapper

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const emptyDetails = "{}"

// Record is the mapper's view of a stored project or feature.
// Details holds the JSON-encoded details tree.
type Record struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Details string `json:"details"`
}

// ParseDetails normalises a stored details value into a JSON object document.
// It accepts a JSON object, a JSON string that itself encodes an object (a
// value that was serialised twice), or anything else, which yields "{}".
func ParseDetails(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return emptyDetails
	}
	if !gjson.Valid(raw) {
		slog.Warn("stored details are not valid JSON, using empty object", "length", len(raw))
		return emptyDetails
	}

	parsed := gjson.Parse(raw)
	switch {
	case parsed.IsObject():
		return raw
	case parsed.Type == gjson.String:
		inner := strings.TrimSpace(parsed.Str)
		if gjson.Valid(inner) && gjson.Parse(inner).IsObject() {
			return inner
		}
	}

	slog.Warn("stored details are not an object, using empty object", "type", parsed.Type.String())
	return emptyDetails
}

func detailsOf(r *Record) string {
	if r == nil {
		return emptyDetails
	}
	return ParseDetails(r.Details)
}

// splitPath breaks a dotted path into segments. A backslash escapes the
// following character so keys may contain dots.
func splitPath(path string) []string {
	var (
		segs []string
		cur  strings.Builder
	)
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '\\' && i+1 < len(path):
			i++
			cur.WriteByte(path[i])
		case c == '.':
			segs = append(segs, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	segs = append(segs, cur.String())
	return segs
}

func isPlainKeyByte(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func escapeSegment(seg string) string {
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		if !isPlainKeyByte(seg[i]) {
			b.WriteByte('\\')
		}
		b.WriteByte(seg[i])
	}
	return b.String()
}

func isNumeric(seg string) bool {
	if seg == "" {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return true
}

// JoinPath builds a dotted path from raw key segments, escaping as needed.
func JoinPath(segs ...string) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = escapeSegment(s)
	}
	return strings.Join(parts, ".")
}

// readPath converts a dotted path to gjson syntax.
func readPath(path string) string {
	return JoinPath(splitPath(path)...)
}

// writePath converts a dotted path to sjson syntax. Numeric segments are
// forced to object keys so sjson never creates arrays.
func writePath(path string) string {
	segs := splitPath(path)
	parts := make([]string, len(segs))
	for i, s := range segs {
		if isNumeric(s) {
			parts[i] = ":" + s
			continue
		}
		parts[i] = escapeSegment(s)
	}
	return strings.Join(parts, ".")
}

// valueString renders a gjson result the way the mapper stores values:
// scalars as text, arrays as a comma-joined list, objects and null as "".
func valueString(r gjson.Result) string {
	switch {
	case !r.Exists():
		return ""
	case r.IsArray():
		var items []string
		for _, item := range r.Array() {
			if s := strings.TrimSpace(valueString(item)); s != "" {
				items = append(items, s)
			}
		}
		return JoinList(items)
	case r.IsObject():
		return ""
	case r.Type == gjson.Null:
		return ""
	case r.Type == gjson.String:
		return r.Str
	default:
		return r.Raw
	}
}

// Lookup returns the value stored at path in a details document.
func Lookup(details, path string) string {
	return valueString(gjson.Get(details, readPath(path)))
}

// SetValue writes value at path, creating intermediate objects.
func SetValue(details, path, value string) (string, error) {
	return sjson.Set(ParseDetails(details), writePath(path), value)
}

// PhaseValues returns the raw submission saved for phase, or nil.
func PhaseValues(details, phase string) map[string]string {
	res := gjson.Get(details, JoinPath("phaseData", phase))
	if !res.IsObject() {
		return nil
	}
	out := make(map[string]string)
	res.ForEach(func(key, value gjson.Result) bool {
		if s := valueString(value); s != "" {
			out[key.String()] = s
		}
		return true
	})
	return out
}

// phaseKeys lists the phases that have saved data, in ascending order.
func phaseKeys(details string) []string {
	var keys []string
	gjson.Get(details, "phaseData").ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() {
			keys = append(keys, key.String())
		}
		return true
	})
	sort.Strings(keys)
	return keys
}

// WithPhaseData stores values as the latest raw submission for phase,
// replacing any earlier submission for the same phase.
func WithPhaseData(details, phase string, values map[string]string) (string, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return sjson.SetRaw(ParseDetails(details), writePath(JoinPath("phaseData", phase)), string(raw))
}
