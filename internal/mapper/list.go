package mapper

import "strings"

// ListSeparator joins list items in stored values.
const ListSeparator = ", "

func isListDelimiter(r rune) bool {
	return r == ',' || r == ';' || r == '\n' || r == '\r'
}

// SplitList breaks a delimited value into trimmed, non-empty items.
// Commas, semicolons and newlines all delimit.
func SplitList(value string) []string {
	var items []string
	for _, part := range strings.FieldsFunc(value, isListDelimiter) {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// JoinList renders items in their stored form.
func JoinList(items []string) string {
	return strings.Join(items, ListSeparator)
}

// NormalizeList re-renders a delimited value in the stored form.
func NormalizeList(value string) string {
	return JoinList(SplitList(value))
}

// MergeList appends the incoming items that are not already present,
// comparing case-insensitively. Existing items keep their order and
// spelling. It returns the merged list and the items that were added.
func MergeList(current, incoming []string) (merged, added []string) {
	seen := make(map[string]struct{}, len(current)+len(incoming))
	merged = make([]string, 0, len(current)+len(incoming))
	for _, item := range current {
		seen[strings.ToLower(item)] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range incoming {
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, item)
		added = append(added, item)
	}
	return merged, added
}
