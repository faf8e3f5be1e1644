package app

import "strings"

// ParseTags splits comma-separated input, trims each entry and drops blanks.
// Order is preserved; the result is never nil.
func ParseTags(in string) []string {
	out := make([]string, 0, strings.Count(in, ",")+1)
	for _, p := range strings.Split(in, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinTags renders tags back into form input. ParseTags(JoinTags(t)) == t
// for any t produced by ParseTags.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
