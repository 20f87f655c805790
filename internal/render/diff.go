package render

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff returns a unified diff of before and after. Markup is broken
// before each closing tag so single-line HTML still yields readable hunks.
func UnifiedDiff(name, before, after string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(splitTags(before)),
		B:        difflib.SplitLines(splitTags(after)),
		FromFile: name + " (before)",
		ToFile:   name + " (after)",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

func splitTags(s string) string {
	if strings.Contains(s, "\n") {
		return s
	}
	return strings.ReplaceAll(s, "</", "\n</")
}
