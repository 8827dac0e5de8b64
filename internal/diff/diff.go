// Package diff renders unified diffs of original vs. converted code.
package diff

import (
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// Unified returns a unified diff between original and converted with file
// context headers. Returns "" when the texts are identical.
func Unified(path, original, converted string) string {
	if original == converted {
		return ""
	}
	// Diff hunks line up better when both sides end in a newline.
	original = ensureTrailingNewline(original)
	converted = ensureTrailingNewline(converted)

	edits := myers.ComputeEdits(span.URIFromPath(path), original, converted)
	unified := gotextdiff.ToUnified(path, path+" (converted)", original, edits)
	return fmt.Sprint(unified)
}

// Snippet renders a diff for a single conversion site, labeling the hunk with
// the original line range rather than file-relative offsets.
func Snippet(path string, startLine int, original, converted string) string {
	d := Unified(path, original, converted)
	if d == "" || startLine <= 1 {
		return d
	}
	// Shift hunk headers so line numbers match the enclosing file.
	var out []string
	for _, line := range strings.Split(d, "\n") {
		if strings.HasPrefix(line, "@@ ") {
			line = shiftHunkHeader(line, startLine-1)
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func shiftHunkHeader(header string, offset int) string {
	var oldStart, oldLen, newStart, newLen int
	if _, err := fmt.Sscanf(header, "@@ -%d,%d +%d,%d @@", &oldStart, &oldLen, &newStart, &newLen); err != nil {
		if _, err := fmt.Sscanf(header, "@@ -%d +%d @@", &oldStart, &newStart); err != nil {
			return header
		}
		return fmt.Sprintf("@@ -%d +%d @@", oldStart+offset, newStart+offset)
	}
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", oldStart+offset, oldLen, newStart+offset, newLen)
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
