package convert

import (
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled patterns for pulling the two sections out of a backend
// response. Models occasionally vary fencing and heading case, so matching
// is forgiving.
var (
	convertedSectionRegex = regexp.MustCompile(`(?is)###\s*CONVERTED CODE\s*(.*?)(?:###\s*REQUIRED IMPORTS|\z)`)
	importsSectionRegex   = regexp.MustCompile(`(?is)###\s*REQUIRED IMPORTS\s*(.*)\z`)
	codeFenceRegex        = regexp.MustCompile("(?s)```(?:csharp|cs|c#)?\\s*\\n?(.*?)\\n?```")
)

// ParseResponse extracts the converted code and using-directives from a
// backend response. Falls back to the first fenced block when the response
// skipped the section headings.
func ParseResponse(text string) (code string, imports []string, err error) {
	if m := convertedSectionRegex.FindStringSubmatch(text); m != nil {
		code = stripFence(m[1])
	}
	if code == "" {
		// No headings: accept a lone fenced block.
		if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
			code = strings.TrimSpace(m[1])
		}
	}
	if code == "" {
		return "", nil, fmt.Errorf("response contains no converted-code section")
	}

	if m := importsSectionRegex.FindStringSubmatch(text); m != nil {
		for _, line := range strings.Split(stripFence(m[1]), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "using ") && strings.HasSuffix(line, ";") {
				imports = append(imports, line)
			}
		}
	}
	return code, imports, nil
}

// stripFence removes a surrounding markdown code fence, if any.
func stripFence(section string) string {
	section = strings.TrimSpace(section)
	if m := codeFenceRegex.FindStringSubmatch(section); m != nil {
		return strings.TrimSpace(m[1])
	}
	return section
}
