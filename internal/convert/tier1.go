package convert

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"graphshift/internal/types"
)

var (
	simpleIdentRegex = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	enumMemberRegex  = regexp.MustCompile(`^[A-Za-z_]\w*(\.\w+)+$`)
	numberRegex      = regexp.MustCompile(`^-?\d+(\.\d+)?[fFdDmM]?$`)
)

// Deterministic is the tier-1 strategy: shape-match the usage against the
// entry's pattern and substitute bound variables into the target template.
// No backend calls, no ambiguity; anything off-shape falls through.
type Deterministic struct{}

// NewDeterministic returns the tier-1 strategy.
func NewDeterministic() *Deterministic {
	return &Deterministic{}
}

func (d *Deterministic) Name() string { return "deterministic-template" }
func (d *Deterministic) Tier() int    { return 1 }

// Attempt matches the site shape and renders the template. A mismatch
// (wrong arity, chained receiver, non-literal where a literal is required,
// extractor miss) returns NotApplicable, never an error.
func (d *Deterministic) Attempt(_ context.Context, at *types.ConversionAttempt) (Outcome, error) {
	entry, site := at.Entry, at.Site
	if entry.Tier != 1 || entry.Pattern == nil || entry.TargetTemplate == "" {
		return NotApplicable(), nil
	}
	p := entry.Pattern

	if p.SimpleReceiver && !simpleIdentRegex.MatchString(strings.TrimSpace(site.Receiver)) {
		// Chained or computed receivers carry context a template can't see.
		return NotApplicable(), nil
	}
	if len(site.Args) < p.MinArgs || len(site.Args) > p.MaxArgs {
		return NotApplicable(), nil
	}
	for _, idx := range p.LiteralArgs {
		if idx >= len(site.Args) || !isLiteralish(site.Args[idx]) {
			return NotApplicable(), nil
		}
	}

	binds := map[string]string{"recv": strings.TrimSpace(site.Receiver)}
	for i, name := range p.Variables {
		if i >= len(site.Args) {
			return NotApplicable(), nil
		}
		binds[name] = strings.TrimSpace(site.Args[i])
	}

	for name, pattern := range p.Extractors {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Outcome{}, fmt.Errorf("roadmap entry %q has a bad extractor for %s: %w", entry.DisplayName, name, err)
		}
		m := re.FindStringSubmatch(binds[name])
		if m == nil || len(m) < 2 {
			return NotApplicable(), nil
		}
		binds[name] = m[1]
	}
	for _, name := range p.Lowercase {
		binds[name] = strings.ToLower(binds[name])
	}

	code := entry.TargetTemplate
	for name, value := range binds {
		code = strings.ReplaceAll(code, "{"+name+"}", value)
	}

	return Converted(&types.ConversionResult{
		Tier:            1,
		OriginalCode:    site.Snippet,
		ConvertedCode:   code,
		RequiredImports: types.ImportList(entry.RequiredImports),
		RequiredPackage: entry.RequiredPackage,
		FilePath:        site.FilePath,
		StartLine:       site.StartLine,
		EndLine:         site.EndLine,
		StartByte:       site.StartByte,
		EndByte:         site.EndByte,
	}), nil
}

// isLiteralish accepts string/char/number literals and enum member accesses
// (WellKnownFolderName.Inbox). Plain identifiers are rejected: a variable in
// a position that needs a literal means the template can't bind it.
func isLiteralish(arg string) bool {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return false
	}
	if strings.HasPrefix(arg, `"`) || strings.HasPrefix(arg, "'") || strings.HasPrefix(arg, "@\"") {
		return true
	}
	if numberRegex.MatchString(arg) {
		return true
	}
	return enumMemberRegex.MatchString(arg) && !strings.Contains(arg, "(")
}
