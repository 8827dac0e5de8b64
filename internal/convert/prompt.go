package convert

import (
	"fmt"
	"strings"

	"graphshift/internal/analyzer"
	"graphshift/internal/types"
)

// guidedSystemPrompt constrains tier-2 output to the two sections the parser
// extracts.
const guidedSystemPrompt = `You are a code migration assistant converting C# code from the deprecated
Exchange Web Services (EWS) managed API to the Microsoft Graph SDK v5.

Rewrite the EWS call the user identifies inside the method they provide.
Preserve the method's behavior, naming and formatting; change only what the
migration requires. Do not leave any reference to the EWS API in the output.

Respond with exactly these two sections and nothing else:

### CONVERTED CODE
` + "```csharp" + `
<the replacement for the identified EWS statement(s)>
` + "```" + `

### REQUIRED IMPORTS
` + "```csharp" + `
<one using-directive per line>
` + "```"

// fullContextSystemPrompt is the tier-3 variant: the model sees a whole
// class and every EWS usage in it.
const fullContextSystemPrompt = `You are a code migration assistant converting C# code from the deprecated
Exchange Web Services (EWS) managed API to the Microsoft Graph SDK v5.

The user provides a class (possibly truncated) and a list of every EWS usage
in it. Produce one coherent rewrite of the class covering all listed usages.
For operations marked as having NO Graph equivalent, do not invent a direct
substitution: keep the surrounding code compiling, add a comment starting
with "// WARNING:" naming the unmigratable operation, and suggest the listed
workaround in a comment.

Respond with exactly these two sections and nothing else:

### CONVERTED CODE
` + "```csharp" + `
<the rewritten class>
` + "```" + `

### REQUIRED IMPORTS
` + "```csharp" + `
<one using-directive per line>
` + "```"

// BuildGuidedPrompt renders the tier-2 user prompt from the roadmap entry and
// the extracted enclosing method. On a retry the validator's error list is
// appended verbatim to the same prompt.
func BuildGuidedPrompt(at *types.ConversionAttempt, method analyzer.Extraction) string {
	entry, site := at.Entry, at.Site
	var b strings.Builder

	fmt.Fprintf(&b, "EWS operation to migrate: %s\n", entry.DisplayName)
	fmt.Fprintf(&b, "EWS call: %s\n", strings.TrimSpace(site.Snippet))
	if entry.GraphAPI != "" {
		fmt.Fprintf(&b, "Graph equivalent: %s\n", entry.GraphAPI)
	}
	if entry.GraphSDKCall != "" {
		fmt.Fprintf(&b, "Graph SDK call shape: %s\n", entry.GraphSDKCall)
	}
	if entry.DocURL != "" {
		fmt.Fprintf(&b, "Documentation: %s\n", entry.DocURL)
	}
	if entry.Guidance != "" {
		fmt.Fprintf(&b, "\nMigration guidance: %s\n", entry.Guidance)
	}

	b.WriteString("\nEnclosing method:\n```csharp\n")
	b.WriteString(method.Text)
	b.WriteString("\n```\n")

	if at.Retry > 0 && len(at.PriorErrors) > 0 {
		b.WriteString("\nThe previous conversion failed validation with the following errors:\n")
		for _, e := range at.PriorErrors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("Fix these errors and return the corrected conversion.\n")
	}
	return b.String()
}

// SiblingAnnotation describes one usage inside a tier-3 scope.
type SiblingAnnotation struct {
	Site  *types.UsageSite
	Entry *types.RoadmapEntry // nil when the roadmap has no mapping
}

// Gap reports whether the annotated operation has no Graph equivalent.
func (s SiblingAnnotation) Gap() bool {
	return s.Entry != nil && s.Entry.Status.IsGap()
}

// BuildFullContextPrompt renders the tier-3 user prompt: the extracted scope
// plus one annotation line per covered usage.
func BuildFullContextPrompt(scope string, truncated bool, annotations []SiblingAnnotation) string {
	var b strings.Builder

	b.WriteString("EWS usages in this scope:\n")
	for _, a := range annotations {
		fmt.Fprintf(&b, "- line %d: %s", a.Site.StartLine, strings.TrimSpace(a.Site.Snippet))
		if a.Entry == nil {
			b.WriteString(" (no roadmap mapping; flag for manual review)\n")
			continue
		}
		if a.Gap() {
			fmt.Fprintf(&b, " -- NO Graph equivalent (%s). Workaround: %s\n", a.Entry.Status, a.Entry.Guidance)
		} else {
			fmt.Fprintf(&b, " -> %s", a.Entry.GraphAPI)
			if a.Entry.Guidance != "" {
				fmt.Fprintf(&b, " (%s)", a.Entry.Guidance)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nClass source:\n```csharp\n")
	b.WriteString(scope)
	if truncated {
		b.WriteString("\n// ... [context truncated at budget] ...")
	}
	b.WriteString("\n```\n")
	return b.String()
}
