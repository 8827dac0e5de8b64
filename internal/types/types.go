package types

import (
	"fmt"
	"strings"
)

// Confidence is the three-level trust label attached to a conversion result.
// It drives human-review priority: low-confidence results always need a
// reviewer, high-confidence results usually just need a glance.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IsValid reports whether c is one of the known confidence levels.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// TargetStatus describes how far along the Graph API is for a given EWS
// operation.
type TargetStatus string

const (
	StatusAvailable TargetStatus = "Available"
	StatusPreview   TargetStatus = "Preview"
	StatusGap       TargetStatus = "Gap"
	StatusTBD       TargetStatus = "TBD"
)

// IsGap reports whether the operation has no direct Graph equivalent yet.
// Gap and TBD are treated identically by the pipeline: both force low
// confidence and a human-review annotation.
func (s TargetStatus) IsGap() bool {
	return s == StatusGap || s == StatusTBD
}

// UsageSite is one located call to an EWS operation. Sites are produced by
// the analyzer and are read-only from the pipeline's point of view.
type UsageSite struct {
	FilePath      string   `json:"filePath"`
	StartByte     int      `json:"startByte"`
	EndByte       int      `json:"endByte"`
	StartLine     int      `json:"startLine"`
	EndLine       int      `json:"endLine"`
	QualifiedName string   `json:"qualifiedName"` // e.g. Microsoft.Exchange.WebServices.Data.ExchangeService.FindItems
	Method        string   `json:"method"`        // e.g. FindItems
	Receiver      string   `json:"receiver"`      // expression the method is invoked on
	Args          []string `json:"args"`          // raw argument expressions, in order
	Snippet       string   `json:"snippet"`       // raw source text of the invocation
}

// Validate checks structural invariants on a located site.
func (u *UsageSite) Validate() error {
	if u.FilePath == "" {
		return fmt.Errorf("file path is required")
	}
	if u.EndByte < u.StartByte {
		return fmt.Errorf("span end %d before start %d", u.EndByte, u.StartByte)
	}
	if u.Method == "" {
		return fmt.Errorf("method name is required")
	}
	return nil
}

// DeterministicPattern describes the call shape a Tier-1 template can rewrite.
// A site that does not conform falls through to Tier 2; mismatch is an
// expected outcome, not an error.
type DeterministicPattern struct {
	MinArgs        int      `yaml:"minArgs" json:"minArgs"`
	MaxArgs        int      `yaml:"maxArgs" json:"maxArgs"`
	LiteralArgs    []int    `yaml:"literalArgs,omitempty" json:"literalArgs,omitempty"` // argument positions that must be literals or enum members
	Variables      []string `yaml:"variables,omitempty" json:"variables,omitempty"`     // template variable name per argument position
	SimpleReceiver bool     `yaml:"simpleReceiver" json:"simpleReceiver"`               // reject chained-call receivers

	// Extractors reshape a bound argument with a single-capture regex, e.g.
	// pulling the page size out of "new ItemView(50)". An argument that does
	// not match its extractor fails the shape check.
	Extractors map[string]string `yaml:"extractors,omitempty" json:"extractors,omitempty"`

	// Lowercase lists variables folded to lower case before substitution
	// (EWS enum members vs. Graph well-known folder names).
	Lowercase []string `yaml:"lowercase,omitempty" json:"lowercase,omitempty"`
}

// RoadmapEntry maps one EWS operation to its Graph equivalent. Entries are
// owned by the knowledge base and never mutated by the pipeline.
type RoadmapEntry struct {
	// The three alternate lookup keys.
	ProtocolOperation string `yaml:"protocolOperation" json:"protocolOperation"` // EWS SOAP operation, e.g. FindItem
	SDKMethod         string `yaml:"sdkMethod" json:"sdkMethod"`                 // managed API method, e.g. FindItems
	QualifiedName     string `yaml:"qualifiedName" json:"qualifiedName"`         // fully qualified managed API name

	DisplayName string       `yaml:"displayName" json:"displayName"`
	Tier        int          `yaml:"tier" json:"tier"` // lowest tier eligible to convert this operation
	Status      TargetStatus `yaml:"status" json:"status"`

	// Graph-side identity.
	GraphAPI        string   `yaml:"graphApi" json:"graphApi"` // HTTP shape, e.g. "GET /me/mailFolders/{id}/messages"
	GraphSDKCall    string   `yaml:"graphSdkCall,omitempty" json:"graphSdkCall,omitempty"`
	RequiredImports []string `yaml:"requiredImports,omitempty" json:"requiredImports,omitempty"`
	RequiredPackage string   `yaml:"requiredPackage,omitempty" json:"requiredPackage,omitempty"`
	DocURL          string   `yaml:"docUrl,omitempty" json:"docUrl,omitempty"`

	// Tier-1 material, present only for deterministic entries.
	Pattern        *DeterministicPattern `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	TargetTemplate string                `yaml:"targetTemplate,omitempty" json:"targetTemplate,omitempty"`

	// Free-form guidance folded into Tier-2/3 prompts.
	Guidance string `yaml:"guidance,omitempty" json:"guidance,omitempty"`
}

// Validate checks that an entry loaded from the roadmap is usable.
func (e *RoadmapEntry) Validate() error {
	if e.SDKMethod == "" && e.ProtocolOperation == "" && e.QualifiedName == "" {
		return fmt.Errorf("entry needs at least one lookup key")
	}
	if e.Tier < 1 || e.Tier > 3 {
		return fmt.Errorf("tier must be 1-3 (got %d)", e.Tier)
	}
	if e.Tier == 1 && (e.Pattern == nil || e.TargetTemplate == "") {
		return fmt.Errorf("tier-1 entry %q needs a pattern and a target template", e.DisplayName)
	}
	switch e.Status {
	case StatusAvailable, StatusPreview, StatusGap, StatusTBD:
	default:
		return fmt.Errorf("invalid target status %q", e.Status)
	}
	return nil
}

// ConversionAttempt is one pass of one strategy over one usage site. Attempts
// are transient: the orchestrator creates one per tier visit and discards it.
type ConversionAttempt struct {
	Site  *UsageSite
	Entry *RoadmapEntry
	Tier  int
	Retry int // 0 on the first Tier-2 call, 1 on the bounded retry

	// FileSource is the full text of the file containing Site, used for
	// method/class extraction.
	FileSource string

	// PriorErrors carries the validator's error list from a failed first
	// Tier-2 attempt; it is appended verbatim to the retry prompt.
	PriorErrors []string

	// Siblings are the other usage sites in the same file, for Tier 3.
	Siblings []*UsageSite
}

// ConversionResult is the pipeline's output for one usage site (or, for
// Tier 3, one file-scoped batch). Immutable once built.
type ConversionResult struct {
	Tier             int        `json:"tier"`
	Confidence       Confidence `json:"confidence"`
	OriginalCode     string     `json:"originalCode"`
	ConvertedCode    string     `json:"convertedCode"`
	RequiredImports  string     `json:"requiredImports,omitempty"`
	RequiredPackage  string     `json:"requiredPackage,omitempty"`
	FilePath         string     `json:"filePath,omitempty"`
	StartLine        int        `json:"startLine"`
	EndLine          int        `json:"endLine"`
	IsValid          bool       `json:"isValid"`
	ValidationErrors []string   `json:"validationErrors"`
	UnifiedDiff      string     `json:"unifiedDiff,omitempty"`

	// Span of the original text to replace, for offset-ordered application.
	StartByte int `json:"-"`
	EndByte   int `json:"-"`

	// GapFlagged marks results covering a Gap/TBD operation; these carry a
	// workaround annotation instead of a direct substitution.
	GapFlagged bool `json:"gapFlagged,omitempty"`

	// Retry records how many backend retries the producing tier consumed.
	Retry int `json:"-"`
}

// ImportList renders a slice of using-directives into the single string the
// produced contract carries.
func ImportList(imports []string) string {
	return strings.Join(imports, "\n")
}

// FileConversionBatch is the ordered set of results for one file.
//
// Results are held in descending StartByte order so that applying them in
// sequence never invalidates the span of a result not yet applied.
type FileConversionBatch struct {
	FilePath      string              `json:"filePath"`
	Results       []*ConversionResult `json:"results"`
	AuthRewrite   *ConversionResult   `json:"authRewrite,omitempty"` // at most one per file
	MergedImports []string            `json:"mergedImports"`
	UpdatedSource string              `json:"updatedSource,omitempty"`
	UnifiedDiff   string              `json:"unifiedDiff,omitempty"`
}

// AllResults returns the auth rewrite (if any) followed by the per-usage
// results.
func (b *FileConversionBatch) AllResults() []*ConversionResult {
	if b.AuthRewrite == nil {
		return b.Results
	}
	out := make([]*ConversionResult, 0, len(b.Results)+1)
	out = append(out, b.AuthRewrite)
	out = append(out, b.Results...)
	return out
}

// FileFailure records a file the project run could not process. One bad file
// never aborts the run.
type FileFailure struct {
	FilePath string `json:"filePath"`
	Error    string `json:"error"`
}

// ProjectConversionSummary aggregates per-file batches into project-level
// readiness numbers. It is built by a single writer as file tasks complete.
type ProjectConversionSummary struct {
	RunID            string        `json:"runId"`
	TotalUsages      int           `json:"totalUsages"`
	Converted        int           `json:"converted"`
	HighConfidence   int           `json:"highConfidence"`
	MediumConfidence int           `json:"mediumConfidence"`
	LowConfidence    int           `json:"lowConfidence"`
	Failed           int           `json:"failed"`
	ReadinessPercent float64       `json:"readinessPercent"`
	FilesProcessed   int           `json:"filesProcessed"`
	FileFailures     []FileFailure `json:"fileFailures,omitempty"`
}

// Fold merges one completed file batch into the running summary and refreshes
// the derived readiness ratio.
func (s *ProjectConversionSummary) Fold(batch *FileConversionBatch) {
	s.FilesProcessed++
	for _, r := range batch.AllResults() {
		s.TotalUsages++
		if r.IsValid {
			s.Converted++
		} else {
			s.Failed++
		}
		switch r.Confidence {
		case ConfidenceHigh:
			s.HighConfidence++
		case ConfidenceMedium:
			s.MediumConfidence++
		case ConfidenceLow:
			s.LowConfidence++
		}
	}
	s.refreshReadiness()
}

// FoldFailure records a file-level failure without touching usage counts.
func (s *ProjectConversionSummary) FoldFailure(path string, err error) {
	s.FileFailures = append(s.FileFailures, FileFailure{FilePath: path, Error: err.Error()})
	s.refreshReadiness()
}

func (s *ProjectConversionSummary) refreshReadiness() {
	if s.TotalUsages == 0 {
		s.ReadinessPercent = 0
		return
	}
	s.ReadinessPercent = float64(s.Converted) / float64(s.TotalUsages) * 100
}
