// Package validate implements the three-step validation gate every
// conversion attempt passes through: syntax check, compilation against the
// Graph reference surface, and a semantic sanity check for residual EWS
// identifiers. Checks run in order and short-circuit on the first failure,
// but the report records what each check did.
package validate

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Check names, used as prefixes on validation errors.
const (
	CheckSyntax   = "syntax"
	CheckCompile  = "compile"
	CheckSemantic = "semantic"
)

// CheckResult records one gate step.
type CheckResult struct {
	Check   string   `json:"check"`
	Passed  bool     `json:"passed"`
	Skipped bool     `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Report is the gate's output: Valid plus the ordered error list (empty when
// valid).
type Report struct {
	Valid          bool          `json:"valid"`
	Errors         []string      `json:"errors"`
	Checks         []CheckResult `json:"checks"`
	CompileSkipped bool          `json:"compileSkipped,omitempty"`
}

// Options tune one validation pass.
type Options struct {
	// ExpectSubstitution requires at least one Graph identifier in the
	// converted text. Gap workaround annotations set this false.
	ExpectSubstitution bool

	// Imports are the using-directives required by the conversion, fed to
	// the compile check.
	Imports []string

	// ExtraSourceIdentifiers extends the residual-identifier scan with
	// entry-specific names (e.g. the EWS method being replaced).
	ExtraSourceIdentifiers []string
}

// SyntaxChecker reports syntax diagnostics for a converted snippet.
type SyntaxChecker interface {
	Check(ctx context.Context, code string) []string
}

// CompileChecker compiles a converted snippet against the Graph reference
// surface and returns compiler errors (not warnings).
type CompileChecker interface {
	// Available reports whether a compiler toolchain is present.
	Available() bool
	// Check returns compiler errors for the snippet. A non-nil error means
	// the check infrastructure itself failed, not the snippet.
	Check(ctx context.Context, code string, imports []string) ([]string, error)
}

// Default identifier surfaces for the semantic check.
var (
	defaultSourceIdentifiers = []string{
		"Microsoft.Exchange.WebServices",
		"ExchangeService",
		"WebCredentials",
		"WellKnownFolderName",
		"ItemView",
		"FolderView",
		"ExchangeVersion",
	}
	defaultTargetIdentifiers = []string{
		"GraphServiceClient",
		"graphClient",
		"Microsoft.Graph",
	}
)

// Gate is the ordered validation gate.
type Gate struct {
	syntax   SyntaxChecker
	compiler CompileChecker
}

// NewGate builds a gate. compiler may be nil, in which case the compile check
// is recorded as skipped.
func NewGate(syntax SyntaxChecker, compiler CompileChecker) *Gate {
	return &Gate{syntax: syntax, compiler: compiler}
}

// Validate runs the gate over converted code. Validation is idempotent:
// validating the same snippet twice yields the same report.
func (g *Gate) Validate(ctx context.Context, code string, opts Options) Report {
	var report Report

	// 1. Syntax.
	synErrs := g.syntax.Check(ctx, code)
	report.Checks = append(report.Checks, CheckResult{
		Check:  CheckSyntax,
		Passed: len(synErrs) == 0,
		Errors: synErrs,
	})
	if len(synErrs) > 0 {
		report.Errors = prefixAll(CheckSyntax, synErrs)
		report.Checks = append(report.Checks,
			CheckResult{Check: CheckCompile, Skipped: true},
			CheckResult{Check: CheckSemantic, Skipped: true})
		return report
	}

	// 2. Compile.
	if g.compiler != nil && g.compiler.Available() {
		compileErrs, err := g.compiler.Check(ctx, code, opts.Imports)
		if err != nil {
			// Infrastructure failure, not a snippet failure: degrade to a
			// skipped check rather than failing the conversion.
			fmt.Fprintf(os.Stderr, "warning: compile check unavailable: %v\n", err)
			report.Checks = append(report.Checks, CheckResult{Check: CheckCompile, Skipped: true})
			report.CompileSkipped = true
		} else {
			report.Checks = append(report.Checks, CheckResult{
				Check:  CheckCompile,
				Passed: len(compileErrs) == 0,
				Errors: compileErrs,
			})
			if len(compileErrs) > 0 {
				report.Errors = prefixAll(CheckCompile, compileErrs)
				report.Checks = append(report.Checks, CheckResult{Check: CheckSemantic, Skipped: true})
				return report
			}
		}
	} else {
		report.Checks = append(report.Checks, CheckResult{Check: CheckCompile, Skipped: true})
		report.CompileSkipped = true
	}

	// 3. Semantic sanity.
	semErrs := g.semanticCheck(code, opts)
	report.Checks = append(report.Checks, CheckResult{
		Check:  CheckSemantic,
		Passed: len(semErrs) == 0,
		Errors: semErrs,
	})
	if len(semErrs) > 0 {
		report.Errors = prefixAll(CheckSemantic, semErrs)
		return report
	}

	report.Valid = true
	report.Errors = []string{}
	return report
}

// semanticCheck scans for residual EWS identifiers and, when a substitution
// was expected, for the presence of at least one Graph identifier.
func (g *Gate) semanticCheck(code string, opts Options) []string {
	var errs []string

	scan := append([]string{}, defaultSourceIdentifiers...)
	scan = append(scan, opts.ExtraSourceIdentifiers...)
	for _, ident := range scan {
		if ident != "" && strings.Contains(code, ident) {
			errs = append(errs, fmt.Sprintf("converted code still references EWS identifier %q", ident))
		}
	}

	if opts.ExpectSubstitution {
		found := false
		for _, ident := range defaultTargetIdentifiers {
			if strings.Contains(code, ident) {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, "converted code contains no Microsoft Graph identifier")
		}
	}
	return errs
}

func prefixAll(check string, errs []string) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = check + ": " + e
	}
	return out
}
