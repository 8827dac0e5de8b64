// Package pipeline is the conversion orchestrator. It routes each usage site
// through the tier cascade with bounded retries, validates and scores every
// attempt, and aggregates results per file and per project.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"graphshift/internal/analyzer"
	"graphshift/internal/backend"
	"graphshift/internal/convert"
	"graphshift/internal/diff"
	"graphshift/internal/kb"
	"graphshift/internal/types"
	"graphshift/internal/validate"
)

// usageState tracks one usage through the cascade. Validated is terminal
// regardless of validity: invalid results are returned with their error list
// for human review, not discarded.
type usageState int

const (
	stateTier1 usageState = iota
	stateTier2First
	stateTier2Retry
	stateTier3
	stateValidated
)

// Config assembles a pipeline.
type Config struct {
	KB       *kb.Accessor
	Analyzer *analyzer.Analyzer
	Gate     *validate.Gate
	Backend  backend.Completer

	// ContextBudget caps tier-3 scope extraction (0 = default).
	ContextBudget int

	// ForcedTier restricts the cascade to a single tier (0 = full cascade).
	// Mirrors the tier override the tool surface exposes.
	ForcedTier int
}

// Pipeline converts usage sites. It is safe for concurrent use across files;
// within one file ConvertFile processes sites strictly sequentially.
type Pipeline struct {
	kb         *kb.Accessor
	analyzer   *analyzer.Analyzer
	gate       *validate.Gate
	tier1      *convert.Deterministic
	tier2      *convert.Guided
	tier3      *convert.FullContext
	auth       *convert.AuthRewriter
	methods    map[string]string // SDK method -> qualified name, for the locator
	forcedTier int
}

// New wires the strategies in cascade order.
func New(cfg *Config) (*Pipeline, error) {
	if cfg.KB == nil {
		return nil, fmt.Errorf("knowledge base is required")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if cfg.Gate == nil {
		return nil, fmt.Errorf("validation gate is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("generation backend is required")
	}
	if cfg.ForcedTier < 0 || cfg.ForcedTier > 3 {
		return nil, fmt.Errorf("forced tier must be 0-3 (got %d)", cfg.ForcedTier)
	}

	authEntry, _ := cfg.KB.Lookup("Authentication", kb.KeyProtocolOperation)

	return &Pipeline{
		kb:         cfg.KB,
		analyzer:   cfg.Analyzer,
		gate:       cfg.Gate,
		tier1:      convert.NewDeterministic(),
		tier2:      convert.NewGuided(cfg.Backend, cfg.Analyzer),
		tier3:      convert.NewFullContext(cfg.Backend, cfg.Analyzer, cfg.KB, cfg.ContextBudget),
		auth:       convert.NewAuthRewriter(cfg.Analyzer, authEntry),
		methods:    cfg.KB.SDKMethods(),
		forcedTier: cfg.ForcedTier,
	}, nil
}

// ConvertUsage routes one usage through the cascade and returns its terminal
// result. It never returns an error: failures come back as invalid,
// low-confidence results so sibling usages keep processing.
func (p *Pipeline) ConvertUsage(ctx context.Context, site *types.UsageSite, fileSource string, siblings []*types.UsageSite) *types.ConversionResult {
	entry, ok := p.kb.Resolve(site)
	if !ok {
		return p.failed(site, 0, fmt.Sprintf("no roadmap entry for %s", site.QualifiedName))
	}

	at := &types.ConversionAttempt{
		Site:       site,
		Entry:      entry,
		FileSource: fileSource,
		Siblings:   siblings,
	}

	var result *types.ConversionResult
	var report validate.Report
	state := p.initialState()

	for state != stateValidated {
		if ctx.Err() != nil {
			return p.failed(site, at.Tier, fmt.Sprintf("conversion canceled: %v", ctx.Err()))
		}

		switch state {
		case stateTier1:
			at.Tier, at.Retry = 1, 0
			out, err := p.tier1.Attempt(ctx, at)
			if err != nil {
				// Broken roadmap material; surface it instead of guessing.
				return p.failed(site, 1, err.Error())
			}
			if !out.Applied {
				if p.forcedTier == 1 {
					return p.failed(site, 1, "deterministic pattern not applicable")
				}
				state = stateTier2First
				continue
			}
			result = out.Result
			report = p.validateResult(ctx, result, entry)
			state = stateValidated

		case stateTier2First:
			at.Tier, at.Retry, at.PriorErrors = 2, 0, nil
			out, err := p.tier2.Attempt(ctx, at)
			if err != nil {
				// Backend failure on the first call consumes the bounded
				// retry slot.
				fmt.Fprintln(os.Stderr, "warning: tier-2 attempt failed:", err)
				at.PriorErrors = nil
				state = stateTier2Retry
				continue
			}
			if !out.Applied {
				if p.forcedTier == 2 {
					// Forced tier: no cascade past the requested strategy.
					return p.failed(site, 2, "guided completion not applicable")
				}
				state = stateTier3
				continue
			}
			result = out.Result
			report = p.validateResult(ctx, result, entry)
			if report.Valid {
				state = stateValidated
				continue
			}
			at.PriorErrors = report.Errors
			state = stateTier2Retry

		case stateTier2Retry:
			at.Tier, at.Retry = 2, 1
			out, err := p.tier2.Attempt(ctx, at)
			if err != nil {
				fmt.Fprintln(os.Stderr, "warning: tier-2 retry failed:", err)
				if p.forcedTier == 2 {
					return p.failed(site, 2, err.Error())
				}
				state = stateTier3
				continue
			}
			if !out.Applied {
				if p.forcedTier == 2 {
					return p.failed(site, 2, "guided completion not applicable")
				}
				state = stateTier3
				continue
			}
			result = out.Result
			report = p.validateResult(ctx, result, entry)
			if report.Valid || p.forcedTier == 2 {
				state = stateValidated
				continue
			}
			state = stateTier3

		case stateTier3:
			at.Tier, at.Retry = 3, 0
			out, err := p.tier3.Attempt(ctx, at)
			if err != nil {
				return p.failed(site, 3, err.Error())
			}
			result = out.Result
			report = p.validateResult(ctx, result, entry)
			state = stateValidated
		}
	}

	p.finish(result, report)
	return result
}

func (p *Pipeline) initialState() usageState {
	switch p.forcedTier {
	case 2:
		return stateTier2First
	case 3:
		return stateTier3
	default:
		return stateTier1
	}
}

// validateResult runs the gate over a produced conversion. Gap workarounds
// are annotations, not substitutions, so they don't require a Graph
// identifier to appear.
func (p *Pipeline) validateResult(ctx context.Context, result *types.ConversionResult, entry *types.RoadmapEntry) validate.Report {
	opts := validate.Options{
		ExpectSubstitution: !result.GapFlagged,
		Imports:            splitImports(result.RequiredImports),
	}
	if entry != nil && !result.GapFlagged && entry.SDKMethod != "" {
		opts.ExtraSourceIdentifiers = []string{entry.SDKMethod}
	}
	return p.gate.Validate(ctx, result.ConvertedCode, opts)
}

// finish stamps validity, confidence and the rendered diff onto a terminal
// result.
func (p *Pipeline) finish(result *types.ConversionResult, report validate.Report) {
	result.IsValid = report.Valid
	result.ValidationErrors = report.Errors
	result.Confidence = convert.Score(result.Tier, result.Retry, result.GapFlagged, report.Valid)
	result.UnifiedDiff = diff.Snippet(result.FilePath, result.StartLine, result.OriginalCode, result.ConvertedCode)
}

// failed builds the invalid, low-confidence terminal result for a usage the
// cascade could not convert.
func (p *Pipeline) failed(site *types.UsageSite, tier int, reason string) *types.ConversionResult {
	if tier == 0 {
		tier = 1
	}
	return &types.ConversionResult{
		Tier:             tier,
		Confidence:       types.ConfidenceLow,
		OriginalCode:     site.Snippet,
		ConvertedCode:    "",
		FilePath:         site.FilePath,
		StartLine:        site.StartLine,
		EndLine:          site.EndLine,
		StartByte:        site.StartByte,
		EndByte:          site.EndByte,
		IsValid:          false,
		ValidationErrors: []string{reason},
	}
}

func splitImports(imports string) []string {
	if imports == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(imports, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
