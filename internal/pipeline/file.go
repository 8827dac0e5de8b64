package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"graphshift/internal/analyzer"
	"graphshift/internal/diff"
	"graphshift/internal/types"
)

// ConvertFile converts every EWS usage in one source file. The auth rewrite
// runs first, then usages are processed and applied strictly from the highest
// byte offset to the lowest so earlier edits never shift later spans.
func (p *Pipeline) ConvertFile(ctx context.Context, path string, source []byte) (*types.FileConversionBatch, error) {
	sites, err := p.analyzer.LocateUsages(ctx, path, source, p.methods)
	if err != nil {
		return nil, fmt.Errorf("locating usages in %s: %w", path, err)
	}

	batch := &types.FileConversionBatch{FilePath: path}
	src := string(source)

	if authRes, ok := p.auth.Rewrite(ctx, path, source); ok {
		report := p.validateResult(ctx, authRes, nil)
		p.finish(authRes, report)
		batch.AuthRewrite = authRes
	}

	if len(sites) == 0 && batch.AuthRewrite == nil {
		return batch, nil
	}

	// Highest offset first. Tier-3 results cover a whole class, so sites
	// already inside a produced span are represented by that result rather
	// than converted twice.
	sort.Slice(sites, func(i, j int) bool { return sites[i].StartByte > sites[j].StartByte })

	var covered []span
	inCovered := func(s *types.UsageSite) bool {
		for _, c := range covered {
			if s.StartByte >= c.start && s.EndByte <= c.end {
				return true
			}
		}
		return false
	}

	for _, site := range sites {
		if inCovered(site) {
			continue
		}
		res := p.ConvertUsage(ctx, site, src, sites)
		batch.Results = append(batch.Results, res)
		if res.Tier == 3 && res.EndByte > res.StartByte {
			covered = append(covered, span{res.StartByte, res.EndByte})
		}
	}

	pruneSuperseded(batch)
	batch.MergedImports = mergeImports(batch.AllResults())

	updated, err := applyEdits(src, batch.AllResults())
	if err != nil {
		return nil, fmt.Errorf("applying edits to %s: %w", path, err)
	}
	updated = insertImports(updated, batch.MergedImports)
	if updated != src {
		batch.UpdatedSource = updated
		batch.UnifiedDiff = diff.Unified(path, src, updated)
	}
	return batch, nil
}

// ConvertAuth rewrites only the authentication block of one source file,
// leaving every other EWS usage untouched. Files without an auth block come
// back as an empty batch.
func (p *Pipeline) ConvertAuth(ctx context.Context, path string, source []byte) (*types.FileConversionBatch, error) {
	batch := &types.FileConversionBatch{FilePath: path}
	src := string(source)

	authRes, ok := p.auth.Rewrite(ctx, path, source)
	if !ok {
		return batch, nil
	}
	report := p.validateResult(ctx, authRes, nil)
	p.finish(authRes, report)
	batch.AuthRewrite = authRes
	batch.MergedImports = mergeImports(batch.AllResults())

	updated, err := applyEdits(src, batch.AllResults())
	if err != nil {
		return nil, fmt.Errorf("applying edits to %s: %w", path, err)
	}
	updated = insertImports(updated, batch.MergedImports)
	if updated != src {
		batch.UpdatedSource = updated
		batch.UnifiedDiff = diff.Unified(path, src, updated)
	}
	return batch, nil
}

type span struct{ start, end int }

// pruneSuperseded drops results whose span lies inside a tier-3 result's
// span. A tier-3 conversion rewrites its whole class, so per-usage results
// produced earlier for sites inside that class are represented by it;
// applying both would edit overlapping ranges and count the usage twice.
func pruneSuperseded(batch *types.FileConversionBatch) {
	var classSpans []span
	for _, r := range batch.Results {
		if r.Tier == 3 && r.EndByte > r.StartByte {
			classSpans = append(classSpans, span{r.StartByte, r.EndByte})
		}
	}
	if len(classSpans) == 0 {
		return
	}
	inside := func(r *types.ConversionResult) bool {
		for _, c := range classSpans {
			if r.StartByte >= c.start && r.EndByte <= c.end && r.EndByte-r.StartByte < c.end-c.start {
				return true
			}
		}
		return false
	}
	if batch.AuthRewrite != nil && inside(batch.AuthRewrite) {
		batch.AuthRewrite = nil
	}
	kept := batch.Results[:0]
	for _, r := range batch.Results {
		if !inside(r) {
			kept = append(kept, r)
		}
	}
	batch.Results = kept
}

// applyEdits rewrites the source with every valid conversion, highest offset
// first. Invalid results are review material and are never applied.
func applyEdits(source string, results []*types.ConversionResult) (string, error) {
	applicable := make([]*types.ConversionResult, 0, len(results))
	for _, r := range results {
		if r.IsValid && r.ConvertedCode != "" {
			applicable = append(applicable, r)
		}
	}
	sort.Slice(applicable, func(i, j int) bool {
		return applicable[i].StartByte > applicable[j].StartByte
	})

	out := source
	var err error
	for _, r := range applicable {
		out, err = analyzer.Replace(out, r.StartByte, r.EndByte, r.ConvertedCode)
		if err != nil {
			return "", err
		}
	}
	return out, nil
}

// mergeImports deduplicates the using-directives of every valid result,
// preserving first-seen order.
func mergeImports(results []*types.ConversionResult) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, r := range results {
		if !r.IsValid {
			continue
		}
		for _, imp := range splitImports(r.RequiredImports) {
			if !seen[imp] {
				seen[imp] = true
				merged = append(merged, imp)
			}
		}
	}
	return merged
}

// insertImports adds missing using-directives to the top of the file, after
// any existing directive block.
func insertImports(source string, imports []string) string {
	var missing []string
	for _, imp := range imports {
		if !strings.Contains(source, imp) {
			missing = append(missing, imp)
		}
	}
	if len(missing) == 0 {
		return source
	}

	lines := strings.Split(source, "\n")
	insertAt := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "using ") {
			insertAt = i + 1
		}
	}

	out := make([]string, 0, len(lines)+len(missing))
	out = append(out, lines[:insertAt]...)
	out = append(out, missing...)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}
