package convert

import (
	"context"

	"graphshift/internal/analyzer"
	"graphshift/internal/types"
)

// defaultAuthTemplate is used when the roadmap carries no authentication
// entry of its own.
const defaultAuthTemplate = `var scopes = new[] { "https://graph.microsoft.com/.default" };
var credential = new ClientSecretCredential(tenantId, clientId, clientSecret);
var graphClient = new GraphServiceClient(credential, scopes);`

var defaultAuthImports = []string{
	"using Azure.Identity;",
	"using Microsoft.Graph;",
}

// AuthRewriter is the file-scoped tier-1 variant: it finds the EWS
// ExchangeService construction and credential assignment block and rewrites
// it to Graph client construction. It runs at most once per file, before any
// per-usage conversion.
type AuthRewriter struct {
	analyzer *analyzer.Analyzer
	entry    *types.RoadmapEntry // authentication roadmap entry, may be nil
}

// NewAuthRewriter builds the rewriter. entry is the roadmap's authentication
// entry when present; its template and imports take precedence over the
// built-in defaults.
func NewAuthRewriter(a *analyzer.Analyzer, entry *types.RoadmapEntry) *AuthRewriter {
	return &AuthRewriter{analyzer: a, entry: entry}
}

// Rewrite returns the auth conversion for the file, or ok=false when the file
// constructs no ExchangeService.
func (r *AuthRewriter) Rewrite(ctx context.Context, path string, source []byte) (*types.ConversionResult, bool) {
	block, ok := r.analyzer.FindAuthBlock(ctx, source)
	if !ok {
		return nil, false
	}

	template := defaultAuthTemplate
	imports := defaultAuthImports
	pkg := "Microsoft.Graph"
	if r.entry != nil {
		if r.entry.TargetTemplate != "" {
			template = r.entry.TargetTemplate
		}
		if len(r.entry.RequiredImports) > 0 {
			imports = r.entry.RequiredImports
		}
		if r.entry.RequiredPackage != "" {
			pkg = r.entry.RequiredPackage
		}
	}

	return &types.ConversionResult{
		Tier:            1,
		OriginalCode:    block.Text,
		ConvertedCode:   template,
		RequiredImports: types.ImportList(imports),
		RequiredPackage: pkg,
		FilePath:        path,
		StartLine:       block.StartLine,
		EndLine:         block.EndLine,
		StartByte:       block.StartByte,
		EndByte:         block.EndByte,
	}, true
}
