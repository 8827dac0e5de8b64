package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphshift/internal/types"
)

func TestApplyEditsDescendingOffsets(t *testing.T) {
	source := strings.Repeat("a", 50) + "ONE" + strings.Repeat("b", 67) + "TWO" + strings.Repeat("c", 77) + "THREE" + "tail"
	// Spans at offsets 50, 120 and 200, deliberately passed in ascending
	// order: application must sort them descending itself.
	results := []*types.ConversionResult{
		{StartByte: 50, EndByte: 53, ConvertedCode: "first", IsValid: true},
		{StartByte: 120, EndByte: 123, ConvertedCode: "second", IsValid: true},
		{StartByte: 200, EndByte: 205, ConvertedCode: "third", IsValid: true},
	}
	require.Equal(t, "ONE", source[50:53])
	require.Equal(t, "TWO", source[120:123])
	require.Equal(t, "THREE", source[200:205])

	out, err := applyEdits(source, results)
	require.NoError(t, err)
	want := strings.Repeat("a", 50) + "first" + strings.Repeat("b", 67) + "second" + strings.Repeat("c", 77) + "third" + "tail"
	assert.Equal(t, want, out)
}

func TestApplyEditsSkipsInvalidResults(t *testing.T) {
	source := "keep REPLACE keep"
	results := []*types.ConversionResult{
		{StartByte: 5, EndByte: 12, ConvertedCode: "done", IsValid: true},
		{StartByte: 0, EndByte: 4, ConvertedCode: "drop", IsValid: false},
	}
	out, err := applyEdits(source, results)
	require.NoError(t, err)
	assert.Equal(t, "keep done keep", out)
}

func TestMergeImportsDeduplicates(t *testing.T) {
	results := []*types.ConversionResult{
		{IsValid: true, RequiredImports: "using Microsoft.Graph;\nusing Azure.Identity;"},
		{IsValid: true, RequiredImports: "using Microsoft.Graph;"},
		{IsValid: false, RequiredImports: "using Should.Not.Appear;"},
	}
	merged := mergeImports(results)
	assert.Equal(t, []string{"using Microsoft.Graph;", "using Azure.Identity;"}, merged)
}

func TestInsertImports(t *testing.T) {
	source := "using System;\nusing Microsoft.Exchange.WebServices.Data;\n\nclass A { }"
	out := insertImports(source, []string{"using Microsoft.Graph;", "using System;"})

	lines := strings.Split(out, "\n")
	assert.Equal(t, "using System;", lines[0])
	assert.Equal(t, "using Microsoft.Exchange.WebServices.Data;", lines[1])
	assert.Equal(t, "using Microsoft.Graph;", lines[2])
	// Already-present directives are not duplicated.
	assert.Equal(t, 1, strings.Count(out, "using System;"))
}

func TestInsertImportsNoExistingDirectives(t *testing.T) {
	out := insertImports("class A { }", []string{"using Microsoft.Graph;"})
	assert.True(t, strings.HasPrefix(out, "using Microsoft.Graph;"))
}

const fullSource = `using System;
using Microsoft.Exchange.WebServices.Data;

class Sync
{
    void Connect()
    {
        var service = new ExchangeService(ExchangeVersion.Exchange2013_SP1);
        service.Credentials = new WebCredentials("user", "pass");
    }

    void List(ExchangeService service)
    {
        var results = service.FindItems(WellKnownFolderName.Inbox, new ItemView(50));
    }
}
`

func TestConvertFileAuthFirstAndTemplates(t *testing.T) {
	fake := &fakeCompleter{responses: []string{goodResponse}}
	p := newTestPipeline(t, fake, 0)

	batch, err := p.ConvertFile(context.Background(), "Sync.cs", []byte(fullSource))
	require.NoError(t, err)

	require.NotNil(t, batch.AuthRewrite)
	assert.Equal(t, 1, batch.AuthRewrite.Tier)
	assert.True(t, batch.AuthRewrite.IsValid)
	assert.Contains(t, batch.AuthRewrite.ConvertedCode, "GraphServiceClient")

	require.Len(t, batch.Results, 1)
	r := batch.Results[0]
	assert.Equal(t, 1, r.Tier)
	assert.Equal(t, types.ConfidenceHigh, r.Confidence)
	assert.Contains(t, r.ConvertedCode, `MailFolders["inbox"]`)

	// The deterministic tier never touches the backend.
	assert.Zero(t, fake.calls)

	require.NotEmpty(t, batch.UpdatedSource)
	assert.NotContains(t, batch.UpdatedSource, "new ExchangeService")
	assert.Contains(t, batch.UpdatedSource, "Top = 50")
	assert.Contains(t, batch.UpdatedSource, "using Azure.Identity;")
	assert.NotEmpty(t, batch.UnifiedDiff)
	assert.Contains(t, batch.MergedImports, "using Microsoft.Graph;")
}

const mixedTierSource = `using Microsoft.Exchange.WebServices.Data;

class Archive
{
    void Export(ExchangeService service, ItemId id)
    {
        var stream = service.ExportItems(id);
    }

    void List(ExchangeService service)
    {
        var results = service.FindItems(WellKnownFolderName.Inbox, new ItemView(50));
    }
}
`

const archiveClassResponse = "### CONVERTED CODE\n```csharp\n" +
	"class Archive\n{\n" +
	"    // WARNING: no Graph equivalent for the FastTransfer export stream.\n" +
	"    async Task Export(GraphServiceClient graphClient, string id)\n    {\n" +
	"        var mime = await graphClient.Me.Messages[id].Content.GetAsync();\n    }\n\n" +
	"    async Task List(GraphServiceClient graphClient)\n    {\n" +
	"        var messages = await graphClient.Me.MailFolders[\"inbox\"].Messages.GetAsync();\n    }\n}\n" +
	"```\n### REQUIRED IMPORTS\n```csharp\nusing Microsoft.Graph;\n```\n"

func TestConvertFileClassResultSupersedesContainedEdits(t *testing.T) {
	fake := &fakeCompleter{responses: []string{archiveClassResponse}}
	p := newTestPipeline(t, fake, 0)

	// FindItems sits at the higher offset and converts deterministically
	// first; ExportItems then produces a class-wide result whose span
	// contains the already-produced one.
	batch, err := p.ConvertFile(context.Background(), "Archive.cs", []byte(mixedTierSource))
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)

	require.Len(t, batch.Results, 1)
	r := batch.Results[0]
	assert.Equal(t, 3, r.Tier)
	assert.True(t, r.GapFlagged)
	assert.True(t, r.IsValid)
	assert.Equal(t, types.ConfidenceLow, r.Confidence)

	require.NotEmpty(t, batch.UpdatedSource)
	assert.Equal(t, 1, strings.Count(batch.UpdatedSource, "class Archive"))
	assert.NotContains(t, batch.UpdatedSource, "service.FindItems")
	// No fragment of the superseded per-usage edit survives.
	assert.NotContains(t, batch.UpdatedSource, "Top = 50")
	assert.Contains(t, batch.UpdatedSource, "using Microsoft.Graph;")

	var summary types.ProjectConversionSummary
	summary.Fold(batch)
	assert.Equal(t, 1, summary.TotalUsages)
}

func TestConvertAuthLeavesUsagesAlone(t *testing.T) {
	fake := &fakeCompleter{responses: []string{goodResponse}}
	p := newTestPipeline(t, fake, 0)

	batch, err := p.ConvertAuth(context.Background(), "Sync.cs", []byte(fullSource))
	require.NoError(t, err)

	require.NotNil(t, batch.AuthRewrite)
	assert.True(t, batch.AuthRewrite.IsValid)
	assert.Empty(t, batch.Results)
	assert.Zero(t, fake.calls)

	require.NotEmpty(t, batch.UpdatedSource)
	assert.NotContains(t, batch.UpdatedSource, "new ExchangeService")
	// The FindItems call stays untouched.
	assert.Contains(t, batch.UpdatedSource, "service.FindItems(WellKnownFolderName.Inbox")
	assert.Contains(t, batch.UpdatedSource, "using Azure.Identity;")
}

func TestConvertAuthAbsent(t *testing.T) {
	fake := &fakeCompleter{responses: []string{goodResponse}}
	p := newTestPipeline(t, fake, 0)

	batch, err := p.ConvertAuth(context.Background(), "Plain.cs", []byte("class Plain { }"))
	require.NoError(t, err)
	assert.Nil(t, batch.AuthRewrite)
	assert.Empty(t, batch.UpdatedSource)
}

func TestConvertFileWithoutUsages(t *testing.T) {
	fake := &fakeCompleter{responses: []string{goodResponse}}
	p := newTestPipeline(t, fake, 0)

	batch, err := p.ConvertFile(context.Background(), "Plain.cs", []byte("class Plain { }"))
	require.NoError(t, err)
	assert.Nil(t, batch.AuthRewrite)
	assert.Empty(t, batch.Results)
	assert.Empty(t, batch.UpdatedSource)
	assert.Empty(t, batch.UnifiedDiff)
}
