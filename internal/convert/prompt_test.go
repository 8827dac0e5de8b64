package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphshift/internal/analyzer"
	"graphshift/internal/types"
)

func TestBuildGuidedPromptFirstAttempt(t *testing.T) {
	at := &types.ConversionAttempt{
		Site: &types.UsageSite{
			Snippet:   "var message = await EmailMessage.Bind(service, id);",
			StartLine: 12,
		},
		Entry: &types.RoadmapEntry{
			DisplayName: "Get a message by id",
			GraphAPI:    "GET /me/messages/{id}",
			Guidance:    "Translate EWS ids first.",
		},
	}
	method := analyzer.Extraction{Text: "async Task ReadAsync() { ... }"}

	prompt := BuildGuidedPrompt(at, method)
	assert.Contains(t, prompt, "Get a message by id")
	assert.Contains(t, prompt, "GET /me/messages/{id}")
	assert.Contains(t, prompt, "Translate EWS ids first.")
	assert.Contains(t, prompt, "async Task ReadAsync()")
	assert.NotContains(t, prompt, "previous conversion failed")
}

func TestBuildGuidedPromptRetryAppendsErrorsVerbatim(t *testing.T) {
	at := &types.ConversionAttempt{
		Site:  &types.UsageSite{Snippet: "service.Delete(id);"},
		Entry: &types.RoadmapEntry{DisplayName: "Delete an item"},
		Retry: 1,
		PriorErrors: []string{
			"semantic: converted code still references EWS identifier \"ExchangeService\"",
			"compile: error CS0103: The name 'graphClient' does not exist",
		},
	}

	prompt := BuildGuidedPrompt(at, analyzer.Extraction{Text: "void Clean() {}"})
	require.Contains(t, prompt, "previous conversion failed validation")
	for _, e := range at.PriorErrors {
		assert.Contains(t, prompt, e)
	}
}

func TestBuildFullContextPromptAnnotations(t *testing.T) {
	annotations := []SiblingAnnotation{
		{
			Site:  &types.UsageSite{StartLine: 5, Snippet: "service.ExportItems(ids);"},
			Entry: &types.RoadmapEntry{Status: types.StatusGap, Guidance: "Fetch MIME content instead."},
		},
		{
			Site:  &types.UsageSite{StartLine: 9, Snippet: "service.FindItems(f, v);"},
			Entry: &types.RoadmapEntry{Status: types.StatusAvailable, GraphAPI: "GET /me/messages"},
		},
		{
			Site: &types.UsageSite{StartLine: 14, Snippet: "service.DoMystery();"},
		},
	}

	prompt := BuildFullContextPrompt("class Sync { }", true, annotations)
	assert.Contains(t, prompt, "NO Graph equivalent")
	assert.Contains(t, prompt, "Fetch MIME content instead.")
	assert.Contains(t, prompt, "GET /me/messages")
	assert.Contains(t, prompt, "no roadmap mapping")
	assert.Contains(t, prompt, "class Sync { }")
	assert.Contains(t, prompt, "context truncated")
	assert.True(t, strings.Contains(prompt, "line 5:"))
}

func TestSiblingAnnotationGap(t *testing.T) {
	assert.False(t, SiblingAnnotation{}.Gap())
	assert.False(t, SiblingAnnotation{Entry: &types.RoadmapEntry{Status: types.StatusAvailable}}.Gap())
	assert.True(t, SiblingAnnotation{Entry: &types.RoadmapEntry{Status: types.StatusGap}}.Gap())
	assert.True(t, SiblingAnnotation{Entry: &types.RoadmapEntry{Status: types.StatusTBD}}.Gap())
}
