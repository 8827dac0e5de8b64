package convert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphshift/internal/kb"
	"graphshift/internal/types"
)

func findItemsEntry(t *testing.T) *types.RoadmapEntry {
	t.Helper()
	a, err := kb.Load("")
	require.NoError(t, err)
	entry, ok := a.Lookup("FindItems", kb.KeySDKMethod)
	require.True(t, ok)
	return entry
}

func findItemsSite() *types.UsageSite {
	return &types.UsageSite{
		FilePath:  "Mail.cs",
		StartByte: 100,
		EndByte:   170,
		StartLine: 10,
		EndLine:   10,
		Method:    "FindItems",
		Receiver:  "service",
		Args:      []string{"WellKnownFolderName.Inbox", "new ItemView(50)"},
		Snippet:   "service.FindItems(WellKnownFolderName.Inbox, new ItemView(50));",
	}
}

func TestDeterministicConvertsConformingCall(t *testing.T) {
	d := NewDeterministic()
	at := &types.ConversionAttempt{Site: findItemsSite(), Entry: findItemsEntry(t)}

	out, err := d.Attempt(context.Background(), at)
	require.NoError(t, err)
	require.True(t, out.Applied)

	r := out.Result
	assert.Equal(t, 1, r.Tier)
	assert.Contains(t, r.ConvertedCode, `MailFolders["inbox"]`)
	assert.Contains(t, r.ConvertedCode, "Top = 50")
	assert.NotContains(t, r.ConvertedCode, "{folder}")
	assert.NotContains(t, r.ConvertedCode, "{pageSize}")
	assert.Equal(t, "using Microsoft.Graph;", r.RequiredImports)
	assert.Equal(t, 100, r.StartByte)
	assert.Equal(t, 170, r.EndByte)
}

func TestDeterministicPatternMismatchIsNotAnError(t *testing.T) {
	d := NewDeterministic()
	entry := findItemsEntry(t)

	tests := []struct {
		name   string
		mutate func(*types.UsageSite)
	}{
		{"chained receiver", func(s *types.UsageSite) { s.Receiver = "GetService()" }},
		{"too few args", func(s *types.UsageSite) { s.Args = s.Args[:1] }},
		{"too many args", func(s *types.UsageSite) { s.Args = append(s.Args, "true") }},
		{"variable where literal required", func(s *types.UsageSite) { s.Args[0] = "folderId" }},
		{"extractor miss", func(s *types.UsageSite) { s.Args[1] = "view" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := findItemsSite()
			tt.mutate(site)
			out, err := d.Attempt(context.Background(), &types.ConversionAttempt{Site: site, Entry: entry})
			require.NoError(t, err)
			assert.False(t, out.Applied)
		})
	}
}

func TestDeterministicSkipsHigherTierEntries(t *testing.T) {
	d := NewDeterministic()
	entry := &types.RoadmapEntry{SDKMethod: "Bind", Tier: 2, Status: types.StatusAvailable}

	out, err := d.Attempt(context.Background(), &types.ConversionAttempt{Site: findItemsSite(), Entry: entry})
	require.NoError(t, err)
	assert.False(t, out.Applied)
}

func TestIsLiteralish(t *testing.T) {
	tests := []struct {
		arg  string
		want bool
	}{
		{`"inbox"`, true},
		{"42", true},
		{"-3.5f", true},
		{"WellKnownFolderName.Inbox", true},
		{"folderId", false},
		{"GetFolder()", false},
		{"Factory.Make(1)", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, isLiteralish(tt.arg))
		})
	}
}
