package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedResponse = "### CONVERTED CODE\n" +
	"```csharp\n" +
	"var messages = await graphClient.Me.Messages.GetAsync();\n" +
	"```\n\n" +
	"### REQUIRED IMPORTS\n" +
	"```csharp\n" +
	"using Microsoft.Graph;\n" +
	"using Microsoft.Graph.Models;\n" +
	"```\n"

func TestParseResponseWellFormed(t *testing.T) {
	code, imports, err := ParseResponse(wellFormedResponse)
	require.NoError(t, err)
	assert.Equal(t, "var messages = await graphClient.Me.Messages.GetAsync();", code)
	assert.Equal(t, []string{"using Microsoft.Graph;", "using Microsoft.Graph.Models;"}, imports)
}

func TestParseResponseLowercaseHeadings(t *testing.T) {
	response := "### converted code\n```cs\nvar x = graphClient;\n```\n### required imports\n```\nusing Microsoft.Graph;\n```"
	code, imports, err := ParseResponse(response)
	require.NoError(t, err)
	assert.Equal(t, "var x = graphClient;", code)
	assert.Equal(t, []string{"using Microsoft.Graph;"}, imports)
}

func TestParseResponseBareFence(t *testing.T) {
	response := "Here is the conversion:\n```csharp\nvar x = graphClient.Me;\n```\nLet me know if you need more."
	code, imports, err := ParseResponse(response)
	require.NoError(t, err)
	assert.Equal(t, "var x = graphClient.Me;", code)
	assert.Empty(t, imports)
}

func TestParseResponseNoCode(t *testing.T) {
	_, _, err := ParseResponse("I cannot convert this call.")
	assert.Error(t, err)
}

func TestParseResponseFiltersNonImportLines(t *testing.T) {
	response := "### CONVERTED CODE\n```csharp\nvar x = graphClient.Me;\n```\n" +
		"### REQUIRED IMPORTS\n```csharp\nusing Microsoft.Graph;\n// none beyond this\nMicrosoft.Graph\n```"
	_, imports, err := ParseResponse(response)
	require.NoError(t, err)
	assert.Equal(t, []string{"using Microsoft.Graph;"}, imports)
}
