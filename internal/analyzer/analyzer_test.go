package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `using System;
using Microsoft.Exchange.WebServices.Data;

namespace Contoso.Mail
{
    public class MailSync
    {
        public void Connect()
        {
            var service = new ExchangeService(ExchangeVersion.Exchange2013_SP1);
            service.Credentials = new WebCredentials("user@contoso.com", "password");
            service.Url = new Uri("https://outlook.office365.com/EWS/Exchange.asmx");
        }

        public async Task SyncAsync(ExchangeService service, ItemId id)
        {
            var results = service.FindItems(WellKnownFolderName.Inbox, new ItemView(50));
            var message = await EmailMessage.Bind(service, id);
        }
    }
}
`

var sampleMethods = map[string]string{
	"FindItems": "Microsoft.Exchange.WebServices.Data.ExchangeService.FindItems",
	"Bind":      "Microsoft.Exchange.WebServices.Data.EmailMessage.Bind",
}

func TestLocateUsages(t *testing.T) {
	a := New()
	sites, err := a.LocateUsages(context.Background(), "MailSync.cs", []byte(sampleSource), sampleMethods)
	require.NoError(t, err)
	require.Len(t, sites, 2)

	find := sites[0]
	assert.Equal(t, "FindItems", find.Method)
	assert.Equal(t, "Microsoft.Exchange.WebServices.Data.ExchangeService.FindItems", find.QualifiedName)
	assert.Equal(t, "service", find.Receiver)
	require.Len(t, find.Args, 2)
	assert.Equal(t, "WellKnownFolderName.Inbox", find.Args[0])
	assert.Equal(t, "new ItemView(50)", find.Args[1])
	// The snippet spans the whole statement, not just the invocation.
	assert.True(t, strings.HasPrefix(find.Snippet, "var results = service.FindItems"))
	assert.True(t, strings.HasSuffix(find.Snippet, ";"))
	assert.Equal(t, "MailSync.cs", find.FilePath)
	assert.NoError(t, find.Validate())

	bind := sites[1]
	assert.Equal(t, "Bind", bind.Method)
	assert.Equal(t, "EmailMessage", bind.Receiver)
	assert.Greater(t, bind.StartByte, find.StartByte)
}

func TestLocateUsagesSkipsNonEWSFiles(t *testing.T) {
	a := New()
	src := `class Plain { void M() { service.FindItems(a, b); } }`
	sites, err := a.LocateUsages(context.Background(), "Plain.cs", []byte(src), sampleMethods)
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestLocateUsagesIgnoresUnknownMethods(t *testing.T) {
	a := New()
	src := "// Microsoft.Exchange.WebServices\nclass C { void M() { service.MoveItems(a); } }"
	sites, err := a.LocateUsages(context.Background(), "C.cs", []byte(src), sampleMethods)
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestSyntaxErrors(t *testing.T) {
	a := New()

	tree, err := a.Parse(context.Background(), []byte("class A { void M() { } }"))
	require.NoError(t, err)
	assert.Empty(t, a.SyntaxErrors(tree.RootNode(), []byte("class A { void M() { } }")))

	broken := []byte("class A { void M( { } }")
	tree, err = a.Parse(context.Background(), broken)
	require.NoError(t, err)
	assert.NotEmpty(t, a.SyntaxErrors(tree.RootNode(), broken))
}

func TestEnclosingMethod(t *testing.T) {
	a := New()
	offset := strings.Index(sampleSource, "service.FindItems")
	require.GreaterOrEqual(t, offset, 0)

	m, ok := a.EnclosingMethod(context.Background(), []byte(sampleSource), offset, offset+10)
	require.True(t, ok)
	assert.Equal(t, "SyncAsync", m.Name)
	assert.Contains(t, m.Text, "public async Task SyncAsync")
	assert.Contains(t, m.Text, "EmailMessage.Bind")
	assert.LessOrEqual(t, m.StartByte, offset)
	assert.Greater(t, m.EndByte, offset)
}

func TestEnclosingClass(t *testing.T) {
	a := New()
	offset := strings.Index(sampleSource, "service.FindItems")
	require.GreaterOrEqual(t, offset, 0)

	c, ok := a.EnclosingClass(context.Background(), []byte(sampleSource), offset, offset+10)
	require.True(t, ok)
	assert.Equal(t, "MailSync", c.Name)
	assert.Contains(t, c.Text, "public void Connect()")
}

func TestEnclosingMethodOutsideAnyMethod(t *testing.T) {
	a := New()
	src := `class A { int field = 1; }`
	offset := strings.Index(src, "field")

	_, ok := a.EnclosingMethod(context.Background(), []byte(src), offset, offset+5)
	assert.False(t, ok)
}

func TestFindAuthBlock(t *testing.T) {
	a := New()
	block, ok := a.FindAuthBlock(context.Background(), []byte(sampleSource))
	require.True(t, ok)

	assert.Contains(t, block.Text, "new ExchangeService")
	assert.Contains(t, block.Text, "service.Credentials")
	assert.Contains(t, block.Text, "service.Url")
	assert.NotContains(t, block.Text, "FindItems")
	assert.Greater(t, block.EndByte, block.StartByte)
	assert.GreaterOrEqual(t, block.EndLine, block.StartLine)
}

func TestFindAuthBlockAbsent(t *testing.T) {
	a := New()
	_, ok := a.FindAuthBlock(context.Background(), []byte("class A { void M() { } }"))
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	out, err := Replace("hello world", 6, 11, "graph")
	require.NoError(t, err)
	assert.Equal(t, "hello graph", out)

	out, err = Replace("abc", 0, 0, "x")
	require.NoError(t, err)
	assert.Equal(t, "xabc", out)

	_, err = Replace("abc", 2, 1, "x")
	assert.Error(t, err)
	_, err = Replace("abc", -1, 2, "x")
	assert.Error(t, err)
	_, err = Replace("abc", 0, 9, "x")
	assert.Error(t, err)
}
