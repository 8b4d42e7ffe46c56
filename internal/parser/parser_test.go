package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>Example Page</title>
	<meta name="description" content="An example page for testing">
	<meta name="keywords" content="go, crawler, testing">
</head>
<body>
	<h1>Welcome</h1>
	<h2>Section One</h2>
	<p>Some body text with <a href="/relative/path">a link</a> and
	   <a href="https://other.com/absolute">an absolute link</a>.</p>
	<a href="#section">anchor only</a>
	<a href="javascript:void(0)">js link</a>
	<img src="/images/pic.png" alt="a picture">
	<ul>
		<li>first</li>
		<li>second</li>
	</ul>
	<ol>
		<li>one</li>
		<li>two</li>
	</ol>
	<table>
		<tr><th>Name</th><th>Value</th></tr>
		<tr><td>a</td><td>1</td></tr>
	</table>
	<script>var x = 1;</script>
</body>
</html>`

func TestParseExtractsTitleAndMetadata(t *testing.T) {
	record, err := Parse([]byte(samplePage), "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, "Example Page", record.Title)
	assert.Equal(t, "An example page for testing", record.Metadata["description"])
	assert.Equal(t, "go, crawler, testing", record.Metadata["keywords"])
}

func TestParseResolvesLinksAgainstPageURL(t *testing.T) {
	record, err := Parse([]byte(samplePage), "https://example.com/page")
	require.NoError(t, err)
	assert.Contains(t, record.Links, "https://example.com/relative/path")
	assert.Contains(t, record.Links, "https://other.com/absolute")
}

func TestParseSkipsAnchorsAndJavascriptLinks(t *testing.T) {
	record, err := Parse([]byte(samplePage), "https://example.com/page")
	require.NoError(t, err)
	for _, link := range record.Links {
		assert.NotContains(t, link, "javascript:")
		assert.NotContains(t, link, "#section")
	}
}

func TestParseExtractsImagesWithAbsoluteSrc(t *testing.T) {
	record, err := Parse([]byte(samplePage), "https://example.com/page")
	require.NoError(t, err)
	require.Len(t, record.Images, 1)
	assert.Equal(t, "https://example.com/images/pic.png", record.Images[0].Src)
	assert.Equal(t, "a picture", record.Images[0].Alt)
}

func TestParseExtractsHeadersByLevel(t *testing.T) {
	record, err := Parse([]byte(samplePage), "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, []string{"Welcome"}, record.Headers["h1"])
	assert.Equal(t, []string{"Section One"}, record.Headers["h2"])
}

func TestParseExtractsListsAndTables(t *testing.T) {
	record, err := Parse([]byte(samplePage), "https://example.com/page")
	require.NoError(t, err)
	require.Len(t, record.Lists.UL, 1)
	assert.Equal(t, []string{"first", "second"}, record.Lists.UL[0])
	require.Len(t, record.Lists.OL, 1)
	assert.Equal(t, []string{"one", "two"}, record.Lists.OL[0])
	require.Len(t, record.Tables, 1)
	assert.Equal(t, [][]string{{"Name", "Value"}, {"a", "1"}}, record.Tables[0])
}

func TestParseStripsScriptContentFromText(t *testing.T) {
	record, err := Parse([]byte(samplePage), "https://example.com/page")
	require.NoError(t, err)
	assert.NotContains(t, record.Text, "var x = 1")
	assert.Contains(t, record.Text, "Some body text")
}

func TestParseNeverErrorsOnMalformedHTML(t *testing.T) {
	_, err := Parse([]byte("<html><body><div><p>unclosed"), "https://example.com/page")
	assert.NoError(t, err)
}

func TestParseHandlesEmptyBody(t *testing.T) {
	record, err := Parse([]byte(""), "https://example.com/page")
	require.NoError(t, err)
	assert.Empty(t, record.Links)
	assert.Empty(t, record.Title)
}
