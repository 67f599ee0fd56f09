package scrapers

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/common"
)

func newTestRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	stagingDir := t.TempDir()
	runner, err := NewRunner(&common.ScraperConfig{
		StagingDir:     stagingDir,
		ScriptTimeout:  "5s",
		FetchRateLimit: "1ms",
		FetchTimeout:   "5s",
	}, arbor.NewLogger())
	require.NoError(t, err)
	return runner, stagingDir
}

func stagingFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestRunner_SuccessfulScript(t *testing.T) {
	runner, stagingDir := newTestRunner(t)

	script := `
function scrape(params) {
	console.log("running");
	return { success: true, jobs: [{ title: "Engineer" }], url: "https://example.com" };
}
`
	result, err := runner.Run(context.Background(), "acme", script, nil)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Count)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "Engineer", result.Jobs[0]["title"])
	assert.Equal(t, "acme", result.Source, "source defaults to the scraper name")
	assert.Equal(t, 0, stagingFileCount(t, stagingDir), "staging file removed after success")
}

func TestRunner_ParamsReachScript(t *testing.T) {
	runner, _ := newTestRunner(t)

	script := `
function scrape(params) {
	return { success: true, jobs: [{ query: params.q }] };
}
`
	result, err := runner.Run(context.Background(), "acme", script, map[string]interface{}{"q": "golang"})
	require.NoError(t, err)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "golang", result.Jobs[0]["query"])
}

func TestRunner_ThrowingScript(t *testing.T) {
	runner, stagingDir := newTestRunner(t)

	script := `
function scrape(params) {
	throw new Error("boom");
}
`
	result, err := runner.Run(context.Background(), "acme", script, nil)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 0, stagingFileCount(t, stagingDir), "staging file removed after failure")
}

func TestRunner_MissingScrapeFunction(t *testing.T) {
	runner, stagingDir := newTestRunner(t)

	_, err := runner.Run(context.Background(), "acme", `var answer = 42;`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape")
	assert.Equal(t, 0, stagingFileCount(t, stagingDir))
}

func TestRunner_ParseHelper(t *testing.T) {
	runner, _ := newTestRunner(t)

	script := `
function scrape(params) {
	var rows = parse("<ul><li class='job'>One</li><li class='job'>Two</li></ul>", "li.job");
	return { success: true, jobs: [{ total: rows.length, first: rows[0].text }] };
}
`
	result, err := runner.Run(context.Background(), "acme", script, nil)
	require.NoError(t, err)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, float64(2), result.Jobs[0]["total"])
	assert.Equal(t, "One", result.Jobs[0]["first"])
}

func TestRunner_ToMarkdownHelper(t *testing.T) {
	runner, _ := newTestRunner(t)

	script := `
function scrape(params) {
	return { success: true, jobs: [{ md: toMarkdown("<h1>Title</h1>") }] };
}
`
	result, err := runner.Run(context.Background(), "acme", script, nil)
	require.NoError(t, err)
	require.Len(t, result.Jobs, 1)
	assert.Contains(t, result.Jobs[0]["md"], "Title")
}

func TestRunner_TimeoutInterruptsScript(t *testing.T) {
	stagingDir := t.TempDir()
	runner, err := NewRunner(&common.ScraperConfig{
		StagingDir:    stagingDir,
		ScriptTimeout: "100ms",
	}, arbor.NewLogger())
	require.NoError(t, err)

	script := `
function scrape(params) {
	while (true) {}
}
`
	_, err = runner.Run(context.Background(), "spinner", script, nil)
	require.Error(t, err)
	assert.Equal(t, 0, stagingFileCount(t, stagingDir), "staging file removed after timeout")
}
