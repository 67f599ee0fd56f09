package scrapers

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/models"
)

func TestResultStore_ArchiveAndLatest(t *testing.T) {
	store, err := NewResultStore(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)

	first := &models.ScrapeResult{Success: true, Count: 1, Source: "acme"}
	second := &models.ScrapeResult{Success: true, Count: 2, Source: "acme"}

	firstPath, err := store.Save("acme", first)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	secondPath, err := store.Save("acme", second)
	require.NoError(t, err)

	assert.NotEqual(t, firstPath, secondPath, "each run gets its own archive file")
	assert.True(t, filepath.Base(firstPath) < filepath.Base(secondPath), "archive names sort chronologically")

	results, err := store.List("acme")
	require.NoError(t, err)
	require.Len(t, results, 2, "archives accumulate, latest snapshot excluded")
	assert.Equal(t, 2, results[0].Count, "newest first")
	assert.Equal(t, 1, results[1].Count)

	latest, err := store.Latest("acme")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 2, latest.Count, "latest reflects the most recent run")
}

func TestResultStore_LatestAbsentIsNil(t *testing.T) {
	store, err := NewResultStore(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)

	latest, err := store.Latest("nobody")
	require.NoError(t, err)
	assert.Nil(t, latest)

	results, err := store.List("nobody")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResultStore_FailureArtifactRoundTrip(t *testing.T) {
	store, err := NewResultStore(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)

	artifact := &models.ScrapeResult{
		Success: false,
		Source:  "acme",
		Error:   "selector matched nothing",
		Stack:   "Error: selector matched nothing\n  at scrape",
	}
	_, err = store.Save("acme", artifact)
	require.NoError(t, err)

	latest, err := store.Latest("acme")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.False(t, latest.Success)
	assert.Equal(t, "selector matched nothing", latest.Error)
	assert.NotEmpty(t, latest.Stack)
}

func TestResultStore_ListIsScraperScoped(t *testing.T) {
	store, err := NewResultStore(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)

	_, err = store.Save("alpha", &models.ScrapeResult{Success: true, Count: 1})
	require.NoError(t, err)
	_, err = store.Save("beta", &models.ScrapeResult{Success: true, Count: 9})
	require.NoError(t, err)

	results, err := store.List("alpha")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Count)
}
