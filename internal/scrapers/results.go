package scrapers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/models"
)

// ResultStore persists scrape results as JSON files under the configured
// data directory. Each successful run writes two files: a timestamped
// archive that is never overwritten, and a `<name>-latest.json` snapshot
// that always reflects the most recent run.
type ResultStore struct {
	dataDir string
	logger  arbor.ILogger
}

// NewResultStore creates a result store rooted at dataDir
func NewResultStore(dataDir string, logger arbor.ILogger) (*ResultStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scraper data dir: %w", err)
	}
	return &ResultStore{dataDir: dataDir, logger: logger}, nil
}

// Save writes the archival and latest files for one run and returns the
// archival path. Archive timestamps have millisecond resolution.
func (s *ResultStore) Save(scraperName string, result *models.ScrapeResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	timestamp := strings.NewReplacer(":", "-", ".", "-").
		Replace(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	archivePath := filepath.Join(s.dataDir, fmt.Sprintf("%s-%s.json", scraperName, timestamp))
	if err := os.WriteFile(archivePath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write result file: %w", err)
	}

	latestPath := filepath.Join(s.dataDir, scraperName+"-latest.json")
	if err := os.WriteFile(latestPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write latest result file: %w", err)
	}

	s.logger.Debug().
		Str("scraper", scraperName).
		Str("path", archivePath).
		Msg("Scrape result saved")

	return archivePath, nil
}

// List returns all stored results for a scraper, newest first. The latest
// snapshot is excluded since it duplicates the newest archive.
func (s *ResultStore) List(scraperName string) ([]*models.ScrapeResult, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read scraper data dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, scraperName+"-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if name == scraperName+"-latest.json" {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	results := make([]*models.ScrapeResult, 0, len(names))
	for _, name := range names {
		result, err := s.readFile(filepath.Join(s.dataDir, name))
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("file", name).
				Msg("Skipping unreadable result file")
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// Latest returns the most recent result for a scraper, or nil when the
// scraper has never produced one.
func (s *ResultStore) Latest(scraperName string) (*models.ScrapeResult, error) {
	result, err := s.readFile(filepath.Join(s.dataDir, scraperName+"-latest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

func (s *ResultStore) readFile(path string) (*models.ScrapeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result models.ScrapeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &result, nil
}
