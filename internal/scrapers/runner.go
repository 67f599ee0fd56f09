package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/applyforge/applyforge/internal/common"
	"github.com/applyforge/applyforge/internal/interfaces"
	"github.com/applyforge/applyforge/internal/models"
)

const defaultScriptTimeout = 60 * time.Second

// Runner executes stored scrape scripts in an embedded JavaScript VM.
//
// Each run materializes the script body into a uniquely-named staging file,
// executes it, and removes the file again regardless of outcome. Nothing of
// a run survives on disk except the result written by its caller.
//
// Scripts are untrusted input. They get a closed host API (console, httpGet,
// parse, toMarkdown) and a hard interrupt after the configured timeout; they
// never see the filesystem or the process environment.
type Runner struct {
	stagingDir string
	timeout    time.Duration
	limiter    *rate.Limiter
	client     *http.Client
	converter  *md.Converter
	logger     arbor.ILogger
}

var _ interfaces.ScriptRunner = (*Runner)(nil)

// NewRunner creates a script runner from scraper configuration
func NewRunner(cfg *common.ScraperConfig, logger arbor.ILogger) (*Runner, error) {
	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir = filepath.Join(os.TempDir(), "applyforge-scripts")
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create script staging dir: %w", err)
	}

	fetchInterval := common.ParseDurationOr(cfg.FetchRateLimit, 500*time.Millisecond)

	return &Runner{
		stagingDir: stagingDir,
		timeout:    common.ParseDurationOr(cfg.ScriptTimeout, defaultScriptTimeout),
		limiter:    rate.NewLimiter(rate.Every(fetchInterval), 1),
		client: &http.Client{
			Timeout: common.ParseDurationOr(cfg.FetchTimeout, 30*time.Second),
		},
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}, nil
}

// Run materializes and executes a scrape script, returning its parsed result.
// The script must export a function `scrape(params)` returning an object
// convertible to a ScrapeResult.
func (r *Runner) Run(ctx context.Context, scraperName, script string, params map[string]interface{}) (*models.ScrapeResult, error) {
	scriptPath := filepath.Join(r.stagingDir, fmt.Sprintf("scraper-%s-%d.js", scraperName, time.Now().UnixNano()))
	if err := os.WriteFile(scriptPath, []byte(script), 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage script: %w", err)
	}
	defer func() {
		if err := os.Remove(scriptPath); err != nil && !os.IsNotExist(err) {
			r.logger.Warn().
				Err(err).
				Str("path", scriptPath).
				Msg("Failed to remove staged script")
		}
	}()

	source, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged script: %w", err)
	}

	vm := goja.New()
	r.installHostAPI(ctx, vm, scraperName)

	done := make(chan struct{})
	go func() {
		select {
		case <-time.After(r.timeout):
			vm.Interrupt("script timeout")
		case <-ctx.Done():
			vm.Interrupt("cancelled")
		case <-done:
		}
	}()
	defer close(done)

	if _, err := vm.RunString(string(source)); err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}

	scrapeVal := vm.Get("scrape")
	if scrapeVal == nil || goja.IsUndefined(scrapeVal) {
		return nil, fmt.Errorf("script does not define a scrape function")
	}
	scrapeFn, ok := goja.AssertFunction(scrapeVal)
	if !ok {
		return nil, fmt.Errorf("scrape is not a function")
	}

	if params == nil {
		params = map[string]interface{}{}
	}
	val, err := scrapeFn(goja.Undefined(), vm.ToValue(params))
	if err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}

	result, err := exportResult(val)
	if err != nil {
		return nil, err
	}
	if result.Source == "" {
		result.Source = scraperName
	}
	return result, nil
}

// installHostAPI wires the functions scripts may call into the VM.
// Functions returning an error surface it as a thrown JS exception.
func (r *Runner) installHostAPI(ctx context.Context, vm *goja.Runtime, scraperName string) {
	console := vm.NewObject()
	console.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.String()
		}
		r.logger.Debug().
			Str("scraper", scraperName).
			Msg(strings.Join(args, " "))
		return goja.Undefined()
	})
	vm.Set("console", console)

	vm.Set("httpGet", func(url string) (string, error) {
		return r.httpGet(ctx, url)
	})

	vm.Set("parse", func(html, selector string) ([]map[string]interface{}, error) {
		return parseHTML(html, selector)
	})

	vm.Set("toMarkdown", func(html string) (string, error) {
		return r.converter.ConvertString(html)
	})
}

// httpGet is the rate-limited fetch helper exposed to scripts
func (r *Runner) httpGet(ctx context.Context, url string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ApplyForge/"+common.Version)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// parseHTML extracts nodes matching a CSS selector. Each entry carries the
// node text, inner HTML and href attribute when present.
func parseHTML(html, selector string) ([]map[string]interface{}, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var entries []map[string]interface{}
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		inner, _ := sel.Html()
		entry := map[string]interface{}{
			"text": strings.TrimSpace(sel.Text()),
			"html": inner,
		}
		if href, ok := sel.Attr("href"); ok {
			entry["href"] = href
		}
		entries = append(entries, entry)
	})
	return entries, nil
}

// exportResult converts the script's return value into a ScrapeResult
func exportResult(val goja.Value) (*models.ScrapeResult, error) {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, fmt.Errorf("scrape returned no value")
	}

	raw, err := json.Marshal(val.Export())
	if err != nil {
		return nil, fmt.Errorf("scrape returned an unencodable value: %w", err)
	}

	var result models.ScrapeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("scrape returned an invalid result shape: %w", err)
	}
	if result.Count == 0 {
		result.Count = len(result.Jobs)
	}
	return &result, nil
}
