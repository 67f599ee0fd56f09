package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/common"
	"github.com/applyforge/applyforge/internal/interfaces"
)

// Engine renders HTML documents to PDF through a pool of headless Chrome
// contexts. Tabs are created per render; browser processes are shared
// round-robin across concurrent renders.
type Engine struct {
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	mu               sync.Mutex
	currentIndex     int
	timeout          time.Duration
	logger           arbor.ILogger
}

var _ interfaces.RenderEngine = (*Engine)(nil)

// NewEngine creates and initializes the browser pool
func NewEngine(config *common.RenderConfig, logger arbor.ILogger) (*Engine, error) {
	poolSize := config.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	e := &Engine{
		timeout: common.ParseDurationOr(config.Timeout, 30*time.Second),
		logger:  logger,
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	logger.Info().
		Int("pool_size", poolSize).
		Bool("headless", config.Headless).
		Msg("Initializing browser render pool")

	for i := 0; i < poolSize; i++ {
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)

		// Start the browser process eagerly so render calls fail fast
		if err := chromedp.Run(browserCtx); err != nil {
			allocCancel()
			browserCancel()
			if len(e.browsers) == 0 {
				e.Shutdown()
				return nil, fmt.Errorf("failed to start browser instance: %w", err)
			}
			logger.Warn().
				Err(err).
				Int("browser_index", i).
				Msg("Failed to start browser instance, continuing with smaller pool")
			continue
		}

		e.browsers = append(e.browsers, browserCtx)
		e.browserCancels = append(e.browserCancels, browserCancel)
		e.allocatorCancels = append(e.allocatorCancels, allocCancel)
	}

	logger.Info().
		Int("instances", len(e.browsers)).
		Msg("Browser render pool ready")

	return e, nil
}

// acquire returns the next browser context round-robin
func (e *Engine) acquire() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()

	browser := e.browsers[e.currentIndex]
	e.currentIndex = (e.currentIndex + 1) % len(e.browsers)
	return browser
}

// RenderPDF renders an HTML string to A4 PDF bytes with print backgrounds
func (e *Engine) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	if len(e.browsers) == 0 {
		return nil, fmt.Errorf("render engine has no browser instances")
	}

	tabCtx, cancel := chromedp.NewContext(e.acquire())
	defer cancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, e.timeout)
	defer timeoutCancel()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithPaperWidth(8.27).  // A4 inches
				WithPaperHeight(11.69).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	e.logger.Debug().
		Int("html_len", len(html)).
		Int("pdf_size", len(pdf)).
		Msg("Rendered HTML to PDF")

	return pdf, nil
}

// Shutdown closes all browser instances
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, cancel := range e.browserCancels {
		cancel()
	}
	for _, cancel := range e.allocatorCancels {
		cancel()
	}
	e.browsers = nil
	e.browserCancels = nil
	e.allocatorCancels = nil
}
