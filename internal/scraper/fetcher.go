package scraper

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/gocolly/colly/v2"
)

// Fetcher returns the HTML of one page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// CollyFetcher fetches server-rendered pages over plain HTTP
type CollyFetcher struct {
	base *colly.Collector
}

func NewCollyFetcher(userAgent string, delay, timeout time.Duration) (*CollyFetcher, error) {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       delay,
	}); err != nil {
		return nil, fmt.Errorf("failed to set rate limit: %w", err)
	}
	return &CollyFetcher{base: c}, nil
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// clones share the backend, so the delay applies across calls
	c := f.base.Clone()

	var body string
	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil {
		if fetchErr != nil {
			return "", fmt.Errorf("failed to fetch %s: %w", url, fetchErr)
		}
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, fetchErr)
	}
	return body, nil
}

func (f *CollyFetcher) Close() error { return nil }

// RodFetcher renders pages in a headless Chromium with stealth patches applied.
// The browser is launched on first use and reused until Close.
type RodFetcher struct {
	userAgent string
	timeout   time.Duration
	settle    time.Duration

	mu      sync.Mutex
	browser *rod.Browser
}

func NewRodFetcher(userAgent string, timeout, settle time.Duration) *RodFetcher {
	return &RodFetcher{userAgent: userAgent, timeout: timeout, settle: settle}
}

func (f *RodFetcher) Fetch(ctx context.Context, url string) (string, error) {
	browser, err := f.connect()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	p := page.Context(ctx).Timeout(f.timeout)
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("page load failed: %w", err)
	}

	// sale list tables are filled in by XHR after load
	if f.settle > 0 {
		select {
		case <-time.After(f.settle):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page html: %w", err)
	}
	return html, nil
}

func (f *RodFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-extensions").
		Set("window-size", "1920,1080").
		Set("user-agent", f.userAgent)

	if chromiumPath := findChromiumPath(); chromiumPath != "" {
		fmt.Printf("🔍 Using Chromium at: %s\n", chromiumPath)
		l = l.Bin(chromiumPath)
	}

	if isDockerEnvironment() {
		fmt.Println("🐳 Docker environment detected, applying container-specific settings")
		l = l.Set("disable-setuid-sandbox").
			Set("no-first-run").
			Set("disable-default-apps")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	fmt.Println("✅ Browser initialized successfully")
	f.browser = browser
	return browser, nil
}

func (f *RodFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}

// findChromiumPath looks for Chromium/Chrome binary in common locations
func findChromiumPath() string {
	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		if _, err := os.Stat(chromeBin); err == nil {
			return chromeBin
		}
	}

	paths := []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
		"/opt/google/chrome/chrome",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func isDockerEnvironment() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		return strings.Contains(string(data), "docker") || strings.Contains(string(data), "containerd")
	}
	return false
}
