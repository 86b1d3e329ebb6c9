package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// PageStableTimeout bounds waiting for page stability and in-page scripts.
var PageStableTimeout = 30 * time.Second

// Interface loads pages in a real browser for sources that sit behind bot
// walls. Scrapers take it as an alternative to a plain *http.Client.
type Interface interface {
	WithPage(ctx context.Context, url string, fn func(*rod.Page) error) error
	// FetchJSON returns a callback that fetches url from inside the page and
	// unmarshals the body into dest. Responses are memoized per url.
	// Use with WithPage: b.WithPage(ctx, homeURL, b.FetchJSON(ctx, url, &obj)).
	FetchJSON(ctx context.Context, url string, dest any) func(*rod.Page) error
	// HTML navigates to url and returns the rendered document.
	HTML(ctx context.Context, url string) (string, error)

	io.Closer
}

// headlessBrowser owns at most one chrome process, launched on first use. A
// channel of capacity 1 hands the browser to one WithPage caller at a time.
type headlessBrowser struct {
	initOnce sync.Once
	initErr  error
	ch       chan *rod.Browser
	cache    map[string]string
	cacheMu  sync.Mutex
	launched bool
}

// Headless returns a Browser that launches headless chrome the first time a
// page is needed, so runs that never use it pay nothing.
func Headless() Interface {
	return &headlessBrowser{
		ch:    make(chan *rod.Browser, 1),
		cache: make(map[string]string),
	}
}

func (h *headlessBrowser) ensure() error {
	h.initOnce.Do(func() {
		slog.Debug("launching headless browser")
		u, err := launcher.New().Logger(newRodLauncherLogger()).Leakless(false).Launch()
		if err != nil {
			h.initErr = fmt.Errorf("launch browser: %w", err)
			close(h.ch)
			return
		}
		browser := rod.New().ControlURL(u)
		if err := browser.Connect(); err != nil {
			h.initErr = fmt.Errorf("connect to browser: %w", err)
			close(h.ch)
			return
		}
		h.launched = true
		h.ch <- browser
	})
	return h.initErr
}

func (h *headlessBrowser) Close() error {
	if !h.launched {
		return h.initErr
	}
	browser, ok := <-h.ch
	if !ok {
		return h.initErr
	}
	return browser.Close()
}

// WithPage opens url in a fresh tab, waits for it to settle, and runs fn. The
// tab is closed when fn returns.
func (h *headlessBrowser) WithPage(ctx context.Context, url string, fn func(page *rod.Page) error) error {
	if err := h.ensure(); err != nil {
		return err
	}
	browser, ok := <-h.ch
	if !ok {
		return h.initErr
	}
	defer func() { h.ch <- browser }()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	defer page.MustClose()

	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := rod.Try(func() {
		page.Timeout(PageStableTimeout).MustWaitStable()
	}); err != nil {
		return fmt.Errorf("wait for page stable: %w", err)
	}

	return fn(page)
}

func (h *headlessBrowser) FetchJSON(ctx context.Context, urlStr string, dest any) func(*rod.Page) error {
	return func(page *rod.Page) error {
		h.cacheMu.Lock()
		raw, ok := h.cache[urlStr]
		h.cacheMu.Unlock()
		if ok {
			return json.Unmarshal([]byte(raw), dest)
		}
		result, err := page.Context(ctx).Timeout(PageStableTimeout).Eval(fetchJSONScript, urlStr)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", urlStr, err)
		}
		raw = result.Value.Str()
		h.cacheMu.Lock()
		h.cache[urlStr] = raw
		h.cacheMu.Unlock()
		return json.Unmarshal([]byte(raw), dest)
	}
}

func (h *headlessBrowser) HTML(ctx context.Context, url string) (string, error) {
	var html string
	err := h.WithPage(ctx, url, func(page *rod.Page) error {
		var err error
		html, err = page.HTML()
		return err
	})
	if err != nil {
		return "", err
	}
	return html, nil
}

const fetchJSONScript = `(url) => {
	return fetch(url).then(r => {
		if (!r.ok) throw new Error('HTTP ' + r.status);
		return r.json();
	}).then(obj => JSON.stringify(obj));
}`

// rodLauncherLogger forwards launcher output (e.g. download progress) to slog at debug level.
type rodLauncherLogger struct {
	buf []byte
}

func (w *rodLauncherLogger) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
		if line != "" {
			slog.Debug("rod launcher", "message", line)
		}
	}
	return len(p), nil
}

func newRodLauncherLogger() io.Writer {
	return &rodLauncherLogger{}
}
