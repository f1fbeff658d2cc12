package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Browser renders pages through headless Chrome for targets that refuse
// plain HTTP clients. Chrome only accepts a proxy at launch time, so
// switching proxies tears the instance down and relaunches it.
type Browser struct {
	browser  *rod.Browser
	proxyURL string
	started  bool
}

func NewBrowser() *Browser {
	return &Browser{}
}

func (b *Browser) Get(ctx context.Context, rawURL, proxyURL string) (int, string, error) {
	if err := b.ensureBrowser(proxyURL); err != nil {
		return 0, "", err
	}

	page, err := stealth.Page(b.browser)
	if err != nil {
		return 0, "", fmt.Errorf("stealth page: %w", err)
	}
	defer func() { _ = rod.Try(func() { page.MustClose() }) }()

	page = page.Context(ctx)

	// Ensure network events are available so we can read the document status.
	_ = proto.NetworkEnable{}.Call(page)

	var status int
	waitStatus := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(rawURL); err != nil {
		return 0, "", fmt.Errorf("navigate: %w", err)
	}
	waitStatus()

	if err := page.WaitLoad(); err != nil {
		return status, "", fmt.Errorf("wait load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return status, "", fmt.Errorf("page html: %w", err)
	}

	if status == 0 {
		status = http.StatusOK
	}
	return status, html, nil
}

func (b *Browser) ensureBrowser(proxyURL string) error {
	if b.started && b.proxyURL == proxyURL {
		return nil
	}
	b.Close()

	l := launcher.New().
		Leakless(true).
		Headless(true).
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding")
	if proxyURL != "" {
		l = l.Proxy(proxyURL)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	// connect with simple backoff
	for i := 0; i < 10; i++ {
		if err = browser.Connect(); err == nil {
			break
		}
		time.Sleep(time.Duration(250*(i+1)) * time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("browser connect: %w", err)
	}

	if err := (proto.BrowserSetDownloadBehavior{
		Behavior:         proto.BrowserSetDownloadBehaviorBehaviorDeny,
		BrowserContextID: browser.BrowserContextID,
	}).Call(browser); err != nil {
		log.Warn("disable browser downloads failed", "err", err)
	}

	b.browser = browser
	b.proxyURL = proxyURL
	b.started = true
	log.Debug("launched headless browser", "proxy", proxyURL)
	return nil
}

// Close shuts the Chrome instance down. Safe to call repeatedly.
func (b *Browser) Close() {
	if b.browser != nil {
		_ = rod.Try(func() { b.browser.MustClose() })
		b.browser = nil
	}
	b.started = false
}
