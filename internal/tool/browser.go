package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"taskforge/internal/config"
)

// BrowserTool reads web pages through a headless browser. Each call opens
// a page, extracts what was asked for and closes it again; no tab state is
// carried between calls.
type BrowserTool struct {
	cfg     config.BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
}

func NewBrowserTool(cfg config.BrowserConfig) *BrowserTool {
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 30
	}
	if cfg.MaxPageSizeKB <= 0 {
		cfg.MaxPageSizeKB = 2048
	}
	return &BrowserTool{cfg: cfg}
}

func (t *BrowserTool) Name() string { return "browser" }

func (t *BrowserTool) Description() string {
	return "Read a web page through a headless browser. Actions: 'read' (page text content), 'links' (all links on the page)."
}

func (t *BrowserTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["read", "links"],
				"description": "What to extract from the page"
			},
			"url": {
				"type": "string",
				"description": "The page URL (http/https only)"
			}
		},
		"required": ["action", "url"]
	}`)
}

func (t *BrowserTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Action string `json:"action"`
		URL    string `json:"url"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return Errorf("invalid arguments: %v", err), nil
	}

	if err := validatePageURL(params.URL); err != nil {
		return Errorf("%v", err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(t.cfg.TimeoutSecs)*time.Second)
	defer cancel()

	page, err := t.openPage(ctx, params.URL)
	if err != nil {
		return Errorf("open page: %v", err), nil
	}
	defer page.Close()

	switch params.Action {
	case "read":
		el, err := page.Element("body")
		if err != nil {
			return Errorf("page has no body: %v", err), nil
		}
		text, err := el.Text()
		if err != nil {
			return Errorf("extract text: %v", err), nil
		}
		max := t.cfg.MaxPageSizeKB * 1024
		if len(text) > max {
			text = text[:max] + "\n... (truncated)"
		}
		return Text(text), nil
	case "links":
		els, err := page.Elements("a[href]")
		if err != nil {
			return Errorf("extract links: %v", err), nil
		}
		var sb strings.Builder
		for _, el := range els {
			href, err := el.Attribute("href")
			if err != nil || href == nil {
				continue
			}
			label, _ := el.Text()
			fmt.Fprintf(&sb, "%s %s\n", strings.TrimSpace(label), *href)
		}
		return Text(sb.String()), nil
	default:
		return Errorf("unknown action: %s", params.Action), nil
	}
}

// Close shuts the shared browser process down.
func (t *BrowserTool) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.browser == nil {
		return nil
	}
	err := t.browser.Close()
	t.browser = nil
	return err
}

func (t *BrowserTool) openPage(ctx context.Context, pageURL string) (*rod.Page, error) {
	t.mu.Lock()
	if t.browser == nil {
		l := launcher.New().Headless(t.cfg.Headless)
		controlURL, err := l.Launch()
		if err != nil {
			t.mu.Unlock()
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			t.mu.Unlock()
			return nil, fmt.Errorf("connect browser: %w", err)
		}
		t.browser = browser
	}
	browser := t.browser
	t.mu.Unlock()

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return nil, err
	}
	page = page.Context(ctx)
	if err := page.WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("wait load: %w", err)
	}
	return page, nil
}

// validatePageURL allows only public http/https targets.
func validatePageURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("only http/https schemes are allowed, got: %s", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || host == "ip6-localhost" || host == "ip6-loopback" {
		return fmt.Errorf("access to loopback addresses is denied: %s", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return fmt.Errorf("access to private addresses is denied: %s", host)
		}
	}
	return nil
}
