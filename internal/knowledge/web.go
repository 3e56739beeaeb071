package knowledge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jeanpaul/jarvis/internal/textutil"
)

const (
	// DefaultWikiURL is the MediaWiki action API used for lookups.
	DefaultWikiURL = "https://en.wikipedia.org/w/api.php"
	// DefaultSummaryLen bounds the spoken summary, in runes.
	DefaultSummaryLen = 300
	userAgent         = "jarvis/1.0 (personal assistant; https://github.com/jeanpaul/jarvis)"
)

// Adder receives the full extract of every successful lookup.
type Adder interface {
	Add(text string)
}

// WebLookupOptions configures NewWebLookup.
type WebLookupOptions struct {
	APIURL     string
	SummaryLen int
	Timeout    time.Duration
	Client     *http.Client
	Logger     *slog.Logger
}

// WebLookup searches an encyclopedia for the best matching title, fetches
// its intro extract, caches the extract in memory and answers with a short
// prefix of it.
type WebLookup struct {
	apiURL     string
	summaryLen int
	timeout    time.Duration
	client     *http.Client
	memory     Adder
	logger     *slog.Logger
}

func NewWebLookup(memory Adder, opts WebLookupOptions) *WebLookup {
	if opts.APIURL == "" {
		opts.APIURL = DefaultWikiURL
	}
	if opts.SummaryLen <= 0 {
		opts.SummaryLen = DefaultSummaryLen
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &WebLookup{
		apiURL:     opts.APIURL,
		summaryLen: opts.SummaryLen,
		timeout:    opts.Timeout,
		client:     opts.Client,
		memory:     memory,
		logger:     opts.Logger.With("source", "web"),
	}
}

func (w *WebLookup) Name() string { return "web" }

// Answer returns "<title>: <prefix>..." or "" on any failure.
func (w *WebLookup) Answer(ctx context.Context, query string) string {
	title, err := w.search(ctx, query)
	if err != nil || title == "" {
		if err != nil {
			w.logger.Debug("title search failed", "err", err)
		}
		return ""
	}

	extract, err := w.extract(ctx, title)
	if err != nil || extract == "" {
		if err != nil {
			w.logger.Debug("extract fetch failed", "title", title, "err", err)
		}
		return ""
	}

	if w.memory != nil {
		w.memory.Add(extract)
	}
	summary, _ := textutil.Truncate(extract, w.summaryLen)
	return fmt.Sprintf("%s: %s...", title, summary)
}

func (w *WebLookup) search(ctx context.Context, query string) (string, error) {
	body, err := w.get(ctx, url.Values{
		"action": {"opensearch"},
		"search": {query},
		"limit":  {"1"},
		"format": {"json"},
	})
	if err != nil {
		return "", err
	}
	// ["query", ["Title"], ["description"], ["https://..."]]
	return gjson.GetBytes(body, "1.0").String(), nil
}

func (w *WebLookup) extract(ctx context.Context, title string) (string, error) {
	body, err := w.get(ctx, url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"titles":      {title},
		"format":      {"json"},
	})
	if err != nil {
		return "", err
	}

	var extract string
	gjson.GetBytes(body, "query.pages").ForEach(func(_, page gjson.Result) bool {
		extract = page.Get("extract").String()
		return extract == ""
	})
	return extract, nil
}

func (w *WebLookup) get(ctx context.Context, params url.Values) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", w.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, w.apiURL)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON from %s", w.apiURL)
	}
	return body, nil
}
