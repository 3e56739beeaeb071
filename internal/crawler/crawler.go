// Package crawler fetches pages and local documents and turns them into
// plain text for memory and markdown for the on-disk archive.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/jeanpaul/jarvis/internal/textutil"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 2 << 20
	userAgent       = "Mozilla/5.0 (compatible; Jarvis/1.0)"
)

// ErrNoText is returned when a page yields no readable text.
var ErrNoText = errors.New("no readable text")

// Page is the extracted content of one URL or document.
type Page struct {
	URL      string
	Title    string
	Text     string
	Markdown string
}

type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	// Render loads pages in headless Chrome before extraction.
	Render bool
	Client *http.Client
	Logger *slog.Logger
}

type Crawler struct {
	timeout  time.Duration
	maxBytes int64
	render   bool
	http     *http.Client
	logger   *slog.Logger
}

func New(opts Options) *Crawler {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Crawler{
		timeout:  opts.Timeout,
		maxBytes: opts.MaxBytes,
		render:   opts.Render,
		http:     opts.Client,
		logger:   opts.Logger.With("component", "crawler"),
	}
}

// Fetch downloads rawURL and extracts its text. PDF responses are parsed
// as documents; everything else is treated as HTML.
func (c *Crawler) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Page{}, fmt.Errorf("invalid url %q", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		body        []byte
		contentType string
	)
	if c.render {
		html, rerr := render(ctx, rawURL)
		if rerr == nil {
			body, contentType = []byte(html), "text/html"
		} else {
			c.logger.Warn("headless render failed, falling back to http", "url", rawURL, "err", rerr)
		}
	}
	if body == nil {
		body, contentType, err = c.download(ctx, rawURL)
		if err != nil {
			return Page{}, err
		}
	}

	var page Page
	if strings.Contains(contentType, "application/pdf") {
		page, err = parsePDF(bytes.NewReader(body), int64(len(body)))
	} else {
		page, err = parseHTML(body, u)
	}
	if err != nil {
		return Page{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	page.URL = rawURL
	if page.Text == "" {
		return Page{}, fmt.Errorf("%s: %w", rawURL, ErrNoText)
	}
	return page, nil
}

func (c *Crawler) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// Result pairs a URL with its fetch outcome.
type Result struct {
	URL  string
	Page Page
	Err  error
}

// FetchAll fetches urls with at most concurrency requests in flight.
// Results keep the order of urls and duplicates are fetched once.
func (c *Crawler) FetchAll(ctx context.Context, urls []string, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = 3
	}
	seen := make(map[string]bool, len(urls))
	var targets []string
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			targets = append(targets, u)
		}
	}

	results := make([]Result, len(targets))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, u := range targets {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			page, err := c.Fetch(ctx, target)
			results[idx] = Result{URL: target, Page: page, Err: err}
		}(i, u)
	}
	wg.Wait()
	return results
}

const boilerplate = "script, style, noscript, header, footer, nav, aside"

// parseHTML takes the paragraph text as the page text and the readability
// article as markdown.
func parseHTML(body []byte, u *url.URL) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, err
	}
	page := Page{Title: strings.TrimSpace(doc.Find("title").First().Text())}

	doc.Find(boilerplate).Remove()
	var paras []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			paras = append(paras, t)
		}
	})
	page.Text = textutil.Clean(strings.Join(paras, "\n\n"))

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		page.Markdown = page.Text
		return page, nil
	}
	if page.Title == "" {
		page.Title = article.Title
	}
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(article.Content)
	if err != nil || strings.TrimSpace(markdown) == "" {
		markdown = article.TextContent
	}
	page.Markdown = strings.TrimSpace(markdown)
	if page.Text == "" {
		page.Text = textutil.Clean(article.TextContent)
	}
	return page, nil
}
