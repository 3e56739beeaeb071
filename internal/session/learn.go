package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeanpaul/jarvis/internal/crawler"
)

// Adder receives archived chunks.
type Adder interface {
	Add(text string)
}

// Library learns from web pages and local documents: each source is
// archived as chunks on disk and every chunk is added to memory.
type Library struct {
	crawler  *crawler.Crawler
	memory   Adder
	dir      string
	maxWords int
	logger   *slog.Logger
}

func NewLibrary(c *crawler.Crawler, memory Adder, archiveDir string, maxWords int, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		crawler:  c,
		memory:   memory,
		dir:      archiveDir,
		maxWords: maxWords,
		logger:   logger.With("component", "library"),
	}
}

// Learn ingests target, which is a URL, a file path or a doublestar glob,
// and returns the number of chunks added to memory. Sources that fail are
// logged and skipped; an error is returned only when nothing was learned.
func (l *Library) Learn(ctx context.Context, target string) (int, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return 0, errors.New("nothing to learn from")
	}

	var pages []crawler.Page
	var errs []error
	switch {
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		page, err := l.crawler.Fetch(ctx, target)
		if err != nil {
			return 0, err
		}
		pages = append(pages, page)
	default:
		paths := []string{target}
		if strings.ContainsAny(target, "*?[{") {
			var err error
			if paths, err = crawler.Glob(target); err != nil {
				return 0, err
			}
			if len(paths) == 0 {
				return 0, fmt.Errorf("no files match %q", target)
			}
		}
		for _, p := range paths {
			page, err := crawler.ReadDocument(p)
			if err != nil {
				l.logger.Warn("skipping document", "path", p, "err", err)
				errs = append(errs, err)
				continue
			}
			pages = append(pages, page)
		}
	}

	added := 0
	for _, page := range pages {
		out, err := crawler.Archive(page, l.dir, l.maxWords)
		if err != nil {
			l.logger.Warn("archive failed", "source", page.URL, "err", err)
			errs = append(errs, err)
			continue
		}
		for _, chunk := range out.Chunks {
			l.memory.Add(chunk)
		}
		added += len(out.Chunks)
		l.logger.Info("learned", "source", page.URL, "chunks", len(out.Chunks), "archive", out.ChunksPath)
	}
	if added == 0 && len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return added, nil
}
