package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/jarvis/internal/crawler"
	"github.com/jeanpaul/jarvis/internal/memory"
)

type crawlFlags struct {
	render bool
	learn  bool
	dir    string
}

func newCrawlCmd(flags *rootFlags) *cobra.Command {
	cf := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "crawl <url|file|glob>...",
		Short: "Archive web pages or local documents as text chunks",
		Long: `Fetch pages (or read PDF, Excel, HTML and text files) and archive them
as <slug>.json chunks plus a <slug>.md rendering. Globs such as
"notes/**/*.pdf" are expanded. With --learn every chunk is also added to
memory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			dir := cfg.Session.ArchiveDir
			if cf.dir != "" {
				dir = cf.dir
			}

			var mem memory.Store
			if cf.learn {
				if mem, err = memory.Open(cfg.Memory.Backend, cfg.Memory.Path, logger); err != nil {
					return err
				}
				defer func() { err = errors.Join(err, mem.Close()) }()
			}

			c := crawler.New(crawler.Options{
				Render: cf.render || cfg.Crawler.Render,
				Logger: logger,
			})

			var urls, paths []string
			for _, a := range args {
				switch {
				case strings.HasPrefix(a, "http://"), strings.HasPrefix(a, "https://"):
					urls = append(urls, a)
				case strings.ContainsAny(a, "*?[{"):
					matches, err := crawler.Glob(a)
					if err != nil {
						return err
					}
					paths = append(paths, matches...)
				default:
					paths = append(paths, a)
				}
			}

			results := c.FetchAll(cmd.Context(), urls, cfg.Crawler.Concurrency)
			for _, p := range paths {
				page, err := crawler.ReadDocument(p)
				results = append(results, crawler.Result{URL: p, Page: page, Err: err})
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					printf(cmd, "%s %s: %v\n", failStyle.Render("✗"), r.URL, r.Err)
					continue
				}
				out, err := crawler.Archive(r.Page, dir, cfg.Crawler.MaxWords)
				if err != nil {
					failed++
					printf(cmd, "%s %s: %v\n", failStyle.Render("✗"), r.URL, err)
					continue
				}
				if mem != nil {
					for _, chunk := range out.Chunks {
						mem.Add(chunk)
					}
				}
				printf(cmd, "%s %s → %s (%d chunks)\n", okStyle.Render("✓"), r.URL, out.ChunksPath, len(out.Chunks))
			}
			if failed == len(results) {
				return fmt.Errorf("nothing archived")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cf.render, "render", false, "Render pages in headless Chrome before extracting")
	cmd.Flags().BoolVar(&cf.learn, "learn", false, "Add archived chunks to memory")
	cmd.Flags().StringVar(&cf.dir, "dir", "", "Archive directory (default: session.archive_dir)")
	return cmd
}
