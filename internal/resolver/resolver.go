// Package resolver turns a query into an answer by walking the knowledge
// sources in a fixed order: memory-augmented LLM, web lookup, bare LLM and
// finally a fixed apology.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/jeanpaul/jarvis/internal/knowledge"
)

// DefaultTopK is how many memory records augment the prompt.
const DefaultTopK = 4

// DefaultApology is returned when every stage comes back empty.
const DefaultApology = "Sorry, I couldn't find an answer to that."

// Stage identifies which resolution stage produced an answer.
type Stage int

const (
	StageMemory Stage = iota + 1
	StageWeb
	StageLLM
	StageFallback
)

func (s Stage) String() string {
	switch s {
	case StageMemory:
		return "memory"
	case StageWeb:
		return "web"
	case StageLLM:
		return "llm"
	case StageFallback:
		return "fallback"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Answer is a resolved reply and its provenance.
type Answer struct {
	Text   string
	Stage  Stage
	Source string // knowledge source name; empty for the fallback
}

// Memory is the part of the memory store the resolver needs.
type Memory interface {
	Retrieve(query string, topK int) []string
	Add(text string)
}

// Sources are the knowledge sources, any of which may be nil.
type Sources struct {
	Offline knowledge.Source
	Cloud   knowledge.Source
	Web     knowledge.Source
}

// Options tunes a Resolver. Zero values take the defaults.
type Options struct {
	TopK    int
	Apology string
	Logger  *slog.Logger
}

type Resolver struct {
	memory   Memory
	sources  Sources
	topK     int
	apology  string
	learning atomic.Bool
	logger   *slog.Logger
}

// New returns a resolver with learning enabled.
func New(memory Memory, sources Sources, opts Options) *Resolver {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Apology == "" {
		opts.Apology = DefaultApology
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Resolver{
		memory:  memory,
		sources: sources,
		topK:    opts.TopK,
		apology: opts.Apology,
		logger:  opts.Logger.With("component", "resolver"),
	}
	r.learning.Store(true)
	return r
}

// SetLearning toggles whether Learn writes Q/A pairs to memory.
func (r *Resolver) SetLearning(on bool) { r.learning.Store(on) }

func (r *Resolver) Learning() bool { return r.learning.Load() }

// Resolve never fails and never returns empty text.
func (r *Resolver) Resolve(ctx context.Context, query string) Answer {
	if r.memory != nil {
		if docs := r.memory.Retrieve(query, r.topK); len(docs) > 0 {
			r.logger.Debug("memory hit", "matches", len(docs))
			if text, src := r.llm(ctx, augment(docs, query)); text != "" {
				return Answer{Text: text, Stage: StageMemory, Source: src}
			}
		}
	}

	if text := knowledge.Safe(ctx, r.sources.Web, query, r.logger); text != "" {
		return Answer{Text: text, Stage: StageWeb, Source: r.sources.Web.Name()}
	}

	if text, src := r.llm(ctx, query); text != "" {
		return Answer{Text: text, Stage: StageLLM, Source: src}
	}

	r.logger.Info("all stages empty, falling back", "query", query)
	return Answer{Text: r.apology, Stage: StageFallback}
}

// llm tries the offline model, then the cloud model.
func (r *Resolver) llm(ctx context.Context, prompt string) (text, source string) {
	for _, src := range []knowledge.Source{r.sources.Offline, r.sources.Cloud} {
		if text := knowledge.Safe(ctx, src, prompt, r.logger); text != "" {
			return text, src.Name()
		}
	}
	return "", ""
}

// Learn records a memory-stage or bare-LLM answer as a Q/A pair. Web
// answers are not recorded here because the lookup already cached its
// extract. It reports whether a record was written.
func (r *Resolver) Learn(query string, ans Answer) bool {
	if !r.Learning() || r.memory == nil {
		return false
	}
	if ans.Stage != StageMemory && ans.Stage != StageLLM {
		return false
	}
	r.memory.Add(QA(query, ans.Text))
	return true
}

// QA formats a learned question/answer record.
func QA(query, answer string) string {
	return "Q: " + query + "\nA: " + answer
}

func augment(docs []string, query string) string {
	return "Use context:\n" + strings.Join(docs, "\n\n") + "\n\nQuestion: " + query
}
