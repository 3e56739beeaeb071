package voice

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Speaker voices a reply. It never fails observably.
type Speaker interface {
	Speak(text string)
}

type SpeakerOptions struct {
	// Markdown renders replies with glamour.
	Markdown bool
	// WordWrap applies to markdown rendering. Defaults to 80.
	WordWrap int
	// TTSCommand, when set, is started with the text as its final argument,
	// e.g. []string{"espeak", "-s", "150"}.
	TTSCommand []string
	Logger     *slog.Logger
}

// ConsoleSpeaker prints a styled "Jarvis:" line and optionally hands the
// text to a TTS program without waiting for it.
type ConsoleSpeaker struct {
	out      io.Writer
	renderer *glamour.TermRenderer
	tts      []string
	logger   *slog.Logger
}

func NewConsoleSpeaker(out io.Writer, opts SpeakerOptions) *ConsoleSpeaker {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.WordWrap <= 0 {
		opts.WordWrap = 80
	}
	s := &ConsoleSpeaker{
		out:    out,
		tts:    opts.TTSCommand,
		logger: opts.Logger.With("component", "speaker"),
	}
	if opts.Markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(opts.WordWrap),
		)
		if err != nil {
			s.logger.Warn("markdown renderer unavailable", "err", err)
		} else {
			s.renderer = r
		}
	}
	return s
}

func (s *ConsoleSpeaker) Speak(text string) {
	fmt.Fprintln(s.out, s.format(text))
	s.say(text)
}

func (s *ConsoleSpeaker) format(text string) string {
	label := AssistantLabelStyle.Render("Jarvis:")
	if s.renderer != nil && strings.Contains(text, "\n") {
		if rendered, err := s.renderer.Render(text); err == nil {
			return label + "\n" + strings.TrimRight(rendered, "\n")
		}
	}
	return label + " " + AssistantMsgStyle.Render(text)
}

func (s *ConsoleSpeaker) say(text string) {
	if len(s.tts) == 0 {
		return
	}
	args := append(append([]string{}, s.tts[1:]...), text)
	cmd := exec.Command(s.tts[0], args...)
	if err := cmd.Start(); err != nil {
		s.logger.Debug("tts unavailable", "cmd", s.tts[0], "err", err)
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			s.logger.Debug("tts exited", "cmd", s.tts[0], "err", err)
		}
	}()
}
