package voice

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/jarvis/internal/logging"
)

func TestPromptListener_ReadsLinesThenEOF(t *testing.T) {
	var out bytes.Buffer
	l := NewPromptListener(strings.NewReader("  hello jarvis \nbye\n"), &out, 0)

	got, err := l.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello jarvis", got)

	got, err = l.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bye", got)

	_, err = l.Listen(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	_, err = l.Listen(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	assert.Contains(t, out.String(), DefaultPrompt)
}

func TestPromptListener_TimeoutKeepsLaterLine(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	l := NewPromptListener(pr, nil, 20*time.Millisecond)

	got, err := l.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got)

	go pw.Write([]byte("late line\n"))
	l.timeout = time.Second
	got, err = l.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late line", got)
}

func TestPromptListener_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	l := NewPromptListener(pr, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Listen(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsoleSpeaker(t *testing.T) {
	var out bytes.Buffer
	s := NewConsoleSpeaker(&out, SpeakerOptions{Logger: logging.Nop()})
	s.Speak("Paris")
	assert.Contains(t, out.String(), "Jarvis:")
	assert.Contains(t, out.String(), "Paris")
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}

func TestConsoleSpeaker_MarkdownAndMissingTTS(t *testing.T) {
	var out bytes.Buffer
	s := NewConsoleSpeaker(&out, SpeakerOptions{
		Markdown:   true,
		TTSCommand: []string{"definitely-not-a-tts-binary"},
		Logger:     logging.Nop(),
	})
	s.Speak("Weather in Delhi:\n- Condition: Sunny")
	assert.Contains(t, out.String(), "Sunny")
}
