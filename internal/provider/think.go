package provider

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// thinkSplitter separates <think>…</think> reasoning from answer text in a
// stream where tags may be split across chunks.
type thinkSplitter struct {
	buf     strings.Builder
	inThink bool
}

// feed consumes s and returns the answer and thinking text that are safe to
// emit. A suffix that could be the start of a tag is held back.
func (t *thinkSplitter) feed(s string) (delta, thinking string) {
	t.buf.WriteString(s)
	text := t.buf.String()
	t.buf.Reset()

	var d, th strings.Builder
	for text != "" {
		tag := thinkOpen
		if t.inThink {
			tag = thinkClose
		}
		out := &d
		if t.inThink {
			out = &th
		}

		if i := strings.Index(text, tag); i >= 0 {
			out.WriteString(text[:i])
			text = text[i+len(tag):]
			t.inThink = !t.inThink
			continue
		}

		keep := partialSuffix(text, tag)
		out.WriteString(text[:len(text)-keep])
		t.buf.WriteString(text[len(text)-keep:])
		break
	}
	return d.String(), th.String()
}

// flush returns whatever is still buffered.
func (t *thinkSplitter) flush() (delta, thinking string) {
	rest := t.buf.String()
	t.buf.Reset()
	if t.inThink {
		return "", rest
	}
	return rest, ""
}

// partialSuffix reports the length of the longest suffix of s that is a
// proper prefix of tag.
func partialSuffix(s, tag string) int {
	for n := min(len(tag)-1, len(s)); n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}
