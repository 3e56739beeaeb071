package extract

import (
	"regexp"
	"strings"
)

// Rule turns a matching user utterance into a fact about subject.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Format  func(subject string, m []string) string
	// Reject, when set, drops matches that carry no durable fact.
	Reject func(m []string) bool
}

// filler words that open small talk rather than a statement about the user.
var filler = map[string]bool{
	"fine": true, "ok": true, "okay": true, "good": true, "great": true,
	"sure": true, "not": true, "sorry": true, "here": true, "back": true,
	"done": true, "ready": true, "just": true, "going": true, "trying": true,
	"listening": true, "kidding": true,
}

func fillerLead(m []string) bool {
	fields := strings.Fields(strings.ToLower(m[len(m)-1]))
	return len(fields) == 0 || filler[strings.Trim(fields[0], ".,!?")]
}

// DefaultRules are the fact patterns recognised in user messages.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "remember",
			Pattern: regexp.MustCompile(`(?i)^(?:please\s+)?remember(?:\s+that)?\s+(.+)$`),
			Format:  func(_ string, m []string) string { return m[1] },
		},
		{
			Name:    "note",
			Pattern: regexp.MustCompile(`(?i)^(?:please\s+)?(?:note|keep in mind)\s+that\s+(.+)$`),
			Format:  func(_ string, m []string) string { return m[1] },
		},
		{
			Name:    "possession",
			Pattern: regexp.MustCompile(`(?i)^my\s+(.+?)\s+is\s+(.+)$`),
			Format: func(subject string, m []string) string {
				return subject + "'s " + m[1] + " is " + m[2]
			},
		},
		{
			Name:    "preference",
			Pattern: regexp.MustCompile(`(?i)^i\s+(like|love|prefer|hate|enjoy)\s+(.+)$`),
			Format: func(subject string, m []string) string {
				return subject + " " + strings.ToLower(m[1]) + "s " + m[2]
			},
		},
		{
			Name:    "identity",
			Pattern: regexp.MustCompile(`(?i)^i(?:\s+am|'m)\s+(.+)$`),
			Format: func(subject string, m []string) string {
				return subject + " is " + m[1]
			},
			Reject: fillerLead,
		},
	}
}

// apply returns the fact derived from text by the first matching rule.
// Questions never yield facts.
func apply(rules []Rule, subject, text string) (string, bool) {
	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, "?") {
		return "", false
	}
	for _, r := range rules {
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if r.Reject != nil && r.Reject(m) {
			continue
		}
		fact := strings.TrimRight(r.Format(subject, m), ".!? ")
		if fact == "" {
			continue
		}
		return fact, true
	}
	return "", false
}
