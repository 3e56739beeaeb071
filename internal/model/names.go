package model

import "strings"

// commonMistakes maps frequently mistyped model names to their registry form.
var commonMistakes = map[string]string{
	"qwen2.5-7b":      "qwen2.5:7b",
	"qwen2.5-14b":     "qwen2.5:14b",
	"qwen-2.5:7b":     "qwen2.5:7b",
	"llama-3.1:8b":    "llama3.1:8b",
	"llama-3.2":       "llama3.2",
	"deepseek-r1:1.5": "deepseek-r1:1.5b",
}

// Normalize turns a user-supplied model name into the form Ollama expects:
// surrounding space and an "ollama/" prefix are dropped and common typos are
// corrected.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "ollama/")
	if fixed, ok := commonMistakes[strings.ToLower(name)]; ok {
		return fixed
	}
	return name
}
