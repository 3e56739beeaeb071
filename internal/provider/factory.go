package provider

import "fmt"

// Backend kinds accepted by NewFactory.
const (
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
	KindGoogle    = "google"
)

// NewFactory returns a Factory that builds a provider of the given kind for
// each credential it is handed.
func NewFactory(kind, baseURL, model string, opts Options) (Factory, error) {
	switch kind {
	case "", KindOpenAI:
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return func(key string) Provider { return NewOpenAI(KindOpenAI, baseURL, key, model, opts) }, nil
	case KindAnthropic:
		return func(key string) Provider { return NewAnthropic(baseURL, key, model, opts) }, nil
	case KindGoogle:
		return func(key string) Provider { return NewGoogle(baseURL, key, model, opts) }, nil
	default:
		return nil, fmt.Errorf("provider: unknown kind %q (must be openai, anthropic or google)", kind)
	}
}
