// Package credential rotates through an ordered set of cloud API keys.
package credential

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNoCredentials is returned when a Rotor would start with zero keys.
var ErrNoCredentials = errors.New("credential: no API keys configured")

// MaxEnvKeys is the highest numbered OPENAI_KEY_n read by FromEnv.
const MaxEnvKeys = 15

// Rotor holds a non-empty key list and a current index that always lies in
// [0, len).
type Rotor struct {
	mu    sync.Mutex
	keys  []string
	index int
}

// New returns a rotor over the non-empty keys, in order.
func New(keys []string) (*Rotor, error) {
	var clean []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoCredentials
	}
	return &Rotor{keys: clean}, nil
}

// Current returns the active key.
func (r *Rotor) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keys[r.index]
}

// Rotate advances to the next key, wrapping around, and returns it. Call it
// once per failed cloud request, never speculatively.
func (r *Rotor) Rotate() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = (r.index + 1) % len(r.keys)
	return r.keys[r.index]
}

func (r *Rotor) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// FromEnv collects OPENAI_KEY_1 … OPENAI_KEY_15 through lookup, skipping
// unset numbers.
func FromEnv(lookup func(string) string) []string {
	var keys []string
	for i := 1; i <= MaxEnvKeys; i++ {
		if v := strings.TrimSpace(lookup(fmt.Sprintf("OPENAI_KEY_%d", i))); v != "" {
			keys = append(keys, v)
		}
	}
	return keys
}

// Mask hides all but the last four characters of key for logs.
func Mask(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
