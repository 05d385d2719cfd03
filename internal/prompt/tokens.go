package prompt

import (
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts prompt tokens with tiktoken, falling back to a
// bytes/4 estimate when the encoding cannot be loaded (offline
// environments). Both paths are deterministic for a given input.
type TokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenCounter creates a lazy token counter.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

// Count returns the token count for s.
func (c *TokenCounter) Count(s string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("[prompt] tiktoken unavailable, using byte estimate: %v", err)
			return
		}
		c.enc = enc
	})

	if c.enc == nil {
		// Rough heuristic: English text averages ~4 bytes per token.
		return (len(s) + 3) / 4
	}
	return len(c.enc.Encode(s, nil, nil))
}
