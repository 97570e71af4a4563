package resource

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEncoding is the BPE used for token accounting.
const TokenEncoding = "cl100k_base"

// TokenCounter counts tokens in node text. When the BPE tables cannot be
// loaded it falls back to a four-characters-per-token estimate.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter loads the cl100k_base encoding. The error is informative
// only; the returned counter is always usable.
func NewTokenCounter() (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(TokenEncoding)
	if err != nil {
		return &TokenCounter{}, err
	}
	return &TokenCounter{enc: enc}, nil
}

var (
	defaultCounter     *TokenCounter
	defaultCounterOnce sync.Once
)

// DefaultTokenCounter returns a process-wide counter, loading the BPE
// tables on first use.
func DefaultTokenCounter() *TokenCounter {
	defaultCounterOnce.Do(func() {
		defaultCounter, _ = NewTokenCounter()
	})
	return defaultCounter
}

// Exact reports whether counts come from the real tokenizer.
func (t *TokenCounter) Exact() bool {
	return t != nil && t.enc != nil
}

// Count returns the number of tokens in text.
func (t *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if !t.Exact() {
		return (len(text) + 3) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountResourceTokens sums token counts over every text node of r,
// descending into nested resources.
func CountResourceTokens(r Resource, counter *TokenCounter) int {
	total := 0
	stack := []Resource{r}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range cur.Nodes() {
			switch c := n.Content.(type) {
			case TextContent:
				total += counter.Count(c.Text)
			case ResourceContent:
				stack = append(stack, c.Resource)
			}
		}
	}
	return total
}
