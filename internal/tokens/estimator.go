// Package tokens estimates prompt sizes so oversized context can be
// truncated before it reaches the completion service.
package tokens

import (
	"github.com/tiktoken-go/tokenizer"
)

// Estimator approximates token counts with the cl100k_base encoding. The
// completion service tokenizes differently, so counts are treated as an
// estimate for budgeting, not an exact accounting.
type Estimator struct {
	codec tokenizer.Codec
}

// NewEstimator creates an estimator.
func NewEstimator() (*Estimator, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, err
	}
	return &Estimator{codec: codec}, nil
}

// Count returns the estimated token count for text. Falls back to a
// bytes/4 heuristic if encoding fails.
func (e *Estimator) Count(text string) int {
	ids, _, err := e.codec.Encode(text)
	if err != nil {
		return len(text) / 4
	}
	return len(ids)
}

// Truncate returns text cut down to at most maxTokens tokens. Text within
// budget is returned unchanged.
func (e *Estimator) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	ids, _, err := e.codec.Encode(text)
	if err != nil || len(ids) <= maxTokens {
		return text
	}
	truncated, err := e.codec.Decode(ids[:maxTokens])
	if err != nil {
		return text
	}
	return truncated
}
