// Package tokenizer estimates the token footprint of a conversation.
// Counts are estimates: cl100k_base is close to, but not the same as, the
// tokenizers the providers bill against.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/pcbuilder/pkg/types"
)

const (
	encoding = "cl100k_base"

	// per-message overhead for role and formatting
	messageOverhead = 4

	// per-tool-call overhead for id and name framing
	toolCallOverhead = 10
)

// Tokenizer counts tokens with a tiktoken encoding, or a four-characters-
// per-token heuristic when no encoding is available.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the cl100k_base encoding. On failure it still returns a usable
// Tokenizer that falls back to the heuristic, together with the error.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return &Tokenizer{}, fmt.Errorf("load %s encoding: %w", encoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.enc == nil {
		return len(text) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessageTokens returns the estimated tokens of one turn.
func (t *Tokenizer) CountMessageTokens(msg types.Message) int {
	n := messageOverhead + t.CountTokens(msg.Content)
	for _, call := range msg.ToolCalls {
		n += toolCallOverhead + t.CountTokens(call.Name) + t.CountTokens(string(call.Arguments))
	}
	for _, res := range msg.ToolResults {
		n += toolCallOverhead + t.CountTokens(res.Content)
	}
	return n
}

// CountMessagesTokens returns the estimated tokens of a whole conversation.
func (t *Tokenizer) CountMessagesTokens(msgs []types.Message) int {
	total := 0
	for _, m := range msgs {
		total += t.CountMessageTokens(m)
	}
	return total
}
