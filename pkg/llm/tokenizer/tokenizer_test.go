package tokenizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/pcbuilder/pkg/types"
)

func TestFallbackCounting(t *testing.T) {
	tok := &Tokenizer{}
	assert.Equal(t, 2, tok.CountTokens("12345678"))
	assert.Equal(t, 0, tok.CountTokens(""))

	var nilTok *Tokenizer
	assert.Equal(t, 1, nilTok.CountTokens("abcd"))
}

func TestCountMessagesTokens(t *testing.T) {
	// Encoding load may need network access; either path must count.
	tok, err := New()
	if err != nil {
		t.Logf("tokenizer fell back to heuristic: %v", err)
	}

	user := types.NewUserMessage("I want a gaming PC for about $1500")
	call := types.NewAssistantMessage("", []types.ToolCall{{
		ID:        "toolu_1",
		Name:      "search_parts",
		Arguments: json.RawMessage(`{"category":"Video Card","price_max":600}`),
	}})
	result := types.NewToolResultMessage([]types.ToolResult{{ToolCallID: "toolu_1", Content: "[]"}})

	one := tok.CountMessagesTokens([]types.Message{user})
	all := tok.CountMessagesTokens([]types.Message{user, call, result})

	assert.Greater(t, one, messageOverhead)
	assert.Greater(t, all, one)
	assert.Equal(t, all, tok.CountMessageTokens(user)+tok.CountMessageTokens(call)+tok.CountMessageTokens(result))
}
