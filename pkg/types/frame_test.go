package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalFrame_EmptyPartsStillSent(t *testing.T) {
	raw, err := json.Marshal(NewProposalFrame(nil, 0, 1000, false, -1000, -100))
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded, "parts")
	assert.JSONEq(t, `[]`, string(decoded["parts"]))
}

func TestNonProposalFramesOmitProposalFields(t *testing.T) {
	raw, err := json.Marshal(NewStatusFrame("Searching CPU…"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"status","content":"Searching CPU…"}`, string(raw))
}
