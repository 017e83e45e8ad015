package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AskUserToolName is the identifier of the clarifying-question tool.
const AskUserToolName = "ask_user"

// AskUserArgs are the decoded arguments of ask_user.
type AskUserArgs struct {
	Question string `json:"question"`
}

// AskUser returns the ask_user definition. Calling it suspends the turn
// until the user replies or the question times out.
func AskUser() Definition {
	return Definition{
		Name: AskUserToolName,
		Description: "Ask the user a follow-up question to clarify their build requirements, " +
			"preferences, or to present options.",
		Schema: BaseToolSchema(
			map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to ask the user",
				},
			},
			[]string{"question"},
		),
	}
}

// ParseAskUserArgs decodes ask_user arguments.
func ParseAskUserArgs(raw json.RawMessage) (AskUserArgs, error) {
	var args AskUserArgs
	if err := decodeArgs(AskUserToolName, raw, &args); err != nil {
		return args, err
	}
	args.Question = strings.TrimSpace(args.Question)
	if args.Question == "" {
		return args, fmt.Errorf("question cannot be empty")
	}
	return args, nil
}
