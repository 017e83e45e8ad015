// Package errkind maps arbitrary failures onto a small closed set of kinds
// that decide how a failure is reported and whether it is retried.
package errkind

import (
	"errors"
	"strings"
)

// Kind is the closed taxonomy of failures surfaced to the user.
type Kind string

const (
	LoginFailed  Kind = "login_failed"
	SearchFailed Kind = "search_failed"
	NetworkError Kind = "network_error"
	APIError     Kind = "api_error"
	BrowserCrash Kind = "browser_crash"
)

var userMessages = map[Kind]string{
	LoginFailed:  "I couldn't log in to your PCPartPicker account. Please check the saved credentials and try again.",
	SearchFailed: "I had trouble searching for parts. Please try again in a moment.",
	NetworkError: "I'm having trouble reaching PCPartPicker right now. Please check the connection and try again.",
	APIError:     "The assistant service is temporarily unavailable. Please try again shortly.",
	BrowserCrash: "The browser session crashed. I'm restarting it and will try again.",
}

// UserMessage returns the fixed, user-safe message for k.
func UserMessage(k Kind) string {
	if msg, ok := userMessages[k]; ok {
		return msg
	}
	return userMessages[NetworkError]
}

// Error tags an underlying error with a Kind. A tagged kind wins over
// classification by message text.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with k. A nil err stays nil.
func Wrap(k Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Err: err}
}

// Checked in order; the first group with a matching substring wins.
var rules = []struct {
	kind    Kind
	needles []string
}{
	{NetworkError, []string{"econnrefused", "connection refused", "enotfound", "no such host", "host not found", "timeout", "timed out", "deadline exceeded", "network"}},
	{BrowserCrash, []string{"target closed", "browser has been closed", "closed", "disconnected"}},
	{APIError, []string{"rate_limit", "rate limit", "overloaded", "529", "authentication", "api key", "api_key", "401"}},
}

// Classify returns the Kind for err. Errors tagged with Wrap keep their tag;
// everything else is classified by ClassifyMessage.
func Classify(err error) Kind {
	if err == nil {
		return NetworkError
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage classifies failure text case-insensitively. Network
// indicators take precedence over browser-lifecycle indicators, which take
// precedence over LLM-service indicators. Unmatched text is a network error.
func ClassifyMessage(msg string) Kind {
	lower := strings.ToLower(msg)
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(lower, needle) {
				return r.kind
			}
		}
	}
	return NetworkError
}

// Retryable reports whether a failure of kind k warrants an automatic
// restart-and-retry.
func Retryable(k Kind) bool {
	return k == BrowserCrash
}
