package errkind

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want Kind
	}{
		{"dial tcp 127.0.0.1:443: connect: connection refused", NetworkError},
		{"getaddrinfo ENOTFOUND pcpartpicker.com", NetworkError},
		{"lookup pcpartpicker.com: no such host", NetworkError},
		{"Timeout 30000ms exceeded", NetworkError},
		{"Network is unreachable", NetworkError},
		{"Target page, context or browser has been closed", BrowserCrash},
		{"browser disconnected", BrowserCrash},
		{"429 rate_limit_error: rate limit reached", APIError},
		{"529 Overloaded", APIError},
		{"401 authentication_error: invalid x-api-key", APIError},
		{"invalid API key provided", APIError},
		{"something completely different", NetworkError},
		{"", NetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMessage(tt.msg))
		})
	}
}

func TestClassifyMessage_Precedence(t *testing.T) {
	// A timeout while the browser closes is still a network error.
	assert.Equal(t, NetworkError, ClassifyMessage("timeout waiting for page; browser closed"))
	// A closed context reported alongside an API error is a crash.
	assert.Equal(t, BrowserCrash, ClassifyMessage("overloaded: context closed"))
	// Login timeouts stay network errors.
	assert.Equal(t, NetworkError, ClassifyMessage("login: timeout waiting for navigation"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, NetworkError, Classify(nil))
	assert.Equal(t, NetworkError, Classify(context.DeadlineExceeded))
	assert.Equal(t, BrowserCrash, Classify(errors.New("page closed")))

	tagged := Wrap(LoginFailed, errors.New("timeout waiting for login form"))
	assert.Equal(t, LoginFailed, Classify(tagged))

	wrapped := fmt.Errorf("save list: %w", tagged)
	assert.Equal(t, LoginFailed, Classify(wrapped))
	assert.Equal(t, "save list: timeout waiting for login form", wrapped.Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(SearchFailed, nil))

	base := errors.New("no rows")
	err := Wrap(SearchFailed, base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "no rows", err.Error())
	assert.Equal(t, string(SearchFailed), (&Error{Kind: SearchFailed}).Error())
}

func TestUserMessage(t *testing.T) {
	for _, k := range []Kind{LoginFailed, SearchFailed, NetworkError, APIError, BrowserCrash} {
		assert.NotEmpty(t, UserMessage(k), k)
	}
	assert.Equal(t, UserMessage(NetworkError), UserMessage(Kind("bogus")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(BrowserCrash))
	assert.False(t, Retryable(NetworkError))
	assert.False(t, Retryable(LoginFailed))
}
