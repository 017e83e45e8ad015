package session

import (
	"errors"
	"sync"
	"time"
)

// ErrQuestionPending is returned by Register while another question is
// still waiting for its answer.
var ErrQuestionPending = errors.New("a question is already pending")

// Mailbox holds at most one pending question. Every registered question
// receives exactly one answer: the user's reply, the timeout answer when
// its deadline passes, or the close answer when the mailbox is closed.
type Mailbox struct {
	mu      sync.Mutex
	pending *pendingQuestion

	closed      bool
	closeAnswer string
}

type pendingQuestion struct {
	answer chan string
	timer  *time.Timer
}

// Register opens a question that times out after timeout with
// timeoutAnswer. The returned channel yields exactly one answer.
// Registering on a closed mailbox answers immediately with the close
// answer.
func (m *Mailbox) Register(timeout time.Duration, timeoutAnswer string) (<-chan string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending != nil {
		return nil, ErrQuestionPending
	}

	q := &pendingQuestion{answer: make(chan string, 1)}
	if m.closed {
		q.answer <- m.closeAnswer
		return q.answer, nil
	}

	m.pending = q
	q.timer = time.AfterFunc(timeout, func() {
		m.resolve(q, timeoutAnswer)
	})
	return q.answer, nil
}

// Resolve answers the pending question. It reports false when nothing was
// pending.
func (m *Mailbox) Resolve(answer string) bool {
	m.mu.Lock()
	q := m.pending
	m.mu.Unlock()
	if q == nil {
		return false
	}
	return m.resolve(q, answer)
}

// resolve delivers answer to q if q is still the pending question.
func (m *Mailbox) resolve(q *pendingQuestion, answer string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending != q {
		return false
	}
	m.pending = nil
	if q.timer != nil {
		q.timer.Stop()
	}
	q.answer <- answer
	return true
}

// Pending reports whether a question is waiting for an answer.
func (m *Mailbox) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// Close answers any pending question with answer and makes every later
// Register answer the same way at once. Closing twice keeps the first
// answer.
func (m *Mailbox) Close(answer string) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.closed = true
	m.closeAnswer = answer
	q := m.pending
	m.mu.Unlock()

	if q != nil {
		m.resolve(q, answer)
	}
	return true
}
