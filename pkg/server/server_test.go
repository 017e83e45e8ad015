package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pcbuilder/pkg/agent/tools"
	"github.com/entrhq/pcbuilder/pkg/browser"
	"github.com/entrhq/pcbuilder/pkg/browser/browsertest"
	"github.com/entrhq/pcbuilder/pkg/llm"
	"github.com/entrhq/pcbuilder/pkg/logging"
	"github.com/entrhq/pcbuilder/pkg/session"
	"github.com/entrhq/pcbuilder/pkg/types"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "pcbuilder-server-test")
	if err == nil {
		logging.SetDirectory(dir)
	}
	code := m.Run()
	if dir != "" {
		os.RemoveAll(dir)
	}
	os.Exit(code)
}

func newTestServer(t *testing.T, provider llm.Provider, staticDir string) (*httptest.Server, *session.Coordinator) {
	t.Helper()
	site := browsertest.NewSite()
	coord := session.NewCoordinator(session.Options{
		Provider: provider,
		NewPool: func() *browser.Pool {
			return browser.NewPool(site, browser.Options{BaseURL: "https://pcpartpicker.test"}, nil)
		},
	})
	srv := New(Options{Coordinator: coord, StaticDir: staticDir})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = coord.Shutdown(context.Background())
		ts.Close()
	})
	return ts, coord
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketPath
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func readFrame(t *testing.T, c *websocket.Conn) types.OutboundFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var f types.OutboundFrame
	require.NoError(t, wsjson.Read(ctx, c, &f))
	return f
}

func write(t *testing.T, c *websocket.Conn, f types.InboundFrame) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, f))
}

func TestWebSocket_ChatRoundTrip(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.ScriptedTurn{Chunks: []string{"Hi! ", "What's your budget?"}})
	ts, _ := newTestServer(t, provider, "")
	c := dial(t, ts)

	write(t, c, types.InboundFrame{Type: types.InboundMessage, Content: "I want a gaming PC"})

	first := readFrame(t, c)
	assert.Equal(t, types.OutboundResponse, first.Type)
	assert.Equal(t, "Hi! ", first.Content)
	second := readFrame(t, c)
	assert.Equal(t, "What's your budget?", second.Content)
	done := readFrame(t, c)
	require.NotNil(t, done.Done)
	assert.True(t, *done.Done)
	assert.Empty(t, done.Content)
}

func TestWebSocket_MalformedFrameIgnored(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.ScriptedTurn{Chunks: []string{"still here"}})
	ts, _ := newTestServer(t, provider, "")
	c := dial(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))

	write(t, c, types.InboundFrame{Type: types.InboundMessage, Content: "hello"})
	f := readFrame(t, c)
	assert.Equal(t, "still here", f.Content)
	assert.Len(t, provider.Requests(), 1)
}

func TestWebSocket_QuestionAndApproveFlow(t *testing.T) {
	provider := llm.NewScriptedProvider(
		llm.ScriptedTurn{ToolCalls: []types.ToolCall{{
			ID:        "q1",
			Name:      tools.AskUserToolName,
			Arguments: []byte(`{"question":"What resolution do you play at?"}`),
		}}},
		llm.ScriptedTurn{Chunks: []string{"1440p it is."}},
	)
	ts, _ := newTestServer(t, provider, "")
	c := dial(t, ts)

	write(t, c, types.InboundFrame{Type: types.InboundMessage, Content: "help me pick a GPU"})
	q := readFrame(t, c)
	assert.Equal(t, types.OutboundQuestion, q.Type)
	assert.Equal(t, "What resolution do you play at?", q.Content)

	write(t, c, types.InboundFrame{Type: types.InboundMessage, Content: "1440p"})
	assert.Equal(t, "1440p it is.", readFrame(t, c).Content)
	assert.True(t, *readFrame(t, c).Done)

	reqs := provider.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	require.Len(t, last.ToolResults, 1)
	assert.Equal(t, "1440p", last.ToolResults[0].Content)
}

func TestWebSocket_NewConnectionEvictsOld(t *testing.T) {
	ts, coord := newTestServer(t, llm.NewScriptedProvider(), "")
	old := dial(t, ts)
	require.Eventually(t, func() bool { return coord.Active() != nil }, 3*time.Second, 10*time.Millisecond)
	first := coord.Active()

	_ = dial(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, _, err := old.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))

	require.Eventually(t, func() bool {
		a := coord.Active()
		return a != nil && a != first
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, session.StateTerminated, first.State())
}

func TestWebSocket_ClientCloseTearsDownSession(t *testing.T) {
	ts, coord := newTestServer(t, llm.NewScriptedProvider(), "")
	c := dial(t, ts)
	require.Eventually(t, func() bool { return coord.Active() != nil }, 3*time.Second, 10*time.Millisecond)
	s := coord.Active()

	require.NoError(t, c.Close(websocket.StatusNormalClosure, "bye"))

	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session not torn down after client close")
	}
	assert.Eventually(t, func() bool { return coord.Active() == nil }, 3*time.Second, 10*time.Millisecond)
}

func TestHTTP_HealthAndStatic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>PC Builder</h1>"), 0o600))
	ts, _ := newTestServer(t, llm.NewScriptedProvider(), dir)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "PC Builder")
}
