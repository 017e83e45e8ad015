package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/entrhq/pcbuilder/pkg/session"
	"github.com/entrhq/pcbuilder/pkg/types"
)

// wsConn adapts a WebSocket to session.Conn.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Send(ctx context.Context, frame types.OutboundFrame) error {
	return wsjson.Write(ctx, c.ws, frame)
}

func (c *wsConn) Close(reason string) error {
	return c.ws.Close(websocket.StatusNormalClosure, reason)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.opts.OriginPatterns,
	})
	if err != nil {
		s.logger.Warnf("failed to accept websocket from %s: %v", r.RemoteAddr, err)
		return
	}
	ws.SetReadLimit(maxFrameBytes)

	sess := s.coord.Connect(r.Context(), &wsConn{ws: ws})
	s.logger.Infof("client %s connected (session %s)", r.RemoteAddr, sess.ID())
	defer s.coord.Disconnect(sess, "client disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-sess.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	s.readLoop(ctx, ws, sess)
	s.logger.Infof("client %s disconnected (session %s)", r.RemoteAddr, sess.ID())
}

// readLoop feeds inbound frames to the session until the socket closes.
// Frames that are not valid JSON are logged and skipped.
func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, sess *session.Session) {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				s.logger.Debugf("websocket closed: %v", err)
			} else {
				s.logger.Warnf("websocket read error: %v", err)
			}
			return
		}
		if typ != websocket.MessageText {
			s.logger.Warnf("ignoring binary frame of %d bytes", len(data))
			continue
		}

		var frame types.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Warnf("ignoring malformed frame: %v", err)
			continue
		}
		sess.HandleFrame(ctx, frame)
	}
}
