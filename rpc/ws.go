package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"challengechain/core/types"
	"challengechain/native/challenge"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsQueueSize    = 256
)

// handleEventsWS streams committed events as JSON text frames. The optional
// challenge query parameter restricts the stream to one challenge.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, r, http.StatusServiceUnavailable, "Unavailable", "event stream disabled")
		return
	}
	var filter func(types.Event) bool
	if raw := strings.TrimSpace(r.URL.Query().Get("challenge")); raw != "" {
		id, err := challenge.ParseID(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "InvalidPayload", err.Error())
			return
		}
		want := challenge.FormatID(id)
		filter = func(evt types.Event) bool { return evt.Attributes["id"] == want }
	}

	// subscribe before the handshake completes so nothing committed after the
	// client sees the upgrade is missed
	sub, cancel := s.feed.Subscribe(wsQueueSize, filter)
	defer cancel()

	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				if websocket.CloseStatus(err) == -1 {
					_ = conn.Close(websocket.StatusInternalError, "stream error")
				}
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt types.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
