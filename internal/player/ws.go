package player

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 30 * time.Second
	pingInterval = pongWait * 9 / 10
	maxIntent    = 16 << 10
)

// handleSession upgrades the request and drives one session per connection
// until the client goes away.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxIntent)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := uuid.NewString()
	slog.Info("player session opened", "session_id", id, "remote", r.RemoteAddr)

	d := newDriver(id, s, func(ctx context.Context, reply Reply) {
		wctx, cancel := context.WithTimeout(ctx, writeWait)
		defer cancel()
		if err := wsjson.Write(wctx, conn, reply); err != nil {
			slog.Warn("failed to send reply", "session_id", id, "error", err)
		}
	})

	go heartbeat(ctx, conn)

	err = readLoop(ctx, conn, d)
	cancel()
	d.wait()

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		slog.Info("player session closed", "session_id", id)
	default:
		slog.Warn("player session ended", "session_id", id, "error", err)
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, d *driver) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var in Intent
		if typ != websocket.MessageText || json.Unmarshal(data, &in) != nil || in.Action == "" {
			d.reject(ctx)
			continue
		}
		d.handle(ctx, in)
	}
}

func heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, pongWait)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Warn("player heartbeat failed", "error", err)
					conn.Close(websocket.StatusGoingAway, "heartbeat timeout")
				}
				return
			}
		}
	}
}
