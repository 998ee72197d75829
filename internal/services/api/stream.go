package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
)

// Stream frame types.
const (
	frameView = "session.view"
	framePing = "ping"
)

type streamFrame struct {
	Type string        `json:"type"`
	View *session.View `json:"view,omitempty"`
	At   *time.Time    `json:"at,omitempty"`
}

type streamPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func (p *streamPeer) writeFrame(frame streamFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// stream pushes every published view to the client, newest first when the
// client falls behind, with periodic pings so idle proxies keep the
// connection open.
func (h *handler) stream() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		defer func() {
			_ = conn.Close()
		}()

		ctx, cancel := context.WithCancel(conn.Request().Context())
		defer cancel()

		// Clients only send close frames; any read error ends the stream.
		go func() {
			defer cancel()
			_, _ = io.Copy(io.Discard, conn)
		}()

		peer := &streamPeer{encoder: json.NewEncoder(conn)}
		views := h.session.Subscribe(ctx)
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-views:
				if !ok {
					return
				}
				if err := peer.writeFrame(streamFrame{Type: frameView, View: &v}); err != nil {
					h.logger.Printf("api: stream write: %v", err)
					return
				}
			case now := <-ticker.C:
				if err := peer.writeFrame(streamFrame{Type: framePing, At: &now}); err != nil {
					return
				}
			}
		}
	})
}
