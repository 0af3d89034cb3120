package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// PushHandler receives parsed push payloads from the socket.
type PushHandler func(*PushInfo)

// SocketConfig configures the push socket.
type SocketConfig struct {
	// URL is the relay's push endpoint (ws:// or wss://).
	URL string
	// DeviceToken is sent on connect so the relay can route pushes.
	DeviceToken string
	Handler     PushHandler
	Logger      *slog.Logger
}

// Socket is a long-lived WebSocket to the relay's push endpoint. Each
// message is one push payload; incomplete or unreadable payloads are
// logged and dropped. The connection reconnects with capped backoff
// until the context is canceled.
type Socket struct {
	cfg SocketConfig
	log *slog.Logger
}

// NewSocket creates a push socket.
func NewSocket(cfg SocketConfig) *Socket {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Socket{cfg: cfg, log: log}
}

// Run connects and reads pushes until ctx is canceled.
func (s *Socket) Run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for ctx.Err() == nil {
		if err := s.readLoop(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("push socket disconnected", "error", err, "retry_in", backoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *Socket) readLoop(ctx context.Context) error {
	header := http.Header{}
	if s.cfg.DeviceToken != "" {
		header.Set("X-Device-Token", s.cfg.DeviceToken)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	s.log.Info("push socket connected", "url", s.cfg.URL)

	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		info, err := ParsePushPayload(data)
		if err != nil {
			s.log.Warn("discarding push payload", "error", err)
			continue
		}
		s.cfg.Handler(info)
	}
}
