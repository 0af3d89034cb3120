package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSocketDeliversParsedPushes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotToken := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken <- r.Header.Get("X-Device-Token")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		// One broken payload, then a usable one.
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"CallID":"call-0"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(
			`{"ENSIdentifier":"ens-1","CallID":"call-1","SIPServerIP":"10.0.0.1"}`))
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	pushes := make(chan *PushInfo, 4)
	sock := NewSocket(SocketConfig{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		DeviceToken: "tok-1",
		Handler:     func(info *PushInfo) { pushes <- info },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sock.Run(ctx)

	select {
	case token := <-gotToken:
		if token != "tok-1" {
			t.Errorf("device token header = %q, want %q", token, "tok-1")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("socket never connected")
	}

	select {
	case info := <-pushes:
		if info.CallID != "call-1" {
			t.Errorf("delivered call ID = %q, want %q", info.CallID, "call-1")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("push never delivered")
	}

	// The broken payload was dropped, not delivered.
	select {
	case info := <-pushes:
		t.Errorf("unexpected extra push delivered: %+v", info)
	case <-time.After(100 * time.Millisecond):
	}
}
