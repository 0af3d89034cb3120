package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// relayServer is a scriptable fake relay endpoint.
type relayServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests map[string][]string // op -> raw bodies
	status   map[string]int      // op -> response status, default 200
	body     map[string]string   // op -> response body
}

func newRelayServer() *relayServer {
	rs := &relayServer{
		requests: make(map[string][]string),
		status:   make(map[string]int),
		body:     make(map[string]string),
	}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := strings.TrimPrefix(r.URL.Path, "/")
		raw, _ := io.ReadAll(r.Body)

		rs.mu.Lock()
		rs.requests[op] = append(rs.requests[op], string(raw))
		status := rs.status[op]
		body := rs.body[op]
		rs.mu.Unlock()

		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	return rs
}

func (rs *relayServer) count(op string) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.requests[op])
}

func (rs *relayServer) lastBody(op string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	bodies := rs.requests[op]
	if len(bodies) == 0 {
		return ""
	}
	return bodies[len(bodies)-1]
}

func (rs *relayServer) setResponse(op string, status int, body string) {
	rs.mu.Lock()
	rs.status[op] = status
	rs.body[op] = body
	rs.mu.Unlock()
}

func TestClientVerbsHitTheirPaths(t *testing.T) {
	rs := newRelayServer()
	defer rs.Close()
	c := NewClient(ClientConfig{BaseURL: rs.URL})
	ctx := context.Background()
	hs := HandshakeRequest{Identifier: "ens-1", CallID: "call-1", SIPServer: "10.0.0.1"}

	if err := c.Login(ctx, LoginRequest{DeviceToken: "tok"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := c.Logout(ctx, LogoutRequest{DeviceToken: "tok"}); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if err := c.Ringing(ctx, hs); err != nil {
		t.Fatalf("Ringing() error = %v", err)
	}
	if err := c.Decline(ctx, hs); err != nil {
		t.Fatalf("Decline() error = %v", err)
	}
	if err := c.CallAvailableCheck(ctx, hs); err != nil {
		t.Fatalf("CallAvailableCheck() error = %v", err)
	}

	for _, op := range []string{"Login", "Logout", "Ringing", "Decline", "CallAvailableCheck"} {
		if rs.count(op) != 1 {
			t.Errorf("%s requests = %d, want 1", op, rs.count(op))
		}
	}
}

func TestAnswerCarriesForceFlag(t *testing.T) {
	rs := newRelayServer()
	defer rs.Close()
	c := NewClient(ClientConfig{BaseURL: rs.URL})
	hs := HandshakeRequest{Identifier: "ens-1", CallID: "call-1", SIPServer: "10.0.0.1"}

	if err := c.Answer(context.Background(), hs, false); err != nil {
		t.Fatalf("Answer(ready) error = %v", err)
	}
	var ready map[string]any
	if err := json.Unmarshal([]byte(rs.lastBody("Answer")), &ready); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if _, present := ready["ForceAnswer"]; present {
		t.Error("ready report carried ForceAnswer")
	}
	if ready["CallID"] != "call-1" {
		t.Errorf("CallID = %v, want call-1", ready["CallID"])
	}

	if err := c.Answer(context.Background(), hs, true); err != nil {
		t.Fatalf("Answer(force) error = %v", err)
	}
	var forced map[string]any
	_ = json.Unmarshal([]byte(rs.lastBody("Answer")), &forced)
	if forced["ForceAnswer"] != true {
		t.Errorf("ForceAnswer = %v, want true", forced["ForceAnswer"])
	}
}

func TestStatusRequiresOnlineBody(t *testing.T) {
	rs := newRelayServer()
	defer rs.Close()
	c := NewClient(ClientConfig{BaseURL: rs.URL})

	rs.setResponse("Status", http.StatusOK, `{"State":"Online"}`)
	if err := c.Status(context.Background()); err != nil {
		t.Errorf("Status() with Online body error = %v", err)
	}

	rs.setResponse("Status", http.StatusOK, `{"State":"Degraded"}`)
	if err := c.Status(context.Background()); err == nil {
		t.Error("Status() without Online body succeeded")
	}
}

func TestRequestErrorRetainsDiagnostics(t *testing.T) {
	rs := newRelayServer()
	defer rs.Close()
	rs.setResponse("Login", http.StatusBadGateway, "upstream down")
	c := NewClient(ClientConfig{BaseURL: rs.URL})

	err := c.Login(context.Background(), LoginRequest{DeviceToken: "tok"})
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want RequestError", err)
	}
	if re.Op != "Login" || re.StatusCode != http.StatusBadGateway {
		t.Errorf("RequestError = (%q, %d), want (Login, 502)", re.Op, re.StatusCode)
	}
	if re.ResponseBody != "upstream down" {
		t.Errorf("ResponseBody = %q, want %q", re.ResponseBody, "upstream down")
	}
	if !strings.Contains(re.RequestBody, "tok") {
		t.Errorf("RequestBody = %q, want the sent payload", re.RequestBody)
	}
}
