// Package relay implements the push-relay (ENS) protocol: the wire
// client speaking JSON over HTTP, push payload parsing, the coordinator
// driving the ringing/ready/answer handshake, and the push socket that
// delivers payloads to the client.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Wire operation names, one HTTP call per verb.
const (
	opLogin              = "Login"
	opLogout             = "Logout"
	opRinging            = "Ringing"
	opAnswer             = "Answer"
	opDecline            = "Decline"
	opCallAvailableCheck = "CallAvailableCheck"
	opStatus             = "Status"
)

// RequestError is a failed relay request: a transport error or a non-2xx
// response. The request and response bodies are retained for diagnostics.
type RequestError struct {
	Op           string
	StatusCode   int
	RequestBody  string
	ResponseBody string
	Cause        error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("relay %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("relay %s returned status %d: %s", e.Op, e.StatusCode, e.ResponseBody)
}

func (e *RequestError) Unwrap() error { return e.Cause }

// PhoneNumber is one registered number with its sharing flag.
type PhoneNumber struct {
	Number string `json:"Number"`
	Shared bool   `json:"IsSharedNumber"`
}

// LoginRequest registers this device with the relay service.
type LoginRequest struct {
	DeviceToken  string        `json:"DeviceToken"`
	DeviceType   string        `json:"DeviceType"`
	SubDevices   []string      `json:"SubDevices,omitempty"`
	RingCount    int           `json:"RingCount"`
	Dev          bool          `json:"Dev"`
	PhoneNumbers []PhoneNumber `json:"PhoneNumbers"`
	SIPServer    string        `json:"SIPServerIP,omitempty"`
}

// LogoutRequest unregisters this device from the relay service.
type LogoutRequest struct {
	DeviceToken  string   `json:"DeviceToken"`
	PhoneNumbers []string `json:"PhoneNumbers"`
	SubDevices   []string `json:"SubDevices,omitempty"`
}

// HandshakeRequest identifies one push-delivered call in the ringing /
// answer / decline / check verbs.
type HandshakeRequest struct {
	Identifier string `json:"ENSIdentifier"`
	CallID     string `json:"CallID"`
	SIPServer  string `json:"SIPServerIP"`
}

// ClientConfig configures the relay wire client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client speaks the relay wire protocol.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a relay client for the given base URL.
func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: strings.TrimRight(cfg.BaseURL, "/"), http: hc}
}

// Login registers the device, its numbers and ring settings.
func (c *Client) Login(ctx context.Context, req LoginRequest) error {
	_, err := c.post(ctx, opLogin, req)
	return err
}

// Logout unregisters the device.
func (c *Client) Logout(ctx context.Context, req LogoutRequest) error {
	_, err := c.post(ctx, opLogout, req)
	return err
}

// Ringing reports that the device is alerting for the call.
func (c *Client) Ringing(ctx context.Context, req HandshakeRequest) error {
	_, err := c.post(ctx, opRinging, req)
	return err
}

// Answer requests delivery with answer semantics. force corresponds to
// the relay's ForceAnswer flag and pre-empts the ring-group wait.
func (c *Client) Answer(ctx context.Context, req HandshakeRequest, force bool) error {
	body := struct {
		HandshakeRequest
		ForceAnswer bool `json:"ForceAnswer,omitempty"`
	}{req, force}
	_, err := c.post(ctx, opAnswer, body)
	return err
}

// Decline tells the relay this device will not take the call.
func (c *Client) Decline(ctx context.Context, req HandshakeRequest) error {
	_, err := c.post(ctx, opDecline, req)
	return err
}

// CallAvailableCheck polls whether the call is still deliverable.
func (c *Client) CallAvailableCheck(ctx context.Context, req HandshakeRequest) error {
	_, err := c.post(ctx, opCallAvailableCheck, req)
	return err
}

// Status probes relay health. Success requires the response body to
// contain "Online"; a 2xx without it is still a failure.
func (c *Client) Status(ctx context.Context) error {
	body, err := c.post(ctx, opStatus, struct{}{})
	if err != nil {
		return err
	}
	if !strings.Contains(string(body), "Online") {
		return &RequestError{Op: opStatus, StatusCode: http.StatusOK, ResponseBody: string(body)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, op string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, &RequestError{Op: op, Cause: err}
	}

	url := c.baseURL + "/" + op
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &RequestError{Op: op, RequestBody: string(reqBody), Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Op: op, RequestBody: string(reqBody), Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, RequestBody: string(reqBody), Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{
			Op:           op,
			StatusCode:   resp.StatusCode,
			RequestBody:  string(reqBody),
			ResponseBody: string(respBody),
		}
	}
	return respBody, nil
}
