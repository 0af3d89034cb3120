package app

import (
	"context"
	"log/slog"

	"github.com/sebas/videophone/internal/api"
	"github.com/sebas/videophone/internal/call"
	"github.com/sebas/videophone/internal/config"
	"github.com/sebas/videophone/internal/engine"
	"github.com/sebas/videophone/internal/engine/memory"
	"github.com/sebas/videophone/internal/relay"
)

// Client wires the call engine, the call coordinator, the push relay
// coordinator, and the ops API into one runnable videophone client.
type Client struct {
	config    *config.Config
	state     *ClientState
	engine    engine.Engine
	calls     *call.Coordinator
	relay     *relay.Coordinator
	socket    *relay.Socket
	apiServer *api.Server
}

// New builds the full client from configuration. The reporter receives
// UI-facing call events; pass call.NopReporter{} for headless use.
func New(cfg *config.Config, reporter call.Reporter) (*Client, error) {
	state := NewClientState(cfg.RingsBeforeGreeting)
	state.SetDeviceToken(cfg.DeviceToken)
	state.SetDevRelay(cfg.RelayDev)

	eng := memory.New(cfg.MaxInboundCalls)

	// Relay HTTP client and remote log sink
	relayClient := relay.NewClient(relay.ClientConfig{BaseURL: cfg.RelayURL})
	var sink relay.LogSink = relay.NopSink{}
	if cfg.RelayLogURL != "" {
		sink = relay.NewHTTPSink(cfg.RelayLogURL, nil)
	}

	relayCoord := relay.NewCoordinator(relay.CoordinatorConfig{
		Client:     relayClient,
		Identity:   state,
		Sink:       sink,
		DeviceType: cfg.DeviceType,
	})

	calls := call.New(call.Config{
		MaxOutboundCalls:       cfg.MaxOutboundCalls,
		UnauthenticatedNumbers: cfg.EmergencyNumbers,
	}, eng, state, reporter, relayCoord)
	relayCoord.SetCallControl(calls)

	// State transitions feed the coordinators: authentication and
	// foreground changes release deferred calls, identity changes
	// re-sync relay registration.
	state.onAuthenticated = calls.HandleAuthenticated
	state.onForegrounded = calls.HandleAppForegrounded
	state.onSelfCertified = calls.HandleSelfCertified
	state.onSIPRegistration = relayCoord.SIPRegistrationConfirmed
	state.onIdentityChanged = func() {
		relayCoord.SyncRegistration(context.Background())
	}

	var socket *relay.Socket
	if cfg.RelayPushURL != "" {
		socket = relay.NewSocket(relay.SocketConfig{
			URL:         cfg.RelayPushURL,
			DeviceToken: cfg.DeviceToken,
			Handler:     relayCoord.HandlePush,
		})
	}

	apiServer := api.NewServer(cfg.APIAddr, calls, relayCoord)

	return &Client{
		config:    cfg,
		state:     state,
		engine:    eng,
		calls:     calls,
		relay:     relayCoord,
		socket:    socket,
		apiServer: apiServer,
	}, nil
}

// State exposes the mutable account/device state for the embedding UI.
func (c *Client) State() *ClientState { return c.state }

// Calls exposes the call coordinator.
func (c *Client) Calls() *call.Coordinator { return c.calls }

// Relay exposes the push relay coordinator.
func (c *Client) Relay() *relay.Coordinator { return c.relay }

// Start runs the engine notification pump, the push socket, and the ops
// API until ctx is cancelled. It blocks; run it from a goroutine when
// the caller needs to keep going.
func (c *Client) Start(ctx context.Context) error {
	if err := c.apiServer.Start(); err != nil {
		return err
	}

	if c.socket != nil {
		go c.socket.Run(ctx)
	}

	// Initial registration sync; later identity changes re-sync through
	// the state hooks.
	c.relay.SyncRegistration(ctx)

	c.calls.Run(ctx)
	return ctx.Err()
}

// Close releases the engine and stops the ops API.
func (c *Client) Close() {
	if err := c.apiServer.Stop(); err != nil {
		slog.Warn("API server shutdown failed", "error", err)
	}
	if err := c.engine.Close(); err != nil {
		slog.Warn("Engine close failed", "error", err)
	}
}
