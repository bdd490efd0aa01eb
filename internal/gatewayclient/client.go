// Package gatewayclient implements the persistent duplex connection
// to the external agent gateway: the three-step handshake, request/
// response/event frame correlation, event accumulation into a turn's
// final text, and lazy reconnection with bounded exponential backoff.
//
// Architecturally grounded on the teacher's openclaw.GatewayAdapter
// (dial → challenge-wait → connect → await-ok loop, a background
// reader goroutine feeding a channel, frame correlation by id, pooled
// write serialization) — the wire field names and handshake semantics
// are rewritten to match this gateway's literal protocol (chat.send /
// hello-ok / chat events), and there is exactly one connection per
// client instance rather than a pool, since multiplexing across
// sessions is an explicit Non-goal here.
package gatewayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/logging"
)

type state int

const (
	stateDisconnected state = iota
	stateDialing
	stateAwaitingHello
	stateReady
	stateDraining
)

// Config carries everything the client needs to dial and speak to one
// agent gateway instance. Built fresh by the session-client rebuilder
// whenever openclawGatewayUrl or openclawGatewayToken changes.
type Config struct {
	GatewayURL        string
	GatewayToken      string
	ConnectTimeoutMs  int64
	ResponseTimeoutMs int64
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	MaxDialAttempts   int
	ClientId          string
	ClientVersion     string
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeoutMs <= 0 {
		c.ConnectTimeoutMs = 5000
	}
	if c.ResponseTimeoutMs <= 0 {
		c.ResponseTimeoutMs = 20000
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 250 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.MaxDialAttempts <= 0 {
		c.MaxDialAttempts = 5
	}
	if c.ClientId == "" {
		c.ClientId = "voicegateway"
	}
	if c.ClientVersion == "" {
		c.ClientVersion = "1.0.0"
	}
	return c
}

// Client is the agent session client named in spec §4.2. One instance
// owns at most one live WebSocket connection and the two pending maps
// keyed by request id and runId.
type Client struct {
	cfg    Config
	logger logging.Logger

	mu       sync.Mutex
	st       state
	conn     *websocket.Conn
	writeMu  sync.Mutex
	requests map[string]*pendingRequest
	turns    map[string]*pendingTurn

	dialGroup singleflight.Group
	msgs      chan []byte
	connErrs  chan error
}

func New(cfg Config, logger logging.Logger) *Client {
	return &Client{
		cfg:      cfg.withDefaults(),
		logger:   logger,
		st:       stateDisconnected,
		requests: make(map[string]*pendingRequest),
		turns:    make(map[string]*pendingTurn),
	}
}

// SendTranscript is the only entry point the turn orchestrator calls.
// If the client isn't READY it dials first, subject to the retry
// policy; on exhaustion it returns an UNAVAILABLE-class error.
func (c *Client) SendTranscript(ctx context.Context, sessionKey domain.SessionKey, turnId domain.TurnId, text string) (domain.AgentResponse, error) {
	if !c.isReady() {
		if err := c.connectWithRetry(ctx); err != nil {
			return domain.AgentResponse{}, domain.NewOperatorError(domain.CodeOpenclawUnavailable, "agent gateway unavailable", err)
		}
	}

	runId := uuid.NewString()
	reqId := uuid.NewString()

	params := chatSendParams{
		SessionKey:     string(sessionKey),
		Message:        text,
		IdempotencyKey: runId,
		TimeoutMs:      c.cfg.ResponseTimeoutMs,
	}
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return domain.AgentResponse{}, domain.NewOperatorError(domain.CodeInternal, "failed encoding chat.send params", err)
	}
	frame := requestFrame{Type: frameTypeRequest, Id: reqId, Method: "chat.send", Params: paramsRaw}

	resultCh := make(chan turnResult, 1)

	c.mu.Lock()
	turn := &pendingTurn{
		turnId:     turnId,
		sessionKey: sessionKey,
		runId:      runId,
		resolve: func(resp domain.AgentResponse) {
			resultCh <- turnResult{resp: resp}
		},
		reject: func(err error) {
			resultCh <- turnResult{err: err}
		},
	}
	turn.deadlineTimer = time.AfterFunc(time.Duration(c.cfg.ResponseTimeoutMs)*time.Millisecond, func() {
		c.completeTurn(runId, domain.AgentResponse{}, domain.NewUserError(domain.CodeOpenclawTimeout, "agent response timed out"))
	})
	c.turns[runId] = turn
	c.requests[reqId] = &pendingRequest{
		resolve: func() {},
		reject: func(err error) {
			c.completeTurn(runId, domain.AgentResponse{}, err)
		},
	}
	c.mu.Unlock()

	if err := c.writeFrame(frame); err != nil {
		c.mu.Lock()
		delete(c.requests, reqId)
		delete(c.turns, runId)
		c.mu.Unlock()
		return domain.AgentResponse{}, domain.NewOperatorError(domain.CodeOpenclawUnavailable, "failed writing to agent gateway", err)
	}

	select {
	case res := <-resultCh:
		return res.resp, res.err
	case <-ctx.Done():
		c.cancelTurn(runId)
		return domain.AgentResponse{}, ctx.Err()
	}
}

type turnResult struct {
	resp domain.AgentResponse
	err  error
}

func (c *Client) isReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st == stateReady
}

// connectWithRetry dials under the CLAW-03 backoff schedule, bounded
// by MaxDialAttempts so a synchronous SendTranscript call cannot hang
// forever on a terminally unreachable gateway.
func (c *Client) connectWithRetry(ctx context.Context) error {
	_, err, _ := c.dialGroup.Do("connect", func() (any, error) {
		var lastErr error
		for attempt := 0; attempt < c.cfg.MaxDialAttempts; attempt++ {
			err := c.dial(ctx)
			if err == nil {
				return nil, nil
			}
			lastErr = err
			if !isTransientDialError(err) {
				return nil, err
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if sleepOrCancel(ctx, backoffDelay(attempt, c.cfg.BaseDelay, c.cfg.MaxDelay)) {
				return nil, ctx.Err()
			}
		}
		return nil, lastErr
	})
	return err
}

// dial performs one full handshake attempt: DISCONNECTED → DIALING →
// AWAITING_HELLO → READY, per spec §4.2.
func (c *Client) dial(ctx context.Context) error {
	if c.cfg.GatewayURL == "" {
		return fmt.Errorf("%w: empty gateway url", ErrAuthOrConfig)
	}

	c.setState(stateDialing)

	dialCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.ConnectTimeoutMs)*time.Millisecond)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.GatewayURL, nil)
	if err != nil {
		c.setState(stateDisconnected)
		return fmt.Errorf("dial agent gateway: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.st = stateAwaitingHello
	c.msgs = make(chan []byte, 16)
	c.connErrs = make(chan error, 1)
	c.mu.Unlock()

	go c.readPump(conn, c.msgs, c.connErrs)

	if err := c.handshake(dialCtx); err != nil {
		c.teardown(err)
		return err
	}

	c.setState(stateReady)
	go c.dispatchLoop()
	return nil
}

// handshake runs steps 2–5 of §4.2: an optional challenge grace
// window, then the connect request, then the hello-ok wait.
func (c *Client) handshake(ctx context.Context) error {
	// Step 2: grace window for an optional connect.challenge event.
	// The nonce it carries is only meaningful for device-paired flows
	// this client does not implement; it is read (for completeness)
	// but never placed on a top-level wire key.
	graceTimer := time.NewTimer(750 * time.Millisecond)
	defer graceTimer.Stop()
	select {
	case raw := <-c.msgs:
		var rf rawFrame
		if json.Unmarshal(raw, &rf) == nil && rf.Type == frameTypeEvent {
			var ev eventFrame
			if json.Unmarshal(raw, &ev) == nil && ev.Event == "connect.challenge" {
				var payload connectChallengePayload
				_ = json.Unmarshal(ev.Payload, &payload)
				// nonce intentionally discarded: never sent top-level.
			}
		}
	case <-graceTimer.C:
	case err := <-c.connErrs:
		return fmt.Errorf("agent gateway closed during handshake: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("handshake cancelled: %w", ctx.Err())
	}

	// Step 3: send connect request.
	var auth *connectAuth
	if c.cfg.GatewayToken != "" {
		auth = &connectAuth{Token: c.cfg.GatewayToken}
	}
	params := connectParams{
		MinProtocol: 1,
		MaxProtocol: 1,
		Client: connectClient{
			Id:       c.cfg.ClientId,
			Version:  c.cfg.ClientVersion,
			Platform: "go",
			Mode:     "voice-turn-gateway",
		},
		Caps:   []string{"chat.send"},
		Role:   "client",
		Scopes: []string{"chat"},
		Auth:   auth,
	}
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: failed encoding connect params: %v", ErrAuthOrConfig, err)
	}
	connectId := uuid.NewString()
	if err := c.writeFrame(requestFrame{Type: frameTypeRequest, Id: connectId, Method: "connect", Params: paramsRaw}); err != nil {
		return fmt.Errorf("failed sending connect: %w", err)
	}

	// Step 4/5: await the matching response within ConnectTimeoutMs.
	for {
		select {
		case raw := <-c.msgs:
			var rf rawFrame
			if json.Unmarshal(raw, &rf) != nil {
				return errors.New("agent gateway sent an unparseable frame during handshake")
			}
			if rf.Type != frameTypeResponse {
				return fmt.Errorf("unexpected frame type %q before READY", rf.Type)
			}
			var resp responseFrame
			if err := json.Unmarshal(raw, &resp); err != nil {
				return fmt.Errorf("unparseable response frame: %w", err)
			}
			if resp.Id != connectId {
				return fmt.Errorf("response id %q does not match connect request %q", resp.Id, connectId)
			}
			if !resp.Ok {
				msg := "connect rejected"
				if resp.Error != nil {
					msg = resp.Error.Message
				}
				return fmt.Errorf("%w: %s", ErrAuthOrConfig, msg)
			}
			var hello helloOkPayload
			if err := json.Unmarshal(resp.Payload, &hello); err != nil || hello.Type != "hello-ok" {
				return errors.New("connect response was not hello-ok")
			}
			return nil
		case err := <-c.connErrs:
			return fmt.Errorf("agent gateway closed during handshake: %w", err)
		case <-ctx.Done():
			return fmt.Errorf("handshake timed out: %w", ctx.Err())
		}
	}
}

// dispatchLoop runs for the lifetime of a READY connection, reading
// frames and resolving/rejecting the pending maps. It exits when the
// connection errors or closes, at which point every pending entry is
// rejected per the disconnection semantics in §4.2.
func (c *Client) dispatchLoop() {
	c.mu.Lock()
	msgs, errs := c.msgs, c.connErrs
	c.mu.Unlock()

	for {
		select {
		case raw := <-msgs:
			c.handleFrame(raw)
		case err := <-errs:
			c.teardown(err)
			return
		}
	}
}

func (c *Client) handleFrame(raw []byte) {
	var rf rawFrame
	if json.Unmarshal(raw, &rf) != nil {
		return
	}
	switch rf.Type {
	case frameTypeResponse:
		c.handleResponseFrame(raw)
	case frameTypeEvent:
		c.handleEventFrame(raw)
	}
}

func (c *Client) handleResponseFrame(raw []byte) {
	var resp responseFrame
	if json.Unmarshal(raw, &resp) != nil {
		return
	}
	c.mu.Lock()
	req, ok := c.requests[resp.Id]
	if ok {
		delete(c.requests, resp.Id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if !resp.Ok {
		msg := "agent rejected chat.send"
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		req.reject(domain.NewUserError(domain.CodeOpenclawSessionErr, msg))
		return
	}
	// ok=true: status started/accepted, logged only, does not resolve
	// the turn (final text arrives later as a chat event).
	c.logger.Debug("chat.send acknowledged by agent gateway")
}

func (c *Client) handleEventFrame(raw []byte) {
	var ev eventFrame
	if json.Unmarshal(raw, &ev) != nil || ev.Event != "chat" {
		return
	}
	var payload chatEventPayload
	if json.Unmarshal(ev.Payload, &payload) != nil {
		return
	}

	c.mu.Lock()
	turn, ok := c.turns[payload.RunId]
	c.mu.Unlock()
	if !ok {
		// Already resolved, timed out, or cancelled: silently drop,
		// per spec §4.2 disconnection/cancellation semantics.
		return
	}

	switch payload.State {
	case "delta":
		c.mu.Lock()
		turn.accumulatedText += extractChatText(payload.Message.Content)
		c.mu.Unlock()
	case "final":
		final := extractChatText(payload.Message.Content)
		if final == "" {
			final = turn.accumulatedText
		}
		c.completeTurn(payload.RunId, domain.AgentResponse{
			SessionKey: turn.sessionKey,
			TurnId:     turn.turnId,
			Text:       final,
			Timestamp:  time.Now(),
		}, nil)
	case "error":
		msg := payload.Error
		if msg == "" {
			msg = "agent reported an error"
		}
		c.completeTurn(payload.RunId, domain.AgentResponse{}, domain.NewUserError(domain.CodeOpenclawSessionErr, msg))
	case "aborted":
		c.mu.Lock()
		text := turn.accumulatedText
		c.mu.Unlock()
		if text != "" {
			c.completeTurn(payload.RunId, domain.AgentResponse{
				SessionKey: turn.sessionKey,
				TurnId:     turn.turnId,
				Text:       text,
				Timestamp:  time.Now(),
			}, nil)
		} else {
			c.completeTurn(payload.RunId, domain.AgentResponse{}, domain.NewUserError(domain.CodeOpenclawSessionErr, "agent aborted the turn"))
		}
	}
}

// completeTurn removes the turn (and its deadline timer) before
// invoking exactly one of resolve/reject, so a timer firing and an
// event arriving concurrently can never double-complete the waiter.
func (c *Client) completeTurn(runId string, resp domain.AgentResponse, err error) {
	c.mu.Lock()
	turn, ok := c.turns[runId]
	if ok {
		delete(c.turns, runId)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if turn.deadlineTimer != nil {
		turn.deadlineTimer.Stop()
	}
	if err != nil {
		turn.reject(err)
	} else {
		turn.resolve(resp)
	}
}

func (c *Client) cancelTurn(runId string) {
	c.completeTurn(runId, domain.AgentResponse{}, context.Canceled)
}

// teardown is invoked on unexpected close or read error: every
// pending turn and request is rejected with an UNAVAILABLE-class
// error, timers are cancelled, and state resets to DISCONNECTED.
func (c *Client) teardown(cause error) {
	c.mu.Lock()
	turns := c.turns
	requests := c.requests
	c.turns = make(map[string]*pendingTurn)
	c.requests = make(map[string]*pendingRequest)
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.st = stateDisconnected
	c.mu.Unlock()

	safeErr := domain.NewOperatorError(domain.CodeOpenclawUnavailable, "agent gateway connection lost", cause)
	for _, t := range turns {
		if t.deadlineTimer != nil {
			t.deadlineTimer.Stop()
		}
		t.reject(safeErr)
	}
	for _, r := range requests {
		r.reject(safeErr)
	}
}

// Disconnect closes the current connection deliberately (used by the
// session-client rebuilder and the startup supervisor's drain
// sequence). It rejects pending turns the same way an unexpected
// close would.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.st = stateDraining
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) setState(s state) {
	c.mu.Lock()
	c.st = s
	c.mu.Unlock()
}

func (c *Client) writeFrame(f requestFrame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("no active connection")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, raw)
}

// readPump is the single background reader goroutine for one
// connection's lifetime, feeding decoded message bytes to msgs until
// the socket errors, at which point it reports the error once and
// exits. Grounded on the teacher's gatewayWS read goroutine.
func (c *Client) readPump(conn *websocket.Conn, msgs chan<- []byte, errs chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errs <- err
			return
		}
		msgs <- data
	}
}
