package gatewayclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/logging"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// mockAgentServer speaks just enough of the protocol for the client
// tests: it answers connect with hello-ok, then for every chat.send it
// sends an "accepted" ack followed by a scripted sequence of chat
// events for that runId.
type mockAgentServer struct {
	srv          *httptest.Server
	sentFrames   []map[string]any
	replyBuilder func(message string) []chatEventPayload
}

func newMockAgentServer(t *testing.T, replyBuilder func(message string) []chatEventPayload) *mockAgentServer {
	m := &mockAgentServer{replyBuilder: replyBuilder}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]any
			if json.Unmarshal(data, &frame) != nil {
				continue
			}
			m.sentFrames = append(m.sentFrames, frame)
			method, _ := frame["method"].(string)
			id, _ := frame["id"].(string)
			switch method {
			case "connect":
				reply := map[string]any{"type": "res", "id": id, "ok": true, "payload": map[string]any{"type": "hello-ok"}}
				raw, _ := json.Marshal(reply)
				_ = conn.WriteMessage(websocket.TextMessage, raw)
			case "chat.send":
				params, _ := frame["params"].(map[string]any)
				message, _ := params["message"].(string)
				runId, _ := params["idempotencyKey"].(string)
				ack := map[string]any{"type": "res", "id": id, "ok": true, "payload": map[string]any{"status": "accepted"}}
				rawAck, _ := json.Marshal(ack)
				_ = conn.WriteMessage(websocket.TextMessage, rawAck)

				events := m.replyBuilder(message)
				for _, ev := range events {
					ev.RunId = runId
					payloadRaw, _ := json.Marshal(ev)
					frame := map[string]any{"type": "event", "event": "chat", "payload": json.RawMessage(payloadRaw)}
					raw, _ := json.Marshal(frame)
					_ = conn.WriteMessage(websocket.TextMessage, raw)
				}
			}
		}
	})
	m.srv = httptest.NewServer(mux)
	return m
}

func (m *mockAgentServer) wsURL() string {
	return "ws" + strings.TrimPrefix(m.srv.URL, "http")
}

func (m *mockAgentServer) Close() { m.srv.Close() }

func textEvent(state, text string) chatEventPayload {
	raw, _ := json.Marshal(text)
	return chatEventPayload{State: state, Message: chatMessage{Content: raw}}
}

func TestSendTranscriptHappyPath(t *testing.T) {
	server := newMockAgentServer(t, func(message string) []chatEventPayload {
		return []chatEventPayload{textEvent("final", "AI response to: "+message)}
	})
	defer server.Close()

	client := New(Config{GatewayURL: server.wsURL()}, logging.NewTo(io.Discard))
	resp, err := client.SendTranscript(context.Background(), "sess-1", "turn-1", "What is the weather today")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "AI response to: What is the weather today" {
		t.Fatalf("text = %q", resp.Text)
	}
}

func TestSendTranscriptAccumulatesDeltasThenFinal(t *testing.T) {
	server := newMockAgentServer(t, func(message string) []chatEventPayload {
		return []chatEventPayload{
			textEvent("delta", "Hello"),
			textEvent("delta", " world"),
			textEvent("final", ""),
		}
	})
	defer server.Close()

	client := New(Config{GatewayURL: server.wsURL()}, logging.NewTo(io.Discard))
	resp, err := client.SendTranscript(context.Background(), "sess-1", "turn-1", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "Hello world" {
		t.Fatalf("text = %q, want accumulated delta text", resp.Text)
	}
}

func TestSendTranscriptAbortedWithEmptyTextRejects(t *testing.T) {
	server := newMockAgentServer(t, func(message string) []chatEventPayload {
		return []chatEventPayload{textEvent("aborted", "")}
	})
	defer server.Close()

	client := New(Config{GatewayURL: server.wsURL()}, logging.NewTo(io.Discard))
	_, err := client.SendTranscript(context.Background(), "sess-1", "turn-1", "hi")
	if err == nil {
		t.Fatal("expected an error for aborted turn with no accumulated text")
	}
}

func TestFrameFramingRegression(t *testing.T) {
	server := newMockAgentServer(t, func(message string) []chatEventPayload {
		return []chatEventPayload{textEvent("final", "ok")}
	})
	defer server.Close()

	client := New(Config{GatewayURL: server.wsURL()}, logging.NewTo(io.Discard))
	if _, err := client.SendTranscript(context.Background(), "sess-1", "turn-1", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(server.sentFrames) < 2 {
		t.Fatalf("expected at least 2 frames sent, got %d", len(server.sentFrames))
	}
	for _, f := range server.sentFrames {
		if f["type"] != "req" {
			t.Errorf("frame type = %v, want req", f["type"])
		}
		if id, _ := f["id"].(string); id == "" {
			t.Error("frame id is empty")
		}
		if method, _ := f["method"].(string); method == "" {
			t.Error("frame method is empty")
		}
		for _, forbidden := range []string{"sessionKey", "turnId", "text", "timestamp"} {
			if _, present := f[forbidden]; present {
				t.Errorf("frame contains forbidden top-level key %q", forbidden)
			}
		}
	}
	if server.sentFrames[0]["method"] != "connect" {
		t.Errorf("first frame method = %v, want connect", server.sentFrames[0]["method"])
	}
	if server.sentFrames[1]["method"] != "chat.send" {
		t.Errorf("second frame method = %v, want chat.send", server.sentFrames[1]["method"])
	}
}

func TestDisconnectRejectsPendingTurns(t *testing.T) {
	// Server accepts connect but never answers chat.send, so the turn
	// stays pending until we forcibly close the connection.
	mux := http.NewServeMux()
	var conn *websocket.Conn
	connected := make(chan struct{})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		c, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn = c
		go func() {
			for {
				_, data, err := c.ReadMessage()
				if err != nil {
					return
				}
				var frame map[string]any
				if json.Unmarshal(data, &frame) != nil {
					continue
				}
				if frame["method"] == "connect" {
					id, _ := frame["id"].(string)
					reply := map[string]any{"type": "res", "id": id, "ok": true, "payload": map[string]any{"type": "hello-ok"}}
					raw, _ := json.Marshal(reply)
					_ = c.WriteMessage(websocket.TextMessage, raw)
					close(connected)
				}
			}
		}()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(Config{GatewayURL: "ws" + strings.TrimPrefix(srv.URL, "http"), ResponseTimeoutMs: 60000}, logging.NewTo(io.Discard))

	resultCh := make(chan error, 1)
	go func() {
		_, err := client.SendTranscript(context.Background(), "sess-1", "turn-1", "hi")
		resultCh <- err
	}()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw connect")
	}
	time.Sleep(100 * time.Millisecond) // let chat.send register its pending turn
	_ = conn.Close()

	select {
	case err := <-resultCh:
		if err == nil {
			t.Fatal("expected pending turn to be rejected on disconnect")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending turn was never rejected after disconnect")
	}
}
