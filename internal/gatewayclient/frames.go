package gatewayclient

import "encoding/json"

// Frame kinds. The wire protocol is three JSON object shapes sharing
// a discriminant "type" field, per spec §4.2.
const (
	frameTypeRequest  = "req"
	frameTypeResponse = "res"
	frameTypeEvent    = "event"
)

// requestFrame is what the client sends. params is encoded as raw
// JSON so different methods can carry different param shapes without
// this type knowing about them.
type requestFrame struct {
	Type   string          `json:"type"`
	Id     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// responseFrame is read off the wire in reply to a request. Payload
// is left raw so callers decode it against the shape they expect
// (hello-ok, chat.send ack, ...).
type responseFrame struct {
	Type    string          `json:"type"`
	Id      string          `json:"id"`
	Ok      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *frameError     `json:"error,omitempty"`
}

type frameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// eventFrame is a server-pushed notification. Not correlated by
// request id; correlation is by domain fields inside Payload (runId
// for chat events, none for connect.challenge).
type eventFrame struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Seq     *int64          `json:"seq,omitempty"`
}

// rawFrame is decoded first to dispatch on Type before committing to
// one of the three concrete shapes above.
type rawFrame struct {
	Type string `json:"type"`
}

type connectChallengePayload struct {
	Nonce string `json:"nonce"`
}

type connectClient struct {
	Id          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version"`
	Platform    string `json:"platform"`
	Mode        string `json:"mode"`
}

type connectAuth struct {
	Token string `json:"token,omitempty"`
}

// connectParams is the exact params shape the server schema accepts.
// The server rejects unknown top-level keys, so this struct names
// every field spec §4.2 allows and nothing else — critically, no
// top-level "nonce" field exists here; the backend-auth flow this
// client speaks never sends one.
type connectParams struct {
	MinProtocol int           `json:"minProtocol"`
	MaxProtocol int           `json:"maxProtocol"`
	Client      connectClient `json:"client"`
	Caps        []string      `json:"caps"`
	Role        string        `json:"role"`
	Scopes      []string      `json:"scopes"`
	Auth        *connectAuth  `json:"auth,omitempty"`
}

type helloOkPayload struct {
	Type string `json:"type"`
}

// chatSendParams is the outbound params of the chat.send request.
type chatSendParams struct {
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message"`
	IdempotencyKey string `json:"idempotencyKey"`
	TimeoutMs      int64  `json:"timeoutMs"`
}

type chatSendAckPayload struct {
	Status string `json:"status"` // "started" | "accepted"
}

// chatContentBlock is one element of a message.content array when the
// server sends structured content instead of a plain string.
type chatContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatMessage struct {
	// Content holds the raw JSON so it can be either a string or an
	// array of chatContentBlock; extractChatText resolves it.
	Content json.RawMessage `json:"content"`
}

// chatEventPayload is the payload of a "chat" event frame.
type chatEventPayload struct {
	RunId   string      `json:"runId"`
	State   string      `json:"state"` // delta | final | aborted | error
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// extractChatText resolves message.content, which is either a plain
// string or an array of typed blocks, into plain text. Only blocks of
// type "text" contribute.
func extractChatText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var blocks []chatContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var out string
		for _, b := range blocks {
			if b.Type == "text" {
				out += b.Text
			}
		}
		return out
	}
	return ""
}
