package ws

import "encoding/json"

// Message types on the practice socket.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypePong             = "pong"
	TypeExplanationReady = "explanation_ready"
	TypeError            = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a Message of type typ.
func NewMessage(typ string, payload any) (Message, error) {
	msg := Message{Type: typ}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = raw
	return msg, nil
}

// ExplanationReadyPayload tells the client the tutor text for a question is stored.
type ExplanationReadyPayload struct {
	QuestionID  int    `json:"question_id"`
	Explanation string `json:"explanation"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
