package watch

import "encoding/json"

// Message types of the phone<->watch channel. The phone pushes the full
// mirror payload; the watch sends a templateId and blocks on the correlated
// result.
const (
	TypeTemplates    = "templates"
	TypeSendTemplate = "sendTemplate"
	TypeSendResult   = "sendResult"
)

// Envelope is the single wire frame. Payload is set for templates frames,
// RequestID/TemplateID for sendTemplate, RequestID/Success/Error for
// sendResult.
type Envelope struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
	TemplateID string          `json:"templateId,omitempty"`
	Success    bool            `json:"success,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func templatesFrame(payload []byte) ([]byte, error) {
	return json.Marshal(Envelope{Type: TypeTemplates, Payload: payload})
}

func resultFrame(requestID string, sendErr error) ([]byte, error) {
	env := Envelope{Type: TypeSendResult, RequestID: requestID, Success: sendErr == nil}
	if sendErr != nil {
		env.Error = sendErr.Error()
	}
	return json.Marshal(env)
}
