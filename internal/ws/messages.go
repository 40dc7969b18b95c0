package ws

import "encoding/json"

// Envelope wraps every inbound WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "join-room"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// outEnvelope wraps every outbound frame; Body is marshalled in place.
type outEnvelope struct {
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

// fanoutMessage is the cross-instance Redis payload: the already-enveloped
// frame plus the publishing instance, so an instance never re-delivers its
// own broadcasts.
type fanoutMessage struct {
	Origin string          `json:"origin"`
	Frame  json.RawMessage `json:"frame"`
}
