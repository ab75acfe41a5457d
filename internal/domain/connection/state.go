// Package connection defines the WhatsApp connection state machine and
// the derived session identity shared by all gateway adapters.
package connection

// State is the normalized connection state of a tenant's WhatsApp
// session. It is derived from gateway polling and never persisted.
type State string

const (
	StateDisconnected State = "disconnected"
	StateWaitingQR    State = "waiting_qr"
	StateConnected    State = "connected"
)

// Status is the result of a gateway status query. Phone and DisplayName
// are only populated when the session is connected and the vendor
// reports them.
type Status struct {
	State       State  `json:"state"`
	Phone       string `json:"phone,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// CanTransition reports whether moving from one state to another is a
// legal edge of the state machine. A connected session never moves
// directly back to waiting_qr; a disconnect must be observed first.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	switch from {
	case StateDisconnected:
		// A poll may observe an already-paired session and jump
		// straight to connected.
		return to == StateWaitingQR || to == StateConnected
	case StateWaitingQR:
		return to == StateConnected || to == StateDisconnected
	case StateConnected:
		return to == StateDisconnected
	}
	return false
}
