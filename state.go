package clnet

// State is the connection state of a Client.
// States only move forward within a session; Disconnect resets to StateDisconnected.
type State int

const (
	StateUninitialized State = iota
	StateDisconnected
	StateConnecting
	StateConnected

	// StateActive is entered through EnterWorld once the client
	// simulates the world.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateActive:
		return "active"
	}

	return "unknown"
}
