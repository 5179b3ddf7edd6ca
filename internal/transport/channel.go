// package transport carries the real-time leg of a course creation session:
// one outbound start_creation command and a stream of inbound signals.
package transport

import (
	"context"

	"github.com/desertthunder/coursex/internal/models"
)

// SignalKind identifies what a [Signal] reports.
type SignalKind int

const (
	SignalConnected SignalKind = iota
	SignalDisconnected
	SignalConnectError
	SignalSessionUpdate
	SignalProtocolError
)

func (k SignalKind) String() string {
	switch k {
	case SignalConnected:
		return "connected"
	case SignalDisconnected:
		return "disconnected"
	case SignalConnectError:
		return "connect_error"
	case SignalSessionUpdate:
		return "session_update"
	case SignalProtocolError:
		return "protocol_error"
	default:
		return "unknown"
	}
}

// Signal is one inbound event from the channel.
//
// Reason is set for connect_error and disconnected, Update for session_update
// and Error for protocol_error.
type Signal struct {
	Kind   SignalKind
	Reason string
	Update *models.SessionUpdate
	Error  *models.ProtocolError
}

// Channel is a bidirectional, event-oriented connection to the course creation backend.
//
// Connect never returns an error: failures arrive as [SignalConnectError].
// After Disconnect the signal stream is closed and nothing more is delivered.
type Channel interface {
	Connect(ctx context.Context)
	SendStart(cmd models.StartCreation) error
	Signals() <-chan Signal
	Disconnect()
}

func connectedSignal() Signal { return Signal{Kind: SignalConnected} }

func disconnectedSignal(reason string) Signal {
	return Signal{Kind: SignalDisconnected, Reason: reason}
}

func connectErrorSignal(reason string) Signal {
	return Signal{Kind: SignalConnectError, Reason: reason}
}

func sessionUpdateSignal(u models.SessionUpdate) Signal {
	return Signal{Kind: SignalSessionUpdate, Update: &u}
}

func protocolErrorSignal(e models.ProtocolError) Signal {
	return Signal{Kind: SignalProtocolError, Error: &e}
}
