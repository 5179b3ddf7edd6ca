package transport

import (
	"context"
	"sync"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

// Fake is an in-memory [Channel] for tests. Signals are injected with [Fake.Emit].
type Fake struct {
	// AutoConnect makes Connect report a successful connection immediately.
	AutoConnect bool
	// SendErr, when set, is returned by every SendStart call.
	SendErr error

	mu          sync.Mutex
	signals     chan Signal
	sent        []models.StartCreation
	connects    int
	disconnects int
	connected   bool
	closed      bool
}

// NewFake returns a [Fake] that connects on the first Connect call.
func NewFake() *Fake {
	return &Fake{AutoConnect: true, signals: make(chan Signal, signalBuffer)}
}

// Connect implements [Channel].
func (f *Fake) Connect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.closed || !f.AutoConnect || f.connected {
		return
	}
	f.connected = true
	select {
	case f.signals <- connectedSignal():
	default:
	}
}

// SendStart implements [Channel].
func (f *Fake) SendStart(cmd models.StartCreation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.closed:
		return shared.ErrChannelClosed
	case f.SendErr != nil:
		return f.SendErr
	case !f.connected:
		return shared.ErrNotConnected
	}
	f.sent = append(f.sent, cmd)
	return nil
}

// Signals implements [Channel].
func (f *Fake) Signals() <-chan Signal { return f.signals }

// Disconnect implements [Channel]. Every call is counted; the stream is closed once.
func (f *Fake) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	if f.closed {
		return
	}
	f.closed = true
	f.connected = false
	close(f.signals)
}

// Emit queues s for delivery. It reports false once the fake is closed or its buffer is full.
func (f *Fake) Emit(s Signal) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	switch s.Kind {
	case SignalConnected:
		f.connected = true
	case SignalDisconnected, SignalConnectError:
		f.connected = false
	}
	select {
	case f.signals <- s:
		return true
	default:
		return false
	}
}

// EmitUpdate queues a session_update signal.
func (f *Fake) EmitUpdate(u models.SessionUpdate) bool { return f.Emit(sessionUpdateSignal(u)) }

// EmitProtocolError queues an error event signal.
func (f *Fake) EmitProtocolError(e models.ProtocolError) bool { return f.Emit(protocolErrorSignal(e)) }

// EmitConnectError queues a connect_error signal.
func (f *Fake) EmitConnectError(reason string) bool { return f.Emit(connectErrorSignal(reason)) }

// Sent returns the start commands received so far.
func (f *Fake) Sent() []models.StartCreation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.StartCreation(nil), f.sent...)
}

// Connects returns how many times Connect was called.
func (f *Fake) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// Disconnects returns how many times Disconnect was called.
func (f *Fake) Disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

var _ Channel = (*Fake)(nil)
