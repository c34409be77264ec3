package transport

import (
	"context"
	"sync"

	lfsm "github.com/looplab/fsm"
)

// lifecycleFSM wraps looplab/fsm around the four-state transport lifecycle
// init -> connecting -> connected -> closed (§4.8's init -> connected ->
// closed, with connecting in between). Grounded on the thin-wrapper
// pattern in dkoosis-cowgnition's internal/fsm package, trimmed to the one
// machine shape every transport needs (no guard conditions, no multi-target
// transitions).
type lifecycleFSM struct {
	mu sync.Mutex
	f  *lfsm.FSM
}

const (
	stateInit       = "init"
	stateConnecting = "connecting"
	stateConnected  = "connected"
	stateClosed     = "closed"
)

func newLifecycleFSM() *lifecycleFSM {
	return &lifecycleFSM{
		f: lfsm.NewFSM(
			stateInit,
			lfsm.Events{
				{Name: "connect", Src: []string{stateInit}, Dst: stateConnecting},
				{Name: "connected", Src: []string{stateConnecting}, Dst: stateConnected},
				{Name: "close", Src: []string{stateInit, stateConnecting, stateConnected}, Dst: stateClosed},
			},
			lfsm.Callbacks{},
		),
	}
}

func (l *lifecycleFSM) toConnecting() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.f.Event(context.Background(), "connect"); err != nil {
		return NewClientError("invalid transport state transition: " + err.Error())
	}
	return nil
}

func (l *lifecycleFSM) toConnected() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Event(context.Background(), "connected")
}

// toClosed returns true the first time it transitions to closed, false on
// any subsequent call (second Close is a no-op per §4.8).
func (l *lifecycleFSM) toClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f.Current() == stateClosed {
		return false
	}
	_ = l.f.Event(context.Background(), "close")
	return true
}

func (l *lifecycleFSM) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Current() == stateClosed
}

func (l *lifecycleFSM) isConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Current() == stateConnected
}
