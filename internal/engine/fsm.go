package engine

import (
	"context"
	"sync"

	lfsm "github.com/looplab/fsm"
)

// runFSM wraps looplab/fsm around the Engine run lifecycle from §4.8:
// configured -> running -> completed (or failed on a fatal error during
// handshake). Mirrors internal/transport/fsm.go's thin-wrapper shape.
type runFSM struct {
	mu sync.Mutex
	f  *lfsm.FSM
}

const (
	stateConfigured = "configured"
	stateRunning    = "running"
	stateCompleted  = "completed"
	stateFailed     = "failed"
)

func newRunFSM() *runFSM {
	return &runFSM{
		f: lfsm.NewFSM(
			stateConfigured,
			lfsm.Events{
				{Name: "start", Src: []string{stateConfigured}, Dst: stateRunning},
				{Name: "complete", Src: []string{stateRunning}, Dst: stateCompleted},
				{Name: "fail", Src: []string{stateConfigured, stateRunning}, Dst: stateFailed},
			},
			lfsm.Callbacks{},
		),
	}
}

func (r *runFSM) start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Event(context.Background(), "start")
}

func (r *runFSM) complete() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Event(context.Background(), "complete")
}

func (r *runFSM) fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.f.Event(context.Background(), "fail")
}

func (r *runFSM) current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Current()
}
