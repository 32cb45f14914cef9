package mfc

import (
	"sync"
	"sync/atomic"

	"github.com/opencryo/go-mfc/logger"
)

// ConnState represents the lifecycle stage of a device handle.
type ConnState uint32

// Device handle states.
const (
	// DisconnectedState indicates that no transport connection exists.
	DisconnectedState ConnState = iota
	// ConnectingState indicates that Initialize is establishing the
	// transport connection.
	ConnectingState
	// ConnectedState indicates that the handle is ready for device
	// operations.
	ConnectedState
)

// IsDisconnected returns if the current state is disconnected.
func (cs ConnState) IsDisconnected() bool { return cs == DisconnectedState }

// IsConnecting returns if the current state is connecting.
func (cs ConnState) IsConnecting() bool { return cs == ConnectingState }

// IsConnected returns if the current state is connected.
func (cs ConnState) IsConnected() bool { return cs == ConnectedState }

// String returns string representation of the current state.
func (cs ConnState) String() string {
	switch cs {
	case DisconnectedState:
		return "disconnected"
	case ConnectingState:
		return "connecting"
	case ConnectedState:
		return "connected"
	default:
		return "unknown"
	}
}

// ConnStateChangeHandler is invoked when the state of a device handle
// changes.
//
// Note: handlers run synchronously under the state manager's lock. Take care
// with long-running implementations.
type ConnStateChangeHandler func(prevState ConnState, newState ConnState)

// ConnStateMgr manages the connection state of one device handle.
//
// It provides methods for the legal state transitions and notifies
// registered handlers of state changes. Transitions are safe for concurrent
// use.
type ConnStateMgr struct {
	mu       sync.Mutex
	state    atomic.Uint32
	logger   logger.Logger
	handlers []ConnStateChangeHandler
}

// NewConnStateMgr creates a ConnStateMgr initialized to DisconnectedState.
//
// It accepts optional ConnStateChangeHandler functions that will be invoked
// when the connection state changes. A nil log falls back to the package
// default logger.
func NewConnStateMgr(log logger.Logger, handlers ...ConnStateChangeHandler) *ConnStateMgr {
	if log == nil {
		log = logger.GetLogger()
	}

	cs := &ConnStateMgr{
		logger:   log,
		handlers: make([]ConnStateChangeHandler, 0, len(handlers)),
	}
	cs.handlers = append(cs.handlers, handlers...)
	cs.state.Store(uint32(DisconnectedState))

	return cs
}

// State returns the current connection state.
func (cs *ConnStateMgr) State() ConnState {
	return ConnState(cs.state.Load())
}

// AddHandler adds one or more ConnStateChangeHandler functions to be invoked
// on state changes.
func (cs *ConnStateMgr) AddHandler(handlers ...ConnStateChangeHandler) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.handlers = append(cs.handlers, handlers...)
}

// ToConnecting transitions the handle to ConnectingState.
//
// This transition is only allowed from DisconnectedState. If the state is
// already ConnectingState, the function is a no-op.
//
// Returns nil on success, or ErrInvalidTransition otherwise.
func (cs *ConnStateMgr) ToConnecting() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	curState := cs.State()

	if curState.IsConnecting() {
		return nil
	}
	if !curState.IsDisconnected() {
		return ErrInvalidTransition
	}

	cs.setState(ConnectingState)
	cs.invokeHandlers(curState, ConnectingState)

	return nil
}

// ToConnected transitions the handle to ConnectedState.
//
// This transition is only allowed from ConnectingState. If the state is
// already ConnectedState, the function is a no-op.
//
// Returns nil on success, or ErrInvalidTransition otherwise.
func (cs *ConnStateMgr) ToConnected() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	curState := cs.State()

	if curState.IsConnected() {
		return nil
	}
	if !curState.IsConnecting() {
		return ErrInvalidTransition
	}

	cs.setState(ConnectedState)
	cs.invokeHandlers(curState, ConnectedState)

	return nil
}

// ToDisconnected transitions the handle to DisconnectedState.
// This transition is allowed from any state and represents a disconnection
// or a failed connection attempt.
func (cs *ConnStateMgr) ToDisconnected() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	curState := cs.State()

	if curState.IsDisconnected() {
		return
	}

	cs.setState(DisconnectedState)
	cs.invokeHandlers(curState, DisconnectedState)
}

func (cs *ConnStateMgr) setState(state ConnState) {
	cs.state.Store(uint32(state))
}

func (cs *ConnStateMgr) invokeHandlers(prevState ConnState, newState ConnState) {
	cs.logger.Debug("connection state changed", "prev_state", prevState, "new_state", newState)
	for _, handler := range cs.handlers {
		handler(prevState, newState)
	}
}
