package mfc

import "errors"

var (
	// ErrNotConnected indicates that an operation was invoked before
	// Initialize or after Close.
	ErrNotConnected = errors.New("not connected")

	// ErrConnection indicates that the transport connection could not be
	// established.
	ErrConnection = errors.New("cannot establish connection")

	// ErrProtocol indicates that the transport reported a fault on a
	// register exchange.
	ErrProtocol = errors.New("protocol error")

	// ErrTimeout indicates that no response arrived within the read window.
	ErrTimeout = errors.New("response timeout")

	// ErrParse indicates that a response was received but does not match the
	// expected field shape.
	ErrParse = errors.New("malformed response")

	// ErrIO indicates a lower-level transport fault.
	ErrIO = errors.New("transport I/O error")
)

var (
	// ErrInvalidTransition is returned when an attempt is made to transition
	// the connection state to an invalid state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrDriverExists is returned by Hub.Register when a driver with the
	// same name is already registered.
	ErrDriverExists = errors.New("driver already registered")
)
