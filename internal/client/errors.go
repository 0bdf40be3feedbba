package client

import "errors"

var (
	// ErrNotConnected is returned when a send is attempted while the
	// connection is not in the Connected state.
	ErrNotConnected = errors.New("not connected")
	// ErrEmptyContent is returned when the outbound content is empty after
	// trimming.
	ErrEmptyContent = errors.New("message content is empty")
	// ErrContentTooLong is returned when the outbound content exceeds
	// MaxContentLength.
	ErrContentTooLong = errors.New("message content exceeds maximum length")
	// ErrSendBufferFull is returned when the outbound queue cannot accept
	// another frame.
	ErrSendBufferFull = errors.New("send buffer is full")
	// ErrSessionStopped is returned for commands issued after the session
	// loop has exited.
	ErrSessionStopped = errors.New("session stopped")
)
