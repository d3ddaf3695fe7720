// Package errorkinds defines sentinel errors shared across the module.
package errorkinds

import "errors"

var (
	// ErrSessionClosed is returned when a command is issued on a stopped session.
	ErrSessionClosed = errors.New("session is closed or was never started")

	// ErrReplyTimeout is returned when the stack does not answer a command in time.
	ErrReplyTimeout = errors.New("timed out waiting for a command reply")

	// ErrNoConnection is returned by handlers that require an established connection.
	ErrNoConnection = errors.New("no active connection to the tester")

	// ErrNoChannel is returned by handlers that require an open data channel.
	ErrNoChannel = errors.New("no open data channel")

	// ErrStreamClosed is returned when reading from a closed event stream.
	ErrStreamClosed = errors.New("event stream is closed")

	// ErrUnknownPrompt is returned when no handler is registered for an MMI name.
	ErrUnknownPrompt = errors.New("no handler registered for this prompt")

	// ErrPromptMismatch is returned when an incoming prompt's text does not
	// match the registered reference description.
	ErrPromptMismatch = errors.New("prompt text does not match the registered description")

	// ErrRejectNotObserved is returned by confirmation handlers when the
	// expected rejection was never recorded for the running test.
	ErrRejectNotObserved = errors.New("expected rejection was not recorded for this test")
)
