// Package config holds the session and proxy configuration.
package config

import "time"

const (
	// DefaultReplyTimeout is how long a command waits for the stack's reply.
	DefaultReplyTimeout = 10 * time.Second

	// DefaultPasskeyTimeout is how long the pairing responder waits for a
	// passkey to be displayed before leaving a challenge unanswered.
	DefaultPasskeyTimeout = 15 * time.Second
)

// Configuration describes a general configuration.
type Configuration struct {
	// SocketPath is the unix socket of the IUT stack's RPC server.
	SocketPath string

	// RootCanalAddress is the TCP address of the link-layer controller's
	// test channel. Empty disables dongle selection.
	RootCanalAddress string

	// ReplyTimeout bounds the wait for a single command reply.
	ReplyTimeout time.Duration

	// PasskeyTimeout bounds the pairing responder's wait for a passkey.
	PasskeyTimeout time.Duration
}

// New returns a configuration with the default timeouts.
func New() Configuration {
	return Configuration{
		ReplyTimeout:   DefaultReplyTimeout,
		PasskeyTimeout: DefaultPasskeyTimeout,
	}
}
