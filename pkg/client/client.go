// Package client implements the client side of a voice conversation:
// a reconnecting WebSocket connection manager and a playback buffer
// that feeds reply audio into a single-writer sink.
package client

import (
	"errors"
)

var (
	// ErrNotConnected is returned when sending without a live connection.
	ErrNotConnected = errors.New("client: not connected")

	// ErrNoURL is returned when a Conn is created without a server URL.
	ErrNoURL = errors.New("client: no server URL")
)
