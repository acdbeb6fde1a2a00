package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConnection means the transport could not be opened.
	ErrConnection = errors.New("connection failed")
	// ErrProtocolTimeout means the remote went quiet for longer than allowed.
	ErrProtocolTimeout = errors.New("protocol timeout")
	// ErrServer means the transport reported an error while the session was running.
	ErrServer = errors.New("server error")
	// ErrMalformedEnvelope is reported (never returned) for text frames that are not envelopes.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrInvalidPlayer     = errors.New("player id must not be empty")
	ErrAlreadyStarted    = errors.New("session already started")
)

type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: dial %s: %v", ErrConnection, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}

type ProtocolTimeout struct {
	Wait time.Duration
	// Session is set when the overall session deadline expired rather than
	// a single receive.
	Session bool
}

func (e *ProtocolTimeout) Error() string {
	if e.Session {
		return fmt.Sprintf("%s: session did not finish within %s", ErrProtocolTimeout, e.Wait)
	}
	return fmt.Sprintf("%s: no message within %s", ErrProtocolTimeout, e.Wait)
}

func (e *ProtocolTimeout) Unwrap() error {
	return ErrProtocolTimeout
}

type ServerError struct {
	Err error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %v", ErrServer, e.Err)
}

func (e *ServerError) Unwrap() []error {
	return []error{ErrServer, e.Err}
}
