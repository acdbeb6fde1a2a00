package session

import (
	"context"
	"net/http"
)

type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
	// FrameClose is the remote (or the network) ending the connection, it is
	// an expected way for a session to end.
	FrameClose
	// FrameError is a transport failure.
	FrameError
)

type Frame struct {
	Kind FrameKind
	Data []byte
	Err  error
}

// Conn is a duplex message channel. Inbound frames are delivered in arrival
// order on Frames, which is closed once the connection is gone.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Frames() <-chan Frame
	// Close starts an orderly shutdown, it may be called more than once and
	// from any goroutine.
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}
