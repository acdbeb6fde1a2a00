package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// time the peer gets to answer a close before the socket is torn down
	closeGrace = 2 * time.Second

	frameBufferSize = 64
)

// WebsocketDialer opens connections with gorilla/websocket.
type WebsocketDialer struct {
	// Heartbeat is the ping interval, 0 disables pings.
	Heartbeat          time.Duration
	HandshakeTimeout   time.Duration
	InsecureSkipVerify bool
}

func (d WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: d.InsecureSkipVerify},
	}

	ws, res, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if res != nil {
			return nil, fmt.Errorf("%w (handshake status %s)", err, res.Status)
		}
		return nil, err
	}
	return newWebsocketConn(ws, d.Heartbeat), nil
}

type websocketConn struct {
	ws       *websocket.Conn
	frames   chan Frame
	done     chan struct{}
	pumpDone chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newWebsocketConn(ws *websocket.Conn, heartbeat time.Duration) *websocketConn {
	c := &websocketConn{
		ws:       ws,
		frames:   make(chan Frame, frameBufferSize),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go c.readPump()
	if heartbeat > 0 {
		go c.pingPump(heartbeat)
	}
	return c
}

func (c *websocketConn) Frames() <-chan Frame {
	return c.frames
}

func (c *websocketConn) deliver(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	case <-c.done:
		return false
	}
}

// readPump is the only reader of the socket.
func (c *websocketConn) readPump() {
	defer close(c.pumpDone)
	defer close(c.frames)

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			frame := Frame{Kind: FrameError, Err: err}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				frame.Kind = FrameClose
			}
			c.deliver(frame)
			return
		}

		frame := Frame{Kind: FrameBinary, Data: data}
		if kind == websocket.TextMessage {
			frame.Kind = FrameText
		}
		if !c.deliver(frame) {
			return
		}
	}
}

func (c *websocketConn) pingPump(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *websocketConn) Send(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > writeWait {
		deadline = time.Now().Add(writeWait)
	}
	err := c.ws.SetWriteDeadline(deadline)
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and lets the read pump pick up the peer's answer,
// the socket itself is torn down once the pump stops or closeGrace passes.
func (c *websocketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		go func() {
			select {
			case <-c.pumpDone:
			case <-time.After(closeGrace):
			}
			close(c.done)
			c.ws.Close()
		}()
	})
	return err
}
