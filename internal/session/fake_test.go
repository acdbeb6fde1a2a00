package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
)

type fakeConn struct {
	frames chan Frame

	mu         sync.Mutex
	sent       [][]byte
	closeCalls int
	closeOnce  sync.Once
	sendErr    error
}

func newFakeConn(frames ...Frame) *fakeConn {
	c := &fakeConn{frames: make(chan Frame, len(frames)+16)}
	for _, f := range frames {
		c.frames <- f
	}
	return c
}

func (c *fakeConn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Frames() <-chan Frame {
	return c.frames
}

// Close acknowledges immediately, like a well behaved peer.
func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closeCalls++
	c.mu.Unlock()
	c.closeOnce.Do(func() {
		close(c.frames)
	})
	return nil
}

func (c *fakeConn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func (c *fakeConn) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

type fakeDialer struct {
	conn *fakeConn
	err  error

	mu     sync.Mutex
	dials  int
	url    string
	header http.Header
}

func (d *fakeDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.url = url
	d.header = header
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func textFrame(v any) Frame {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Frame{Kind: FrameText, Data: data}
}

func htmlFrame(target, html string) Frame {
	return textFrame(map[string]string{
		"type":   "html",
		"target": target,
		"html":   html,
	})
}

func closeFrame() Frame {
	return Frame{Kind: FrameClose, Err: errors.New("close 1000 (normal)")}
}

// newBlockingFakeConn delivers frames only when the session is ready to read
// them, so a send returning means the session picked the frame up.
func newBlockingFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan Frame)}
}
