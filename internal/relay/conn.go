package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrSendClosed is returned when sending to a connection that has shut down.
	ErrSendClosed = errors.New("relay: connection closed")
	// ErrSendBufferFull is returned when a connection's outbound buffer is full.
	ErrSendBufferFull = errors.New("relay: send buffer full")
)

// conn wraps one websocket with a bounded outbound queue. The queue is drained
// by writeLoop, which is the only goroutine that writes to ws.
type conn struct {
	ws           *websocket.Conn
	out          chan []byte
	done         chan struct{}
	writerDone   chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	pingPeriod   time.Duration
}

func newConn(ws *websocket.Conn, buffer int, writeTimeout, pongWait time.Duration) *conn {
	return &conn{
		ws:           ws,
		out:          make(chan []byte, buffer),
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
		writeTimeout: writeTimeout,
		pingPeriod:   pongWait * 9 / 10,
	}
}

// send queues data without blocking.
func (c *conn) send(data []byte) error {
	select {
	case <-c.done:
		return ErrSendClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// shutdown stops the writer. Safe to call more than once.
func (c *conn) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// fail stops the writer and closes the socket so the reader unblocks.
func (c *conn) fail() {
	c.shutdown()
	_ = c.ws.Close()
}

// writeLoop sends queued frames and periodic pings until shutdown or a write fails.
func (c *conn) writeLoop() {
	t := time.NewTicker(c.pingPeriod)
	defer func() {
		t.Stop()
		close(c.writerDone)
	}()

	for {
		select {
		case b := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				c.fail()
				return
			}
		case <-t.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.writeTimeout))
			return
		}
	}
}
