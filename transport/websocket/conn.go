package websocket

import (
	"context"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
)

// conn serializes writes to a gorilla connection, which supports one
// concurrent writer.
type conn struct {
	ws   *gorilla.Conn
	mu   sync.Mutex
	once sync.Once
	done chan struct{}
}

func newConn(ws *gorilla.Conn) *conn {
	return &conn{ws: ws, done: make(chan struct{})}
}

func (c *conn) write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, _ := ctx.Deadline()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(gorilla.BinaryMessage, data)
}

// readLoop delivers every data frame to fn until the connection fails.
func (c *conn) readLoop(fn func([]byte)) error {
	defer c.close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if fn != nil {
			fn(data)
		}
	}
}

func (c *conn) close() {
	c.once.Do(func() {
		_ = c.ws.WriteControl(gorilla.CloseMessage,
			gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.ws.Close()
		close(c.done)
	})
}

func isNormalClose(err error) bool {
	return gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway)
}

// port is a keep-alive socket seen from either side.
type port struct {
	name string
	c    *conn
}

func (p *port) Name() string          { return p.name }
func (p *port) Done() <-chan struct{} { return p.c.done }

func (p *port) Close() error {
	p.c.close()
	return nil
}
