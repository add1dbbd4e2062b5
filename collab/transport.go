package collab

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/docketly/docketly-api/models"
)

// DefaultDialTimeout bounds how long Open waits for the channel to come up.
// An open request that never resolves must not leave the session in a
// connecting limbo forever.
const DefaultDialTimeout = 10 * time.Second

// Handler receives transport lifecycle callbacks. OnMessage is invoked from
// the read goroutine in wire order; OnClose fires exactly once per opened
// channel.
type Handler interface {
	OnOpen()
	OnMessage(raw []byte)
	OnClose(err error)
	OnError(err error)
}

// Transport owns one bidirectional message channel scoped to a single
// document. Send is fire-and-forget: events offered while the channel is not
// open are dropped, never queued.
type Transport interface {
	Open(ctx context.Context, url string) error
	Send(event models.CollabEvent) bool
	Close()
}

// WebSocketTransport is the gorilla/websocket implementation of Transport
type WebSocketTransport struct {
	DialTimeout time.Duration

	handler Handler
	log     *zap.SugaredLogger

	mu        sync.Mutex
	conn      *websocket.Conn
	open      bool
	closed    bool
	closeOnce *sync.Once
}

// NewWebSocketTransport creates a transport that reports lifecycle events to
// handler
func NewWebSocketTransport(handler Handler) *WebSocketTransport {
	return &WebSocketTransport{
		DialTimeout: DefaultDialTimeout,
		handler:     handler,
		log:         zap.S(),
	}
}

// Open dials url and starts the read loop. The dial is bounded by
// DialTimeout. Opening an already-open transport closes the previous channel
// first.
func (t *WebSocketTransport) Open(ctx context.Context, url string) error {
	t.Close()

	t.mu.Lock()
	t.closed = false
	t.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, t.DialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		t.handler.OnError(err)
		return err
	}

	t.mu.Lock()
	if t.closed {
		// Close ran while the dial was in flight; the channel must not
		// come up after teardown was requested
		t.mu.Unlock()
		_ = conn.Close()
		t.handler.OnClose(nil)
		return nil
	}
	t.conn = conn
	t.open = true
	t.closeOnce = &sync.Once{}
	once := t.closeOnce
	t.mu.Unlock()

	t.handler.OnOpen()
	go t.readLoop(conn, once)
	return nil
}

// Send transmits event when the channel is open; otherwise the event is
// silently dropped. Returns whether a transmission was attempted.
func (t *WebSocketTransport) Send(event models.CollabEvent) bool {
	t.mu.Lock()
	conn := t.conn
	open := t.open
	t.mu.Unlock()

	if !open || conn == nil {
		return false
	}

	if err := conn.WriteJSON(event); err != nil {
		t.log.Debugw("collab transport write failed", "error", err)
		t.handler.OnError(err)
		return false
	}
	return true
}

// Close requests channel shutdown. The closed confirmation arrives through
// the handler's OnClose callback. Closing while a dial is still in flight
// marks the transport closed so the resolving connection is discarded.
// Safe to call repeatedly.
func (t *WebSocketTransport) Close() {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	once := t.closeOnce
	t.mu.Unlock()

	if conn == nil {
		return
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()
	t.fireClose(conn, once, nil)
}

func (t *WebSocketTransport) readLoop(conn *websocket.Conn, once *sync.Once) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeErr := err
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				closeErr = nil
			}
			t.fireClose(conn, once, closeErr)
			return
		}
		t.handler.OnMessage(raw)
	}
}

func (t *WebSocketTransport) fireClose(conn *websocket.Conn, once *sync.Once, err error) {
	if once == nil {
		return
	}
	once.Do(func() {
		t.mu.Lock()
		if t.conn == conn {
			t.conn = nil
			t.open = false
		}
		t.mu.Unlock()
		_ = conn.Close()
		t.handler.OnClose(err)
	})
}
