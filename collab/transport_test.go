package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docketly/docketly-api/models"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoServer upgrades every request and echoes frames back to the sender
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// collectingHandler implements Handler and records every callback
type collectingHandler struct {
	mu       sync.Mutex
	opened   int
	messages [][]byte
	closes   []error
	closedCh chan struct{}
	openOnce sync.Once
	openedCh chan struct{}
}

func newCollectingHandler() *collectingHandler {
	return &collectingHandler{
		closedCh: make(chan struct{}),
		openedCh: make(chan struct{}),
	}
}

func (h *collectingHandler) OnOpen() {
	h.mu.Lock()
	h.opened++
	h.mu.Unlock()
	h.openOnce.Do(func() { close(h.openedCh) })
}

func (h *collectingHandler) OnMessage(raw []byte) {
	h.mu.Lock()
	h.messages = append(h.messages, raw)
	h.mu.Unlock()
}

func (h *collectingHandler) OnClose(err error) {
	h.mu.Lock()
	h.closes = append(h.closes, err)
	h.mu.Unlock()
	close(h.closedCh)
}

func (h *collectingHandler) OnError(err error) {}

func (h *collectingHandler) messageCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

func TestWebSocketTransport_OpenSendReceiveClose(t *testing.T) {
	srv := echoServer(t)
	h := newCollectingHandler()
	tr := NewWebSocketTransport(h)

	require.NoError(t, tr.Open(context.Background(), wsURL(srv)))
	select {
	case <-h.openedCh:
	case <-time.After(time.Second):
		t.Fatal("transport never reported open")
	}

	ev, err := models.NewCollabEvent(models.CollabCursorMove, models.CursorPosition{X: 3, Y: 7})
	require.NoError(t, err)
	ev.UserID = "u1"
	assert.True(t, tr.Send(ev))

	assert.Eventually(t, func() bool {
		return h.messageCount() == 1
	}, time.Second, 5*time.Millisecond)

	var echoed models.CollabEvent
	h.mu.Lock()
	raw := h.messages[0]
	h.mu.Unlock()
	require.NoError(t, json.Unmarshal(raw, &echoed))
	assert.Equal(t, models.CollabCursorMove, echoed.Type)
	assert.Equal(t, "u1", echoed.UserID)

	tr.Close()
	select {
	case <-h.closedCh:
	case <-time.After(time.Second):
		t.Fatal("transport never reported close")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.closes, 1)
	assert.NoError(t, h.closes[0])
}

func TestWebSocketTransport_SendAfterCloseIsDropped(t *testing.T) {
	srv := echoServer(t)
	h := newCollectingHandler()
	tr := NewWebSocketTransport(h)

	require.NoError(t, tr.Open(context.Background(), wsURL(srv)))
	<-h.openedCh
	tr.Close()
	<-h.closedCh

	ev, err := models.NewCollabEvent(models.CollabUserLeft, nil)
	require.NoError(t, err)
	assert.False(t, tr.Send(ev))
}

func TestWebSocketTransport_OpenFailure(t *testing.T) {
	h := newCollectingHandler()
	tr := NewWebSocketTransport(h)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := tr.Open(ctx, "ws://127.0.0.1:1/ws/collab/doc-1")
	assert.Error(t, err)
	assert.Zero(t, h.opened)
}

func TestWebSocketTransport_CloseDuringDialDiscardsConnection(t *testing.T) {
	dialStarted := make(chan struct{})
	finishUpgrade := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(dialStarted)
		<-finishUpgrade
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	h := newCollectingHandler()
	tr := NewWebSocketTransport(h)

	openDone := make(chan error, 1)
	go func() { openDone <- tr.Open(context.Background(), wsURL(srv)) }()

	// close while the handshake is still held open on the server side
	<-dialStarted
	tr.Close()
	close(finishUpgrade)

	select {
	case err := <-openDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("open never returned")
	}

	select {
	case <-h.closedCh:
	case <-time.After(time.Second):
		t.Fatal("transport never reported close")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Zero(t, h.opened, "a dial resolving after Close must not come up")
	require.Len(t, h.closes, 1)
	assert.NoError(t, h.closes[0])
}

func TestWebSocketTransport_ServerCloseReportsOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	h := newCollectingHandler()
	tr := NewWebSocketTransport(h)
	require.NoError(t, tr.Open(context.Background(), wsURL(srv)))

	select {
	case <-h.closedCh:
	case <-time.After(time.Second):
		t.Fatal("transport never reported close")
	}
	// a Close after the server already went away must not fire OnClose again
	tr.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.closes, 1)
	assert.NoError(t, h.closes[0], "normal closure is not an error")
}

func TestWebSocketTransport_DeliversFramesInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 5; i++ {
			ev, _ := models.NewCollabEvent(models.CollabTextChange, models.TextChange{Version: int64(i)})
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
		// hold the connection open until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	h := newCollectingHandler()
	tr := NewWebSocketTransport(h)
	require.NoError(t, tr.Open(context.Background(), wsURL(srv)))
	defer tr.Close()

	assert.Eventually(t, func() bool {
		return h.messageCount() == 5
	}, time.Second, 5*time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, raw := range h.messages {
		var ev models.CollabEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		change, err := ev.Change()
		require.NoError(t, err)
		assert.Equal(t, int64(i), change.Version)
	}
}
