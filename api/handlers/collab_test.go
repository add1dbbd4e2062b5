package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docketly/docketly-api/api"
	"github.com/docketly/docketly-api/api/handlers"
	"github.com/docketly/docketly-api/models"
)

func newCollabServer(t *testing.T, jwtSecret string) (*handlers.CollabHub, *httptest.Server) {
	t.Helper()
	hub := handlers.NewCollabHub(jwtSecret)
	r := mux.NewRouter()
	r.HandleFunc("/ws/collab/{document_id}", hub.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dialCollab(t *testing.T, srv *httptest.Server, documentID, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/collab/" + documentID + "?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.CollabEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event models.CollabEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestCollabHub_JoinReplayAndRelay(t *testing.T) {
	hub, srv := newCollabServer(t, "")

	alice := dialCollab(t, srv, "doc-1", "userId=u1&name=Alice")
	require.Eventually(t, func() bool { return hub.RoomCount() == 1 }, 2*time.Second, 20*time.Millisecond)
	bruno := dialCollab(t, srv, "doc-1", "userId=u2&name=Bruno")

	// alice is told about the newcomer
	joined := readEvent(t, alice)
	assert.Equal(t, models.CollabUserJoined, joined.Type)
	assert.Equal(t, "u2", joined.UserID)
	assert.False(t, joined.Timestamp.IsZero())
	p, err := joined.Participant()
	require.NoError(t, err)
	assert.Equal(t, "Bruno", p.Name)

	// the newcomer gets the current roster replayed
	replay := readEvent(t, bruno)
	assert.Equal(t, models.CollabUserJoined, replay.Type)
	assert.Equal(t, "u1", replay.UserID)
	rp, err := replay.Participant()
	require.NoError(t, err)
	assert.Equal(t, "Alice", rp.Name)

	assert.Equal(t, 1, hub.RoomCount())

	// garbage frames are dropped without closing the channel
	require.NoError(t, bruno.WriteMessage(websocket.TextMessage, []byte("not json")))

	// a forged sender identity is overwritten by the server
	require.NoError(t, bruno.WriteJSON(map[string]interface{}{
		"type":   "cursor_move",
		"userId": "u1",
		"data":   map[string]float64{"x": 120, "y": 480},
	}))

	cursor := readEvent(t, alice)
	assert.Equal(t, models.CollabCursorMove, cursor.Type)
	assert.Equal(t, "u2", cursor.UserID)
	pos, err := cursor.Cursor()
	require.NoError(t, err)
	assert.Equal(t, float64(120), pos.X)
	assert.Equal(t, float64(480), pos.Y)

	// a departure is announced to the rest of the room
	require.NoError(t, bruno.Close())
	left := readEvent(t, alice)
	assert.Equal(t, models.CollabUserLeft, left.Type)
	assert.Equal(t, "u2", left.UserID)

	// the room disappears when the last member leaves
	require.NoError(t, alice.Close())
	assert.Eventually(t, func() bool { return hub.RoomCount() == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestCollabHub_RoomsAreIsolatedByDocument(t *testing.T) {
	_, srv := newCollabServer(t, "")

	alice := dialCollab(t, srv, "doc-1", "userId=u1&name=Alice")
	dialCollab(t, srv, "doc-2", "userId=u2&name=Bruno")

	// a join in another document's room must not reach alice
	alice.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var event models.CollabEvent
	err := alice.ReadJSON(&event)
	assert.Error(t, err)
}

func TestCollabHub_RejectsConnectionWithoutToken(t *testing.T) {
	_, srv := newCollabServer(t, "s3cret")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/collab/doc-1?userId=u1&name=Alice"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCollabHub_AcceptsSignedToken(t *testing.T) {
	_, srv := newCollabServer(t, "s3cret")

	token, err := api.NewCollabToken("s3cret", "u1", "Alice", "alice@firm.test", "doc-1", time.Hour)
	require.NoError(t, err)

	conn := dialCollab(t, srv, "doc-1", "token="+token)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "cursor_move", "data": map[string]float64{"x": 1, "y": 1}}))
}

func TestCollabHub_RejectsTokenScopedToAnotherDocument(t *testing.T) {
	_, srv := newCollabServer(t, "s3cret")

	token, err := api.NewCollabToken("s3cret", "u1", "Alice", "alice@firm.test", "doc-2", time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/collab/doc-1?token=" + token
	_, resp, dialErr := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, dialErr)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCollabHub_SweepIdleRooms(t *testing.T) {
	hub, srv := newCollabServer(t, "")

	conn := dialCollab(t, srv, "doc-1", "userId=u1&name=Alice")
	require.Eventually(t, func() bool { return hub.RoomCount() == 1 }, 2*time.Second, 20*time.Millisecond)

	swept := hub.SweepIdleRooms(0)
	assert.Equal(t, 1, swept)
	assert.Equal(t, 0, hub.RoomCount())

	// the swept member's channel is force-closed
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event models.CollabEvent
	assert.Error(t, conn.ReadJSON(&event))
}
