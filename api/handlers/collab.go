package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/docketly/docketly-api/api"
	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/models"
)

// CollabHub manages one fan-out room per open document. Every member of a
// room receives every event produced by the other members, in arrival order.
type CollabHub struct {
	jwtSecret string

	mu    sync.Mutex
	rooms map[string]*collabRoom
}

type collabRoom struct {
	documentID string

	mu           sync.Mutex
	members      map[string]*collabMember
	lastActivity time.Time
}

type collabMember struct {
	participant models.Participant

	// writeMu serializes frames to one connection; gorilla allows a single
	// concurrent writer
	writeMu sync.Mutex
	conn    *websocket.Conn
}

// NewCollabHub creates a hub. Connections present a token signed with
// jwtSecret; an empty secret disables token auth and falls back to query
// parameter identity (local development only).
func NewCollabHub(jwtSecret string) *CollabHub {
	return &CollabHub{
		jwtSecret: jwtSecret,
		rooms:     make(map[string]*collabRoom),
	}
}

// ServeWS joins the caller to the document's collaboration room
func (h *CollabHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["document_id"]
	if documentID == "" {
		http.Error(w, "document_id is required", http.StatusBadRequest)
		return
	}

	participant, err := h.identify(r, documentID)
	if err != nil {
		zap.S().Warnw("collab connection rejected", "documentId", documentID, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade failed", "error", err)
		return
	}

	participant.LastSeen = time.Now()
	member := &collabMember{participant: participant, conn: conn}
	room := h.room(documentID)

	room.mu.Lock()
	// a reconnect for the same user replaces the previous channel
	if old, ok := room.members[participant.ID]; ok {
		old.conn.Close()
	}
	room.members[participant.ID] = member
	room.lastActivity = time.Now()
	others := room.othersLocked(participant.ID)
	roster := room.rosterLocked(participant.ID)
	room.mu.Unlock()

	zap.S().Infow("user joined collab room", "documentId", documentID, "userId", participant.ID)

	// announce the newcomer, then replay the current roster to them as
	// individual join events (delivery is at-least-once; the client roster
	// treats re-joins as merges)
	joinEvent, err := models.NewCollabEvent(models.CollabUserJoined, participant)
	if err == nil {
		joinEvent.UserID = participant.ID
		joinEvent.Timestamp = time.Now()
		h.deliver(room, others, joinEvent)
	}
	for _, existing := range roster {
		replay, err := models.NewCollabEvent(models.CollabUserJoined, existing)
		if err != nil {
			continue
		}
		replay.UserID = existing.ID
		replay.Timestamp = time.Now()
		if !member.write(replay) {
			break
		}
	}

	h.readLoop(room, member)
}

// SweepIdleRooms force-closes rooms with no activity for longer than maxIdle
// and returns how many were swept. Guards against rooms leaked by clients
// whose close frames never arrived.
func (h *CollabHub) SweepIdleRooms(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	h.mu.Lock()
	var stale []*collabRoom
	for id, room := range h.rooms {
		room.mu.Lock()
		idle := room.lastActivity.Before(cutoff)
		room.mu.Unlock()
		if idle {
			stale = append(stale, room)
			delete(h.rooms, id)
		}
	}
	h.mu.Unlock()

	for _, room := range stale {
		room.mu.Lock()
		for _, member := range room.members {
			member.conn.Close()
		}
		room.members = make(map[string]*collabMember)
		room.mu.Unlock()
		zap.S().Infow("swept idle collab room", "documentId", room.documentID)
	}
	return len(stale)
}

// RoomCount returns the number of live rooms
func (h *CollabHub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// identify resolves the connecting participant. A signed token is
// authoritative; plain query parameters are accepted only when no secret is
// configured.
func (h *CollabHub) identify(r *http.Request, documentID string) (models.Participant, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := api.ParseCollabToken(h.jwtSecret, token)
		if err != nil {
			return models.Participant{}, err
		}
		if claims.DocumentID != "" && claims.DocumentID != documentID {
			return models.Participant{}, fmt.Errorf("token is scoped to another document")
		}
		return models.Participant{ID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
	}

	if h.jwtSecret != "" {
		return models.Participant{}, fmt.Errorf("missing token")
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		return models.Participant{}, fmt.Errorf("missing userId")
	}
	return models.Participant{
		ID:    userID,
		Name:  r.URL.Query().Get("name"),
		Email: r.URL.Query().Get("email"),
	}, nil
}

func (h *CollabHub) room(documentID string) *collabRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[documentID]
	if !ok {
		room = &collabRoom{
			documentID:   documentID,
			members:      make(map[string]*collabMember),
			lastActivity: time.Now(),
		}
		h.rooms[documentID] = room
	}
	return room
}

func (h *CollabHub) readLoop(room *collabRoom, member *collabMember) {
	userID := member.participant.ID
	for {
		_, raw, err := member.conn.ReadMessage()
		if err != nil {
			h.leave(room, member, err)
			return
		}

		var event models.CollabEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			zap.S().Debugw("dropping malformed collab frame", "documentId", room.documentID, "userId", userID, "error", err)
			continue
		}
		if !event.Type.Known() {
			zap.S().Debugw("dropping collab frame with unknown type", "documentId", room.documentID, "type", event.Type)
			continue
		}

		// identity and time are stamped server-side, never trusted from the
		// payload
		event.UserID = userID
		event.Timestamp = time.Now()

		room.mu.Lock()
		member.participant.LastSeen = event.Timestamp
		room.lastActivity = event.Timestamp
		if event.Type == models.CollabUserJoined {
			if p, err := event.Participant(); err == nil {
				if p.Name != "" {
					member.participant.Name = p.Name
				}
				if p.Email != "" {
					member.participant.Email = p.Email
				}
			}
		}
		others := room.othersLocked(userID)
		room.mu.Unlock()

		h.deliver(room, others, event)
	}
}

// leave removes the member, tells the rest of the room and deletes the room
// when the last member is gone
func (h *CollabHub) leave(room *collabRoom, member *collabMember, cause error) {
	userID := member.participant.ID

	room.mu.Lock()
	if room.members[userID] != member {
		// already replaced by a reconnect; nothing to announce
		room.mu.Unlock()
		member.conn.Close()
		return
	}
	delete(room.members, userID)
	room.lastActivity = time.Now()
	empty := len(room.members) == 0
	others := room.othersLocked(userID)
	room.mu.Unlock()

	member.conn.Close()
	zap.S().Infow("user left collab room", "documentId", room.documentID, "userId", userID, "cause", cause)

	leftEvent, err := models.NewCollabEvent(models.CollabUserLeft, nil)
	if err == nil {
		leftEvent.UserID = userID
		leftEvent.Timestamp = time.Now()
		h.deliver(room, others, leftEvent)
	}

	if empty {
		h.mu.Lock()
		if r, ok := h.rooms[room.documentID]; ok && r == room {
			delete(h.rooms, room.documentID)
		}
		h.mu.Unlock()
	}
}

// deliver writes event to each listed member, evicting any whose channel is
// dead
func (h *CollabHub) deliver(room *collabRoom, members []*collabMember, event models.CollabEvent) {
	for _, m := range members {
		if !m.write(event) {
			h.leave(room, m, fmt.Errorf("write failed"))
		}
	}
}

func (m *collabMember) write(event models.CollabEvent) bool {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := m.conn.WriteJSON(event); err != nil {
		zap.S().Debugw("collab write failed", "userId", m.participant.ID, "error", err)
		return false
	}
	return true
}

// othersLocked returns every member except userID. Callers hold room.mu.
func (r *collabRoom) othersLocked(userID string) []*collabMember {
	out := make([]*collabMember, 0, len(r.members))
	for id, m := range r.members {
		if id == userID {
			continue
		}
		out = append(out, m)
	}
	return out
}

// rosterLocked snapshots the participants except userID. Callers hold room.mu.
func (r *collabRoom) rosterLocked(userID string) []models.Participant {
	out := make([]models.Participant, 0, len(r.members))
	for id, m := range r.members {
		if id == userID {
			continue
		}
		out = append(out, m.participant)
	}
	return out
}

// CollabToken exported for testing purposes
type CollabToken struct {
	Config config.Config
}

// CreateCollabTokenHandler issues a signed token for joining a document's
// collaboration room
func (c CollabToken) CreateCollabTokenHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var body struct {
		UserID     string `json:"userId"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		DocumentID string `json:"documentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if body.UserID == "" || body.DocumentID == "" {
		config.ErrorStatus("userId and documentId are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}

	token, err := api.NewCollabToken(c.Config.JWTSecret, body.UserID, body.Name, body.Email, body.DocumentID, api.DefaultCollabTokenTTL)
	if err != nil {
		config.ErrorStatus("failed to sign collab token", http.StatusInternalServerError, w, err)
		return
	}

	resp := map[string]string{"token": token}
	if c.Config.CollabWSBase != "" {
		resp["url"] = c.Config.CollabWSBase + "/" + body.DocumentID
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
