package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docketly/docketly-api/models"
)

// State is the session controller's connection state
type State int32

// Session states. Transitions are driven exclusively by transport lifecycle
// callbacks: Idle -> Connecting on Connect, Connecting -> Connected on open,
// any -> Disconnected on close or open failure.
const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Notifier is the user-visible notification surface for connection lifecycle
// signals. These are UX signals, not protocol guarantees.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type logNotifier struct {
	log *zap.SugaredLogger
}

func (n logNotifier) Success(msg string) { n.log.Infow("collab", "notice", msg) }
func (n logNotifier) Error(msg string)   { n.log.Warnw("collab", "notice", msg) }

// TransportFactory builds the transport for one connection attempt
type TransportFactory func(h Handler) Transport

// Session coordinates one live collaboration channel per open document: it
// owns the transport and the roster, relays inbound events to bus
// subscribers, and degrades to Disconnected on channel loss. Only one session
// is active per controller; a second Connect tears down the first.
type Session struct {
	baseURL  string
	factory  TransportFactory
	notifier Notifier
	log      *zap.SugaredLogger
	now      func() time.Time

	mu          sync.Mutex
	state       State
	epoch       int
	documentID  string
	currentUser *models.Participant
	transport   Transport

	roster *Roster
	bus    *Bus
}

// SessionOption customizes a Session
type SessionOption func(*Session)

// WithNotifier routes user-visible connection notices to n
func WithNotifier(n Notifier) SessionOption {
	return func(s *Session) { s.notifier = n }
}

// WithTransportFactory overrides the transport construction, used by tests
// and alternative channel implementations
func WithTransportFactory(f TransportFactory) SessionOption {
	return func(s *Session) { s.factory = f }
}

// WithLogger overrides the session logger
func WithLogger(log *zap.SugaredLogger) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession creates a session controller for the collaboration channel
// rooted at baseURL (the document id is appended per connection).
func NewSession(baseURL string, opts ...SessionOption) *Session {
	s := &Session{
		baseURL: baseURL,
		log:     zap.S(),
		now:     time.Now,
		state:   StateIdle,
		roster:  NewRoster(),
		bus:     NewBus(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = logNotifier{log: s.log}
	}
	if s.factory == nil {
		s.factory = func(h Handler) Transport { return NewWebSocketTransport(h) }
	}
	return s
}

// Connect tears down any existing session and opens a new channel for
// documentID. It returns immediately after issuing the open request; the
// connected transition happens asynchronously when the transport reports
// open, at which point a user_joined event carrying user is sent. Connection
// failures surface through the notifier, never as a panic.
func (s *Session) Connect(ctx context.Context, documentID string, user models.Participant) error {
	if documentID == "" {
		return fmt.Errorf("documentID is required")
	}
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}

	s.mu.Lock()
	if s.transport != nil {
		old := s.transport
		s.transport = nil
		s.mu.Unlock()
		old.Close()
		s.mu.Lock()
	}
	s.epoch++
	epoch := s.epoch
	s.state = StateConnecting
	s.documentID = documentID
	u := user
	s.currentUser = &u
	s.roster.Clear()

	h := &sessionHandler{s: s, epoch: epoch}
	t := s.factory(h)
	s.transport = t
	s.mu.Unlock()

	url := s.baseURL + "/" + documentID
	go func() {
		if err := t.Open(ctx, url); err != nil {
			s.mu.Lock()
			stale := s.epoch != epoch
			if !stale {
				s.state = StateDisconnected
			}
			s.mu.Unlock()
			if !stale {
				s.log.Warnw("collab connect failed", "documentId", documentID, "error", err)
				s.notifier.Error("Could not connect to the collaboration session")
			}
		}
	}()
	return nil
}

// Disconnect tears down the session, whether the channel is open or still
// being established. Calling it when already disconnected is a no-op. The
// epoch moves forward so callbacks from the abandoned connection, including
// a dial that resolves after teardown, are discarded.
func (s *Session) Disconnect() {
	s.mu.Lock()
	t := s.transport
	if t == nil {
		s.mu.Unlock()
		return
	}
	s.epoch++
	s.state = StateDisconnected
	s.transport = nil
	documentID := s.documentID
	s.mu.Unlock()

	s.roster.Clear()
	t.Close()
	s.log.Infow("collab session disconnected", "documentId", documentID)
}

// SendEvent stamps the local user id and the current time onto an event of
// the given type and transmits it. Calls made without a connected session and
// a current user are dropped without error: stray UI events fired before the
// connection completes must stay quiet.
func (s *Session) SendEvent(typ models.CollabEventType, payload interface{}) bool {
	s.mu.Lock()
	state := s.state
	user := s.currentUser
	t := s.transport
	s.mu.Unlock()

	if state != StateConnected || user == nil || t == nil {
		s.log.Debugw("collab send dropped", "type", typ, "state", state.String())
		return false
	}

	ev, err := models.NewCollabEvent(typ, payload)
	if err != nil {
		s.log.Debugw("collab send dropped", "type", typ, "error", err)
		return false
	}
	ev.UserID = user.ID
	ev.Timestamp = s.now()
	return t.Send(ev)
}

// SendCursor broadcasts the local cursor position
func (s *Session) SendCursor(x, y float64) bool {
	return s.SendEvent(models.CollabCursorMove, models.CursorPosition{X: x, Y: y})
}

// OnEvent registers a consumer for every inbound event. The returned function
// removes exactly that registration.
func (s *Session) OnEvent(fn EventFunc) func() {
	return s.bus.Subscribe(fn)
}

// IsConnected reports whether the channel is currently open
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DocumentID returns the document bound to the current session, if any
func (s *Session) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentID
}

// CurrentUser returns the local participant set by Connect
func (s *Session) CurrentUser() (models.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentUser == nil {
		return models.Participant{}, false
	}
	return *s.currentUser, true
}

// Roster returns a snapshot of the remote participants in join order. The
// local user is tracked separately and never appears here.
func (s *Session) Roster() []models.Participant {
	return s.roster.Snapshot()
}

// Cursors projects the current roster into render-ready remote cursors
func (s *Session) Cursors() []RemoteCursor {
	s.mu.Lock()
	localID := ""
	if s.currentUser != nil {
		localID = s.currentUser.ID
	}
	s.mu.Unlock()
	return ProjectCursors(s.roster.Snapshot(), localID)
}

// sessionHandler routes transport callbacks for one connection epoch.
// Callbacks from a torn-down transport are ignored.
type sessionHandler struct {
	s     *Session
	epoch int
}

func (h *sessionHandler) stale() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.epoch != h.epoch
}

func (h *sessionHandler) OnOpen() {
	s := h.s
	s.mu.Lock()
	if s.epoch != h.epoch {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	user := *s.currentUser
	t := s.transport
	documentID := s.documentID
	s.mu.Unlock()

	user.LastSeen = s.now()
	ev, err := models.NewCollabEvent(models.CollabUserJoined, user)
	if err == nil {
		ev.UserID = user.ID
		ev.Timestamp = s.now()
		t.Send(ev)
	}

	s.log.Infow("collab session connected", "documentId", documentID, "userId", user.ID)
	s.notifier.Success("Connected to the collaboration session")
}

func (h *sessionHandler) OnMessage(raw []byte) {
	if h.stale() {
		return
	}
	s := h.s

	ev, err := parseEvent(raw)
	if err != nil {
		s.log.Debugw("collab message dropped", "error", err)
		return
	}

	s.mu.Lock()
	localID := ""
	if s.currentUser != nil {
		localID = s.currentUser.ID
	}
	s.mu.Unlock()

	switch ev.Type {
	case models.CollabUserJoined:
		if ev.UserID == localID {
			break
		}
		p, err := ev.Participant()
		if err != nil {
			s.log.Debugw("collab join dropped", "userId", ev.UserID, "error", err)
			return
		}
		if p.ID == "" {
			p.ID = ev.UserID
		}
		s.roster.ApplyJoin(p)
	case models.CollabUserLeft:
		s.roster.ApplyLeave(ev.UserID)
	case models.CollabCursorMove:
		c, err := ev.Cursor()
		if err != nil {
			s.log.Debugw("collab cursor dropped", "userId", ev.UserID, "error", err)
			return
		}
		s.roster.ApplyCursor(ev.UserID, c.X, c.Y)
	}

	// Roster mutation and fan-out both happen for every inbound message;
	// subscribers get best-effort same-tick delivery, not atomicity.
	s.bus.Publish(ev)
}

func (h *sessionHandler) OnClose(err error) {
	s := h.s
	s.mu.Lock()
	if s.epoch != h.epoch {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.transport = nil
	documentID := s.documentID
	s.mu.Unlock()

	s.roster.Clear()
	if err != nil {
		s.log.Warnw("collab session lost", "documentId", documentID, "error", err)
		s.notifier.Error("Collaboration connection lost")
		return
	}
	s.log.Infow("collab session closed", "documentId", documentID)
}

func (h *sessionHandler) OnError(err error) {
	if h.stale() {
		return
	}
	h.s.log.Debugw("collab transport error", "error", err)
}

func parseEvent(raw []byte) (models.CollabEvent, error) {
	var ev models.CollabEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, err
	}
	if !ev.Type.Known() {
		return ev, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return ev, nil
}
