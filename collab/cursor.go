package collab

import (
	"sync"
	"time"

	"github.com/docketly/docketly-api/models"
)

// cursorPalette is the fixed set of colors assigned to remote cursors
var cursorPalette = []string{
	"#E53E3E", // red
	"#3182CE", // blue
	"#38A169", // green
	"#D69E2E", // yellow
	"#805AD5", // purple
	"#DD6B20", // orange
	"#319795", // teal
	"#D53F8C", // pink
}

// RemoteCursor is a render-ready remote participant cursor
type RemoteCursor struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
}

// ProjectCursors maps a roster snapshot to the cursors to draw, excluding the
// local user and participants with no recorded position yet. Color assignment
// is by roster index modulo the palette size; a participant's color can shift
// when membership churn reorders the roster.
func ProjectCursors(roster []models.Participant, localID string) []RemoteCursor {
	out := make([]RemoteCursor, 0, len(roster))
	for i, p := range roster {
		if p.ID == localID || p.Cursor == nil {
			continue
		}
		out = append(out, RemoteCursor{
			ID:    p.ID,
			Name:  p.Name,
			X:     p.Cursor.X,
			Y:     p.Cursor.Y,
			Color: cursorPalette[i%len(cursorPalette)],
		})
	}
	return out
}

// ThrottledCursorSender gates outgoing cursor_move events to at most one per
// MinInterval. The session itself does not throttle; mouse-move handlers that
// would otherwise flood the channel opt in through this.
type ThrottledCursorSender struct {
	Session     *Session
	MinInterval time.Duration

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// DefaultCursorInterval is the default minimum spacing between cursor sends
const DefaultCursorInterval = 50 * time.Millisecond

// NewThrottledCursorSender wraps s with the default interval
func NewThrottledCursorSender(s *Session) *ThrottledCursorSender {
	return &ThrottledCursorSender{
		Session:     s,
		MinInterval: DefaultCursorInterval,
		now:         time.Now,
	}
}

// Move sends the cursor position unless a send happened within MinInterval.
// Returns whether a transmission was attempted.
func (t *ThrottledCursorSender) Move(x, y float64) bool {
	t.mu.Lock()
	if t.now == nil {
		t.now = time.Now
	}
	n := t.now()
	if !t.last.IsZero() && n.Sub(t.last) < t.MinInterval {
		t.mu.Unlock()
		return false
	}
	t.last = n
	t.mu.Unlock()

	return t.Session.SendCursor(x, y)
}
