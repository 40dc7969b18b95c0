package session

import (
	"encoding/json"
	"hash/fnv"
	"time"
)

// Conn is the handle of one live transport connection.
type Conn interface {
	Send(event string, body any) error
}

// PointSelection is a caret position.
type PointSelection struct {
	Line   int
	Column int
}

// RangeSelection is a highlighted span. Start and End are opaque editor
// positions relayed as-is.
type RangeSelection struct {
	Start json.RawMessage
	End   json.RawMessage
	Text  string
}

// Selection holds either a point or a range, never both.
type Selection struct {
	Point *PointSelection
	Range *RangeSelection
}

// Member is the ephemeral per-room record of one participant. It survives
// reconnects (flipping online/offline) for as long as its room stays active.
// Fields are guarded by the owning ActiveRoom's mutex.
type Member struct {
	conn          Conn
	UserID        string
	DisplayName   string
	Online        bool
	LastCursor    []float64
	LastSelection *Selection
	Color         string
	LastActivity  time.Time
}

var colorPalette = []string{
	"#e06c75", "#61afef", "#98c379", "#c678dd",
	"#d19a66", "#56b6c2", "#be5046", "#e5c07b",
	"#528bff", "#7f848e", "#2bbac5", "#d55fde",
}

// colorFor maps an identity to its display color. Same identity, same color,
// independent of join order.
func colorFor(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return colorPalette[h.Sum32()%uint32(len(colorPalette))]
}
