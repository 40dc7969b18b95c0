package crdt

import (
	"encoding/binary"
	"errors"
	"sync"
)

var ErrMalformedUpdate = errors.New("malformed update")

// Doc holds the shared document for one room as an ordered log of opaque
// update blobs. The text itself is never materialised server-side; clients
// replay the log.
type Doc struct {
	mu      sync.Mutex
	updates [][]byte
}

// Engine merges update blobs into a Doc and produces full-state encodings.
// The coordinator never inspects blob internals beyond what the engine
// exposes here.
type Engine interface {
	// ApplyUpdate merges one update blob. Structurally invalid bytes fail
	// without mutating the document.
	ApplyUpdate(d *Doc, update []byte) error
	// EncodeFullState returns a single blob equivalent to replaying the
	// document's entire update history from scratch.
	EncodeFullState(d *Doc) []byte
}

// LogEngine is the bundled Engine. An update blob must be a sequence of
// uvarint-length-prefixed segments consuming the blob exactly; the full-state
// encoding is the concatenation of every applied update, which preserves
// replay order.
type LogEngine struct{}

func NewLogEngine() *LogEngine { return &LogEngine{} }

func (e *LogEngine) ApplyUpdate(d *Doc, update []byte) error {
	if err := validateUpdate(update); err != nil {
		return err
	}
	cp := make([]byte, len(update))
	copy(cp, update)

	d.mu.Lock()
	d.updates = append(d.updates, cp)
	d.mu.Unlock()
	return nil
}

func (e *LogEngine) EncodeFullState(d *Doc) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	var n int
	for _, u := range d.updates {
		n += len(u)
	}
	out := make([]byte, 0, n)
	for _, u := range d.updates {
		out = append(out, u...)
	}
	return out
}

// seed replaces an empty log with a previously encoded full state.
func (d *Doc) seed(state []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.updates) == 0 && len(state) > 0 {
		d.updates = [][]byte{state}
	}
}

// compact coalesces the log into a single frame and reports the new length.
func (d *Doc) compact() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.updates) <= 1 {
		return len(d.updates)
	}
	var n int
	for _, u := range d.updates {
		n += len(u)
	}
	merged := make([]byte, 0, n)
	for _, u := range d.updates {
		merged = append(merged, u...)
	}
	d.updates = [][]byte{merged}
	return 1
}

func (d *Doc) logLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.updates)
}

func validateUpdate(update []byte) error {
	if len(update) == 0 {
		return ErrMalformedUpdate
	}
	rest := update
	for len(rest) > 0 {
		size, n := binary.Uvarint(rest)
		if n <= 0 || uint64(len(rest)-n) < size {
			return ErrMalformedUpdate
		}
		rest = rest[n+int(size):]
	}
	return nil
}
