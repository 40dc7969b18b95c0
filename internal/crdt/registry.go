package crdt

import "sync"

// Registry owns one Doc per room, created on first access and evicted when
// the room's session ends.
type Registry struct {
	mu           sync.Mutex
	docs         map[string]*Doc
	engine       Engine
	compactAfter int
}

// NewRegistry builds a registry around engine. When a document's update log
// grows past compactAfter entries it is coalesced into a single full-state
// frame; compactAfter <= 0 disables compaction.
func NewRegistry(engine Engine, compactAfter int) *Registry {
	return &Registry{
		docs:         make(map[string]*Doc),
		engine:       engine,
		compactAfter: compactAfter,
	}
}

// GetOrCreate returns the room's document, reporting whether it was freshly
// created.
func (r *Registry) GetOrCreate(roomID string) (*Doc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.docs[roomID]; ok {
		return d, false
	}
	d := &Doc{}
	r.docs[roomID] = d
	return d, true
}

// Seed loads a persisted full state into a still-empty document.
func (r *Registry) Seed(roomID string, state []byte) {
	d, _ := r.GetOrCreate(roomID)
	d.seed(state)
}

// Apply merges an update blob into the room's document.
func (r *Registry) Apply(roomID string, update []byte) error {
	d, _ := r.GetOrCreate(roomID)
	if err := r.engine.ApplyUpdate(d, update); err != nil {
		return err
	}
	if r.compactAfter > 0 && d.logLen() > r.compactAfter {
		d.compact()
	}
	return nil
}

// FullState encodes the room's document from scratch. Returns nil when no
// document exists.
func (r *Registry) FullState(roomID string) []byte {
	r.mu.Lock()
	d, ok := r.docs[roomID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return r.engine.EncodeFullState(d)
}

func (r *Registry) Delete(roomID string) {
	r.mu.Lock()
	delete(r.docs, roomID)
	r.mu.Unlock()
}

// RoomIDs snapshots the rooms that currently hold a document.
func (r *Registry) RoomIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	return ids
}
