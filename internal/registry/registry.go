// Package registry maps session identifiers to their vector indices. The
// registry is the only shared mutable state in the process; it is created
// explicitly at startup, passed into request handling, and cleared only at
// process shutdown.
package registry

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/kotae/internal/apperr"
	"github.com/hyperjump/kotae/internal/vector"
)

// Registry holds one vector index per session id. Entries are created lazily
// on first ingestion and never implicitly deleted. Insertion order is kept so
// snapshots (and the combined merge view built from them) are stable.
type Registry struct {
	dimensions int
	mu         sync.RWMutex
	indices    map[string]*vector.Index
	order      []string
}

// New creates an empty registry for indices of the given embedding dimension.
func New(dimensions int) (*Registry, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Registry{
		dimensions: dimensions,
		indices:    make(map[string]*vector.Index),
	}, nil
}

// GetOrCreate returns the index for id, creating and registering an empty one
// if absent. Creation is serialized under the registry mutex, so two racing
// callers always resolve to the same surviving index. Index construction does
// no I/O, so the mutex never spans an external call.
func (r *Registry) GetOrCreate(id string) (*vector.Index, error) {
	if id == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "session id cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.indices[id]; ok {
		return idx, nil
	}
	idx, err := vector.NewIndex(r.dimensions)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create session index", err)
	}
	r.indices[id] = idx
	r.order = append(r.order, id)
	return idx, nil
}

// Get returns the index for id if present. Read-only: no entry is created.
func (r *Registry) Get(id string) (*vector.Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.indices[id]
	return idx, ok
}

// All returns a snapshot of the registered indices in insertion order.
// Concurrent ingestion may add entries after the snapshot is taken, but a
// returned index is always fully constructed.
func (r *Registry) All() []*vector.Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*vector.Index, len(r.order))
	for i, id := range r.order {
		out[i] = r.indices[id]
	}
	return out
}

// IDs returns the registered session ids in insertion order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Save writes every session index to a single file at path. Parent
// directories are created if needed. Layout: session count (4), then per
// session: id length (4), id bytes, encoded index.
func (r *Registry) Save(path string) error {
	if path == "" {
		return nil
	}
	r.mu.RLock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	indices := make([]*vector.Index, len(ids))
	for i, id := range ids {
		indices[i] = r.indices[id]
	}
	r.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(ids))); err != nil {
		return fmt.Errorf("write session count: %w", err)
	}
	for i, id := range ids {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(id))); err != nil {
			return fmt.Errorf("write session id len: %w", err)
		}
		if _, err := bw.WriteString(id); err != nil {
			return fmt.Errorf("write session id: %w", err)
		}
		if err := indices[i].Encode(bw); err != nil {
			return fmt.Errorf("encode session %q: %w", id, err)
		}
	}
	return bw.Flush()
}

// Load reads session indices previously written by Save and replaces the
// registry contents. Loading is a trusted operation: only load files this
// system wrote. If the file does not exist, the registry is left unchanged
// and no error is returned.
func (r *Registry) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	var n uint32
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read session count: %w", err)
	}
	indices := make(map[string]*vector.Index, n)
	order := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(br, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read session id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(br, idBytes); err != nil {
			return fmt.Errorf("read session id: %w", err)
		}
		idx, err := vector.DecodeIndex(br)
		if err != nil {
			return fmt.Errorf("decode session %q: %w", string(idBytes), err)
		}
		if idx.Dimensions() != r.dimensions {
			return fmt.Errorf("session %q dimension mismatch: file has %d, registry expects %d",
				string(idBytes), idx.Dimensions(), r.dimensions)
		}
		indices[string(idBytes)] = idx
		order = append(order, string(idBytes))
	}
	r.mu.Lock()
	r.indices = indices
	r.order = order
	r.mu.Unlock()
	return nil
}
