package ggk

import "sync"

// NameEntry is one organization registered in a NameIndex under a normalized
// name.
type NameEntry struct {
	ID          string `json:"id"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// NameIndex maps normalized organization names to the dataset entries holding
// that name. It backs the entity resolution pass of the DatasetBuilder.
// Implementations must preserve insertion order within a name so that
// tie-breaks stay deterministic.
type NameIndex interface {
	Add(norm, id string, placeholder bool) error
	Lookup(norm string) ([]NameEntry, error)
	Close() error
}

// MapNameIndex is an in-memory NameIndex.
type MapNameIndex struct {
	mu sync.RWMutex
	m  map[string][]NameEntry
}

// NewMapNameIndex returns an empty in-memory index.
func NewMapNameIndex() *MapNameIndex {
	return &MapNameIndex{m: make(map[string][]NameEntry)}
}

// Add registers id under the normalized name.
func (x *MapNameIndex) Add(norm, id string, placeholder bool) error {
	x.mu.Lock()
	x.m[norm] = append(x.m[norm], NameEntry{ID: id, Placeholder: placeholder})
	x.mu.Unlock()
	return nil
}

// Lookup returns every entry registered under the normalized name, in
// insertion order.
func (x *MapNameIndex) Lookup(norm string) ([]NameEntry, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.m[norm], nil
}

// Close is a no-op for the in-memory index.
func (x *MapNameIndex) Close() error { return nil }
