package ggk

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelNameIndex is a NameIndex which stores the name -> entries mapping in
// leveldb, for runs where the merged dataset is too large to index
// comfortably in memory.
type LevelNameIndex struct {
	mu sync.Mutex
	db *leveldb.DB
}

type Errors []error

func (errs Errors) Error() string {
	errstrings := make([]string, len(errs))
	for i, err := range errs {
		errstrings[i] = err.Error()
	}
	return strings.Join(errstrings, "; ")
}

// NewLevelNameIndex opens (creating if necessary) a leveldb-backed index in
// dirname.
func NewLevelNameIndex(dirname string) (*LevelNameIndex, error) {
	err := os.MkdirAll(dirname, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	db, err := leveldb.OpenFile(dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname)
	}
	return &LevelNameIndex{db: db}, nil
}

// Add registers id under the normalized name, preserving insertion order.
// Re-adding an id is a no-op, so an index left over from an earlier run stays
// usable.
func (x *LevelNameIndex) Add(norm, id string, placeholder bool) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	entries, err := x.lookup(norm)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.ID == id {
			return nil
		}
	}
	entries = append(entries, NameEntry{ID: id, Placeholder: placeholder})
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "marshaling entries")
	}
	err = x.db.Put([]byte(norm), data, nil)
	return errors.Wrapf(err, "writing '%v'", norm)
}

// Lookup returns every entry registered under the normalized name.
func (x *LevelNameIndex) Lookup(norm string) ([]NameEntry, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.lookup(norm)
}

func (x *LevelNameIndex) lookup(norm string) ([]NameEntry, error) {
	data, err := x.db.Get([]byte(norm), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading '%v'", norm)
	}
	var entries []NameEntry
	err = json.Unmarshal(data, &entries)
	if err != nil {
		return nil, errors.Wrapf(err, "unmarshaling entries at '%v'", norm)
	}
	return entries, nil
}

// Close closes the underlying db.
func (x *LevelNameIndex) Close() error {
	return errors.Wrap(x.db.Close(), "closing leveldb")
}
