// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package cache persists parsed monthly batches in boltdb so reruns are
// strictly incremental: a cached month is loaded verbatim and its
// fetch/extract/parse work skipped entirely.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/fdngraph/ggk"
	"github.com/pkg/errors"
)

var batchBucket = []byte("batches")

// Cache is a boltdb-backed store of parsed monthly batches, keyed by
// (year, month).
type Cache struct {
	Db *bolt.DB
}

// Open opens (creating if necessary) a cache at filename.
func Open(filename string) (*Cache, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(batchBucket)
		return errors.Wrap(err, "creating batch bucket")
	})
	if err != nil {
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return &Cache{Db: db}, nil
}

// Close syncs and closes the underlying db.
func (c *Cache) Close() error {
	err := c.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return c.Db.Close()
}

// Key is the cache key for a monthly batch.
func Key(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Get loads the cached batch for (year, month). The second return is false
// when no batch is cached.
func (c *Cache) Get(year, month int) ([]ggk.FilingRecord, bool, error) {
	var data []byte
	err := c.Db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(batchBucket).Get([]byte(Key(year, month)))
		if v != nil {
			data = append(data, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "reading batch")
	}
	if data == nil {
		return nil, false, nil
	}
	var recs []ggk.FilingRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, false, errors.Wrapf(err, "unmarshaling batch %v", Key(year, month))
	}
	return recs, true, nil
}

// Put stores the batch for (year, month), overwriting any previous entry.
func (c *Cache) Put(year, month int, recs []ggk.FilingRecord) error {
	data, err := json.Marshal(recs)
	if err != nil {
		return errors.Wrap(err, "marshaling batch")
	}
	err = c.Db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(batchBucket).Put([]byte(Key(year, month)), data)
	})
	return errors.Wrapf(err, "writing batch %v", Key(year, month))
}
