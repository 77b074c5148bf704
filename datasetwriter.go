package ggk

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// WriteDataset writes ds to path as JSON. The dataset can run to gigabytes,
// so the full serialized text is never held in memory - each Foundation and
// Organization is marshaled and written one at a time between the structural
// punctuation. Keys are written in sorted order so repeat runs over the same
// input produce identical bytes.
//
// The file is written to a temporary sibling and renamed into place, so a
// failed run never publishes a partial dataset.
func WriteDataset(path string, ds *CompleteDataset) (err error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "creating dataset file")
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err = w.WriteString(`{"foundations":{`); err != nil {
		return errors.Wrap(err, "writing header")
	}
	if err = writeEntries(w, foundationKeys(ds), func(k string) (interface{}, bool) {
		v, ok := ds.Foundations[k]
		return v, ok
	}); err != nil {
		return errors.Wrap(err, "writing foundations")
	}
	if _, err = w.WriteString(`},"organizations":{`); err != nil {
		return errors.Wrap(err, "writing separator")
	}
	if err = writeEntries(w, organizationKeys(ds), func(k string) (interface{}, bool) {
		v, ok := ds.Organizations[k]
		return v, ok
	}); err != nil {
		return errors.Wrap(err, "writing organizations")
	}
	if _, err = w.WriteString(`},"metadata":`); err != nil {
		return errors.Wrap(err, "writing separator")
	}
	meta, err := json.Marshal(ds.Meta)
	if err != nil {
		return errors.Wrap(err, "marshaling metadata")
	}
	if _, err = w.Write(meta); err != nil {
		return errors.Wrap(err, "writing metadata")
	}
	if err = w.WriteByte('}'); err != nil {
		return errors.Wrap(err, "writing trailer")
	}
	if err = w.Flush(); err != nil {
		return errors.Wrap(err, "flushing")
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "closing dataset file")
	}
	return errors.Wrap(os.Rename(tmp, path), "renaming dataset file")
}

// writeEntries writes `"key":value` pairs for each key, comma separated,
// marshaling one value at a time.
func writeEntries(w *bufio.Writer, keys []string, get func(string) (interface{}, bool)) error {
	for i, k := range keys {
		v, ok := get(k)
		if !ok {
			continue
		}
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(strconv.Quote(k)); err != nil {
			return err
		}
		if err := w.WriteByte(':'); err != nil {
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "marshaling '%v'", k)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// ReadDataset loads a dataset file written by WriteDataset. Unlike the
// writer, it decodes the whole document at once - it exists for the network
// rebuild path, which needs the full maps in memory anyway.
func ReadDataset(path string) (*CompleteDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening dataset file")
	}
	defer f.Close()
	ds := &CompleteDataset{}
	err = json.NewDecoder(bufio.NewReaderSize(f, 1<<20)).Decode(ds)
	if err != nil {
		return nil, errors.Wrap(err, "decoding dataset")
	}
	return ds, nil
}

func foundationKeys(ds *CompleteDataset) []string {
	keys := make([]string, 0, len(ds.Foundations))
	for k := range ds.Foundations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func organizationKeys(ds *CompleteDataset) []string {
	keys := make([]string, 0, len(ds.Organizations))
	for k := range ds.Organizations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
