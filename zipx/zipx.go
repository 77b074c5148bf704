// Package zipx unpacks downloaded filing archives. Bulk government exports
// routinely produce archives with irregular or damaged entries, so extraction
// is tolerant: per-entry failures are collected and reported, and only an
// archive yielding zero files is a hard failure.
package zipx

import (
	"archive/zip"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fdngraph/ggk"
	"github.com/pkg/errors"
)

// Extractor unpacks archives into a destination directory.
type Extractor struct {
	Log ggk.Logger
}

// NewExtractor returns an Extractor which logs nothing.
func NewExtractor() *Extractor {
	return &Extractor{Log: ggk.NopLogger{}}
}

// Extract unpacks every entry of the archive into destDir, returning the
// number of files extracted. Entry failures are logged and skipped; Extract
// returns an error only when no file at all could be extracted.
func (e *Extractor) Extract(archive, destDir string) (int, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return 0, errors.Wrapf(err, "opening archive %v", archive)
	}
	defer r.Close()

	var errs ggk.Errors
	count := 0
	for _, f := range r.File {
		if err := e.extractEntry(f, destDir); err != nil {
			e.Log.Debugf("skipping entry %v: %v", f.Name, err)
			errs = append(errs, errors.Wrapf(err, "entry %v", f.Name))
			continue
		}
		if !f.FileInfo().IsDir() {
			count++
		}
	}
	if count == 0 {
		if len(errs) > 0 {
			return 0, errors.Wrap(errs, "no files extracted")
		}
		return 0, errors.Errorf("archive %v contained no files", archive)
	}
	if len(errs) > 0 {
		e.Log.Printf("extracted %d files from %v with %d entry errors", count, archive, len(errs))
	}
	return count, nil
}

func (e *Extractor) extractEntry(f *zip.File, destDir string) error {
	name := filepath.Clean(f.Name)
	if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
		return errors.Errorf("entry path %v escapes destination", f.Name)
	}
	dest := filepath.Join(destDir, name)
	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrap(err, "making entry directory")
	}
	rc, err := f.Open()
	if err != nil {
		return errors.Wrap(err, "opening entry")
	}
	defer rc.Close()
	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, "creating entry file")
	}
	_, err = io.Copy(out, rc)
	if err != nil {
		out.Close()
		os.Remove(dest)
		return errors.Wrap(err, "copying entry")
	}
	return errors.Wrap(out.Close(), "closing entry file")
}

// FindFilingsDir locates the directory under root that actually contains
// filing documents. Archives nest their payload inconsistently, so the search
// order is: the expected nested path, then root itself, then the first
// subdirectory (in name order) holding .xml files.
func FindFilingsDir(root, nested string) (string, error) {
	if nested != "" {
		dir := filepath.Join(root, nested)
		if hasXMLFiles(dir) {
			return dir, nil
		}
	}
	if hasXMLFiles(root) {
		return root, nil
	}
	infos, err := ioutil.ReadDir(root)
	if err != nil {
		return "", errors.Wrapf(err, "reading %v", root)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		dir := filepath.Join(root, name)
		if hasXMLFiles(dir) {
			return dir, nil
		}
	}
	return "", errors.Errorf("no filing documents found under %v", root)
}

func hasXMLFiles(dir string) bool {
	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, info := range infos {
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".xml") {
			return true
		}
	}
	return false
}

// ListFilings returns the .xml files directly inside dir, sorted by name.
func ListFilings(dir string) ([]string, error) {
	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %v", dir)
	}
	var paths []string
	for _, info := range infos {
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".xml") {
			paths = append(paths, filepath.Join(dir, info.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
