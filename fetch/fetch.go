// Package fetch downloads remote filing archives to local files. A failed or
// truncated download never leaves a partial file behind - later stages may
// assume any file the fetcher produced is complete.
package fetch

import (
	"io"
	"net/http"
	"os"

	"github.com/fdngraph/ggk"
	"github.com/pkg/errors"
)

// ErrNotFound is the cause of errors returned when the remote file does not
// exist - for monthly archives this means "not yet published" and callers
// treat it as an expected skip, not a failure.
var ErrNotFound = errors.New("remote file not found")

// IsNotFound reports whether err was caused by a missing remote file.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// Fetcher streams remote archives to disk with coarse progress reporting.
// Retries are the caller's responsibility.
type Fetcher struct {
	Client *http.Client
	Log    ggk.Logger
	Stats  ggk.Statter

	// ProgressEvery controls how often (in bytes written) coarse progress is
	// logged.
	ProgressEvery int64
}

// NewFetcher returns a Fetcher with default client, logging and stats.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:        http.DefaultClient,
		Log:           ggk.NopLogger{},
		Stats:         ggk.NopStatter{},
		ProgressEvery: 100 << 20,
	}
}

// Download streams url to dest, overwriting any existing file. On any network
// or I/O failure the partial file is deleted and the failure propagated.
// After completion the written byte count is verified against the declared
// content length when one was declared; a mismatch is a failure.
func (f *Fetcher) Download(url, dest string) (n int64, err error) {
	resp, err := f.Client.Get(url)
	if err != nil {
		return 0, errors.Wrapf(err, "getting %v", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return 0, errors.Wrapf(ErrNotFound, "%v", url)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("getting %v: status %v", url, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, errors.Wrapf(err, "creating %v", dest)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dest)
		}
	}()

	n, err = f.copyProgress(out, resp.Body, url)
	if err != nil {
		return 0, errors.Wrapf(err, "streaming %v", url)
	}
	if err = out.Close(); err != nil {
		return 0, errors.Wrapf(err, "closing %v", dest)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		err = errors.Errorf("size mismatch for %v: wrote %d bytes, declared %d", url, n, resp.ContentLength)
		os.Remove(dest)
		return 0, err
	}
	f.Log.Debugf("downloaded %v (%d bytes)", url, n)
	return n, nil
}

func (f *Fetcher) copyProgress(dst io.Writer, src io.Reader, url string) (int64, error) {
	buf := make([]byte, 1<<20)
	var written, lastLogged int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			f.Stats.Count("fetch.bytes", int64(nw), 1)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
			if written-lastLogged >= f.ProgressEvery {
				f.Log.Printf("downloading %v: %d bytes so far", url, written)
				lastLogged = written
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
