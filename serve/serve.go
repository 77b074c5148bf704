// Package serve exposes the derived network document to the display layer.
// The server holds the document in an explicit in-memory cache with a fixed
// expiry and an injected clock, falls back to a bundled local copy when the
// pipeline output is missing, and as a last resort proxies a remote copy. The
// display layer only ever sees one generic failure condition.
package serve

import (
	"crypto/subtle"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fdngraph/ggk"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// Clock abstracts time for cache-expiry tests.
type Clock interface {
	Now() time.Time
}

type stdClock struct{}

func (stdClock) Now() time.Time { return time.Now() }

// Main holds the config for the serve command.
type Main struct {
	Bind         string        `help:"Address to listen on."`
	NetworkFile  string        `help:"Network JSON document produced by the pipeline."`
	FallbackFile string        `help:"Bundled copy served when the pipeline output is missing."`
	RemoteURL    string        `help:"Remote copy proxied as a last resort. Blank disables."`
	StaticDir    string        `help:"Directory of compiled UI assets. Blank disables."`
	Secret       string        `help:"Shared secret checked by the gate endpoint."`
	CacheExpiry  time.Duration `help:"How long a loaded network document is served from memory."`
}

// NewMain gets a new Main with default values.
func NewMain() *Main {
	return &Main{
		Bind:         ":8080",
		NetworkFile:  "data/network.json",
		FallbackFile: "web/network.json",
		CacheExpiry:  5 * time.Minute,
	}
}

// Run runs the server until the listener fails.
func (m *Main) Run() error {
	s := NewServer(m)
	s.Log = ggk.StdLogger{Logger: log.New(os.Stderr, "", log.LstdFlags)}
	return errors.Wrap(http.ListenAndServe(m.Bind, s.Handler()), "serving")
}

// Server serves the network document, the gate endpoint, and the static UI.
type Server struct {
	Log    ggk.Logger
	Clock  Clock
	Client *http.Client

	cfg    *Main
	router *mux.Router

	mu        sync.Mutex
	doc       []byte
	fetchedAt time.Time
}

// NewServer builds a Server around cfg with the wall clock and default HTTP
// client.
func NewServer(cfg *Main) *Server {
	s := &Server{
		Log:    ggk.NopLogger{},
		Clock:  stdClock{},
		Client: http.DefaultClient,
		cfg:    cfg,
	}
	r := mux.NewRouter()
	r.HandleFunc("/api/network", s.handleNetwork).Methods("GET")
	r.HandleFunc("/api/gate", s.handleGate).Methods("POST")
	if cfg.StaticDir != "" {
		r.PathPrefix("/").HandlerFunc(s.handleStatic)
	}
	s.router = r
	return s
}

// Handler wraps the router with access logging and compression.
func (s *Server) Handler() http.Handler {
	return handlers.CombinedLoggingHandler(os.Stderr, handlers.CompressHandler(s.router))
}

// handleNetwork returns the network document, from cache when fresh. All
// failure detail stays server-side; the client sees one generic condition.
func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	doc, err := s.network()
	if err != nil {
		s.Log.Printf("loading network document: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"failed to load network data"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(doc)
}

// network returns the cached document when it is younger than the configured
// expiry, otherwise reloads it: pipeline output first, bundled fallback copy
// second, remote proxy last.
func (s *Server) network() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Clock.Now()
	if s.doc != nil && now.Sub(s.fetchedAt) < s.cfg.CacheExpiry {
		return s.doc, nil
	}
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	s.doc, s.fetchedAt = doc, now
	return doc, nil
}

func (s *Server) load() ([]byte, error) {
	var errs ggk.Errors
	for _, path := range []string{s.cfg.NetworkFile, s.cfg.FallbackFile} {
		if path == "" {
			continue
		}
		doc, err := readNetworkFile(path)
		if err == nil {
			return doc, nil
		}
		errs = append(errs, err)
	}
	if s.cfg.RemoteURL != "" {
		doc, err := s.loadRemote()
		if err == nil {
			return doc, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no network source configured")
	}
	return nil, errs
}

// readNetworkFile reads path and verifies it holds a JSON document, so a
// half-written or corrupt file is never served.
func readNetworkFile(path string) ([]byte, error) {
	doc, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %v", path)
	}
	if !json.Valid(doc) {
		return nil, errors.Errorf("%v is not valid JSON", path)
	}
	return doc, nil
}

func (s *Server) loadRemote() ([]byte, error) {
	resp, err := s.Client.Get(s.cfg.RemoteURL)
	if err != nil {
		return nil, errors.Wrapf(err, "getting %v", s.cfg.RemoteURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("getting %v: status %v", s.cfg.RemoteURL, resp.Status)
	}
	doc, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading remote body")
	}
	if !json.Valid(doc) {
		return nil, errors.Errorf("remote copy is not valid JSON")
	}
	return doc, nil
}

// handleGate checks the shared secret in constant time. The gate state itself
// lives client-side; this endpoint only validates.
func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if s.cfg.Secret == "" ||
		subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.cfg.Secret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStatic serves compiled UI assets, routing unmatched paths to
// index.html so client-side routing works.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.cfg.StaticDir, filepath.Clean("/"+r.URL.Path))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(s.cfg.StaticDir, "index.html"))
		return
	}
	http.ServeFile(w, r, path)
}
