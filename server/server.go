// Package server exposes ingestion and the query pipeline over an HTTP JSON
// API, the backend the dashboard frontend talks to. The server keeps the
// current dataset in memory only; each successful run replaces it wholesale.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.alis.build/alog"

	"github.com/aerissecure/keydash/ingest"
	"github.com/aerissecure/keydash/keys"
	"github.com/aerissecure/keydash/query"
	"github.com/aerissecure/keydash/source"
)

// maxUploadBytes bounds a multipart upload batch.
const maxUploadBytes = 256 << 20

// Option configures a Server.
type Option func(*Server)

// WithAPIKey sets the default Sheets API key used when an ingest request
// does not carry its own.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithLogOutput directs the HTTP access log. Defaults to discarding it.
func WithLogOutput(w io.Writer) Option {
	return func(s *Server) { s.accessLog = w }
}

// WithIngestOptions forwards options to every orchestrator the server
// builds; tests use this to inject fake adapters.
func WithIngestOptions(opts ...ingest.Option) Option {
	return func(s *Server) { s.ingestOpts = opts }
}

// Server holds the session dataset and serves the API.
type Server struct {
	apiKey     string
	accessLog  io.Writer
	ingestOpts []ingest.Option
	router     *mux.Router

	mu       sync.RWMutex
	running  bool
	state    ingest.State
	title    string
	records  []keys.Record
	failures []ingest.FileFailure
	lastErr  string
}

// New builds a Server with its routes registered.
func New(opts ...Option) *Server {
	s := &Server{
		accessLog: io.Discard,
		state:     ingest.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/records", s.handleRecords).Methods(http.MethodGet)
	r.HandleFunc("/api/ingest", s.handleIngestCloud).Methods(http.MethodPost)
	r.HandleFunc("/api/upload", s.handleUpload).Methods(http.MethodPost)
	s.router = r
	return s
}

// Handler wraps the router with CORS and access logging. CORS is open: the
// dashboard frontend is served from its own origin during development.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return cors(handlers.CombinedLoggingHandler(s.accessLog, s.router))
}

type statusResponse struct {
	State       string   `json:"state"`
	Label       string   `json:"label"`
	Running     bool     `json:"running"`
	Title       string   `json:"title,omitempty"`
	RecordCount int      `json:"recordCount"`
	Failures    []string `json:"failures,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := statusResponse{
		State:       s.state.String(),
		Label:       s.state.Label(),
		Running:     s.running,
		Title:       s.title,
		RecordCount: len(s.records),
		Error:       s.lastErr,
	}
	for _, f := range s.failures {
		resp.Failures = append(resp.Failures, f.Name)
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	records := s.records
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, query.Summarize(records))
}

type recordsResponse struct {
	Total   int           `json:"total"`
	Records []keys.Record `json:"records"`
	Groups  []query.Group `json:"groups"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	records := s.records
	s.mu.RUnlock()

	q := r.URL.Query()
	filtered := query.Apply(records, query.Filter{
		Text:    q.Get("q"),
		BrandID: q.Get("brand"),
		Task:    q.Get("task"),
	})

	writeJSON(w, http.StatusOK, recordsResponse{
		Total:   len(filtered),
		Records: filtered,
		Groups:  query.GroupRecords(filtered),
	})
}

type cloudIngestRequest struct {
	SpreadsheetIDOrURL string `json:"spreadsheetIdOrUrl"`
	APIKey             string `json:"apiKey"`
}

func (s *Server) handleIngestCloud(w http.ResponseWriter, r *http.Request) {
	var req cloudIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decoding request"))
		return
	}
	if req.APIKey == "" {
		req.APIKey = s.apiKey
	}

	s.runIngest(w, r, ingest.Config{
		Mode:               ingest.ModeCloud,
		SpreadsheetIDOrURL: req.SpreadsheetIDOrURL,
		APIKey:             req.APIKey,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "parsing upload"))
		return
	}

	var set source.FileSet
	for _, hdr := range r.MultipartForm.File["files"] {
		part, err := hdr.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.Wrapf(err, "opening %s", hdr.Filename))
			return
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.Wrapf(err, "reading %s", hdr.Filename))
			return
		}

		f, err := source.NewFile(hdr.Filename, data)
		if err != nil {
			// Rejected before any decode attempt.
			writeError(w, http.StatusBadRequest, err)
			return
		}
		set.Add(f)
	}

	s.runIngest(w, r, ingest.Config{Mode: ingest.ModeLocal, Files: set.Files()})
}

// runIngest executes one run while gating concurrency: a second request
// while a run is in flight gets 409 instead of an undefined interleaving.
func (s *Server) runIngest(w http.ResponseWriter, r *http.Request, cfg ingest.Config) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, errors.New("an ingestion run is already in progress"))
		return
	}
	s.running = true
	s.lastErr = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	orch := ingest.New(append([]ingest.Option{
		ingest.WithStatusFunc(func(st ingest.State) {
			s.mu.Lock()
			s.state = st
			s.mu.Unlock()
		}),
	}, s.ingestOpts...)...)

	res, err := orch.Run(r.Context(), cfg)
	if err != nil {
		s.mu.Lock()
		s.state = orch.State()
		s.lastErr = err.Error()
		s.mu.Unlock()

		status := http.StatusBadGateway
		if errors.Is(err, ingest.ErrInvalidConfig) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	s.mu.Lock()
	s.title = res.Title
	s.records = res.Records
	s.failures = res.Failures
	s.mu.Unlock()

	alog.Infof(r.Context(), "dataset replaced: %q, %d records", res.Title, len(res.Records))
	s.handleStatus(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
