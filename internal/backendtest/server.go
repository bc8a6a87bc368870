// Package backendtest runs a scripted stand-in for the Secret Santa API so
// component tests can assert exactly which requests were (or were not) sent.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kingrea/secretsanta/internal/backend"
	"github.com/kingrea/secretsanta/internal/participant"
)

// Endpoint paths served by the fake.
const (
	PathValidate = "/api/validate"
	PathUpload   = "/api/upload"
	PathDraw     = "/api/draw"
	PathStatus   = "/api/status"
	PathTemplate = "/api/template"
	PathDownload = "/api/download"
)

// Reply describes one scripted response. JSON wins over Text when both are set.
type Reply struct {
	Status int
	JSON   any
	Text   string
	Header http.Header
	// Wait holds the response until the channel closes or the request is cancelled.
	Wait <-chan struct{}
	// Delay sleeps before answering, aborting early if the client goes away.
	Delay time.Duration
}

// Upload is what the fake received on /api/upload.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Server is a chi-routed httptest server with per-endpoint scripts.
type Server struct {
	srv *httptest.Server

	mu         sync.Mutex
	calls      map[string]int
	requestIDs []string
	validate   func([]participant.Participant) Reply
	upload     func(Upload) Reply
	draw       func(backend.DrawRequest) Reply
	status     func() Reply
	template   func(format string) Reply
	download   func(backend.DownloadRequest) Reply
}

// New starts a fake backend and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{calls: map[string]int{}}
	router := chi.NewRouter()
	router.Use(s.count)
	router.Post(PathValidate, s.handleValidate)
	router.Post(PathUpload, s.handleUpload)
	router.Post(PathDraw, s.handleDraw)
	router.Get(PathStatus, s.handleStatus)
	router.Get(PathTemplate, s.handleTemplate)
	router.Post(PathDownload, s.handleDownload)
	s.srv = httptest.NewServer(router)
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the base URL to hand to backend.New.
func (s *Server) URL() string {
	return s.srv.URL
}

// Client returns a backend client pointed at the fake.
func (s *Server) Client(t testing.TB, opts ...backend.Option) *backend.Client {
	t.Helper()
	c, err := backend.New(s.URL(), opts...)
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}
	return c
}

// Calls reports how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls reports every request the fake received.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// RequestIDs returns the X-Request-ID header of every request, in order.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// OnValidate scripts /api/validate.
func (s *Server) OnValidate(fn func([]participant.Participant) Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validate = fn
}

// OnUpload scripts /api/upload.
func (s *Server) OnUpload(fn func(Upload) Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upload = fn
}

// OnDraw scripts /api/draw.
func (s *Server) OnDraw(fn func(backend.DrawRequest) Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draw = fn
}

// OnStatus scripts /api/status.
func (s *Server) OnStatus(fn func() Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = fn
}

// OnTemplate scripts /api/template.
func (s *Server) OnTemplate(fn func(format string) Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.template = fn
}

// OnDownload scripts /api/download.
func (s *Server) OnDownload(fn func(backend.DownloadRequest) Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.download = fn
}

// JSON is a 200 reply carrying v.
func JSON(v any) Reply {
	return Reply{Status: http.StatusOK, JSON: v}
}

// Text is a plain-text reply, the shape http.Error produces.
func Text(status int, body string) Reply {
	return Reply{Status: status, Text: body}
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-ID"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var participants []participant.Participant
	if err := json.NewDecoder(r.Body).Decode(&participants); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	fn := s.validate
	s.mu.Unlock()
	s.reply(w, r, func() (Reply, bool) {
		if fn == nil {
			return Reply{}, false
		}
		return fn(participants), true
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "File too large or invalid", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading file", http.StatusInternalServerError)
		return
	}
	in := Upload{FileName: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data}
	s.mu.Lock()
	fn := s.upload
	s.mu.Unlock()
	s.reply(w, r, func() (Reply, bool) {
		if fn == nil {
			return Reply{}, false
		}
		return fn(in), true
	})
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	var req backend.DrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	fn := s.draw
	s.mu.Unlock()
	s.reply(w, r, func() (Reply, bool) {
		if fn == nil {
			return Reply{}, false
		}
		return fn(req), true
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fn := s.status
	s.mu.Unlock()
	s.reply(w, r, func() (Reply, bool) {
		if fn == nil {
			return Reply{}, false
		}
		return fn(), true
	})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	s.mu.Lock()
	fn := s.template
	s.mu.Unlock()
	s.reply(w, r, func() (Reply, bool) {
		if fn == nil {
			return Reply{}, false
		}
		return fn(format), true
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req backend.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	fn := s.download
	s.mu.Unlock()
	s.reply(w, r, func() (Reply, bool) {
		if fn == nil {
			return Reply{}, false
		}
		return fn(req), true
	})
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, script func() (Reply, bool)) {
	rep, ok := script()
	if !ok {
		http.Error(w, "not scripted: "+r.URL.Path, http.StatusNotImplemented)
		return
	}
	if rep.Wait != nil {
		select {
		case <-rep.Wait:
		case <-r.Context().Done():
			return
		}
	}
	if rep.Delay > 0 {
		select {
		case <-time.After(rep.Delay):
		case <-r.Context().Done():
			return
		}
	}
	for key, values := range rep.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	status := rep.Status
	if status == 0 {
		status = http.StatusOK
	}
	if rep.JSON != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(rep.JSON)
		return
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, rep.Text)
}
