// Package hudsontest provides an in-process CI server speaking the subset of
// the HTTP API that hudson uses, for tests.
package hudsontest

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/sjson"

	"github.com/alexander-akhmetov/hudson/internal/domain"
	"github.com/alexander-akhmetov/hudson/internal/protocol"
)

// Version is reported in the X-Hudson header.
const Version = "1.371"

// Job is a job stored by the fake server.
type Job struct {
	Name   string
	Color  protocol.Color
	Config []byte
}

// Request is a request the server received.
type Request struct {
	Method string
	Path   string
}

// Server is a fake CI server.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	jobs     map[string]*Job
	requests []Request

	// RejectCreate, when set, is consulted before a job is stored. A non-zero
	// status aborts the create with that status and message.
	RejectCreate func(name string) (status int, message string)
	// NodeDescription is reported by /api/json.
	NodeDescription string
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		jobs:            make(map[string]*Job),
		NodeDescription: protocol.DefaultNodeDescription,
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get(protocol.PathAPI, s.handleAPI)
	r.Post(protocol.PathCreateItem, s.handleCreate)
	r.Route("/job/{name}", func(r chi.Router) {
		r.Get("/api/json", s.handleJob)
		r.Get("/config.xml", s.handleConfig)
		r.Post("/doDelete", s.handleDelete)
		r.Post("/doDelete/api/json", s.handleDelete)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Endpoint returns the server's host and port.
func (s *Server) Endpoint() domain.Endpoint {
	u, err := url.Parse(s.URL)
	if err != nil {
		panic(err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		panic(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		panic(err)
	}
	return domain.Endpoint{Host: host, Port: port}
}

// AddJob stores a job directly, bypassing the API.
func (s *Server) AddJob(name string, color protocol.Color, config []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[name] = &Job{Name: name, Color: color, Config: config}
}

// Job returns a stored job.
func (s *Server) Job(name string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// JobNames returns stored job names in sorted order.
func (s *Server) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedNamesLocked()
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestCount returns how many requests the server received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path})
		s.mu.Unlock()
		w.Header().Set(protocol.HeaderHudson, Version)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sortedNamesLocked() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) jobURL(name string) string {
	return s.URL + protocol.PathJob + url.PathEscape(name) + "/"
}

// jobJSON renders a job the way /api/json lists it.
func (s *Server) jobJSON(j *Job) string {
	doc, _ := sjson.Set("", "name", j.Name)
	doc, _ = sjson.Set(doc, "url", s.jobURL(j.Name))
	doc, _ = sjson.Set(doc, "color", j.Color.String())
	return doc
}

func (s *Server) handleAPI(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	doc := `{"mode":"NORMAL","jobs":[]}`
	doc, _ = sjson.Set(doc, "nodeDescription", s.NodeDescription)
	for _, name := range s.sortedNamesLocked() {
		doc, _ = sjson.SetRaw(doc, "jobs.-1", s.jobJSON(s.jobs[name]))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'name' is required")
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), protocol.ContentTypeXML) {
		writeError(w, http.StatusBadRequest, "No config.xml was given")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "No config.xml was given")
		return
	}

	if s.RejectCreate != nil {
		if status, msg := s.RejectCreate(name); status != 0 {
			writeError(w, status, msg)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("A job already exists with the name '%s'", name))
		return
	}
	s.jobs[name] = &Job{Name: name, Color: protocol.ColorGrey, Config: body}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) lookup(r *http.Request) (*Job, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	return j, ok
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookup(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.jobJSON(j))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookup(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", protocol.ContentTypeXML)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(j.Config)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookup(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.mu.Lock()
	delete(s.jobs, j.Name)
	s.mu.Unlock()
	http.Redirect(w, r, "/", http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, doc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, doc+"\n")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set(protocol.HeaderError, msg)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg+"\n")
}
