// Package apitest provides a configurable mock Ideafeed API server and
// small fakes for exercising the client.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TokenPair mirrors the credential pair issued by the auth endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Server is a mock Ideafeed API. The auth endpoints are pre-wired;
// tests add resource handlers with Handle. The server starts with a
// valid session of access-0/refresh-0 and issues access-1/refresh-1 on
// login or refresh.
type Server struct {
	Server *httptest.Server
	mux    *http.ServeMux

	mu sync.Mutex
	// validAccess is the access token accepted on routes registered
	// via HandleAuthed.
	validAccess string
	// validRefresh is the refresh token accepted by the refresh
	// endpoint.
	validRefresh string
	// nextPair is issued by login, register and refresh.
	nextPair TokenPair
	// refreshStatus overrides the refresh endpoint's status (0 = 200).
	refreshStatus int
	// refreshDelay holds the refresh response back, giving concurrent
	// 401 handling a window to pile onto the in-flight exchange.
	refreshDelay time.Duration

	RefreshRequests atomic.Int32
	LoginRequests   atomic.Int32
}

// NewServer starts a mock API with a valid session already provisioned.
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		mux:          http.NewServeMux(),
		validAccess:  "access-0",
		validRefresh: "refresh-0",
		nextPair:     TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"},
	}

	s.mux.HandleFunc("POST /api/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.RefreshRequests.Add(1)

		s.mu.Lock()
		status := s.refreshStatus
		valid := s.validRefresh
		pair := s.nextPair
		delay := s.refreshDelay
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if bearerToken(r) != valid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		s.rotate(pair)
		WriteJSON(w, pair)
	})

	for _, path := range []string{"/api/login", "/api/register", "/api/login_with_google"} {
		s.mux.HandleFunc("POST "+path, func(w http.ResponseWriter, r *http.Request) {
			s.LoginRequests.Add(1)

			s.mu.Lock()
			pair := s.nextPair
			s.mu.Unlock()

			s.rotate(pair)
			WriteJSON(w, pair)
		})
	}

	s.Server = httptest.NewServer(s.mux)
	t.Cleanup(s.Server.Close)
	return s
}

func (s *Server) rotate(pair TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validAccess = pair.AccessToken
	s.validRefresh = pair.RefreshToken
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.Server.URL
}

// Handle registers an additional route.
func (s *Server) Handle(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// HandleAuthed registers a route that answers 401 unless the request
// bears the currently valid access token.
func (s *Server) HandleAuthed(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		valid := s.validAccess
		s.mu.Unlock()

		if bearerToken(r) != valid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	})
}

// ExpireAccess invalidates the current access token so the next
// authenticated request 401s, while keeping the refresh token valid.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validAccess = "expired-" + s.validAccess
}

// SetRefreshStatus forces the refresh endpoint to answer with status,
// regardless of the presented token. Zero restores normal behavior.
func (s *Server) SetRefreshStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// SetRefreshDelay makes the refresh endpoint sleep before answering.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// WriteJSON writes payload as a JSON response.
func WriteJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal JSON: %v", err), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}

// WriteError writes the server's error envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

// Navigator records navigation side effects for assertions.
type Navigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

// Paths returns every recorded navigation in order.
func (n *Navigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}
