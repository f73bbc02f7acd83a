// This command is only used for local testing: it serves a fake
// Ideafeed API that accepts any credentials and walks generation jobs
// through their status sequence, so the CLI can be exercised without a
// real backend.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port int `env:"UTIL_PORT, default=5001"`

	// TicksPerStage is the number of status fetches a job spends in
	// each non-terminal stage before advancing.
	TicksPerStage int `env:"UTIL_TICKS_PER_STAGE, default=3"`
}

type job struct {
	stages []string
	ticks  int
}

func (j *job) status(perStage int) string {
	stage := j.ticks / perStage
	if stage >= len(j.stages) {
		stage = len(j.stages) - 1
	}
	j.ticks++
	return j.stages[stage]
}

type server struct {
	cfg Config

	mu   sync.Mutex
	seq  int
	jobs map[string]*job
}

func main() {
	cfg := Config{}
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	s := &server{
		cfg:  cfg,
		jobs: map[string]*job{},
	}

	log.Info().Int("port", cfg.Port).Msg("mock API listening")
	err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), s.routes())
	log.Fatal().Err(err).Msg("mock API stopped")
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", s.handleTokens)
	mux.HandleFunc("POST /api/register", s.handleTokens)
	mux.HandleFunc("POST /api/login_with_google", s.handleTokens)
	mux.HandleFunc("POST /api/token/refresh", s.handleTokens)

	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"id": "u-local", "name": "Local User", "email": "local@example.test"})
	})

	mux.HandleFunc("POST /api/products/{id}/feeds/initiate", func(w http.ResponseWriter, r *http.Request) {
		id := s.startJob("feed", []string{"queued", "running", "complete"})
		writeJSON(w, map[string]string{"report_id": id})
	})
	mux.HandleFunc("POST /api/feeds/initiate", func(w http.ResponseWriter, r *http.Request) {
		id := s.startJob("feed", []string{"queued", "running", "partial_ready"})
		writeJSON(w, map[string]any{"report_id": id, "prompt_login": false})
	})
	mux.HandleFunc("GET /api/feeds/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		status, ok := s.tick(id)
		if !ok {
			writeError(w, http.StatusNotFound, "no such feed")
			return
		}
		writeJSON(w, feedBody(id, status))
	})

	s.registerGeneration(mux, "articles", "article_id", func(id, status string) any {
		return map[string]string{
			"id": id, "status": status,
			"title":      "Sample article",
			"content_md": "# Sample article\n\nGenerated locally.",
		}
	})
	s.registerGeneration(mux, "memes", "meme_id", func(id, status string) any {
		return map[string]string{"id": id, "status": status, "concept": "local meme concept"}
	})
	s.registerGeneration(mux, "slops", "slop_id", func(id, status string) any {
		return map[string]string{"id": id, "status": status, "concept": "local video concept"}
	})

	return mux
}

func (s *server) registerGeneration(mux *http.ServeMux, resource, idField string, body func(id, status string) any) {
	mux.HandleFunc("POST /api/"+resource, func(w http.ResponseWriter, r *http.Request) {
		id := s.startJob(resource, []string{"generating", "ready"})
		writeJSON(w, map[string]string{idField: id, "status": "generating"})
	})
	mux.HandleFunc("GET /api/"+resource+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		status, ok := s.tick(id)
		if !ok {
			writeError(w, http.StatusNotFound, "no such "+resource)
			return
		}
		writeJSON(w, body(id, status))
	})
}

func (s *server) handleTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"access_token":  fmt.Sprintf("local-access-%d", time.Now().Unix()),
		"refresh_token": "local-refresh",
	})
}

func (s *server) startJob(kind string, stages []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := fmt.Sprintf("%s-%d", kind, s.seq)
	s.jobs[id] = &job{stages: stages}

	log.Info().Str("job", id).Msg("job started")
	return id
}

func (s *server) tick(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return "", false
	}
	return j.status(s.cfg.TicksPerStage), true
}

func feedBody(id, status string) any {
	body := map[string]any{
		"id":     id,
		"status": status,
		"steps": []map[string]string{
			{"step_name": "collect_sources", "status": "complete"},
			{"step_name": "rank_suggestions", "status": status},
		},
	}
	if status == "complete" || status == "partial_ready" {
		body["partial"] = status == "partial_ready"
		body["suggestions"] = []map[string]any{
			{"id": "sug-1", "kind": "article", "source_type": "trend", "text": "Write about local testing", "rank": 0.9},
			{"id": "sug-2", "kind": "meme", "source_type": "community", "text": "Meme about flaky backends", "rank": 0.7},
		}
	}
	return body
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
