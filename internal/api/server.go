// Package api exposes the retrieval surface over HTTP: search,
// stats, index administration, and the graph queries.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Aman-CERP/repograph/internal/embed"
	rgerrors "github.com/Aman-CERP/repograph/internal/errors"
	"github.com/Aman-CERP/repograph/internal/query"
	"github.com/Aman-CERP/repograph/internal/search"
	"github.com/Aman-CERP/repograph/internal/store"
)

// requestTimeout bounds every handler's downstream work.
const requestTimeout = 30 * time.Second

// AdminStore is the store surface the non-search endpoints need.
type AdminStore interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context, repoID, branch string) (*store.RepoStats, error)
	Repos(ctx context.Context) ([]store.RepoInfo, error)
	DeleteRepoBranch(ctx context.Context, repoID, branch string) (int64, error)
}

// Server routes retrieval requests to the searcher, the query engine,
// and the store.
type Server struct {
	admin    AdminStore
	searcher *search.Searcher
	engine   *query.Engine
	embedder embed.Embedder
	log      *slog.Logger
}

// NewServer wires the API server.
func NewServer(admin AdminStore, searcher *search.Searcher, engine *query.Engine, embedder embed.Embedder, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		admin:    admin,
		searcher: searcher,
		engine:   engine,
		embedder: embedder,
		log:      log,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /keyword-search", s.handleKeywordSearch)
	mux.HandleFunc("POST /hybrid-search", s.handleHybridSearch)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /repos", s.handleRepos)
	mux.HandleFunc("DELETE /index/{repo_url...}", s.handleDeleteIndex)
	mux.HandleFunc("GET /definitions/{symbol}", s.handleDefinitions)
	mux.HandleFunc("GET /usages/{symbol}", s.handleUsages)
	mux.HandleFunc("GET /import-tree/{file_path...}", s.handleImportTree)
	mux.HandleFunc("GET /circular-dependencies", s.handleCycles)
	mux.HandleFunc("GET /hub-files", s.handleHubs)
	mux.HandleFunc("GET /callgraph/{function}", s.handleCallGraph)

	return s.withRequestScope(mux)
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// withRequestScope attaches the per-request timeout and access log.
func (s *Server) withRequestScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path,
			"elapsed", time.Since(start))
	})
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		Suggestion string `json:"suggestion,omitempty"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var body errorBody
	status := http.StatusInternalServerError

	var ge *rgerrors.GraphError
	if errors.As(err, &ge) {
		body.Error.Code = ge.Code
		body.Error.Message = ge.Message
		body.Error.Suggestion = ge.Suggestion
		if ge.Code == rgerrors.ErrCodeInputInvalid || ge.Code == rgerrors.ErrCodeQueryEmpty {
			status = http.StatusBadRequest
		}
	} else {
		body.Error.Code = rgerrors.ErrCodeInternal
		body.Error.Message = "internal error"
		s.log.Error("request failed", "error", err)
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return rgerrors.InputError("invalid JSON body").WithDetail("cause", err.Error())
	}
	return nil
}
