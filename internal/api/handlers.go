package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	rgerrors "github.com/Aman-CERP/repograph/internal/errors"
	"github.com/Aman-CERP/repograph/internal/query"
	"github.com/Aman-CERP/repograph/internal/search"
	"github.com/Aman-CERP/repograph/internal/store"
)

// scopeFromQuery builds the repo/branch filter from query parameters.
// An empty repo_url means no filter.
func scopeFromQuery(r *http.Request) query.Scope {
	scope := query.Scope{Branch: r.URL.Query().Get("branch")}
	if repoURL := r.URL.Query().Get("repo_url"); repoURL != "" {
		scope.RepoID = store.RepoIDFor(repoURL)
	}
	return scope
}

func intQuery(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}

type healthResponse struct {
	Status         string `json:"status"`
	Store          string `json:"store"`
	EmbeddingModel string `json:"embedding_model"`
	ModelReachable bool   `json:"model_reachable"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Store: "ok"}
	if err := s.admin.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Store = "unreachable"
	}
	if s.embedder != nil {
		resp.EmbeddingModel = s.embedder.ModelName()
		resp.ModelReachable = s.embedder.Available(ctx)
		if !resp.ModelReachable {
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type searchRequest struct {
	Query           string    `json:"query"`
	RepoURL         string    `json:"repo_url"`
	Branch          string    `json:"branch"`
	Limit           int       `json:"limit"`
	ExactMatchBoost float64   `json:"exact_match_boost"`
	Weights         []float64 `json:"weights"`
}

func (req *searchRequest) options() search.Options {
	opts := search.Options{
		Branch: req.Branch,
		Limit:  req.Limit,
		Boost:  req.ExactMatchBoost,
	}
	if req.RepoURL != "" {
		opts.RepoID = store.RepoIDFor(req.RepoURL)
	}
	if len(req.Weights) == 2 {
		opts.VectorWeight = req.Weights[0]
		opts.KeywordWeight = req.Weights[1]
	}
	return opts
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	hits, err := s.searcher.Semantic(r.Context(), req.Query, req.options())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	hits, err := s.searcher.Keyword(r.Context(), req.Query, req.options())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *Server) handleHybridSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.searcher.Hybrid(r.Context(), req.Query, req.options())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":       res.Hits,
		"fallback_used": res.FallbackUsed,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	repoURL := r.URL.Query().Get("repo_url")
	if repoURL == "" {
		s.writeError(w, rgerrors.InputError("repo_url is required"))
		return
	}

	stats, err := s.admin.Stats(r.Context(), store.RepoIDFor(repoURL), r.URL.Query().Get("branch"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := s.admin.Repos(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repos": repos})
}

func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	repoURL := r.PathValue("repo_url")
	if repoURL == "" {
		s.writeError(w, rgerrors.InputError("repo_url is required"))
		return
	}

	deleted, err := s.admin.DeleteRepoBranch(r.Context(), store.RepoIDFor(repoURL), r.URL.Query().Get("branch"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted_chunks": deleted})
}

func (s *Server) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	includeReexports := r.URL.Query().Get("include_reexports") == "true"

	defs, err := s.engine.Definitions(r.Context(), scopeFromQuery(r), r.PathValue("symbol"), includeReexports)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defs = truncate(defs, intQuery(r, "limit", 0))
	writeJSON(w, http.StatusOK, map[string]any{"definitions": defs})
}

func (s *Server) handleUsages(w http.ResponseWriter, r *http.Request) {
	usages, err := s.engine.Usages(r.Context(), scopeFromQuery(r), r.PathValue("symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	usages = truncate(usages, intQuery(r, "limit", 0))
	writeJSON(w, http.StatusOK, map[string]any{"usages": usages})
}

func (s *Server) handleImportTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.engine.ImportTree(r.Context(), scopeFromQuery(r), r.PathValue("file_path"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	maxLength := intQuery(r, "max_cycle_length", query.DefaultMaxCycleLength)

	cycles, err := s.engine.Cycles(r.Context(), scopeFromQuery(r), maxLength)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
}

func (s *Server) handleHubs(w http.ResponseWriter, r *http.Request) {
	threshold := intQuery(r, "threshold", query.DefaultHubThreshold)
	limit := intQuery(r, "limit", 20)

	hubs, err := s.engine.Hubs(r.Context(), scopeFromQuery(r), threshold, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hubs": hubs})
}

func (s *Server) handleCallGraph(w http.ResponseWriter, r *http.Request) {
	direction := r.URL.Query().Get("direction")
	depth := intQuery(r, "depth", 0)

	graph, err := s.engine.CallGraph(r.Context(), scopeFromQuery(r), r.PathValue("function"), direction, depth)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
