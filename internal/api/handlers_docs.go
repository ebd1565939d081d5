package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tokscope/tokscope/internal/transform"
)

// handleListDocuments lists parsed documents, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.orchestrator.Docs()
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.orchestrator.GetDoc(chi.URLParam(r, "docID"))
	if doc == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleTokenize queues a token count of a parsed document for one model.
// The model comes from the JSON body or the "model" query parameter; absent
// both, the configured default applies.
func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	var req struct {
		Model string `json:"model"`
	}
	if r.Body != nil {
		// An empty or non-JSON body just means no override.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Model == "" {
		req.Model = r.URL.Query().Get("model")
	}

	job, err := s.orchestrator.SubmitTokenize(docID, req.Model)
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"model_id": snap.ModelID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	})
}

// handleTree builds the display tree synchronously from whatever counts the
// cache holds right now. Basis, model, and level-of-detail knobs come from
// query parameters, defaulting to the server configuration.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	q := r.URL.Query()

	basis := transform.BasisTokens
	if v := q.Get("basis"); v != "" {
		basis = transform.Basis(v)
	}

	opts := transform.Options{
		AggregationThreshold: s.cfg.AggregationThreshold,
		MaxVisibleNodes:      s.cfg.MaxVisibleNodes,
		MaxDepth:             s.cfg.MaxDepth,
		PreviewLength:        s.cfg.PreviewLength,
	}
	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			jsonError(w, "invalid threshold: "+v, http.StatusBadRequest)
			return
		}
		opts.AggregationThreshold = f
	}
	if v := q.Get("max_nodes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "invalid max_nodes: "+v, http.StatusBadRequest)
			return
		}
		opts.MaxVisibleNodes = n
	}
	if v := q.Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "invalid depth: "+v, http.StatusBadRequest)
			return
		}
		opts.MaxDepth = n
	}

	res, err := s.orchestrator.TransformDoc(docID, basis, q.Get("model"), opts)
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
