package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tokscope/tokscope/internal/pipeline"
)

// handleUpload accepts a document as a multipart "file" field or as the raw
// request body, queues a parse job, and returns 202 with the job ID and the
// content-derived document ID.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	var (
		data     []byte
		filename string
		format   string
		err      error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		data, filename, format, err = s.readMultipart(r)
	} else {
		data, filename, format, err = s.readRawBody(r)
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		jsonError(w, "empty document", http.StatusBadRequest)
		return
	}

	job, err := s.orchestrator.SubmitParse(filename, format, data)
	if err != nil {
		jsonError(w, err.Error(), errStatus(err))
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"doc_id":   pipeline.DocID(data),
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	})
}

func (s *Server) readMultipart(r *http.Request) (data []byte, filename, format string, err error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, "", "", fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", "", fmt.Errorf("file is required: %w", err)
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("read file: %w", err)
	}
	return data, sanitizeFilename(header.Filename), r.FormValue("format"), nil
}

func (s *Server) readRawBody(r *http.Request) (data []byte, filename, format string, err error) {
	data, err = io.ReadAll(r.Body)
	if err != nil {
		return nil, "", "", err
	}
	q := r.URL.Query()
	filename = q.Get("filename")
	format = q.Get("format")
	if filename == "" && format == "" {
		// Raw submissions without either hint are treated as XML.
		format = "xml"
	}
	if filename != "" {
		filename = sanitizeFilename(filename)
	}
	return data, filename, format, nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
