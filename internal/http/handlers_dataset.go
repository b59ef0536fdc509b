package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"riskdash/internal/amqp"
	"riskdash/internal/backend"
	"riskdash/internal/dataset/csvfile"
	applog "riskdash/internal/log"
	"riskdash/internal/middleware/security"
)

// handleUpload parses a multipart CSV upload ("file" field) and keeps the
// table in memory. The response carries the dataset id to pass as
// ?dataset= on the other endpoints.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		ServiceUnavailableError("uploads are not enabled").Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.UploadMaxBytes)
	if err := r.ParseMultipartForm(s.cfg.UploadMaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.cfg.UploadMaxBytes)).Write(w)
			return
		}
		writeError(w, r, applog.OpUpload, fmt.Errorf("%w: %v", ErrInvalidParam, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, applog.OpUpload, fmt.Errorf("%w: missing file field", ErrInvalidParam))
		return
	}
	defer file.Close()

	if err := csvfile.ValidateContentType(header.Header.Get("Content-Type")); err != nil {
		writeError(w, r, applog.OpUpload, err)
		return
	}
	if err := csvfile.ValidateContent(file); err != nil {
		writeError(w, r, applog.OpUpload, err)
		return
	}
	tbl, err := csvfile.Parse(file)
	if err != nil {
		writeError(w, r, applog.OpUpload, fmt.Errorf("%w: %v", ErrInvalidParam, err))
		return
	}

	up := s.uploads.Put(security.SanitizeText(filepath.Base(header.Filename)), tbl)
	atomic.AddInt64(&s.appMetrics.uploads, 1)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Dataset uploaded",
		applog.NewFields().WithDataset(up.ID, up.Records).WithOperation(applog.OpUpload).ToSlice()...)

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/datasets/"+up.ID).
		JSON(up).
		Write(w)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		ServiceUnavailableError("uploads are not enabled").Write(w)
		return
	}
	up, err := s.uploads.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, applog.OpLoad, err)
		return
	}
	writeJSON(w, up)
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		ServiceUnavailableError("uploads are not enabled").Write(w)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.uploads.Get(id); err != nil {
		writeError(w, r, applog.OpLoad, err)
		return
	}
	s.uploads.Delete(id)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// handleImport queues an import of source/location for the worker. The
// body is JSON or form encoded; an empty location means the source's
// configured default.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		ServiceUnavailableError("imports are not configured").Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	source := backend.BackendType(parser.Get("source"))
	if !source.IsValid() || source == backend.SQLiteBackend {
		writeError(w, r, applog.OpValidate, fmt.Errorf("%w: source %q", ErrInvalidParam, source))
		return
	}

	req := amqp.NewImportRequest(source.String(), parser.Get("location"))
	if err := req.Validate(); err != nil {
		writeError(w, r, applog.OpValidate, fmt.Errorf("%w: %v", ErrInvalidParam, err))
		return
	}
	if err := s.publisher.PublishImportRequest(r.Context(), req); err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Failed to publish import request", err, applog.OpPublish, nil)
		ServiceUnavailableError("import queue unavailable").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.imports, 1)

	NewResponse().Status(http.StatusAccepted).JSON(req).Write(w)
}
