// Package server exposes the parsing pipeline and the resume store over
// HTTP. Authentication is a thin gate: the gateway in front of this
// service verifies users and forwards the identity in a header; this layer
// checks a shared service token and scopes requests to that identity.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Lllllllleong/resumedocumentflow/internal/models"
	"github.com/Lllllllleong/resumedocumentflow/internal/parser"
	"github.com/Lllllllleong/resumedocumentflow/internal/schema"
	"github.com/Lllllllleong/resumedocumentflow/internal/store"
)

// ResumeParser runs the extraction pipeline for one upload.
type ResumeParser interface {
	Parse(ctx context.Context, req parser.ParseRequest) (*parser.Result, error)
}

// ResumeStore persists validated documents keyed by user identity.
type ResumeStore interface {
	Save(ctx context.Context, userID string, resume *models.Resume, fileHash string) (*store.Record, error)
	Get(ctx context.Context, userID string) (*store.Record, error)
	Delete(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
}

// Archiver keeps original uploads. May be absent.
type Archiver interface {
	Put(ctx context.Context, userID string, pdf []byte) (string, error)
}

type Server struct {
	parser    ResumeParser
	resumes   ResumeStore
	archive   Archiver // nil disables archiving
	apiToken  string
	maxUpload int64
	logger    *slog.Logger
}

func New(p ResumeParser, resumes ResumeStore, archive Archiver, apiToken string, maxUpload int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		parser:    p,
		resumes:   resumes,
		archive:   archive,
		apiToken:  apiToken,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Route("/resumes", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/parse", s.handleParse)
		r.Get("/{userID}", s.handleGet)
		r.Put("/{userID}", s.handlePut)
		r.Delete("/{userID}", s.handleDelete)
	})
	return r
}

type contextKey string

const identityKey contextKey = "identity"

// authenticate checks the shared service token and extracts the gateway
// verified identity. The identity is opaque from here on.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.apiToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized", Message: "missing or invalid service token"})
			return
		}
		identity := r.Header.Get("X-User-ID")
		if identity == "" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized", Message: "missing X-User-ID header"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return "", false
	}
	return auth[len(prefix):], true
}

func identityFrom(ctx context.Context) string {
	id, _ := ctx.Value(identityKey).(string)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "resume-parser"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.resumes.Ping(r.Context()); err != nil {
		s.logger.Error("Readiness probe failed.", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	userID := identityFrom(r.Context())
	runID := uuid.NewString()
	logger := s.logger.With("runId", runID, "userId", userID)

	// The multipart envelope adds a little on top of the document cap; the
	// parser enforces the precise per-file limit while reading.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "BadRequest", Message: "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	result, err := s.parser.Parse(r.Context(), parser.ParseRequest{
		Body:         file,
		DeclaredSize: header.Size,
		DeclaredMIME: header.Header.Get("Content-Type"),
		UserID:       userID,
	})
	if err != nil {
		s.writeError(w, logger, err)
		return
	}

	fileHash := store.ContentHash(result.Raw)
	if s.archive != nil {
		if object, err := s.archive.Put(r.Context(), userID, result.Raw); err != nil {
			// Archival is enrichment; the parse result still stands.
			logger.Warn("Failed to archive upload.", "error", err)
		} else {
			logger.Info("Upload archived.", "gcsObject", object)
		}
	}

	if _, err := s.resumes.Save(r.Context(), userID, result.Resume, fileHash); err != nil {
		s.writeError(w, logger, err)
		return
	}

	logger.Info("Resume parsed and stored.", "pageCount", result.Decision.PageCount, "reconciled", result.Reconciled)
	writeJSON(w, http.StatusCreated, models.ParseResponse{
		Message:    "Resume parsed successfully",
		RunID:      runID,
		PageCount:  result.Decision.PageCount,
		Reconciled: result.Reconciled,
		Resume:     result.Resume,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.scopedUserID(w, r)
	if !ok {
		return
	}
	rec, err := s.resumes.Get(r.Context(), userID)
	if err != nil {
		s.writeError(w, s.logger.With("userId", userID), err)
		return
	}
	writeJSON(w, http.StatusOK, models.ResumeResponse{
		Message:   "Resume retrieved successfully",
		UserID:    rec.UserID,
		Resume:    &rec.Resume,
		UpdatedAt: rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.scopedUserID(w, r)
	if !ok {
		return
	}
	logger := s.logger.With("userId", userID)

	var doc map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "BadRequest", Message: "request body is not a JSON object"})
		return
	}

	// Manual updates pass through the same normalization and schema gate
	// as parsed documents.
	doc = schema.Normalize(doc)
	if err := schema.Validate(doc); err != nil {
		s.writeError(w, logger, err)
		return
	}
	resume, err := models.ResumeFromMap(doc)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}

	rec, err := s.resumes.Save(r.Context(), userID, resume, "")
	if err != nil {
		s.writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ResumeResponse{
		Message:   "Resume updated successfully",
		UserID:    rec.UserID,
		Resume:    &rec.Resume,
		UpdatedAt: rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.scopedUserID(w, r)
	if !ok {
		return
	}
	if err := s.resumes.Delete(r.Context(), userID); err != nil {
		s.writeError(w, s.logger.With("userId", userID), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Resume deleted successfully"})
}

// scopedUserID enforces that the path identity matches the authenticated
// identity. There is no admin override on this surface.
func (s *Server) scopedUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userID")
	if userID == "" || userID != identityFrom(r.Context()) {
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "NotAuthorized", Message: "not authorized to access this resume"})
		return "", false
	}
	return userID, true
}

func (s *Server) writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validationErr *parser.ValidationError
		extractionErr *parser.ExtractionFailedError
		unparsableErr *parser.UnparsableResultError
		schemaErr     *schema.ValidationError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "ValidationError", Message: validationErr.Error()})
	case errors.As(err, &extractionErr):
		logger.Error("Extraction failed.", "error", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "ExtractionFailed", Message: "both OCR strategies failed; please resubmit"})
	case errors.As(err, &unparsableErr):
		logger.Error("Repair exhausted.", "error", err, "rawLength", len(unparsableErr.Raw))
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "UnparsableResult", Message: "extraction produced unparsable output; please resubmit"})
	case errors.As(err, &schemaErr):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: "SchemaValidationError", Message: schemaErr.Message, Path: schemaErr.Path})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "ResumeNotFound", Message: "no resume stored for this user"})
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		logger.Error("Request failed.", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "InternalServerError", Message: "an internal error occurred"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
