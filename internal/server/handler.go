package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shamsaravaiah/receiptdrop/internal/entity"
	"github.com/shamsaravaiah/receiptdrop/internal/repository"
)

// FileProcessor is the pipeline behavior the handler depends on.
type FileProcessor interface {
	Process(ctx context.Context, r io.Reader, filename, userID, userDirectory string) (*entity.MetadataRecord, error)
}

// Exporter produces an XLSX workbook for one user's documents.
type Exporter interface {
	UserDocumentsXLSX(ctx context.Context, userID string) ([]byte, error)
}

// uploadConcurrency bounds the per-request fan-out over uploaded files.
const uploadConcurrency = 4

type Handler struct {
	maxUploadBytes int64
	proc           FileProcessor
	docs           repository.DocumentRepository
	exporter       Exporter
	logger         *slog.Logger
}

func NewHandler(proc FileProcessor, docs repository.DocumentRepository, exporter Exporter, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 * 1024 * 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		maxUploadBytes: maxUploadBytes,
		proc:           proc,
		docs:           docs,
		exporter:       exporter,
		logger:         logger,
	}
}

// fileResult mirrors the upload response contract: success carries the
// metadata record, skipped and error carry a reason/detail instead.
type fileResult struct {
	Status   string                 `json:"status"`
	Metadata *entity.MetadataRecord `json:"metadata,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
	Detail   string                 `json:"detail,omitempty"`
}

// Upload accepts a multipart form with user_id, user_directory and one or
// more "file" parts. Files are processed independently: one file failing
// never blocks or corrupts the records produced for its siblings.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.logger.Error("upload.parse_form_failed", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file too large (max %dMB) or invalid form", h.maxUploadBytes/(1024*1024)))
		return
	}

	userID := strings.TrimSpace(r.FormValue("user_id"))
	userDirectory := strings.TrimSpace(r.FormValue("user_directory"))
	if userID == "" || userDirectory == "" {
		writeError(w, http.StatusBadRequest, "user_id and user_directory are required")
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}

	results := make([]fileResult, len(files))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(uploadConcurrency)
	for i, fh := range files {
		g.Go(func() error {
			results[i] = h.processOne(ctx, fh, userID, userDirectory)
			return nil
		})
	}
	_ = g.Wait()

	w.Header().Set("Content-Type", "application/json")
	var payload any
	if len(results) == 1 {
		payload = results[0]
	} else {
		payload = map[string]any{"status": "batch", "results": results}
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("upload.encode_response_failed", "error", err)
	}
}

func (h *Handler) processOne(ctx context.Context, fh *multipart.FileHeader, userID, userDirectory string) fileResult {
	f, err := fh.Open()
	if err != nil {
		h.logger.Error("upload.open_part_failed", "filename", fh.Filename, "error", err)
		return fileResult{Status: "error", Detail: err.Error()}
	}
	defer f.Close()

	rec, err := h.proc.Process(ctx, f, fh.Filename, userID, userDirectory)
	if err != nil {
		h.logger.Error("upload.process_failed", "filename", fh.Filename, "error", err)
		return fileResult{Status: "error", Detail: err.Error()}
	}
	if rec == nil {
		return fileResult{Status: "skipped", Reason: "Already processed or unsupported format"}
	}

	if err := h.docs.Insert(ctx, rec); err != nil {
		h.logger.Error("upload.save_metadata_failed", "filename", fh.Filename, "error", err)
		return fileResult{Status: "error", Detail: err.Error()}
	}
	return fileResult{Status: "success", Metadata: rec}
}

// Documents lists all persisted records for a user.
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		http.NotFound(w, r)
		return
	}

	docs, err := h.docs.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("documents.list_failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if docs == nil {
		docs = []*entity.MetadataRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":    "success",
		"documents": docs,
	}); err != nil {
		h.logger.Error("documents.encode_response_failed", "error", err)
	}
}

// ExportDocuments returns a user's documents as an XLSX workbook.
func (h *Handler) ExportDocuments(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		http.NotFound(w, r)
		return
	}

	data, err := h.exporter.UserDocumentsXLSX(r.Context(), userID)
	if err != nil {
		h.logger.Error("documents.export_failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=documents.xlsx")
	if _, err := w.Write(data); err != nil {
		h.logger.Error("documents.export_write_failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "detail": detail})
}
