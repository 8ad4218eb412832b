package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sheetdrop/sheetdrop/internal/model"
	"github.com/sheetdrop/sheetdrop/internal/server/middleware"
	"github.com/sheetdrop/sheetdrop/internal/service"
)

// SheetHandler serves the spreadsheet upload endpoints. Every route requires
// authentication; ownership and role checks happen in the service.
type SheetHandler struct {
	sheets  *service.SheetService
	log     *slog.Logger
	maxBody int64
}

// NewSheetHandler creates a SheetHandler. maxBody bounds the multipart
// request size, slightly above the per-file limit to leave room for the
// multipart framing.
func NewSheetHandler(sheets *service.SheetService, logger *slog.Logger, maxBody int64) *SheetHandler {
	return &SheetHandler{sheets: sheets, log: logger, maxBody: maxBody}
}

// Upload stores a spreadsheet file for the authenticated account.
// POST /api/sheets/upload
func (h *SheetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	acct := middleware.GetAccount(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please upload a file")
		return
	}
	defer file.Close()

	mimetype := header.Header.Get("Content-Type")
	if guessed := service.MimetypeForName(header.Filename); guessed != "" {
		// Browsers often send application/octet-stream; trust the extension.
		mimetype = guessed
	}

	f, err := h.sheets.Upload(r.Context(), acct, header.Filename, mimetype, file)
	if err != nil {
		h.failSheet(w, r, "upload", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"file":    f,
	})
}

// ListFiles returns the authenticated account's uploads, newest first.
// GET /api/sheets/files
func (h *SheetHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	acct := middleware.GetAccount(r.Context())

	files, err := h.sheets.FilesFor(r.Context(), acct)
	if err != nil {
		h.failSheet(w, r, "list files", err)
		return
	}
	if files == nil {
		files = []model.SheetFile{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(files),
		"files":   files,
	})
}

// GetFile returns a single upload. Only the owner or an admin may read it.
// GET /api/sheets/files/{id}
func (h *SheetHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	acct := middleware.GetAccount(r.Context())
	id := chi.URLParam(r, "id")

	f, err := h.sheets.File(r.Context(), acct, id)
	if err != nil {
		h.failSheet(w, r, "get file", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"file":    f,
	})
}

// DeleteFile removes an upload. Only the owner or an admin may delete it.
// DELETE /api/sheets/files/{id}
func (h *SheetHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	acct := middleware.GetAccount(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.sheets.Delete(r.Context(), acct, id); err != nil {
		h.failSheet(w, r, "delete file", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "File deleted",
	})
}

func (h *SheetHandler) failSheet(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error(op+" failed", "error", err, "request_id", middleware.GetRequestID(r.Context()))
	}
	writeError(w, status, message)
}
