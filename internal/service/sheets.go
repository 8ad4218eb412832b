package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sheetdrop/sheetdrop/internal/model"
	"github.com/sheetdrop/sheetdrop/internal/store"
)

// Spreadsheet mimetypes accepted for upload, matching the original intake
// filter plus CSV.
var allowedMimetypes = map[string]string{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
	"application/vnd.ms-excel": ".xls",
	"text/csv":                 ".csv",
}

// SheetConfig carries the upload storage settings.
type SheetConfig struct {
	// Dir is where uploaded files are stored. Created on first use.
	Dir string
	// MaxSizeBytes caps a single upload. Zero means 10MB.
	MaxSizeBytes int64
}

// SheetService stores uploaded spreadsheet files and their metadata. It is
// the downstream collaborator behind the authorization gate; cell-level
// processing of spreadsheet contents is not done here.
type SheetService struct {
	store *store.Store
	log   *slog.Logger
	cfg   SheetConfig
}

// NewSheetService creates a SheetService.
func NewSheetService(st *store.Store, logger *slog.Logger, cfg SheetConfig) *SheetService {
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = 10 * 1024 * 1024
	}
	if cfg.Dir == "" {
		cfg.Dir = "uploads"
	}
	return &SheetService{store: st, log: logger, cfg: cfg}
}

// Upload persists the file to disk and records its metadata. CSV files get
// header and row counts; binary spreadsheet formats are stored as-is.
func (s *SheetService) Upload(ctx context.Context, owner *model.Account, originalName, mimetype string, r io.Reader) (*model.SheetFile, error) {
	ext, ok := allowedMimetypes[mimetype]
	if !ok {
		return nil, validationErr("only spreadsheet files are allowed")
	}

	if err := os.MkdirAll(s.cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	id := uuid.Must(uuid.NewV7()).String()
	filename := id + ext
	path := filepath.Join(s.cfg.Dir, filename)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	// Read one byte past the cap so an at-limit file is distinguishable
	// from an over-limit one.
	size, err := io.Copy(dst, io.LimitReader(r, s.cfg.MaxSizeBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if size > s.cfg.MaxSizeBytes {
		os.Remove(path)
		return nil, validationErr("file exceeds the %d byte upload limit", s.cfg.MaxSizeBytes)
	}

	f := &model.SheetFile{
		ID:           id,
		Filename:     filename,
		OriginalName: originalName,
		Mimetype:     mimetype,
		SizeBytes:    size,
		Path:         path,
		UploadedBy:   owner.ID,
	}

	if mimetype == "text/csv" {
		headers, rows, err := countCSV(path)
		if err != nil {
			s.log.Warn("failed to scan csv", "file_id", id, "error", err)
		} else {
			f.HeaderCount = headers
			f.RowCount = rows
		}
	}

	if err := s.store.CreateSheetFile(ctx, f); err != nil {
		os.Remove(path)
		return nil, err
	}

	s.log.Info("sheet uploaded", "file_id", id, "owner_id", owner.ID, "bytes", size)
	return f, nil
}

// FilesFor returns the requester's own uploads, newest first.
func (s *SheetService) FilesFor(ctx context.Context, owner *model.Account) ([]model.SheetFile, error) {
	return s.store.ListSheetFilesByOwner(ctx, owner.ID)
}

// File returns a single upload. Only the owner or an admin may read it.
func (s *SheetService) File(ctx context.Context, requester *model.Account, id string) (*model.SheetFile, error) {
	f, err := s.store.SheetFileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canAccess(requester, f) {
		return nil, ErrForbidden
	}
	return f, nil
}

// Delete removes an upload's record and its file on disk. Only the owner or
// an admin may delete it.
func (s *SheetService) Delete(ctx context.Context, requester *model.Account, id string) error {
	f, err := s.store.SheetFileByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.canAccess(requester, f) {
		return ErrForbidden
	}

	if err := s.store.DeleteSheetFile(ctx, id); err != nil {
		return err
	}

	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("failed to remove file from disk", "file_id", id, "error", err)
	}
	return nil
}

func (s *SheetService) canAccess(requester *model.Account, f *model.SheetFile) bool {
	return f.UploadedBy == requester.ID ||
		requester.Role.Satisfies(model.RoleAdmin, model.RoleSuperAdmin)
}

// countCSV returns the header column count and data row count of a CSV file.
func countCSV(path string) (headers, rows int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	headers = len(first)

	for {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return headers, rows, nil
			}
			return 0, 0, err
		}
		rows++
	}
}

// MimetypeForName guesses the accepted mimetype from a filename extension,
// used when the multipart part carries a generic content type.
func MimetypeForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".csv":
		return "text/csv"
	}
	return ""
}
