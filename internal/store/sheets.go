package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sheetdrop/sheetdrop/internal/model"
)

// CreateSheetFile inserts an uploaded-file metadata record.
func (s *Store) CreateSheetFile(ctx context.Context, f *model.SheetFile) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	f.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO sheet_files
		(id, filename, original_name, mimetype, size_bytes, path, header_count, row_count, uploaded_by, created_at)
		VALUES
		(:id, :filename, :original_name, :mimetype, :size_bytes, :path, :header_count, :row_count, :uploaded_by, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, f); err != nil {
		return fmt.Errorf("insert sheet file: %w", err)
	}
	return nil
}

// SheetFileByID returns a single file record.
func (s *Store) SheetFileByID(ctx context.Context, id string) (*model.SheetFile, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var f model.SheetFile
	q := s.db.Rebind("SELECT * FROM sheet_files WHERE id = ?")
	if err := s.db.GetContext(ctx, &f, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get sheet file: %w", err)
	}
	return &f, nil
}

// ListSheetFilesByOwner returns an account's uploads, newest first.
func (s *Store) ListSheetFilesByOwner(ctx context.Context, ownerID string) ([]model.SheetFile, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var files []model.SheetFile
	q := s.db.Rebind("SELECT * FROM sheet_files WHERE uploaded_by = ? ORDER BY created_at DESC")
	if err := s.db.SelectContext(ctx, &files, q, ownerID); err != nil {
		return nil, fmt.Errorf("list sheet files: %w", err)
	}
	return files, nil
}

// DeleteSheetFile removes a file record by id.
func (s *Store) DeleteSheetFile(ctx context.Context, id string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	q := s.db.Rebind("DELETE FROM sheet_files WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete sheet file: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sheet file rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
