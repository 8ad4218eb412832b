package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/sheetdrop/sheetdrop/internal/store"
)

func newTestSheets(t *testing.T, cfg SheetConfig) (*SheetService, *AuthService) {
	t.Helper()
	auth, st := newTestAuth(t)
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSheetService(st, logger, cfg), auth
}

const sampleCSV = "name,email,score\nalice,a@example.com,10\nbob,b@example.com,7\n"

func TestUploadCSV(t *testing.T) {
	sheets, auth := newTestSheets(t, SheetConfig{})
	ctx := context.Background()

	owner := registerUser(t, auth, "owner@example.com")

	f, err := sheets.Upload(ctx, owner, "scores.csv", "text/csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if f.OriginalName != "scores.csv" {
		t.Errorf("OriginalName: got %q", f.OriginalName)
	}
	if f.SizeBytes != int64(len(sampleCSV)) {
		t.Errorf("SizeBytes: got %d, want %d", f.SizeBytes, len(sampleCSV))
	}
	if f.HeaderCount != 3 || f.RowCount != 2 {
		t.Errorf("csv scan: got %d headers / %d rows, want 3 / 2", f.HeaderCount, f.RowCount)
	}
	if !strings.HasSuffix(f.Filename, ".csv") {
		t.Errorf("Filename: got %q, want a .csv name", f.Filename)
	}

	// The bytes landed on disk.
	data, err := os.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != sampleCSV {
		t.Error("stored file does not match the upload")
	}
}

func TestUploadRejectsMimetype(t *testing.T) {
	sheets, auth := newTestSheets(t, SheetConfig{})
	owner := registerUser(t, auth, "owner@example.com")

	_, err := sheets.Upload(context.Background(), owner, "notes.txt", "text/plain", strings.NewReader("hello"))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestUploadSizeLimit(t *testing.T) {
	sheets, auth := newTestSheets(t, SheetConfig{MaxSizeBytes: 16})
	owner := registerUser(t, auth, "owner@example.com")

	// Exactly at the limit is fine.
	if _, err := sheets.Upload(context.Background(), owner, "ok.csv", "text/csv", strings.NewReader(strings.Repeat("a", 16))); err != nil {
		t.Fatalf("at-limit upload: %v", err)
	}

	// One byte over is refused.
	_, err := sheets.Upload(context.Background(), owner, "big.csv", "text/csv", strings.NewReader(strings.Repeat("a", 17)))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("over-limit upload: expected ValidationError, got %v", err)
	}
}

func TestFileAccessControl(t *testing.T) {
	sheets, auth := newTestSheets(t, SheetConfig{})
	ctx := context.Background()

	owner := registerUser(t, auth, "owner@example.com")
	other := registerUser(t, auth, "other@example.com")
	super := seedSuperAdmin(t, auth)

	f, err := sheets.Upload(ctx, owner, "scores.csv", "text/csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if _, err := sheets.File(ctx, owner, f.ID); err != nil {
		t.Errorf("owner read: %v", err)
	}
	if _, err := sheets.File(ctx, other, f.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other user read: expected ErrForbidden, got %v", err)
	}
	if _, err := sheets.File(ctx, super, f.ID); err != nil {
		t.Errorf("super admin read: %v", err)
	}

	// Listings are per-owner.
	files, err := sheets.FilesFor(ctx, other)
	if err != nil {
		t.Fatalf("FilesFor: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files for other user, got %d", len(files))
	}
}

func TestDeleteFile(t *testing.T) {
	sheets, auth := newTestSheets(t, SheetConfig{})
	ctx := context.Background()

	owner := registerUser(t, auth, "owner@example.com")
	other := registerUser(t, auth, "other@example.com")

	f, err := sheets.Upload(ctx, owner, "scores.csv", "text/csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := sheets.Delete(ctx, other, f.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other user delete: expected ErrForbidden, got %v", err)
	}

	if err := sheets.Delete(ctx, owner, f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(f.Path); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected the file to be removed from disk")
	}
	if _, err := sheets.File(ctx, owner, f.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("read after delete: expected ErrNotFound, got %v", err)
	}
}

func TestMimetypeForName(t *testing.T) {
	cases := map[string]string{
		"report.XLSX": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"legacy.xls":  "application/vnd.ms-excel",
		"data.csv":    "text/csv",
		"notes.txt":   "",
	}
	for name, want := range cases {
		if got := MimetypeForName(name); got != want {
			t.Errorf("MimetypeForName(%q): got %q, want %q", name, got, want)
		}
	}
}
