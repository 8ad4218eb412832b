package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sheetdrop/sheetdrop/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Options{}) // in-memory SQLite
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedAccount(t *testing.T, st *Store, email string, role model.Role, requested model.Role, approved bool) *model.Account {
	t.Helper()
	acct := &model.Account{
		ID:            uuid.Must(uuid.NewV7()).String(),
		Name:          "Seed",
		Email:         email,
		PasswordHash:  "x",
		Role:          role,
		RequestedRole: requested,
		IsApproved:    approved,
		IsActive:      true,
	}
	if err := st.CreateAccount(context.Background(), acct); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return acct
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	st := newTestStore(t)
	seedAccount(t, st, "dup@example.com", model.RoleUser, model.RoleUser, true)

	err := st.CreateAccount(context.Background(), &model.Account{
		ID:            uuid.Must(uuid.NewV7()).String(),
		Name:          "Again",
		Email:         "dup@example.com",
		PasswordHash:  "x",
		Role:          model.RoleUser,
		RequestedRole: model.RoleUser,
		IsActive:      true,
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestSuperAdminSingleton(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	has, err := st.HasSuperAdmin(ctx)
	if err != nil {
		t.Fatalf("HasSuperAdmin: %v", err)
	}
	if has {
		t.Fatal("fresh store should have no super admin")
	}

	seedAccount(t, st, "root@example.com", model.RoleSuperAdmin, model.RoleUser, true)

	has, err = st.HasSuperAdmin(ctx)
	if err != nil {
		t.Fatalf("HasSuperAdmin: %v", err)
	}
	if !has {
		t.Fatal("expected a super admin after seeding")
	}

	err = st.CreateAccount(ctx, &model.Account{
		ID:            uuid.Must(uuid.NewV7()).String(),
		Name:          "Second Root",
		Email:         "root2@example.com",
		PasswordHash:  "x",
		Role:          model.RoleSuperAdmin,
		RequestedRole: model.RoleUser,
		IsActive:      true,
	})
	if !errors.Is(err, ErrSuperAdminExists) {
		t.Errorf("expected ErrSuperAdminExists, got %v", err)
	}
}

func TestApproveAccountTransitions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	super := seedAccount(t, st, "root@example.com", model.RoleSuperAdmin, model.RoleUser, true)
	pending := seedAccount(t, st, "pending@example.com", model.RoleUser, model.RoleAdmin, false)

	if err := st.ApproveAccount(ctx, pending.ID, super.ID); err != nil {
		t.Fatalf("ApproveAccount: %v", err)
	}

	acct, err := st.AccountByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("AccountByID: %v", err)
	}
	if acct.Role != model.RoleAdmin || !acct.IsApproved {
		t.Errorf("expected approved admin, got role=%s approved=%v", acct.Role, acct.IsApproved)
	}
	if acct.ApprovedBy == nil || *acct.ApprovedBy != super.ID {
		t.Errorf("ApprovedBy: got %v, want %s", acct.ApprovedBy, super.ID)
	}

	// The conditional update makes a second resolution lose cleanly.
	if err := st.ApproveAccount(ctx, pending.ID, super.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second approve: expected ErrInvalidState, got %v", err)
	}
	if err := st.RejectAccount(ctx, pending.ID, false); !errors.Is(err, ErrInvalidState) {
		t.Errorf("reject after approve: expected ErrInvalidState, got %v", err)
	}

	// A missing account is reported as such, not as a state conflict.
	if err := st.ApproveAccount(ctx, "no-such-id", super.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("approve missing: expected ErrNotFound, got %v", err)
	}
}

func TestRejectAccountDelete(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	pending := seedAccount(t, st, "pending@example.com", model.RoleUser, model.RoleAdmin, false)

	if err := st.RejectAccount(ctx, pending.ID, false); err != nil {
		t.Fatalf("RejectAccount: %v", err)
	}
	if _, err := st.AccountByID(ctx, pending.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected the rejected account to be purged, got %v", err)
	}
}

func TestRejectAccountRetain(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	pending := seedAccount(t, st, "pending@example.com", model.RoleUser, model.RoleAdmin, false)

	if err := st.RejectAccount(ctx, pending.ID, true); err != nil {
		t.Fatalf("RejectAccount: %v", err)
	}

	acct, err := st.AccountByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("AccountByID: %v", err)
	}
	if acct.RejectedAt == nil || acct.IsActive {
		t.Errorf("expected deactivated row with rejected_at set, got rejected_at=%v active=%v",
			acct.RejectedAt, acct.IsActive)
	}

	// A soft-rejected row is out of the pending set.
	pendingList, err := st.ListPendingAdmins(ctx)
	if err != nil {
		t.Fatalf("ListPendingAdmins: %v", err)
	}
	if len(pendingList) != 0 {
		t.Errorf("expected no pending admins, got %d", len(pendingList))
	}
}

func TestListApprovedResolvesApprover(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	super := seedAccount(t, st, "root@example.com", model.RoleSuperAdmin, model.RoleUser, true)
	pending := seedAccount(t, st, "pending@example.com", model.RoleUser, model.RoleAdmin, false)
	if err := st.ApproveAccount(ctx, pending.ID, super.ID); err != nil {
		t.Fatalf("ApproveAccount: %v", err)
	}

	approved, err := st.ListApproved(ctx)
	if err != nil {
		t.Fatalf("ListApproved: %v", err)
	}
	if len(approved) != 2 {
		t.Fatalf("expected 2 approved accounts, got %d", len(approved))
	}

	var found bool
	for i := range approved {
		if approved[i].ID != pending.ID {
			continue
		}
		found = true
		ref := approved[i].Approver()
		if ref == nil {
			t.Fatal("expected approver to be resolved")
		}
		if ref.ID != super.ID || ref.Email != super.Email {
			t.Errorf("approver: got %+v, want id=%s email=%s", ref, super.ID, super.Email)
		}
	}
	if !found {
		t.Error("approved account missing from listing")
	}

	// The self-approved super admin has no approver reference.
	for i := range approved {
		if approved[i].ID == super.ID && approved[i].Approver() != nil {
			t.Error("expected nil approver for the provisioned super admin")
		}
	}
}

func TestUpdateLastLoginMissing(t *testing.T) {
	st := newTestStore(t)
	if err := st.UpdateLastLogin(context.Background(), "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSheetFileRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	owner := seedAccount(t, st, "owner@example.com", model.RoleUser, model.RoleUser, true)

	f := &model.SheetFile{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Filename:     "abc.csv",
		OriginalName: "scores.csv",
		Mimetype:     "text/csv",
		SizeBytes:    42,
		Path:         "/tmp/abc.csv",
		HeaderCount:  3,
		RowCount:     2,
		UploadedBy:   owner.ID,
	}
	if err := st.CreateSheetFile(ctx, f); err != nil {
		t.Fatalf("CreateSheetFile: %v", err)
	}

	got, err := st.SheetFileByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("SheetFileByID: %v", err)
	}
	if got.OriginalName != f.OriginalName || got.SizeBytes != f.SizeBytes || got.UploadedBy != owner.ID {
		t.Errorf("round trip mismatch: got %+v", got)
	}

	files, err := st.ListSheetFilesByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListSheetFilesByOwner: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}

	if err := st.DeleteSheetFile(ctx, f.ID); err != nil {
		t.Fatalf("DeleteSheetFile: %v", err)
	}
	if err := st.DeleteSheetFile(ctx, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
