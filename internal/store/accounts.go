package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sheetdrop/sheetdrop/internal/model"
)

// CreateAccount inserts a new account. CreatedAt is populated on success.
// A second super_admin is refused here so the singleton invariant holds at
// creation time no matter which caller provisions the account.
func (s *Store) CreateAccount(ctx context.Context, acct *model.Account) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if acct.Role == model.RoleSuperAdmin {
		exists, err := s.HasSuperAdmin(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrSuperAdminExists
		}
	}

	acct.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO accounts
		(id, name, email, password_hash, role, requested_role, is_approved,
		 approved_by, approved_at, is_active, rejected_at, last_login, created_at)
		VALUES
		(:id, :name, :email, :password_hash, :role, :requested_role, :is_approved,
		 :approved_by, :approved_at, :is_active, :rejected_at, :last_login, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, acct); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// AccountByEmail returns the account with the given (already normalized) email.
func (s *Store) AccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var acct model.Account
	q := s.db.Rebind("SELECT * FROM accounts WHERE email = ?")
	if err := s.db.GetContext(ctx, &acct, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return &acct, nil
}

// AccountByID returns the account with the given id.
func (s *Store) AccountByID(ctx context.Context, id string) (*model.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var acct model.Account
	q := s.db.Rebind("SELECT * FROM accounts WHERE id = ?")
	if err := s.db.GetContext(ctx, &acct, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

// ListPendingAdmins returns unresolved admin elevation requests, newest first.
func (s *Store) ListPendingAdmins(ctx context.Context) ([]model.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var accts []model.Account
	const q = `SELECT * FROM accounts
		WHERE requested_role = 'admin' AND is_approved = FALSE AND rejected_at IS NULL
		ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &accts, q); err != nil {
		return nil, fmt.Errorf("list pending admins: %w", err)
	}
	return accts, nil
}

// ApprovedAccount pairs an account with its resolved approver identity.
type ApprovedAccount struct {
	model.Account
	ApproverName  *string `db:"approver_name"`
	ApproverEmail *string `db:"approver_email"`
}

// Approver returns the resolved approver reference, or nil if the account
// was auto-approved at registration.
func (a *ApprovedAccount) Approver() *model.ApproverRef {
	if a.ApprovedBy == nil || a.ApproverName == nil || a.ApproverEmail == nil {
		return nil
	}
	return &model.ApproverRef{ID: *a.ApprovedBy, Name: *a.ApproverName, Email: *a.ApproverEmail}
}

// ListApproved returns all approved accounts with approver identity resolved,
// newest first.
func (s *Store) ListApproved(ctx context.Context) ([]ApprovedAccount, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var accts []ApprovedAccount
	const q = `SELECT a.*, ap.name AS approver_name, ap.email AS approver_email
		FROM accounts a
		LEFT JOIN accounts ap ON ap.id = a.approved_by
		WHERE a.is_approved = TRUE
		ORDER BY a.created_at DESC`
	if err := s.db.SelectContext(ctx, &accts, q); err != nil {
		return nil, fmt.Errorf("list approved accounts: %w", err)
	}
	return accts, nil
}

// ApproveAccount promotes a pending-admin account. The update is conditioned
// on the row still being pending at write time, so concurrent approvals
// cannot both win; the loser sees ErrInvalidState.
func (s *Store) ApproveAccount(ctx context.Context, id, approverID string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	q := s.db.Rebind(`UPDATE accounts
		SET role = 'admin', is_approved = TRUE, approved_by = ?, approved_at = ?
		WHERE id = ? AND requested_role = 'admin' AND is_approved = FALSE AND rejected_at IS NULL`)
	result, err := s.db.ExecContext(ctx, q, approverID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("approve account: %w", err)
	}
	return s.transitionOutcome(ctx, result, id)
}

// RejectAccount resolves a pending-admin request negatively. With retain set
// the row is kept for audit, deactivated with rejected_at stamped; otherwise
// it is deleted. Conditioned on the row still being pending, like approve.
func (s *Store) RejectAccount(ctx context.Context, id string, retain bool) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	const pending = `requested_role = 'admin' AND is_approved = FALSE AND rejected_at IS NULL`

	var (
		result sql.Result
		err    error
	)
	if retain {
		q := s.db.Rebind(`UPDATE accounts SET rejected_at = ?, is_active = FALSE WHERE id = ? AND ` + pending)
		result, err = s.db.ExecContext(ctx, q, time.Now().UTC(), id)
	} else {
		q := s.db.Rebind(`DELETE FROM accounts WHERE id = ? AND ` + pending)
		result, err = s.db.ExecContext(ctx, q, id)
	}
	if err != nil {
		return fmt.Errorf("reject account: %w", err)
	}
	return s.transitionOutcome(ctx, result, id)
}

// transitionOutcome distinguishes a missing account from one that exists but
// is not pending, after a conditional transition affected zero rows.
func (s *Store) transitionOutcome(ctx context.Context, result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.AccountByID(ctx, id); errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return ErrInvalidState
}

// UpdateLastLogin stamps the last_login timestamp for an account.
func (s *Store) UpdateLastLogin(ctx context.Context, id string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	q := s.db.Rebind("UPDATE accounts SET last_login = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last login rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// HasSuperAdmin reports whether a super admin account exists.
func (s *Store) HasSuperAdmin(ctx context.Context) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var count int
	q := s.db.Rebind("SELECT COUNT(*) FROM accounts WHERE role = ?")
	if err := s.db.GetContext(ctx, &count, q, model.RoleSuperAdmin); err != nil {
		return false, fmt.Errorf("count super admins: %w", err)
	}
	return count > 0, nil
}

// ListAccounts returns every account, newest first. Used by the CLI.
func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var accts []model.Account
	if err := s.db.SelectContext(ctx, &accts, "SELECT * FROM accounts ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accts, nil
}
