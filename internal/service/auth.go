package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sheetdrop/sheetdrop/internal/model"
	"github.com/sheetdrop/sheetdrop/internal/store"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned for soft-disabled accounts.
	ErrAccountDisabled = errors.New("account has been deactivated")
	// ErrApprovalPending is returned when a pending-admin account logs in
	// with the admin role before approval.
	ErrApprovalPending = errors.New("admin access request pending approval")
	// ErrForbidden is returned when the stored role does not satisfy the
	// claimed or required role.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidRole is returned for a role outside the registrable set.
	ErrInvalidRole = errors.New("invalid role specified")
)

// ValidationError reports a request that failed input validation. The
// message is safe to return to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErr(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthConfig carries the tunable policy knobs for the auth service.
type AuthConfig struct {
	// MinPasswordLength is the registration password policy. Zero means 6.
	MinPasswordLength int
	// BcryptCost is the password hashing cost. Zero means bcrypt.DefaultCost.
	BcryptCost int
	// RetainRejected keeps rejected elevation requests as deactivated rows
	// for audit instead of deleting them.
	RetainRejected bool
}

// AuthService owns registration, credential verification, the approval
// workflow, and per-request authentication.
type AuthService struct {
	store  *store.Store
	tokens *TokenIssuer
	log    *slog.Logger
	cfg    AuthConfig
}

// NewAuthService creates an AuthService.
func NewAuthService(st *store.Store, tokens *TokenIssuer, logger *slog.Logger, cfg AuthConfig) *AuthService {
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = 6
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{store: st, tokens: tokens, log: logger, cfg: cfg}
}

// Tokens exposes the token issuer, used by tests and the CLI.
func (s *AuthService) Tokens() *TokenIssuer { return s.tokens }

// NormalizeEmail lowercases and trims an email so lookups and the unique
// constraint agree on a single canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterResult is the outcome of a registration. Token is set only for
// auto-approved user registrations; RequiresApproval marks pending-admin
// registrations.
type RegisterResult struct {
	Account          *model.Account
	Token            string
	RequiresApproval bool
}

// Register creates an account in one of two initial states: an auto-approved
// user (with an immediate token) or a pending admin awaiting approval.
func (s *AuthService) Register(ctx context.Context, name, email, password string, requestedRole model.Role) (*RegisterResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("name is required")
	}

	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationErr("please provide a valid email")
	}

	if len(password) < s.cfg.MinPasswordLength {
		return nil, validationErr("password must be at least %d characters", s.cfg.MinPasswordLength)
	}

	if requestedRole == "" {
		requestedRole = model.RoleUser
	}
	if !requestedRole.Satisfies(model.RoleUser, model.RoleAdmin) {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &model.Account{
		ID:            uuid.Must(uuid.NewV7()).String(),
		Name:          name,
		Email:         email,
		PasswordHash:  string(hash),
		Role:          model.RoleUser,
		RequestedRole: requestedRole,
		IsActive:      true,
	}

	if requestedRole == model.RoleUser {
		acct.IsApproved = true
		now := timeNow()
		acct.ApprovedAt = &now
	}

	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}

	s.log.Info("account registered",
		"account_id", acct.ID,
		"requested_role", acct.RequestedRole,
		"approved", acct.IsApproved,
	)

	if requestedRole == model.RoleAdmin {
		return &RegisterResult{Account: acct, RequiresApproval: true}, nil
	}

	token, err := s.tokens.Issue(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &RegisterResult{Account: acct, Token: token}, nil
}

// Login verifies credentials and the claimed role, stamps last_login, and
// issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string, claimedRole model.Role) (*model.Account, string, error) {
	email = NormalizeEmail(email)

	acct, err := s.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison anyway so unknown-email and
			// wrong-password take comparable time.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if !acct.IsActive {
		return nil, "", ErrAccountDisabled
	}

	required, err := requiredRoles(claimedRole)
	if err != nil {
		return nil, "", err
	}
	if !acct.Role.Satisfies(required...) {
		if claimedRole == model.RoleAdmin && acct.PendingAdmin() {
			return nil, "", ErrApprovalPending
		}
		return nil, "", ErrForbidden
	}

	if err := s.store.UpdateLastLogin(ctx, acct.ID); err != nil {
		s.log.Warn("failed to update last login", "account_id", acct.ID, "error", err)
	}

	token, err := s.tokens.Issue(acct.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.log.Info("login", "account_id", acct.ID, "role", acct.Role)
	return acct, token, nil
}

// Authenticate resolves a bearer token to the current account. The role and
// active flag are read from the store, never from the token, so approvals
// and deactivations take effect on the very next request.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Account, error) {
	accountID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	acct, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	if !acct.IsActive {
		return nil, ErrAccountDisabled
	}
	return acct, nil
}

// Approve resolves a pending elevation request. Granting promotes the
// account to admin and records the approver; rejecting purges the account
// (or deactivates it when RetainRejected is set) and returns nil. The caller
// is assumed to be authorized already; the HTTP gate enforces that.
func (s *AuthService) Approve(ctx context.Context, accountID string, grant bool, approver *model.Account) (*model.Account, error) {
	acct, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.PendingAdmin() {
		return nil, store.ErrInvalidState
	}

	if !grant {
		if err := s.store.RejectAccount(ctx, accountID, s.cfg.RetainRejected); err != nil {
			return nil, err
		}
		s.log.Info("admin request rejected",
			"account_id", accountID,
			"approver_id", approver.ID,
			"retained", s.cfg.RetainRejected,
		)
		return nil, nil
	}

	if err := s.store.ApproveAccount(ctx, accountID, approver.ID); err != nil {
		return nil, err
	}

	s.log.Info("admin request approved", "account_id", accountID, "approver_id", approver.ID)
	return s.store.AccountByID(ctx, accountID)
}

// PendingAccounts lists unresolved admin elevation requests, newest first.
func (s *AuthService) PendingAccounts(ctx context.Context) ([]model.Account, error) {
	return s.store.ListPendingAdmins(ctx)
}

// ApprovedAccounts lists approved accounts with approver identity resolved.
func (s *AuthService) ApprovedAccounts(ctx context.Context) ([]store.ApprovedAccount, error) {
	return s.store.ListApproved(ctx)
}

// ProvisionSuperAdmin creates the single super admin account. The store
// refuses a second one, keeping the singleton a provisioning-time invariant
// rather than an in-memory assumption.
func (s *AuthService) ProvisionSuperAdmin(ctx context.Context, name, email, password string) (*model.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Super Admin"
	}

	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationErr("please provide a valid email")
	}
	if len(password) < s.cfg.MinPasswordLength {
		return nil, validationErr("password must be at least %d characters", s.cfg.MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := timeNow()
	acct := &model.Account{
		ID:            uuid.Must(uuid.NewV7()).String(),
		Name:          name,
		Email:         email,
		PasswordHash:  string(hash),
		Role:          model.RoleSuperAdmin,
		RequestedRole: model.RoleUser,
		IsApproved:    true,
		ApprovedAt:    &now,
		IsActive:      true,
	}

	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}

	s.log.Info("super admin provisioned", "account_id", acct.ID)
	return acct, nil
}

// requiredRoles maps a claimed login role to the stored roles that satisfy it.
func requiredRoles(claimed model.Role) ([]model.Role, error) {
	switch claimed {
	case model.RoleUser:
		return []model.Role{model.RoleUser}, nil
	case model.RoleAdmin:
		return []model.Role{model.RoleAdmin, model.RoleSuperAdmin}, nil
	case model.RoleSuperAdmin:
		return []model.Role{model.RoleSuperAdmin}, nil
	default:
		return nil, ErrInvalidRole
	}
}

func timeNow() time.Time { return time.Now().UTC() }

// dummyHash keeps the unknown-email path doing the same bcrypt work as the
// wrong-password path.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("sheetdrop-timing-pad"), bcrypt.MinCost)
	return h
}()
