package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sheetdrop/sheetdrop/internal/model"
	"github.com/sheetdrop/sheetdrop/internal/server/middleware"
	"github.com/sheetdrop/sheetdrop/internal/service"
	"github.com/sheetdrop/sheetdrop/internal/store"
)

// AuthHandler serves registration, login, and the admin approval endpoints.
type AuthHandler struct {
	auth *service.AuthService
	log  *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: logger}
}

type registerRequest struct {
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Password      string     `json:"password"`
	RequestedRole model.Role `json:"requestedRole"`
}

// Register creates a new account. A user registration is auto-approved and
// returns a token; an admin registration is created pending and returns
// requiresApproval instead.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password, req.RequestedRole)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}

	if result.RequiresApproval {
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success":          true,
			"message":          "Admin registration request submitted! Please wait for approval before logging in.",
			"user":             accountSummary(result.Account),
			"requiresApproval": true,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User registration successful!",
		"token":   result.Token,
		"user":    accountSummary(result.Account),
	})
}

type loginRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

// Login verifies credentials and the claimed role and returns a bearer token.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}

	acct, token, err := h.auth.Login(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrApprovalPending) {
			writeApprovalPending(w)
			return
		}
		h.fail(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    accountSummary(acct),
	})
}

// Me returns the authenticated account.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	acct := middleware.GetAccount(r.Context())

	m := accountSummary(acct)
	m["requestedRole"] = acct.RequestedRole
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    m,
	})
}

// PendingUsers lists unresolved admin elevation requests, newest first.
// GET /api/auth/pending-users
func (h *AuthHandler) PendingUsers(w http.ResponseWriter, r *http.Request) {
	pending, err := h.auth.PendingAccounts(r.Context())
	if err != nil {
		h.fail(w, r, "list pending users", err)
		return
	}

	users := make([]map[string]interface{}, 0, len(pending))
	for i := range pending {
		users = append(users, accountDetail(&pending[i], nil))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   users,
		"count":   len(users),
	})
}

type approveRequest struct {
	Approve *bool `json:"approve"`
}

// ApproveUser resolves a pending admin request: granting promotes the
// account, rejecting removes it (or retains it deactivated, depending on
// configuration).
// PUT /api/auth/approve-user/{id}
func (h *AuthHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req approveRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Approve == nil {
		writeError(w, http.StatusBadRequest, "approve is required")
		return
	}

	approver := middleware.GetAccount(r.Context())

	acct, err := h.auth.Approve(r.Context(), id, *req.Approve, approver)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.fail(w, r, "approve user", err)
		return
	}

	if acct == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Admin request rejected and account removed.",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Admin access approved successfully. User can now login as admin.",
		"user":    accountSummary(acct),
	})
}

// ListUsers returns all approved accounts with approver identity resolved.
// GET /api/auth/users
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	approved, err := h.auth.ApprovedAccounts(r.Context())
	if err != nil {
		h.fail(w, r, "list users", err)
		return
	}

	users := make([]map[string]interface{}, 0, len(approved))
	for i := range approved {
		users = append(users, accountDetail(&approved[i].Account, approved[i].Approver()))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   users,
	})
}

// fail maps err onto the error taxonomy and logs anything unexpected rather
// than leaking it to the client.
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error(op+" failed", "error", err, "request_id", middleware.GetRequestID(r.Context()))
	}
	writeError(w, status, message)
}

// accountSummary is the compact account shape returned by register and login.
func accountSummary(acct *model.Account) map[string]interface{} {
	return map[string]interface{}{
		"id":         acct.ID,
		"name":       acct.Name,
		"email":      acct.Email,
		"role":       acct.Role,
		"isApproved": acct.IsApproved,
	}
}

// accountDetail is the full account shape for admin list endpoints, with the
// approver reference resolved when available.
func accountDetail(acct *model.Account, approver *model.ApproverRef) map[string]interface{} {
	m := map[string]interface{}{
		"id":            acct.ID,
		"name":          acct.Name,
		"email":         acct.Email,
		"role":          acct.Role,
		"requestedRole": acct.RequestedRole,
		"isApproved":    acct.IsApproved,
		"isActive":      acct.IsActive,
		"createdAt":     acct.CreatedAt,
	}
	if approver != nil {
		m["approvedBy"] = approver
	}
	if acct.ApprovedAt != nil {
		m["approvedAt"] = acct.ApprovedAt
	}
	if acct.LastLogin != nil {
		m["lastLogin"] = acct.LastLogin
	}
	return m
}
