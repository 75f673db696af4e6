package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/forgeworks/authgate/internal/auth"
	"github.com/forgeworks/authgate/internal/models"
	"github.com/forgeworks/authgate/internal/services"
	pkghttp "github.com/forgeworks/authgate/pkg/http"
)

// LoginServiceInterface defines the interface for the login gate
type LoginServiceInterface interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Verify(ctx context.Context, tid, otp, otpType string) (*services.LoginResult, error)
	RequestEmailOTP(ctx context.Context, tid, email string) error
	VerifySessionToken(ctx context.Context, token string) (bool, error)
	GetUserData(ctx context.Context, principal *auth.Principal) *models.Record
	UsersExist(ctx context.Context) (bool, error)
	CreateFirstUser(ctx context.Context, email, username, name, password string) error
}

// AuthHandler handles login, session verification, and bootstrap requests
type AuthHandler struct {
	service LoginServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service LoginServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyRequest represents the request body for second-factor verification
type VerifyRequest struct {
	TID  string `json:"tid" validate:"required"`
	OTP  string `json:"otp" validate:"required"`
	Type string `json:"type" validate:"required,oneof=app email"`
}

// RequestOTPRequest represents the request body for emailing a login OTP
type RequestOTPRequest struct {
	TID   string `json:"tid" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// FirstUserRequest represents the request body for bootstrap account creation
type FirstUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3"`
	Name     string `json:"name" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=8"`
}

// loginResponse is the wire shape for both login outcomes.
type loginResponse struct {
	State   string         `json:"state"`
	Session string         `json:"session,omitempty"`
	TID     string         `json:"tid,omitempty"`
	User    *models.Record `json:"userData,omitempty"`
}

func toLoginResponse(result *services.LoginResult) loginResponse {
	return loginResponse{
		State:   result.State,
		Session: result.Session,
		TID:     result.TID,
		User:    result.Record,
	}
}

// Exists reports whether any account exists yet. Bootstrap probe, no auth.
func (h *AuthHandler) Exists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.service.UsersExist(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, exists)
}

// Login handles primary credential checks
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, toLoginResponse(result))
}

// Verify completes a pending login by consuming its session bridge
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Verify(r.Context(), req.TID, req.OTP, req.Type)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, toLoginResponse(result))
}

// RequestOTP asks the identity store to email a login OTP for a pending bridge
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req RequestOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := h.service.RequestEmailOTP(r.Context(), req.TID, req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, true)
}

// VerifyToken reports whether the presented bearer token still names a live
// session. Always 200 with a boolean; clients poll this.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token, err := auth.BearerToken(r)
	if err != nil {
		pkghttp.WriteData(w, http.StatusOK, false)
		return
	}

	ok, err := h.service.VerifySessionToken(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, ok)
}

// Me returns the authenticated principal's record, secrets stripped
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, models.ErrNotAuthenticated.Error())
		return
	}

	pkghttp.WriteData(w, http.StatusOK, h.service.GetUserData(r.Context(), principal))
}

// CreateFirstUser creates the bootstrap account while the store is empty
func (h *AuthHandler) CreateFirstUser(w http.ResponseWriter, r *http.Request) {
	var req FirstUserRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if err := h.service.CreateFirstUser(r.Context(), req.Email, req.Username, req.Name, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusCreated, true)
}
