package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/forgeworks/authgate/internal/auth"
	"github.com/forgeworks/authgate/internal/models"
	"github.com/forgeworks/authgate/internal/services"
	pkghttp "github.com/forgeworks/authgate/pkg/http"
)

// TwoFAServiceInterface defines the interface for the 2FA lifecycle
type TwoFAServiceInterface interface {
	RequestChallenge(principal *auth.Principal) string
	GenerateAuthenticatorLink(principal *auth.Principal, format string) (string, error)
	VerifyAndEnable(ctx context.Context, principal *auth.Principal, sealedOTP string) error
	Disable(ctx context.Context, principal *auth.Principal) error
	GenerateOTP(ctx context.Context, principal *auth.Principal) (string, error)
	ValidateOTP(ctx context.Context, principal *auth.Principal, otpID, otp string) (bool, error)
}

// TwoFAHandler handles authenticator enrollment and disablement requests.
// Every route behind it requires an authenticated principal.
type TwoFAHandler struct {
	service TwoFAServiceInterface
}

// NewTwoFAHandler creates a new TwoFAHandler
func NewTwoFAHandler(service TwoFAServiceInterface) *TwoFAHandler {
	return &TwoFAHandler{service: service}
}

// Request DTOs

// EnableRequest carries the double-enveloped OTP proving authenticator
// possession
type EnableRequest struct {
	OTP string `json:"otp" validate:"required"`
}

// ValidateOTPRequest represents the request body for email OTP validation
type ValidateOTPRequest struct {
	OTP   string `json:"otp" validate:"required"`
	OTPID string `json:"otpId" validate:"required"`
}

// Challenge mints a fresh envelope challenge for the principal
func (h *TwoFAHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, models.ErrNotAuthenticated.Error())
		return
	}

	pkghttp.WriteData(w, http.StatusOK, h.service.RequestChallenge(principal))
}

// Link returns the double-enveloped authenticator provisioning link.
// ?format=qr returns a PNG data URL instead of the raw otpauth URI.
func (h *TwoFAHandler) Link(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, models.ErrNotAuthenticated.Error())
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = services.LinkFormatURI
	}
	if format != services.LinkFormatURI && format != services.LinkFormatQR {
		pkghttp.WriteBadRequest(w, "Invalid link format")
		return
	}

	sealed, err := h.service.GenerateAuthenticatorLink(principal, format)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, sealed)
}

// VerifyAndEnable commits the pending authenticator secret
func (h *TwoFAHandler) VerifyAndEnable(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, models.ErrNotAuthenticated.Error())
		return
	}

	var req EnableRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.VerifyAndEnable(r.Context(), principal, req.OTP); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, true)
}

// Disable turns 2FA off for the principal. Requires a recent OTP validation.
func (h *TwoFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, models.ErrNotAuthenticated.Error())
		return
	}

	if err := h.service.Disable(r.Context(), principal); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, true)
}

// GenerateOTP emails the principal a one-time code and returns its
// correlation id
func (h *TwoFAHandler) GenerateOTP(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, models.ErrNotAuthenticated.Error())
		return
	}

	otpID, err := h.service.GenerateOTP(r.Context(), principal)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, otpID)
}

// ValidateOTP checks an emailed one-time code; success opens the disable
// window
func (h *TwoFAHandler) ValidateOTP(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, models.ErrNotAuthenticated.Error())
		return
	}

	var req ValidateOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ok, err := h.service.ValidateOTP(r.Context(), principal, req.OTPID, req.OTP)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, ok)
}
