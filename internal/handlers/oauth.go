package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/forgeworks/authgate/internal/services"
	pkghttp "github.com/forgeworks/authgate/pkg/http"
)

// OAuthServiceInterface defines the interface for the OAuth relay
type OAuthServiceInterface interface {
	ListProviders(ctx context.Context) ([]string, error)
	GetEndpoint(ctx context.Context, provider string) (*services.OAuthEndpoint, error)
	Verify(ctx context.Context, provider, code, relay, origin string) (*services.LoginResult, error)
}

// OAuthHandler handles OAuth relay requests
type OAuthHandler struct {
	service OAuthServiceInterface
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(service OAuthServiceInterface) *OAuthHandler {
	return &OAuthHandler{service: service}
}

// Request DTOs

// EndpointRequest represents the request body for starting an OAuth flow
type EndpointRequest struct {
	Provider string `json:"provider" validate:"required"`
}

// OAuthVerifyRequest represents the callback leg of an OAuth flow
type OAuthVerifyRequest struct {
	Provider string `json:"provider" validate:"required"`
	Code     string `json:"code" validate:"required"`
	State    string `json:"state" validate:"required"`
}

// ListProviders returns the configured provider names
func (h *OAuthHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.service.ListProviders(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, providers)
}

// Endpoint prepares a provider redirect and parks the PKCE verifier
func (h *OAuthHandler) Endpoint(w http.ResponseWriter, r *http.Request) {
	var req EndpointRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	endpoint, err := h.service.GetEndpoint(r.Context(), req.Provider)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, endpoint)
}

// Verify completes the callback leg of an OAuth flow
func (h *OAuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req OAuthVerifyRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	origin := pkghttp.Origin(r)
	if origin == "" {
		pkghttp.WriteBadRequest(w, "Missing request origin")
		return
	}

	result, err := h.service.Verify(r.Context(), req.Provider, req.Code, req.State, origin)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteData(w, http.StatusOK, toLoginResponse(result))
}
