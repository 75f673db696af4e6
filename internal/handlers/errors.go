package handlers

import (
	"errors"
	"net/http"

	"github.com/forgeworks/authgate/internal/models"
	pkghttp "github.com/forgeworks/authgate/pkg/http"
)

// writeServiceError maps sentinel errors to status codes. The error text is
// the caller-facing contract, so it goes out verbatim; anything unrecognized
// collapses to a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrInvalidTokenID),
		errors.Is(err, models.ErrTokenExpired),
		errors.Is(err, models.ErrInvalidSession),
		errors.Is(err, models.ErrInvalidOTP),
		errors.Is(err, models.ErrNoToken),
		errors.Is(err, models.ErrOAuthStateInvalid),
		errors.Is(err, models.ErrOAuthStateExpired):
		pkghttp.WriteUnauthorized(w, err.Error())
	case errors.Is(err, models.ErrUnknownOTPType),
		errors.Is(err, models.ErrSetupExpired),
		errors.Is(err, models.ErrChallengeExpired),
		errors.Is(err, models.ErrInvalidProvider),
		errors.Is(err, models.ErrProviderMismatch):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrDisableNotAllowed),
		errors.Is(err, models.ErrDisableWindowExpired):
		pkghttp.WriteForbidden(w, err.Error())
	case errors.Is(err, models.ErrUsersExist):
		pkghttp.WriteError(w, http.StatusConflict, err.Error())
	default:
		pkghttp.WriteInternalError(w, models.ErrInternalServer.Error())
	}
}
