package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forgeworks/authgate/internal/auth"
	"github.com/forgeworks/authgate/internal/envelope"
	"github.com/forgeworks/authgate/internal/identity"
	"github.com/forgeworks/authgate/internal/models"
	"github.com/forgeworks/authgate/internal/stores"
	pkglogger "github.com/forgeworks/authgate/pkg/logger"
)

// Link formats for GenerateAuthenticatorLink.
const (
	LinkFormatURI = "uri"
	LinkFormatQR  = "qr"
)

// TwoFAWindows bundles the validity windows for each 2FA workflow grant.
type TwoFAWindows struct {
	Setup     time.Duration
	Challenge time.Duration
	Disable   time.Duration
}

// TwoFAService manages the authenticator enrollment lifecycle: challenge
// issuance, pending-secret generation, double-envelope delivery, verification,
// commitment, and disablement.
type TwoFAService struct {
	store     identity.Store
	states    *stores.TwoFAStore
	totp      *auth.TOTPManager
	masterKey string
	windows   TwoFAWindows
	logger    *slog.Logger
	audit     *pkglogger.AuditLogger
}

// NewTwoFAService creates a 2FA lifecycle manager.
func NewTwoFAService(store identity.Store, states *stores.TwoFAStore, totp *auth.TOTPManager, masterKey string, windows TwoFAWindows, logger *slog.Logger, audit *pkglogger.AuditLogger) *TwoFAService {
	return &TwoFAService{
		store:     store,
		states:    states,
		totp:      totp,
		masterKey: masterKey,
		windows:   windows,
		logger:    logger,
		audit:     audit,
	}
}

// RequestChallenge mints a fresh challenge for the principal and retains it
// server-side. The same challenge must come back implicitly at link time and
// enable time: both sides of the inner envelope key off it.
func (s *TwoFAService) RequestChallenge(principal *auth.Principal) string {
	challenge := uuid.NewString()
	s.states.SetChallenge(principal.Record.ID, challenge, s.windows.Challenge)
	return challenge
}

// GenerateAuthenticatorLink generates a pending TOTP secret and returns the
// provisioning link wrapped in a double envelope: inner layer keyed by the
// retained challenge, outer layer keyed by the caller's session token. The
// client peels the outer layer with its token and the inner with the
// challenge it requested.
func (s *TwoFAService) GenerateAuthenticatorLink(principal *auth.Principal, format string) (string, error) {
	challenge, err := s.states.Challenge(principal.Record.ID)
	if err != nil {
		return "", err
	}

	secret, err := s.totp.GenerateSecret(principal.Record.Email)
	if err != nil {
		s.logger.Error("failed to generate TOTP secret", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.states.SetTempCode(principal.Record.ID, secret, s.windows.Setup)

	payload := s.totp.ProvisioningURI(principal.Record.Email, secret)
	if format == LinkFormatQR {
		payload, err = s.totp.QRCodeDataURL(payload)
		if err != nil {
			s.logger.Error("failed to render QR code", slog.Any("error", err))
			return "", models.ErrInternalServer
		}
	}

	inner, err := envelope.Encrypt(payload, challenge)
	if err != nil {
		s.logger.Error("failed to seal inner envelope", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	outer, err := envelope.Encrypt(inner, principal.Token)
	if err != nil {
		s.logger.Error("failed to seal outer envelope", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	return outer, nil
}

// VerifyAndEnable proves possession of the pending secret and commits it.
// The submitted OTP arrives double-enveloped in the reverse direction: outer
// layer keyed by the session token, inner by the retained challenge. Pending
// state is cleared only after a successful commit so a mistyped code can be
// retried within the setup window.
func (s *TwoFAService) VerifyAndEnable(ctx context.Context, principal *auth.Principal, sealedOTP string) error {
	pid := principal.Record.ID

	tempSecret, err := s.states.TempCode(pid)
	if err != nil {
		return err
	}

	challenge, err := s.states.Challenge(pid)
	if err != nil {
		return err
	}

	inner, err := envelope.Decrypt(sealedOTP, principal.Token)
	if err != nil {
		return models.ErrInvalidOTP
	}

	otp, err := envelope.Decrypt(inner, challenge)
	if err != nil {
		return models.ErrInvalidOTP
	}

	if !s.totp.Validate(otp, tempSecret) {
		s.audit.LogTwoFAAction("enable_failed", pid, false)
		return models.ErrInvalidOTP
	}

	sealed, err := envelope.Encrypt(tempSecret, s.masterKey)
	if err != nil {
		s.logger.Error("failed to wrap 2FA secret", slog.Any("error", err))
		return models.ErrInternalServer
	}

	err = s.store.UpdateRecord(ctx, principal.Token, pid, map[string]any{
		"twoFASecret": sealed,
	})
	if err != nil {
		s.logger.Error("failed to commit 2FA secret", slog.String("principal_id", pid), slog.Any("error", err))
		return models.ErrUpstream
	}

	s.states.Delete(pid)
	s.audit.LogTwoFAAction("enabled", pid, true)
	return nil
}

// Disable clears the committed 2FA secret. It requires a recent OTP proof:
// ValidateOTP must have granted the disable window first.
func (s *TwoFAService) Disable(ctx context.Context, principal *auth.Principal) error {
	pid := principal.Record.ID

	if err := s.states.CheckDisable(pid); err != nil {
		s.audit.LogTwoFAAction("disable_denied", pid, false)
		return err
	}

	err := s.store.UpdateRecord(ctx, principal.Token, pid, map[string]any{
		"twoFASecret": "",
	})
	if err != nil {
		s.logger.Error("failed to clear 2FA secret", slog.String("principal_id", pid), slog.Any("error", err))
		s.states.Delete(pid)
		return models.ErrUpstream
	}

	// The grant is single use either way.
	s.states.Delete(pid)
	s.audit.LogTwoFAAction("disabled", pid, true)
	return nil
}

// GenerateOTP asks the identity store to email the principal a one-time code
// and returns the correlation id the caller must present to ValidateOTP.
func (s *TwoFAService) GenerateOTP(ctx context.Context, principal *auth.Principal) (string, error) {
	otpID, err := s.store.RequestOTP(ctx, principal.Record.Email)
	if err != nil {
		s.logger.Error("failed to request OTP", slog.Any("error", err))
		return "", models.ErrUpstream
	}
	return otpID, nil
}

// ValidateOTP checks a store-issued one-time code and, on success, opens the
// disable window for the principal.
func (s *TwoFAService) ValidateOTP(ctx context.Context, principal *auth.Principal, otpID, otp string) (bool, error) {
	_, err := s.store.AuthWithOTP(ctx, otpID, otp)
	if err != nil {
		if errors.Is(err, identity.ErrRejected) {
			s.audit.LogTwoFAAction("otp_validation_failed", principal.Record.ID, false)
			return false, nil
		}
		s.logger.Error("OTP validation failed", slog.Any("error", err))
		return false, models.ErrUpstream
	}

	s.states.GrantDisable(principal.Record.ID, s.windows.Disable)
	return true, nil
}
