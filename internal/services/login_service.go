package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/forgeworks/authgate/internal/auth"
	"github.com/forgeworks/authgate/internal/envelope"
	"github.com/forgeworks/authgate/internal/identity"
	"github.com/forgeworks/authgate/internal/models"
	"github.com/forgeworks/authgate/internal/stores"
	pkglogger "github.com/forgeworks/authgate/pkg/logger"
)

// OTP types accepted by Verify. Closed enum — anything else is rejected.
const (
	OTPTypeApp   = "app"
	OTPTypeEmail = "email"
)

// LoginResult is the outcome of any operation that may complete a login:
// either a usable session token, or a bridge id for a pending second factor.
type LoginResult struct {
	State   string         // "success" or "2fa_required"
	Session string         // set when State == "success"
	TID     string         // bridge id, set when State == "2fa_required"
	Record  *models.Record // sanitized; set when State == "success"
}

// LoginService is the login gate: it orchestrates the primary credential
// check, the second-factor requirement decision, bridge issuance, and final
// token release.
type LoginService struct {
	store     identity.Store
	bridges   *stores.BridgeStore
	totp      *auth.TOTPManager
	masterKey string
	logger    *slog.Logger
	audit     *pkglogger.AuditLogger
}

// NewLoginService creates a login gate.
func NewLoginService(store identity.Store, bridges *stores.BridgeStore, totp *auth.TOTPManager, masterKey string, logger *slog.Logger, audit *pkglogger.AuditLogger) *LoginService {
	return &LoginService{
		store:     store,
		bridges:   bridges,
		totp:      totp,
		masterKey: masterKey,
		logger:    logger,
		audit:     audit,
	}
}

// Login checks primary credentials. Accounts with 2FA enabled get a session
// bridge instead of a token; the token stays server-side until the second
// factor clears.
func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	res, err := s.store.AuthWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrRejected) {
			// Never distinguish "unknown user" from "wrong password".
			s.logger.Warn("authentication failed", slog.String("email", pkglogger.SanitizedEmail(email)))
			s.audit.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("identity store login failed", slog.Any("error", err))
		return nil, models.ErrUpstream
	}

	record := res.Record

	if record.TwoFAEnabled {
		tid := s.bridges.Issue(res.Token)
		s.logger.Info("second factor required", slog.String("principal_id", record.ID))
		return &LoginResult{State: "2fa_required", TID: tid}, nil
	}

	s.backfillDefaults(ctx, res.Token, record)

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:   "login_success",
		PrincipalID: record.ID,
		Success:     true,
	})

	return &LoginResult{State: "success", Session: res.Token, Record: record.Sanitized()}, nil
}

// Verify consumes a session bridge: bridge id equality, then expiry, then
// re-authentication, then the OTP itself, each with its own distinct error.
// The bridge survives a wrong OTP (retry within the window) and is consumed
// exactly once, on success.
func (s *LoginService) Verify(ctx context.Context, tid, otp, otpType string) (*LoginResult, error) {
	if otpType != OTPTypeApp && otpType != OTPTypeEmail {
		return nil, models.ErrUnknownOTPType
	}

	bridge, err := s.bridges.Get(tid)
	if err != nil {
		return nil, err
	}

	res, err := s.store.AuthRefresh(ctx, bridge.Token)
	if err != nil {
		if errors.Is(err, identity.ErrRejected) {
			return nil, models.ErrInvalidSession
		}
		s.logger.Error("session re-validation failed", slog.Any("error", err))
		return nil, models.ErrUpstream
	}

	var verified bool
	switch otpType {
	case OTPTypeApp:
		verified = s.verifyAppOTP(res.Record, otp)
	case OTPTypeEmail:
		verified, err = s.verifyEmailOTP(ctx, bridge.OTPID, otp)
		if err != nil {
			return nil, err
		}
	}

	if !verified {
		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "second_factor_failed",
			PrincipalID:   res.Record.ID,
			FailureReason: "invalid_otp",
			Success:       false,
		})
		return nil, models.ErrInvalidOTP
	}

	if _, err := s.bridges.Consume(tid); err != nil {
		// Lost a race with another verify on the same bridge.
		return nil, err
	}

	s.backfillDefaults(ctx, res.Token, res.Record)

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:   "second_factor_success",
		PrincipalID: res.Record.ID,
		Success:     true,
	})

	return &LoginResult{State: "success", Session: res.Token, Record: res.Record.Sanitized()}, nil
}

// RequestEmailOTP asks the identity store to email a one-time code for a
// pending bridge and records the correlation id on the bridge.
func (s *LoginService) RequestEmailOTP(ctx context.Context, tid, email string) error {
	if _, err := s.bridges.Get(tid); err != nil {
		return err
	}

	otpID, err := s.store.RequestOTP(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrRejected) {
			return models.ErrInvalidCredentials
		}
		s.logger.Error("failed to request email OTP", slog.Any("error", err))
		return models.ErrUpstream
	}

	return s.bridges.AttachOTP(tid, otpID)
}

// VerifySessionToken reports whether a bearer token still names a live
// session. Clients poll this to detect silent expiry.
func (s *LoginService) VerifySessionToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, models.ErrNoToken
	}

	if auth.TokenExpired(token) {
		return false, nil
	}

	_, err := s.store.AuthRefresh(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrRejected) {
			return false, nil
		}
		s.logger.Error("session verification failed", slog.Any("error", err))
		return false, models.ErrUpstream
	}

	return true, nil
}

// ValidateOTP checks a store-issued one-time code without any side effect on
// 2FA state.
func (s *LoginService) ValidateOTP(ctx context.Context, otpID, otp string) (bool, error) {
	_, err := s.store.AuthWithOTP(ctx, otpID, otp)
	if err != nil {
		if errors.Is(err, identity.ErrRejected) {
			return false, nil
		}
		s.logger.Error("OTP validation failed", slog.Any("error", err))
		return false, models.ErrUpstream
	}
	return true, nil
}

// GetUserData returns the principal's record with defaults backfilled and
// secrets stripped.
func (s *LoginService) GetUserData(ctx context.Context, principal *auth.Principal) *models.Record {
	s.backfillDefaults(ctx, principal.Token, principal.Record)
	return principal.Record.Sanitized()
}

// UsersExist reports whether any account exists. Bootstrap probe.
func (s *LoginService) UsersExist(ctx context.Context) (bool, error) {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		s.logger.Error("failed to count users", slog.Any("error", err))
		return false, models.ErrUpstream
	}
	return count > 0, nil
}

// CreateFirstUser creates the bootstrap account. Permitted only while the
// store reports zero accounts.
func (s *LoginService) CreateFirstUser(ctx context.Context, email, username, name, password string) error {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		s.logger.Error("failed to count users", slog.Any("error", err))
		return models.ErrUpstream
	}
	if count > 0 {
		return models.ErrUsersExist
	}

	err = s.store.CreateUser(ctx, identity.CreateUserParams{
		Email:    email,
		Username: username,
		Name:     name,
		Password: password,
	})
	if err != nil {
		s.logger.Error("failed to create first user", slog.Any("error", err))
		return models.ErrUpstream
	}

	s.audit.LogAccountAction("first_user_created", "", "", map[string]string{
		"email": pkglogger.SanitizedEmail(email),
	})
	return nil
}

// verifyAppOTP unwraps the committed 2FA secret with the master key and
// validates the code as TOTP.
func (s *LoginService) verifyAppOTP(record *models.Record, otp string) bool {
	if record.TwoFASecret == "" {
		return false
	}

	secret, err := envelope.Decrypt(record.TwoFASecret, s.masterKey)
	if err != nil {
		s.logger.Error("failed to unwrap 2FA secret", slog.String("principal_id", record.ID), slog.Any("error", err))
		return false
	}

	return s.totp.Validate(otp, secret)
}

func (s *LoginService) verifyEmailOTP(ctx context.Context, otpID, otp string) (bool, error) {
	if otpID == "" {
		return false, nil
	}

	_, err := s.store.AuthWithOTP(ctx, otpID, otp)
	if err != nil {
		if errors.Is(err, identity.ErrRejected) {
			return false, nil
		}
		s.logger.Error("email OTP verification failed", slog.Any("error", err))
		return false, models.ErrUpstream
	}

	return true, nil
}

// backfillDefaults fills any unset preference fields with their defaults.
// Idempotent, best effort: a failure here must never fail the login.
func (s *LoginService) backfillDefaults(ctx context.Context, token string, record *models.Record) {
	if !record.NeedsDefaults() {
		return
	}

	if err := s.store.UpdateRecord(ctx, token, record.ID, record.DefaultFields()); err != nil {
		s.logger.Warn("failed to backfill account defaults",
			slog.String("principal_id", record.ID),
			slog.Any("error", err))
		return
	}

	for field, value := range record.DefaultFields() {
		switch field {
		case "theme":
			record.Theme = value.(string)
		case "language":
			record.Language = value.(string)
		case "fontScale":
			record.FontScale = value.(float64)
		case "borderRadiusMultiplier":
			record.BorderRadiusMultiplier = value.(float64)
		}
	}
}
