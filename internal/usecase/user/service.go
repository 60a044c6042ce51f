package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tour-booking-api/internal/auth"
	domainUser "tour-booking-api/internal/domain/user"
	"tour-booking-api/internal/logger"
	"tour-booking-api/internal/metrics"
	appErrors "tour-booking-api/pkg/errors"
	"tour-booking-api/pkg/utils"
)

const bearerPrefix = "Bearer "

// Notifier delivers one message to one recipient.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// Service is the session manager: it signs users up and in, resolves the
// principal behind a session token and runs the password lifecycle.
type Service struct {
	users    domainUser.Repository
	hasher   utils.PasswordHasher
	sessions *auth.SessionTokens
	resets   *auth.ResetTokens
	notifier Notifier
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	users domainUser.Repository,
	hasher utils.PasswordHasher,
	sessions *auth.SessionTokens,
	resets *auth.ResetTokens,
	notifier Notifier,
	opts ...Option,
) *Service {
	s := &Service{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		resets:   resets,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) SignUp(ctx context.Context, req *SignUpRequest) (*Session, error) {
	req.Email = utils.NormalizeEmail(req.Email)
	req.Name = utils.SanitizeString(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	u, err := s.create(ctx, req.Name, req.Email, req.Photo, domainUser.RoleUser, req.Password)
	if err != nil {
		metrics.RecordAuthEvent("signup", metrics.OutcomeFailure)
		return nil, err
	}

	metrics.RecordAuthEvent("signup", metrics.OutcomeSuccess)
	logger.Info("User signed up",
		zap.String("user_id", u.ID.String()),
		zap.String("email", u.Email),
		zap.String("event", "user_signed_up"),
	)

	return s.issue(u)
}

// CreateUser adds an account on an administrator's behalf. No session is issued.
func (s *Service) CreateUser(ctx context.Context, req *CreateUserRequest) (*domainUser.User, error) {
	req.Email = utils.NormalizeEmail(req.Email)
	req.Name = utils.SanitizeString(req.Name)
	if req.Role == "" {
		req.Role = domainUser.RoleUser
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	u, err := s.create(ctx, req.Name, req.Email, req.Photo, req.Role, req.Password)
	if err != nil {
		return nil, err
	}

	logger.Info("User created by administrator",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
		zap.String("event", "user_created"),
	)
	return u, nil
}

func (s *Service) create(ctx context.Context, name, email string, photo *string, role domainUser.Role, password string) (*domainUser.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &domainUser.User{
		Name:         name,
		Email:        email,
		Photo:        photo,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domainUser.ErrUserAlreadyExists) {
			logger.Warn("Sign up attempt with existing email",
				zap.String("email", email),
				zap.String("event", "signup_failed_duplicate_email"),
			)
			return nil, appErrors.ErrUserAlreadyExists
		}
		return nil, err
	}
	return u, nil
}

// Login answers an unknown email, an inactive account and a wrong password
// with the same error.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	email := utils.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, appErrors.ErrMissingCredentials
	}

	u, err := s.users.GetByEmail(ctx, email, domainUser.WithPassword())
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			logger.Warn("Login attempt with unknown email",
				zap.String("email", email),
				zap.String("event", "login_failed_invalid_credentials"),
			)
			metrics.RecordAuthEvent("login", metrics.OutcomeFailure)
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Compare(u.PasswordHash, req.Password) {
		logger.Warn("Login attempt with invalid password",
			zap.String("user_id", u.ID.String()),
			zap.String("event", "login_failed_invalid_credentials"),
		)
		metrics.RecordAuthEvent("login", metrics.OutcomeFailure)
		return nil, appErrors.ErrInvalidCredentials
	}

	metrics.RecordAuthEvent("login", metrics.OutcomeSuccess)
	logger.Info("User logged in",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
		zap.String("event", "login_success"),
	)

	return s.issue(u)
}

// Authenticate resolves the principal behind a "Bearer <token>" header.
func (s *Service) Authenticate(ctx context.Context, rawAuthHeader string) (*domainUser.User, error) {
	token := strings.TrimSpace(rawAuthHeader)
	if !strings.HasPrefix(token, bearerPrefix) {
		return nil, appErrors.ErrMissingToken
	}
	token = strings.TrimSpace(strings.TrimPrefix(token, bearerPrefix))
	if token == "" {
		return nil, appErrors.ErrMissingToken
	}

	claims, err := s.sessions.Verify(token)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return nil, appErrors.ErrUnknownSubject
		}
		return nil, err
	}

	if u.ChangedPasswordAfter(claims.IssuedAt) {
		logger.Debug("Session token predates password change",
			zap.String("user_id", u.ID.String()),
			zap.String("event", "session_stale"),
		)
		return nil, appErrors.ErrStaleSession
	}

	return u, nil
}

// ForgotPassword stores a reset token for email and mails the reset link.
// If the mail cannot be delivered the stored token is withdrawn.
func (s *Service) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest, resetBaseURL string) error {
	req.Email = utils.NormalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			logger.Info("Password reset requested for unknown email",
				zap.String("email", req.Email),
				zap.String("event", "password_reset_requested_unknown_email"),
			)
			return appErrors.ErrUserNotFound
		}
		return err
	}

	token, err := s.resets.Issue()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, u.ID, token.Hash, token.Expiry); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := strings.TrimRight(resetBaseURL, "/") + "/" + token.Raw
	subject := "Your password reset token (valid for 10 minutes)"
	body := fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s\n"+
		"If you didn't forget your password, please ignore this email.", resetURL)

	if err := s.notifier.Notify(ctx, u.Email, subject, body); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, u.ID); clearErr != nil {
			logger.Error("Failed to withdraw undelivered reset token",
				zap.String("user_id", u.ID.String()),
				zap.Error(clearErr),
			)
			return fmt.Errorf("failed to withdraw reset token: %w", clearErr)
		}
		logger.Error("Failed to deliver password reset email",
			zap.String("user_id", u.ID.String()),
			zap.Error(err),
			zap.String("event", "password_reset_delivery_failed"),
		)
		metrics.RecordAuthEvent("password_reset_request", metrics.OutcomeFailure)
		return appErrors.ErrDeliveryFailure.Wrap(err)
	}

	metrics.RecordAuthEvent("password_reset_request", metrics.OutcomeSuccess)
	logger.Info("Password reset token issued",
		zap.String("user_id", u.ID.String()),
		zap.Time("expires_at", token.Expiry),
		zap.String("event", "password_reset_token_issued"),
	)
	return nil
}

// ResetPassword redeems rawToken. The stored token is consumed whether or
// not it is still within its window.
func (s *Service) ResetPassword(ctx context.Context, rawToken string, req *ResetPasswordRequest) (*Session, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if rawToken == "" {
		return nil, appErrors.ErrInvalidOrExpiredToken
	}

	u, err := s.users.ConsumeResetToken(ctx, auth.HashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			logger.Warn("Password reset attempt with unknown token",
				zap.String("event", "password_reset_failed_invalid_token"),
			)
			metrics.RecordAuthEvent("password_reset", metrics.OutcomeFailure)
			return nil, appErrors.ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	if !u.HasResetToken() || !s.resets.Validate(rawToken, *u.ResetTokenHash, *u.ResetTokenExpiry) {
		logger.Warn("Password reset attempt with expired token",
			zap.String("user_id", u.ID.String()),
			zap.String("event", "password_reset_failed_expired_token"),
		)
		metrics.RecordAuthEvent("password_reset", metrics.OutcomeFailure)
		return nil, appErrors.ErrInvalidOrExpiredToken
	}

	if err := s.setPassword(ctx, u, req.Password); err != nil {
		return nil, err
	}

	metrics.RecordAuthEvent("password_reset", metrics.OutcomeSuccess)
	logger.Info("Password reset",
		zap.String("user_id", u.ID.String()),
		zap.String("event", "password_reset_success"),
	)
	return s.issue(u)
}

// ChangePassword replaces the principal's password and returns a fresh
// session. Every token minted before the change stops authenticating.
func (s *Service) ChangePassword(ctx context.Context, principal *domainUser.User, req *ChangePasswordRequest) (*Session, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, principal.ID, domainUser.WithPassword())
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return nil, appErrors.ErrUnknownSubject
		}
		return nil, err
	}

	if !s.hasher.Compare(u.PasswordHash, req.PasswordCurrent) {
		logger.Warn("Password change attempt with wrong current password",
			zap.String("user_id", u.ID.String()),
			zap.String("event", "password_change_failed_invalid_current_password"),
		)
		metrics.RecordAuthEvent("password_change", metrics.OutcomeFailure)
		return nil, appErrors.ErrInvalidCredentials.WithMessage("Your current password is wrong")
	}

	if err := s.setPassword(ctx, u, req.Password); err != nil {
		return nil, err
	}

	metrics.RecordAuthEvent("password_change", metrics.OutcomeSuccess)
	logger.Info("Password changed",
		zap.String("user_id", u.ID.String()),
		zap.String("event", "password_change_success"),
	)
	return s.issue(u)
}

// setPassword stores the new hash with the change time at millisecond
// precision. Every token issued before that millisecond becomes stale; the
// token minted right after the change is not.
func (s *Service) setPassword(ctx context.Context, u *domainUser.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	changedAt := s.now().Truncate(time.Millisecond)
	if err := s.users.UpdatePassword(ctx, u.ID, hash, changedAt); err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return appErrors.ErrUnknownSubject
		}
		return err
	}

	u.PasswordHash = ""
	u.PasswordChangedAt = &changedAt
	u.ResetTokenHash = nil
	u.ResetTokenExpiry = nil
	return nil
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (*domainUser.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return nil, appErrors.NotFound("user", userID.String())
		}
		return nil, err
	}
	return u, nil
}

// UpdateMe changes the principal's name, email or photo. Password fields are refused.
func (s *Service) UpdateMe(ctx context.Context, principal *domainUser.User, req *UpdateMeRequest) (*domainUser.User, error) {
	if req.Password != nil || req.PasswordConfirm != nil {
		return nil, appErrors.ErrPasswordUpdateNotAllowed
	}
	if req.Email != nil {
		email := utils.NormalizeEmail(*req.Email)
		req.Email = &email
	}
	if req.Name != nil {
		name := utils.SanitizeString(*req.Name)
		req.Name = &name
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	u, err := s.GetMe(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Photo != nil {
		u.Photo = req.Photo
	}

	if err := s.users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, domainUser.ErrUserAlreadyExists):
			return nil, appErrors.ErrUserAlreadyExists
		case errors.Is(err, domainUser.ErrUserNotFound):
			return nil, appErrors.NotFound("user", u.ID.String())
		}
		return nil, err
	}

	logger.Info("Profile updated",
		zap.String("user_id", u.ID.String()),
		zap.String("event", "profile_updated"),
	)
	return u, nil
}

// DeleteMe deactivates the principal's account. The row is kept.
func (s *Service) DeleteMe(ctx context.Context, principal *domainUser.User) error {
	if err := s.users.Deactivate(ctx, principal.ID); err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return appErrors.NotFound("user", principal.ID.String())
		}
		return err
	}

	logger.Info("Account deactivated",
		zap.String("user_id", principal.ID.String()),
		zap.String("event", "account_deactivated"),
	)
	return nil
}

func (s *Service) issue(u *domainUser.User) (*Session, error) {
	token, err := s.sessions.Sign(u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	u.PasswordHash = ""
	return &Session{Token: token, User: u}, nil
}
