package auth

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/kennelworks/kennel-api/internal/models"
	"github.com/kennelworks/kennel-api/pkg/constants"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultSessionTTL = 24 * time.Hour
	DefaultIssuer     = "kennel-api"

	invalidCredentialsMessage = "Invalid email or password"
	dummyPassword             = "kennel-api-timing-equaliser"
)

type Config struct {
	Secret     string
	Issuer     string
	SessionTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type AuthService interface {
	// Login checks the credentials, opens a session and returns a token bound to it.
	Login(ctx context.Context, req *LoginRequest, meta SessionMeta) (*LoginResponse, error)

	// Logout ends the session. Ending an already removed session is not an error.
	Logout(ctx context.Context, sessionID string) error

	// Authenticate resolves a bearer token to the admin behind a live session.
	Authenticate(ctx context.Context, token string) (*Principal, error)

	CreateAdmin(ctx context.Context, req *CreateAdminRequest) (*AdminResponse, error)

	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type authService struct {
	logger     *log.Logger
	repository AuthRepository
	signer     *tokenSigner
	sessionTTL time.Duration
	bcryptCost int
	dummyHash  []byte
	validate   *validator.Validate
	now        func() time.Time
}

func NewAuthService(logger *log.Logger, repository AuthRepository, cfg Config) AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	dummyHash, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cfg.BcryptCost)
	if err != nil {
		logger.Warn("Failed to prepare dummy password hash", "error", err)
	}

	return &authService{
		logger:     logger,
		repository: repository,
		signer:     newTokenSigner(cfg.Secret, cfg.Issuer),
		sessionTTL: cfg.SessionTTL,
		bcryptCost: cfg.BcryptCost,
		dummyHash:  dummyHash,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req *LoginRequest, meta SessionMeta) (*LoginResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	email := normalizeEmail(req.Email)

	admin, err := s.repository.FindAdminByEmail(ctx, email)
	if err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			logger.Error("Failed to look up admin", "error", err)
			return nil, err
		}
		// Burn the same bcrypt work as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		logger.Info("Rejected login for unknown email")
		return nil, apperrors.NewUnauthorizedError(invalidCredentialsMessage, nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		logger.Info("Rejected login with wrong password", "admin_id", admin.ID)
		return nil, apperrors.NewUnauthorizedError(invalidCredentialsMessage, nil)
	}

	now := s.now().UTC()
	session, err := s.repository.CreateSession(ctx, &models.AdminSession{
		AdminUserID: admin.ID,
		UserAgent:   truncate(meta.UserAgent, 512),
		IPAddress:   truncate(meta.IPAddress, 64),
		ExpiresAt:   now.Add(s.sessionTTL),
	})
	if err != nil {
		logger.Error("Failed to create admin session", "admin_id", admin.ID, "error", err)
		return nil, err
	}

	token, err := s.signer.sign(admin.ID, session.ID, now, session.ExpiresAt)
	if err != nil {
		logger.Error("Failed to sign admin token", "admin_id", admin.ID, "error", err)
		return nil, apperrors.NewInternalServerError("unable to issue token", err)
	}

	logger.Info("Admin logged in", "admin_id", admin.ID, "session_id", session.ID)

	return &LoginResponse{
		Token:     token,
		ExpiresAt: constants.FormatTimestamp(session.ExpiresAt),
		Admin:     ToAdminResponse(admin),
	}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if sessionID == "" {
		return apperrors.NewInvalidRequestError("session ID cannot be empty", nil)
	}

	if err := s.repository.DeleteSession(ctx, sessionID); err != nil {
		logger.Error("Failed to delete admin session", "session_id", sessionID, "error", err)
		return err
	}

	logger.Info("Admin logged out", "session_id", sessionID)
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	now := s.now()
	claims, err := s.signer.parse(token, now)
	if err != nil {
		logger.Info("Rejected admin token", "error", err)
		return nil, apperrors.NewUnauthorizedError("Invalid or expired token", err)
	}

	session, err := s.repository.FindActiveSession(ctx, claims.SessionID, now.UTC())
	if err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeUnauthorized) {
			logger.Error("Failed to load admin session", "session_id", claims.SessionID, "error", err)
		}
		return nil, err
	}

	if session.AdminUserID != claims.Subject {
		logger.Warn("Token subject does not own session", "session_id", session.ID)
		return nil, apperrors.NewUnauthorizedError("Invalid or expired token", nil)
	}

	return toPrincipal(session), nil
}

func (s *authService) CreateAdmin(ctx context.Context, req *CreateAdminRequest) (*AdminResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	req.Email = normalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.NewValidationError("Invalid admin", apperrors.FormatValidationErrors(err, req))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperrors.NewValidationError("password is too long", nil)
		}
		return nil, apperrors.NewInternalServerError("unable to hash password", err)
	}

	admin, err := s.repository.CreateAdmin(ctx, &models.AdminUser{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
	})
	if err != nil {
		logger.Error("Failed to create admin", "email", req.Email, "error", err)
		return nil, err
	}

	logger.Info("Admin created", "admin_id", admin.ID)

	response := ToAdminResponse(admin)
	return &response, nil
}

func (s *authService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := s.repository.DeleteExpiredSessions(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.GetLoggerInstanceFromContext(ctx, s.logger).Info("Purged expired admin sessions", "count", removed)
	}
	return removed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// truncate cuts value to at most max bytes without splitting a rune.
func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
