package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

type registrarAuthenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.RegistrarLogin, error)
}

type sessionStore interface {
	Save(ctx context.Context, s *session.Session, ttl time.Duration) error
	Find(ctx context.Context, id string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
}

// AuthConfig defines configuration for gateway sessions.
type AuthConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// AuthService exchanges registrar credentials for gateway sessions.
// The registrar token never leaves the gateway; clients hold a signed JWT whose jti names the session.
type AuthService struct {
	registrar registrarAuthenticator
	sessions  sessionStore
	cache     *CacheService
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance. cache may be nil.
func NewAuthService(registrar registrarAuthenticator, sessions sessionStore, cache *CacheService, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TTL <= 0 {
		config.TTL = 8 * time.Hour
	}
	return &AuthService{
		registrar: registrar,
		sessions:  sessions,
		cache:     cache,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Login authenticates against the registrar and opens a session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "username and password are required")
	}

	upstream, err := s.registrar.Login(ctx, req)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		ID:        uuid.NewString(),
		Token:     upstream.Token,
		UserID:    upstream.ID,
		Username:  upstream.Username,
		UserType:  session.UserType(upstream.UserType),
		CreatedAt: s.now(),
	}
	if sess.Username == "" {
		sess.Username = req.Username
	}
	if err := s.sessions.Save(ctx, sess, s.config.TTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	token, err := s.sign(sess)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("session opened",
		zap.String("username", sess.Username),
		zap.String("user_type", string(sess.UserType)),
	)

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.TTL.Seconds()),
		User:        userInfo(sess),
	}, nil
}

// Authenticate validates a gateway token and loads its session.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*session.Session, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Find(ctx, claims.ID)
	if err != nil {
		s.metrics.RecordSessionLookup(false)
		if errors.Is(err, appErrors.ErrAuth) {
			return nil, appErrors.Clone(appErrors.ErrAuth, "session expired or revoked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	s.metrics.RecordSessionLookup(true)
	return sess, nil
}

// Logout revokes the session.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.ID == "" {
		return appErrors.ErrAuth
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke session")
	}
	_ = s.cache.Purge(session.WithSession(ctx, sess))
	s.logger.Info("session closed", zap.String("username", sess.Username))
	return nil
}

// Me describes the session owner.
func (s *AuthService) Me(sess *session.Session) (*models.UserInfo, error) {
	if sess == nil {
		return nil, appErrors.ErrAuth
	}
	info := userInfo(sess)
	return &info, nil
}

// ValidateToken parses and validates a gateway token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAuth.Code, appErrors.ErrAuth.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrAuth, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) sign(sess *session.Session) (string, error) {
	issuedAt := s.now()
	claims := &models.SessionClaims{
		UserID:   sess.UserID,
		Username: sess.Username,
		UserType: models.UserType(sess.UserType),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Issuer:    s.config.Issuer,
			Subject:   sess.Username,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
}

func userInfo(sess *session.Session) models.UserInfo {
	return models.UserInfo{ID: sess.UserID, Username: sess.Username, UserType: models.UserType(sess.UserType)}
}
