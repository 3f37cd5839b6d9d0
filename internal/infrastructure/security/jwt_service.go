package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/orbitcart/auth-service/internal/config"
	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
	"github.com/orbitcart/auth-service/internal/domain/models"
)

// TokenService signs and verifies the three token kinds this service emits:
// short-lived access tokens, ledger-backed refresh tokens and the legacy
// signed device token accepted for backward compatibility.
type TokenService interface {
	GenerateAccessToken(userID uuid.UUID, role models.Role, sessionID uuid.UUID) (string, error)
	ValidateAccessToken(token string) (*models.AccessClaims, error)

	GenerateRefreshToken(userID uuid.UUID, sessionID uuid.UUID, ttl time.Duration) (string, error)
	// DecodeRefreshToken verifies the signature and structure only. The
	// claims are not to be trusted until checked against the session ledger.
	DecodeRefreshToken(token string) (*models.RefreshClaims, error)

	SignLegacyDeviceToken(userID uuid.UUID, ttl time.Duration) (string, error)
	ValidateLegacyDeviceToken(token string) (uuid.UUID, error)
}

const legacyDevicePurpose = "trusted_device"

type legacyDeviceClaims struct {
	UserID  uuid.UUID `json:"uid"`
	Purpose string    `json:"purpose"`
	jwt.RegisteredClaims
}

type hmacTokenService struct {
	secret []byte
	cfg    config.JWTConfig
}

func NewHMACTokenService(cfg config.JWTConfig) (TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret must be configured")
	}
	return &hmacTokenService{secret: []byte(cfg.Secret), cfg: cfg}, nil
}

func (s *hmacTokenService) GenerateAccessToken(userID uuid.UUID, role models.Role, sessionID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &models.AccessClaims{
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
		TokenType: models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *hmacTokenService) ValidateAccessToken(token string) (*models.AccessClaims, error) {
	claims := &models.AccessClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenTypeAccess || !claims.Role.Valid() {
		return nil, domainErrors.ErrInvalidToken
	}
	return claims, nil
}

func (s *hmacTokenService) GenerateRefreshToken(userID uuid.UUID, sessionID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.RefreshClaims{
		UserID:    userID,
		SessionID: sessionID,
		TokenType: models.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

func (s *hmacTokenService) DecodeRefreshToken(token string) (*models.RefreshClaims, error) {
	claims := &models.RefreshClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenTypeRefresh || claims.UserID == uuid.Nil || claims.SessionID == uuid.Nil {
		return nil, domainErrors.ErrInvalidToken
	}
	return claims, nil
}

func (s *hmacTokenService) SignLegacyDeviceToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &legacyDeviceClaims{
		UserID:  userID,
		Purpose: legacyDevicePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign device token: %w", err)
	}
	return signed, nil
}

// ValidateLegacyDeviceToken accepts the pre-registry trust cookie format:
// signature and expiry only, no backing row and no revocation list.
func (s *hmacTokenService) ValidateLegacyDeviceToken(token string) (uuid.UUID, error) {
	claims := &legacyDeviceClaims{}
	if err := s.parse(token, claims); err != nil {
		return uuid.Nil, err
	}
	if claims.Purpose != legacyDevicePurpose || claims.UserID == uuid.Nil {
		return uuid.Nil, domainErrors.ErrInvalidToken
	}
	return claims.UserID, nil
}

func (s *hmacTokenService) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.cfg.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: token expired", domainErrors.ErrInvalidToken)
		}
		return fmt.Errorf("%w: %v", domainErrors.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return domainErrors.ErrInvalidToken
	}
	return nil
}

var _ TokenService = (*hmacTokenService)(nil)
