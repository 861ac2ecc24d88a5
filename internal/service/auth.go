package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/model"
)

var (
	// ErrInvalidCredentials covers unknown usernames and wrong passwords with
	// one message so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	// ErrInvalidToken covers malformed, expired, mis-signed, and blacklisted
	// tokens uniformly.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Principal is the verified identity carried by a valid access token.
type Principal struct {
	AdminID      int64
	Username     string
	IsSuperAdmin bool
	SessionKey   string
}

// TokenPair is the transient (access, refresh) credential pair minted on
// login. The refresh JTI is recorded on the session row so deactivating the
// session can blacklist the token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshJTI       string
	RefreshExpiresAt time.Time
}

// AuthService validates credentials and mints, verifies, and revokes the
// signed token pairs used by the admin API.
type AuthService struct {
	store      *config.Store
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService creates an AuthService. accessTTL should be minutes-scale,
// refreshTTL days-scale.
func NewAuthService(store *config.Store, jwtSecret string, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Authenticate checks a username/password pair against the store. It has no
// side effects; audit logging is the caller's responsibility.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.Admin, error) {
	admin, err := s.store.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !admin.IsActive {
		return nil, ErrAccountDisabled
	}

	return admin, nil
}

// CheckPassword verifies a password against an admin's stored hash without
// the account lookup, used by the password-change flow.
func (s *AuthService) CheckPassword(admin *model.Admin, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IssueTokenPair mints a short-lived access token and a long-lived refresh
// token for the given admin, both bound to the session key.
func (s *AuthService) IssueTokenPair(ctx context.Context, admin *model.Admin, sessionKey string) (*TokenPair, error) {
	now := time.Now()

	access, err := s.signToken(authClaims{
		AdminID:    admin.ID,
		Username:   admin.Username,
		TokenType:  tokenTypeAccess,
		SessionKey: sessionKey,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "catwalk",
		},
	})
	if err != nil {
		return nil, err
	}

	jti := uuid.NewString()
	refreshExp := now.Add(s.refreshTTL)
	refresh, err := s.signToken(authClaims{
		AdminID:    admin.ID,
		TokenType:  tokenTypeRefresh,
		SessionKey: sessionKey,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			Issuer:    "catwalk",
		},
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshJTI:       jti,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh verifies a refresh token and mints a fresh access token. Every
// verification failure collapses to ErrInvalidToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.parseToken(refreshToken, true)
	if err != nil || claims.TokenType != tokenTypeRefresh {
		return "", ErrInvalidToken
	}

	if claims.ID != "" {
		revoked, err := s.store.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return "", err
		}
		if revoked {
			return "", ErrInvalidToken
		}
	}

	admin, err := s.verifyClaimedAdmin(ctx, claims)
	if err != nil {
		return "", err
	}

	now := time.Now()
	return s.signToken(authClaims{
		AdminID:    admin.ID,
		Username:   admin.Username,
		TokenType:  tokenTypeAccess,
		SessionKey: claims.SessionKey,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "catwalk",
		},
	})
}

// Revoke blacklists a refresh token. Malformed and expired tokens are
// accepted silently so logout never fails on a garbage token.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.parseUnvalidated(refreshToken)
	if err != nil || claims.TokenType != tokenTypeRefresh || claims.ID == "" {
		return nil
	}

	expiresAt := time.Now().Add(s.refreshTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.store.RevokeToken(ctx, claims.ID, claims.AdminID, expiresAt)
}

// RevokeJTI blacklists a refresh token by its JTI alone, used when a session
// row is deactivated and only the JTI is known.
func (s *AuthService) RevokeJTI(ctx context.Context, jti string, adminID int64) error {
	if jti == "" {
		return nil
	}
	// The real expiry is unknown here; the refresh TTL is an upper bound.
	return s.store.RevokeToken(ctx, jti, adminID, time.Now().Add(s.refreshTTL))
}

// ValidateAccess verifies an access token and resolves its claimed identity
// against the store. Expired, mis-signed, blacklisted-era, and disabled-
// account tokens are all rejected as ErrInvalidToken.
func (s *AuthService) ValidateAccess(ctx context.Context, tokenStr string) (*Principal, error) {
	claims, err := s.parseToken(tokenStr, true)
	if err != nil || claims.TokenType != tokenTypeAccess {
		return nil, ErrInvalidToken
	}

	admin, err := s.verifyClaimedAdmin(ctx, claims)
	if err != nil {
		return nil, err
	}

	return &Principal{
		AdminID:      admin.ID,
		Username:     admin.Username,
		IsSuperAdmin: admin.IsSuperAdmin,
		SessionKey:   claims.SessionKey,
	}, nil
}

// verifyClaimedAdmin checks that a token's claimed identity still exists, is
// active, and was issued after the account's last credential rotation.
func (s *AuthService) verifyClaimedAdmin(ctx context.Context, claims *authClaims) (*model.Admin, error) {
	admin, err := s.store.GetAdmin(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, ErrInvalidToken
	}
	if admin.TokensValidAfter != nil {
		if claims.IssuedAt == nil || claims.IssuedAt.Time.Before(*admin.TokensValidAfter) {
			return nil, ErrInvalidToken
		}
	}
	return admin, nil
}

func (s *AuthService) signToken(claims authClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) parseToken(tokenStr string, validate bool) (*authClaims, error) {
	claims := &authClaims{}

	var opts []jwt.ParserOption
	if !validate {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// parseUnvalidated verifies the signature but skips expiry checks, so an
// expired refresh token can still be blacklisted.
func (s *AuthService) parseUnvalidated(tokenStr string) (*authClaims, error) {
	return s.parseToken(tokenStr, false)
}

type authClaims struct {
	AdminID    int64  `json:"admin_id"`
	Username   string `json:"username,omitempty"`
	TokenType  string `json:"token_type"`
	SessionKey string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}
