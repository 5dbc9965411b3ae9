package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Clases de token emitidas por el servicio.
const (
	TokenClassAccess  = "access"
	TokenClassRefresh = "refresh"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// TokenClaims es el claim set firmado de una credencial.
// Subject lleva el username; TokenType la clase (access|refresh).
type TokenClaims struct {
	UserID    string `json:"id"`
	Role      string `json:"role"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService emite y valida credenciales firmadas con un secreto simétrico
// independiente por clase. Dos secretos distintos permiten que un mismo
// endpoint acepte cualquiera de las dos clases y distinga después por el claim.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 10 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        "chartcloud",
	}
}

// RefreshTTL expone la vigencia de los refresh tokens; el ledger de revocación
// la usa para fechar la expiración de sus entradas.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssueAccess emite una credencial de clase access con expiración corta.
func (s *TokenService) IssueAccess(username, userID, role string) (string, error) {
	return s.issue(username, userID, role, TokenClassAccess, s.accessSecret, s.accessTTL)
}

// IssueRefresh emite una credencial de clase refresh.
func (s *TokenService) IssueRefresh(username, userID, role string) (string, error) {
	return s.issue(username, userID, role, TokenClassRefresh, s.refreshSecret, s.refreshTTL)
}

func (s *TokenService) issue(username, userID, role, class string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrTokenInvalid
	}
	now := time.Now().UTC()
	claims := TokenClaims{
		UserID:    userID,
		Role:      role,
		TokenType: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyAccess valida una credencial exclusivamente contra el secreto de
// access; la usa la puerta de administración.
func (s *TokenService) VerifyAccess(token string) (TokenClaims, error) {
	claims, err := s.verify(token, s.accessSecret)
	if err != nil {
		return TokenClaims{}, err
	}
	if claims.TokenType != TokenClassAccess {
		return TokenClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

// Decode intenta validar primero contra el secreto de access y después contra
// el de refresh, devolviendo los claims etiquetados con su clase. Si ambas
// verificaciones fallan y la de access falló por expiración, se reporta
// ErrTokenExpired; cualquier otra combinación es ErrTokenInvalid.
func (s *TokenService) Decode(token string) (TokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		return TokenClaims{}, ErrTokenInvalid
	}

	claims, accessErr := s.verify(token, s.accessSecret)
	if accessErr == nil {
		if claims.TokenType != TokenClassAccess {
			return TokenClaims{}, ErrTokenInvalid
		}
		return claims, nil
	}

	claims, refreshErr := s.verify(token, s.refreshSecret)
	if refreshErr == nil {
		if claims.TokenType != TokenClassRefresh {
			return TokenClaims{}, ErrTokenInvalid
		}
		return claims, nil
	}

	if errors.Is(accessErr, ErrTokenExpired) || errors.Is(refreshErr, ErrTokenExpired) {
		return TokenClaims{}, ErrTokenExpired
	}
	return TokenClaims{}, ErrTokenInvalid
}

func (s *TokenService) verify(token string, secret []byte) (TokenClaims, error) {
	if len(secret) == 0 {
		return TokenClaims{}, ErrTokenInvalid
	}
	var claims TokenClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrTokenExpired
		}
		return TokenClaims{}, ErrTokenInvalid
	}
	if !s.isValidClaims(claims) {
		return TokenClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (s *TokenService) isValidClaims(claims TokenClaims) bool {
	if strings.TrimSpace(claims.Subject) == "" {
		return false
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	return claims.Issuer == s.issuer
}
