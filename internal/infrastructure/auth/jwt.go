package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the JWT claims carried by ScriptHub session tokens.
type Claims struct {
	UserSID   string    `json:"user_sid"`
	SessionID string    `json:"session_id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// JWTService signs and verifies session tokens. All timestamps come from the
// injected clock so expiry behavior is testable.
type JWTService struct {
	secret           []byte
	accessExpMinutes int
	refreshExpDays   int
	renewalWindow    time.Duration
	clock            clock.Clock
}

func NewJWTService(secret string, accessExpMinutes, refreshExpDays, renewalWindowMinutes int, clk clock.Clock) *JWTService {
	if renewalWindowMinutes <= 0 {
		renewalWindowMinutes = 5
	}
	return &JWTService{
		secret:           []byte(secret),
		accessExpMinutes: accessExpMinutes,
		refreshExpDays:   refreshExpDays,
		renewalWindow:    time.Duration(renewalWindowMinutes) * time.Minute,
		clock:            clk,
	}
}

// Generate issues a fresh access/refresh token pair for a session.
func (s *JWTService) Generate(userSID, sessionID string) (*TokenPair, error) {
	now := s.clock.Now()

	accessTokenString, err := s.sign(userSID, sessionID, TokenTypeAccess, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshTokenString, err := s.sign(userSID, sessionID, TokenTypeRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		ExpiresIn:    int64(s.accessExpMinutes * 60),
	}, nil
}

func (s *JWTService) sign(userSID, sessionID string, tokenType TokenType, now time.Time) (string, error) {
	exp := now.Add(time.Duration(s.accessExpMinutes) * time.Minute)
	if tokenType == TokenTypeRefresh {
		exp = now.Add(time.Duration(s.refreshExpDays) * 24 * time.Hour)
	}

	claims := &Claims{
		UserSID:   userSID,
		SessionID: sessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a token, distinguishing expiry from tampering.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewTokenExpiredError()
		}
		return nil, apperrors.NewTokenInvalidError(err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.NewTokenInvalidError()
	}
	return claims, nil
}

// ShouldRenew reports whether an access token is inside its renewal window,
// meaning it expires soon enough that the holder should renew proactively.
func (s *JWTService) ShouldRenew(claims *Claims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return s.clock.Now().Add(s.renewalWindow).After(claims.ExpiresAt.Time)
}

// AccessExpMinutes returns the access token lifetime in minutes
func (s *JWTService) AccessExpMinutes() int {
	return s.accessExpMinutes
}
