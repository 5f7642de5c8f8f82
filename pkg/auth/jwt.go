package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// Claims represents the JWT claims for a collaborator
type Claims struct {
	CollaboratorID string   `json:"sub"`
	Name           string   `json:"name"`
	Roles          []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT validation configuration
type JWTConfig struct {
	SecretKey string
	Issuer    string
}

// JWTValidator validates HS256 tokens
type JWTValidator struct {
	secretKey []byte
	issuer    string
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(config JWTConfig) (*JWTValidator, error) {
	if config.SecretKey == "" {
		return nil, errors.New("secret key required")
	}
	return &JWTValidator{
		secretKey: []byte(config.SecretKey),
		issuer:    config.Issuer,
	}, nil
}

// ValidateToken validates a JWT token and returns the claims
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return v.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidClaims)
	}
	if claims.CollaboratorID == "" {
		return nil, fmt.Errorf("%w: missing collaborator ID", ErrInvalidClaims)
	}

	return claims, nil
}

// CollaboratorContext represents collaborator information from JWT
type CollaboratorContext struct {
	CollaboratorID string
	Name           string
	Roles          []string
}

type contextKey string

const CollaboratorContextKey contextKey = "collaborator"

// GetCollaboratorFromContext extracts the collaborator from context
func GetCollaboratorFromContext(ctx context.Context) (*CollaboratorContext, error) {
	c, ok := ctx.Value(CollaboratorContextKey).(*CollaboratorContext)
	if !ok || c == nil {
		return nil, errors.New("collaborator not found in context")
	}
	return c, nil
}

// SetCollaboratorInContext adds the collaborator to context
func SetCollaboratorInContext(ctx context.Context, c *CollaboratorContext) context.Context {
	return context.WithValue(ctx, CollaboratorContextKey, c)
}
