// Package jwttoken issues and validates the HS256 bearer tokens that carry
// the acting principal into the backoffice API.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "vowly/pkg/domain-errors"
	authmw "vowly/pkg/platform/middleware/auth"
	"vowly/pkg/requestcontext"
)

// Claims carries the principal. The subject is the actor id.
type Claims struct {
	ActorType string   `json:"typ"`
	Roles     []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type JWTService struct {
	signingKey []byte
	issuer     string
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateAccessToken signs a token for the principal.
func (s *JWTService) GenerateAccessToken(p requestcontext.Principal, expiresIn time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ActorType: p.Type,
		Roles:     p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" || claims.ActorType == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no principal")
	}
	return claims, nil
}

// Principal satisfies authmw.TokenValidator.
func (s *JWTService) Principal(tokenString string) (requestcontext.Principal, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return requestcontext.Principal{}, err
	}
	return requestcontext.Principal{
		Type:  claims.ActorType,
		ID:    claims.Subject,
		Roles: claims.Roles,
	}, nil
}

var _ authmw.TokenValidator = (*JWTService)(nil)
