package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"docarchive/internal/model"
	"docarchive/pkg/apierror"
)

// TokenService issues and validates HS256 access tokens. There is no user
// store: tokens are minted by operators with the shared secret.
type TokenService struct {
	jwtSecret []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewTokenService(jwtSecret string, accessTTL time.Duration) (*TokenService, error) {
	if len(strings.TrimSpace(jwtSecret)) < 32 {
		return nil, errors.New("jwt secret must be at least 32 characters")
	}
	if accessTTL <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}
	return &TokenService{jwtSecret: []byte(jwtSecret), accessTTL: accessTTL, now: time.Now}, nil
}

func (s *TokenService) IssueToken(subject string, role string) (model.TokenResponse, error) {
	subject = strings.TrimSpace(subject)
	role = strings.ToLower(strings.TrimSpace(role))
	if subject == "" {
		return model.TokenResponse{}, apierror.BadRequest("subject is required", "")
	}
	if role != model.RoleAdmin && role != model.RoleEditor && role != model.RoleViewer {
		return model.TokenResponse{}, apierror.BadRequest("invalid role", role)
	}

	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"typ":  "access",
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(s.accessTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *TokenService) ValidateToken(tokenString string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.Unauthorized("invalid token signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, apierror.Unauthorized("invalid token")
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.Unauthorized("invalid token claims")
	}

	claims := &model.AuthClaims{}
	claims.Type, _ = claimsMap["typ"].(string)
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Role, _ = claimsMap["role"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.Type != "access" {
		return nil, apierror.Unauthorized("invalid token type")
	}
	if claims.UserID == "" {
		return nil, apierror.Unauthorized("invalid token subject")
	}

	return claims, nil
}
