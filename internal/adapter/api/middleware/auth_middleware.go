package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"localhub/internal/domain/entity"
	"localhub/internal/domain/repository"
	"localhub/internal/infrastructure/firebase"
	"localhub/pkg/errors"
	"localhub/pkg/response"
)

type AuthMiddleware struct {
	firebaseAuth *firebase.FirebaseAuthClient
	devTokens    *firebase.DevTokenIssuer
	userRepo     repository.UserRepository
}

// NewAuthMiddleware builds the bearer-token guard. devTokens may be nil; when
// set, HS256 development tokens are accepted as a fallback after Firebase
// verification fails.
func NewAuthMiddleware(firebaseAuth *firebase.FirebaseAuthClient, devTokens *firebase.DevTokenIssuer, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		firebaseAuth: firebaseAuth,
		devTokens:    devTokens,
		userRepo:     userRepo,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		user, err := m.ResolveToken(c.Request().Context(), parts[1])
		if err != nil {
			return response.Error(c, err)
		}

		c.Set("uid", user.ID)
		c.Set("role", user.Role)
		c.Set("username", user.Username)
		c.Set("avatar_url", user.AvatarURL)

		return next(c)
	}
}

// ResolveToken verifies a bearer token and loads the user behind it. Used by
// Authenticate and by the websocket handshake, where the token travels as a
// query parameter instead of a header.
func (m *AuthMiddleware) ResolveToken(ctx context.Context, token string) (*entity.User, error) {
	uid, err := m.firebaseAuth.VerifyToken(ctx, token)
	if err != nil && m.devTokens != nil {
		uid, err = m.devTokens.Verify(token)
	}
	if err != nil {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}

	user, err := m.userRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, errors.Unauthorized("Unknown user", err)
	}

	return user, nil
}
