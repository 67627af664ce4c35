package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"localhub/internal/domain/entity"
	"localhub/internal/domain/repository"
	"localhub/internal/infrastructure/firebase"
	"localhub/pkg/errors"
	"localhub/pkg/response"
)

// DevTokenHandler mints tokens for manual testing. Only routed in the
// development environment.
type DevTokenHandler struct {
	firebaseAuth *firebase.FirebaseAuthClient
	devTokens    *firebase.DevTokenIssuer
	userRepo     repository.UserRepository
}

var devTokenHandler *DevTokenHandler

func SetupDevTokenHandler(firebaseAuth *firebase.FirebaseAuthClient, devTokens *firebase.DevTokenIssuer, userRepo repository.UserRepository) {
	devTokenHandler = &DevTokenHandler{
		firebaseAuth: firebaseAuth,
		devTokens:    devTokens,
		userRepo:     userRepo,
	}
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

// GenerateUserToken returns a token for the first regular user found.
func (h *DevTokenHandler) GenerateUserToken(c echo.Context) error {
	return h.tokenForRole(c, "user")
}

// GenerateAdminToken returns a token for the first admin found.
func (h *DevTokenHandler) GenerateAdminToken(c echo.Context) error {
	return h.tokenForRole(c, "admin")
}

func (h *DevTokenHandler) tokenForRole(c echo.Context, role string) error {
	users, err := h.userRepo.ListByRole(c.Request().Context(), role, 1)
	if err != nil || len(users) == 0 {
		return response.Error(c, errors.NotFound("User with role "+role, err))
	}

	token, err := h.mint(c, users[0])
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":       users[0].ID,
			"email":    users[0].Email,
			"username": users[0].Username,
			"role":     users[0].Role,
		},
	})
}

func (h *DevTokenHandler) mint(c echo.Context, user *entity.User) (string, error) {
	if h.devTokens != nil {
		return h.devTokens.Mint(user.ID, 24*time.Hour)
	}
	return h.firebaseAuth.GenerateIDToken(c.Request().Context(), user.ID)
}
