package handler

import (
	"net/http"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"localhub/internal/adapter/api/middleware"
	ws "localhub/internal/infrastructure/websocket"
	"localhub/pkg/errors"
	"localhub/pkg/logger"
	"localhub/pkg/response"
)

type WebSocketHandler struct {
	wsManager      *ws.Manager
	authMiddleware *middleware.AuthMiddleware
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in production
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, authMiddleware *middleware.AuthMiddleware) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:      wsManager,
		authMiddleware: authMiddleware,
	}
}

// HandleWebSocket authenticates and upgrades a connection. Browsers cannot
// set headers on websocket requests, so the token travels as a query
// parameter; the Authorization header is accepted as well.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		if auth := c.Request().Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
			token = auth[7:]
		}
	}
	if token == "" {
		return response.Error(c, errors.Unauthorized("Authentication token is required", nil))
	}

	user, err := h.authMiddleware.ResolveToken(c.Request().Context(), token)
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed for user %s: %v", user.ID, err)
		return err
	}

	client := &ws.Client{
		ID:     uuid.New().String(),
		UserID: user.ID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.wsManager.Connect(c.Request().Context(), client, user.Username, user.AvatarURL)

	go client.WritePump()
	go client.ReadPump(h.wsManager)

	return nil
}
