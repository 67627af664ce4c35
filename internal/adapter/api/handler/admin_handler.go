package handler

import (
	"github.com/labstack/echo/v4"

	ws "localhub/internal/infrastructure/websocket"
	"localhub/pkg/response"
)

type AdminHandler struct {
	wsManager *ws.Manager
}

func NewAdminHandler(wsManager *ws.Manager) *AdminHandler {
	return &AdminHandler{
		wsManager: wsManager,
	}
}

// GetPresence returns a snapshot of every user with at least one live
// connection on this instance.
func (h *AdminHandler) GetPresence(c echo.Context) error {
	snapshot := h.wsManager.Registry().Snapshot()

	return response.Success(c, map[string]interface{}{
		"online_count": len(snapshot),
		"users":        snapshot,
	})
}
