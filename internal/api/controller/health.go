package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/muniportal/internal/pkg/logger"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Replica  string `json:"replica"`
	Sessions string `json:"sessions"`
}

// Health заодно пробует вернуть реплику в работу.
func (c *Controller) Health(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	resp := healthResponse{Status: "ok", Database: "ok", Replica: "disabled", Sessions: "ok"}

	if err := c.store.Ping(reqCtx); err != nil {
		logger.Errorf(reqCtx, "health: database: %v", err)
		resp.Database, resp.Status = "error", "degraded"
	}
	if c.replica != nil {
		resp.Replica = "down"
		if c.replica.ProbeReplica(reqCtx) {
			resp.Replica = "up"
		}
	}
	if err := c.sessions.Ping(reqCtx); err != nil {
		logger.Errorf(reqCtx, "health: sessions: %v", err)
		resp.Sessions, resp.Status = "error", "degraded"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, resp)
}
