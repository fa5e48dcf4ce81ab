package api

import (
	"github.com/labstack/echo/v4"
	"github.com/ougirez/muniportal/internal/api/controller"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/utils"
	"github.com/ougirez/muniportal/internal/service/access"
)

// RequestContextMiddleware кладёт request id в поля логгера.
func (svc *APIService) RequestContextMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rid := ctx.Response().Header().Get(echo.HeaderXRequestID)
		reqCtx := logger.WithFields(ctx.Request().Context(), "request_id", rid)
		ctx.SetRequest(ctx.Request().WithContext(reqCtx))
		return next(ctx)
	}
}

// AuthMiddleware восстанавливает личность из cookie сессии.
func (svc *APIService) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		cookie, err := ctx.Cookie(constants.CookieKeySession)
		if err != nil || cookie.Value == "" {
			return constants.ErrUnauthorized
		}

		token, err := utils.ParseSessionToken(cookie.Value, svc.cfg.Session.Secret)
		if err != nil {
			return err
		}

		reqCtx := ctx.Request().Context()
		rec, err := svc.sessions.Get(reqCtx, token.SessionID)
		if err != nil {
			return err
		}

		identity, err := rec.Identity()
		if err != nil {
			logger.Warnf(reqCtx, "broken session %s: %v", token.SessionID, err)
			return constants.ErrUnauthorized
		}

		reqCtx = logger.WithFields(reqCtx, "user_id", identity.UserID(), "role", identity.Role())
		ctx.SetRequest(ctx.Request().WithContext(reqCtx))
		ctx.Set(constants.CtxKeyIdentity, identity)
		ctx.Set(constants.CtxKeySessionID, token.SessionID)

		return next(ctx)
	}
}

// AdminMiddleware пускает только администратора. Ставится после AuthMiddleware.
func (svc *APIService) AdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		identity, err := controller.Identity(ctx)
		if err != nil {
			return err
		}
		if err = access.Authorize(identity, access.Request{Action: access.Admin}); err != nil {
			return err
		}
		return next(ctx)
	}
}
