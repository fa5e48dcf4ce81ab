package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/domain/dto"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/session"
	"github.com/ougirez/muniportal/internal/pkg/utils"
)

type identityResponse struct {
	User domain.IdentityView `json:"user"`
}

func (c *Controller) sessionCookie(value string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     constants.CookieKeySession,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.opts.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.Expires = time.Unix(0, 0)
	}
	return cookie
}

func (c *Controller) Login(ctx echo.Context) error {
	var req dto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	identity, err := c.auth.Authenticate(reqCtx, string(req.Selector), req.Password)
	if err != nil {
		return err
	}

	sid, err := c.sessions.Create(reqCtx, session.RecordOf(identity))
	if err != nil {
		logger.Errorf(reqCtx, "create session for user %d: %v", identity.UserID(), err)
		return constants.ErrInternal.Wrap(err)
	}

	token, err := utils.GenerateSessionToken(sid, c.opts.Cookie.Secret, c.opts.Cookie.TTL)
	if err != nil {
		return constants.ErrInternal.Wrap(err)
	}

	ctx.SetCookie(c.sessionCookie(token, int(c.opts.Cookie.TTL.Seconds())))
	return ctx.JSON(http.StatusOK, identityResponse{User: domain.ViewOf(identity)})
}

// Logout работает и с протухшей сессией: cookie стирается в любом случае.
func (c *Controller) Logout(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if cookie, err := ctx.Cookie(constants.CookieKeySession); err == nil {
		if token, err := utils.ParseSessionToken(cookie.Value, c.opts.Cookie.Secret); err == nil {
			if err = c.sessions.Delete(reqCtx, token.SessionID); err != nil {
				logger.Warnf(reqCtx, "delete session: %v", err)
			}
		}
	}

	ctx.SetCookie(c.sessionCookie("", -1))
	return ctx.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (c *Controller) Me(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, identityResponse{User: domain.ViewOf(identity)})
}

func (c *Controller) CheckSession(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}

	type response struct {
		Valid bool                `json:"valid"`
		User  domain.IdentityView `json:"user"`
	}
	return ctx.JSON(http.StatusOK, response{Valid: true, User: domain.ViewOf(identity)})
}

func (c *Controller) ChangePassword(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}

	var req dto.ChangePasswordRequest
	if err = ctx.Bind(&req); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if err = c.auth.ChangePassword(reqCtx, identity, req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	// снимаем флаг и в текущей сессии, остальные сессии пользователя доживают как есть
	if sid, ok := ctx.Get(constants.CtxKeySessionID).(string); ok && identity.PasswordResetRequired() {
		rec := session.RecordOf(identity)
		rec.PasswordResetRequired = false
		if err = c.sessions.Update(reqCtx, sid, rec); err != nil {
			logger.Warnf(reqCtx, "refresh session after password change: %v", err)
		}
	}

	return ctx.NoContent(http.StatusNoContent)
}
