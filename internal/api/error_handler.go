package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/logger"
)

// newHTTPErrorHandler отдаёт код первой CodedError в цепочке. Всё остальное, кроме
// echo.HTTPError, считается внутренней ошибкой; в production её текст наружу не уходит.
func newHTTPErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		ctx := c.Request().Context()
		resp := domain.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: constants.ErrInternal.Message(),
		}

		var (
			ce *constants.CodedError
			he *echo.HTTPError
		)
		switch {
		case errors.As(err, &ce):
			resp.Code = ce.Code()
			resp.Message = ce.Message()
		case errors.As(err, &he):
			resp.Code = he.Code
			resp.Message = fmt.Sprint(he.Message)
		}

		if resp.Code >= http.StatusInternalServerError {
			logger.Error(ctx, "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err.Error(),
			)
			if !production {
				resp.Detail = err.Error()
			}
		} else if !production && ce != nil && ce.Unwrap() != nil {
			resp.Detail = ce.Unwrap().Error()
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.Code)
		} else {
			err = c.JSON(resp.Code, resp)
		}
		if err != nil {
			logger.Errorf(ctx, "write error response: %v", err)
		}
	}
}
