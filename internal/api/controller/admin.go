package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/domain/dto"
)

// Маршруты /admin закрыты middleware, здесь личность нужна только как actor.

func (c *Controller) ListUsers(ctx echo.Context) error {
	users, err := c.users.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (c *Controller) GetUser(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	u, err := c.users.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, u)
}

func (c *Controller) CreateUser(ctx echo.Context) error {
	actor, err := Identity(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateUserRequest
	if err = ctx.Bind(&req); err != nil {
		return err
	}

	u, err := c.users.Create(ctx.Request().Context(), actor, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, u)
}

func (c *Controller) UpdateUser(ctx echo.Context) error {
	actor, err := Identity(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateUserRequest
	if err = ctx.Bind(&req); err != nil {
		return err
	}

	u, err := c.users.Update(ctx.Request().Context(), actor, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, u)
}

func (c *Controller) SetUserPassword(ctx echo.Context) error {
	actor, err := Identity(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var req dto.SetPasswordRequest
	if err = ctx.Bind(&req); err != nil {
		return err
	}

	if err = c.users.SetPassword(ctx.Request().Context(), actor, id, &req); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) DeleteUser(ctx echo.Context) error {
	actor, err := Identity(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	if err = c.users.Delete(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) DeleteMunicipality(ctx echo.Context) error {
	actor, err := Identity(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	if err = c.users.DeleteMunicipality(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
