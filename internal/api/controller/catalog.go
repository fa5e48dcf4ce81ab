package controller

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/service/access"
)

// ListMunicipalities отдаёт всех; со scope=mine оператор видит только свой муниципалитет.
func (c *Controller) ListMunicipalities(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}

	var onlyID *int64
	switch scope := ctx.QueryParam("scope"); scope {
	case "":
	case "mine":
		onlyID = access.MunicipalityFilter(identity)
	default:
		return constants.BadRequest("unknown scope " + scope)
	}

	items, err := c.reports.Municipalities(ctx.Request().Context(), onlyID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*domain.Municipality{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (c *Controller) ListIndicators(ctx echo.Context) error {
	if _, err := Identity(ctx); err != nil {
		return err
	}

	formCode := strings.TrimSpace(ctx.Param("formCode"))
	if formCode == "" {
		return constants.BadRequest("formCode is required")
	}

	items, err := c.reports.Catalog(ctx.Request().Context(), domain.KindIndicator, &formCode)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*domain.CatalogItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (c *Controller) ListServicesCatalog(ctx echo.Context) error {
	if _, err := Identity(ctx); err != nil {
		return err
	}

	items, err := c.reports.Catalog(ctx.Request().Context(), domain.KindService, queryString(ctx, "category"))
	if err != nil {
		return err
	}
	if items == nil {
		items = []*domain.CatalogItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}
