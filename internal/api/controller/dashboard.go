package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/muniportal/internal/service/access"
	"github.com/ougirez/muniportal/internal/service/dashboard"
)

// DashboardData: сводка за год или месяц. Оператор обязан передать свой municipalityId.
func (c *Controller) DashboardData(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}

	munID, err := queryInt64(ctx, "municipalityId")
	if err != nil {
		return err
	}
	if err = access.Authorize(identity, access.Request{Action: access.AggregateRead, MunicipalityID: munID}); err != nil {
		return err
	}

	kind, err := parseKind(ctx.QueryParam("kind"))
	if err != nil {
		return err
	}
	year, err := queryInt(ctx, "year")
	if err != nil {
		return err
	}
	month, err := queryInt(ctx, "month")
	if err != nil {
		return err
	}

	q := dashboard.Query{
		Kind:           kind,
		Year:           time.Now().Year(),
		Month:          month,
		MunicipalityID: munID,
		Filter:         kindFilter(ctx, kind),
	}
	if year != nil {
		q.Year = *year
	}

	data, err := c.dashboard.Data(ctx.Request().Context(), q)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, data)
}

func (c *Controller) DashboardRecent(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}

	munID, err := queryInt64(ctx, "municipalityId")
	if err != nil {
		return err
	}
	if err = access.Authorize(identity, access.Request{Action: access.AggregateRead, MunicipalityID: munID}); err != nil {
		return err
	}

	kind, err := parseKind(ctx.QueryParam("kind"))
	if err != nil {
		return err
	}
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return err
	}

	var n int
	if limit != nil {
		n = *limit
	}

	items, err := c.dashboard.Recent(ctx.Request().Context(), kind, munID, n)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, items)
}

func (c *Controller) Stats(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}
	if err = access.Authorize(identity, access.Request{Action: access.AggregateRead}); err != nil {
		return err
	}

	stats, err := c.dashboard.Stats(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}
