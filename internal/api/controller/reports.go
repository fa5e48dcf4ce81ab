package controller

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/domain/dto"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/utils"
	"github.com/ougirez/muniportal/internal/service/access"
	"github.com/ougirez/muniportal/internal/service/export"
	"github.com/ougirez/muniportal/internal/service/importer"
	"github.com/ougirez/muniportal/internal/service/reports"
)

func (c *Controller) SaveReport(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}

	var req dto.SaveReportRequest
	if err = ctx.Bind(&req); err != nil {
		return err
	}

	if err = access.RequireScope(req.MunicipalityID); err != nil {
		return err
	}
	if err = access.Authorize(identity, access.Request{Action: access.Write, MunicipalityID: req.MunicipalityID}); err != nil {
		return err
	}

	kind, err := parseKind(req.Kind)
	if err != nil {
		return err
	}
	filter := req.FormCode
	if kind == domain.KindService {
		filter = req.Category
	}

	entries := make([]domain.ValueEntry, 0, len(req.Values))
	for _, v := range req.Values {
		entries = append(entries, domain.ValueEntry{ItemID: v.IndicatorID, Value: utils.NumericFromJSON(v.Value)})
	}

	res, err := c.reports.UpsertValues(ctx.Request().Context(), reports.UpsertRequest{
		Kind:           kind,
		MunicipalityID: *req.MunicipalityID,
		Period:         domain.Period{Year: req.Year, Month: req.Month},
		Filter:         filter,
		Entries:        entries,
		UpdatedBy:      userID(identity),
	})
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, dto.SaveReportResponse{Saved: res.Saved, Dropped: res.Dropped})
}

func (c *Controller) GetValues(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}

	munID, err := queryInt64(ctx, "municipalityId")
	if err != nil {
		return err
	}
	if err = access.RequireScope(munID); err != nil {
		return err
	}
	if err = access.Authorize(identity, access.Request{Action: access.Read, MunicipalityID: munID}); err != nil {
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
	if year == nil || month == nil {
		return constants.ErrInvalidPeriod.WithMessage("year and month are required")
	}

	period := domain.Period{Year: *year, Month: *month}
	values, err := c.reports.GetValues(ctx.Request().Context(), kind, *munID, period)
	if err != nil {
		return err
	}
	if values == nil {
		values = []*domain.ValueRecord{}
	}

	type response struct {
		MunicipalityID int64                 `json:"municipality_id"`
		Period         domain.Period         `json:"period"`
		Values         []*domain.ValueRecord `json:"values"`
	}
	return ctx.JSON(http.StatusOK, response{MunicipalityID: *munID, Period: period, Values: values})
}

func (c *Controller) ListPeriods(ctx echo.Context) error {
	if _, err := Identity(ctx); err != nil {
		return err
	}

	kind, err := parseKind(ctx.QueryParam("kind"))
	if err != nil {
		return err
	}

	periods, err := c.reports.ListPeriods(ctx.Request().Context(), kind)
	if err != nil {
		return err
	}
	if periods == nil {
		periods = []*domain.Period{}
	}
	return ctx.JSON(http.StatusOK, periods)
}

// ImportReport принимает multipart: file, type, year, month, municipalityId, formCode|category.
func (c *Controller) ImportReport(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}
	if err = access.Authorize(identity, access.Request{Action: access.Admin}); err != nil {
		return err
	}

	kind, err := importer.ParseKind(ctx.FormValue("type"))
	if err != nil {
		return err
	}

	req := importer.Request{Kind: kind, UpdatedBy: userID(identity)}

	if req.MunicipalityID, err = parseInt64("municipalityId", ctx.FormValue("municipalityId")); err != nil {
		return err
	}
	if kind.Scoped() {
		if err = access.RequireScope(req.MunicipalityID); err != nil {
			return err
		}
		if err = access.Authorize(identity, access.Request{Action: access.Write, MunicipalityID: req.MunicipalityID}); err != nil {
			return err
		}
	}

	year, err := parseInt("year", ctx.FormValue("year"))
	if err != nil {
		return err
	}
	month, err := parseInt("month", ctx.FormValue("month"))
	if err != nil {
		return err
	}
	if year != nil && month != nil {
		req.Period = &domain.Period{Year: *year, Month: *month}
	}

	if kind == importer.KindServices {
		req.Filter = formString(ctx, "category")
	} else if kind == importer.KindIndicators {
		req.Filter = formString(ctx, "formCode")
	}

	if req.Data, err = c.readUpload(ctx); err != nil {
		return err
	}

	res, err := c.importer.Import(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func formString(ctx echo.Context, name string) *string {
	if v := ctx.FormValue(name); v != "" {
		return &v
	}
	return nil
}

func (c *Controller) readUpload(ctx echo.Context) ([]byte, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, constants.BadRequest("file is required").Wrap(err)
	}
	if c.opts.MaxUploadSize > 0 && fh.Size > c.opts.MaxUploadSize {
		return nil, echo.ErrStatusRequestEntityTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, constants.BadRequest("cannot open uploaded file").Wrap(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, constants.BadRequest("cannot read uploaded file").Wrap(err)
	}

	logger.Infof(ctx.Request().Context(), "upload %q, %d bytes", fh.Filename, len(data))
	return data, nil
}

func (c *Controller) ExportReport(ctx echo.Context) error {
	identity, err := Identity(ctx)
	if err != nil {
		return err
	}

	var req dto.ExportRequest
	if err = ctx.Bind(&req); err != nil {
		return err
	}

	// оператору без явного муниципалитета подставляется свой, администратору без него выгружается вся область
	munID := access.ScopeFor(identity, req.MunicipalityID)
	if err = access.Authorize(identity, access.Request{Action: access.Read, MunicipalityID: munID}); err != nil {
		return err
	}

	kind, err := parseKind(req.Kind)
	if err != nil {
		return err
	}

	file, err := c.export.Export(ctx.Request().Context(), export.Query{
		Kind:           kind,
		Year:           req.Year,
		Month:          req.Month,
		MunicipalityID: munID,
		Filter:         req.Category,
	})
	if err != nil {
		return err
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(file.Name)))
	return ctx.Blob(http.StatusOK, export.ContentType, file.Data)
}
