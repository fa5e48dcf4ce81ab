package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/ougirez/muniportal/internal/pkg/constants"
)

type requestValidator struct {
	validate *validator.Validate
}

func NewValidator() echo.Validator {
	return &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *requestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return constants.ErrBadRequest.Wrap(err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return constants.BadRequest(strings.Join(msgs, "; "))
}

// binder разбирает только тело запроса и сразу валидирует его.
// Параметры пути и query хендлеры читают сами.
type binder struct {
	echo.DefaultBinder
}

func NewBinder() echo.Binder {
	return &binder{}
}

func (b *binder) Bind(i interface{}, c echo.Context) error {
	if err := b.BindBody(c, i); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusUnsupportedMediaType {
			return err
		}
		return constants.BadRequest("invalid request body").Wrap(err)
	}
	return c.Validate(i)
}

// sonicSerializer заменяет encoding/json в echo.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON").SetInternal(err)
	}
	return nil
}
