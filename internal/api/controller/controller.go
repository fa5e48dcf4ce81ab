package controller

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/session"
	"github.com/ougirez/muniportal/internal/pkg/store"
	"github.com/ougirez/muniportal/internal/service/auth"
	"github.com/ougirez/muniportal/internal/service/dashboard"
	"github.com/ougirez/muniportal/internal/service/export"
	"github.com/ougirez/muniportal/internal/service/importer"
	"github.com/ougirez/muniportal/internal/service/reports"
	"github.com/ougirez/muniportal/internal/service/user"
)

// Sessions: хранилище сессий, реализуется session.RedisStore.
type Sessions interface {
	Create(ctx context.Context, rec session.Record) (string, error)
	Get(ctx context.Context, id string) (*session.Record, error)
	Update(ctx context.Context, id string, rec session.Record) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// ReplicaProber: проверка реплики для /health. Может отсутствовать.
type ReplicaProber interface {
	ProbeReplica(ctx context.Context) bool
}

type CookieOptions struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

type Options struct {
	Cookie        CookieOptions
	MaxUploadSize int64
}

type Controller struct {
	auth      *auth.Service
	users     *user.Service
	reports   *reports.Service
	importer  *importer.Service
	dashboard *dashboard.Service
	export    *export.Service

	store    store.Store
	sessions Sessions
	replica  ReplicaProber
	opts     Options
}

type Services struct {
	Auth      *auth.Service
	Users     *user.Service
	Reports   *reports.Service
	Importer  *importer.Service
	Dashboard *dashboard.Service
	Export    *export.Service
}

func NewController(services Services, store store.Store, sessions Sessions, replica ReplicaProber, opts Options) *Controller {
	return &Controller{
		auth:      services.Auth,
		users:     services.Users,
		reports:   services.Reports,
		importer:  services.Importer,
		dashboard: services.Dashboard,
		export:    services.Export,
		store:     store,
		sessions:  sessions,
		replica:   replica,
		opts:      opts,
	}
}

// Identity возвращает личность, положенную в контекст middleware сессии.
func Identity(ctx echo.Context) (domain.Identity, error) {
	identity, ok := ctx.Get(constants.CtxKeyIdentity).(domain.Identity)
	if !ok || identity == nil {
		return nil, constants.ErrUnauthorized
	}
	return identity, nil
}

func queryString(ctx echo.Context, name string) *string {
	v := strings.TrimSpace(ctx.QueryParam(name))
	if v == "" {
		return nil
	}
	return &v
}

func parseInt64(name, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, constants.BadRequest(fmt.Sprintf("%s must be an integer", name))
	}
	return &v, nil
}

func parseInt(name, raw string) (*int, error) {
	v, err := parseInt64(name, raw)
	if err != nil || v == nil {
		return nil, err
	}
	i := int(*v)
	return &i, nil
}

func queryInt64(ctx echo.Context, name string) (*int64, error) {
	return parseInt64(name, ctx.QueryParam(name))
}

func queryInt(ctx echo.Context, name string) (*int, error) {
	return parseInt(name, ctx.QueryParam(name))
}

func paramID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, constants.BadRequest("invalid id")
	}
	return id, nil
}

func parseKind(raw string) (domain.ValueKind, error) {
	kind, err := domain.ParseValueKind(strings.TrimSpace(raw))
	if err != nil {
		return "", constants.ErrBadRequest.WithMessage(err.Error())
	}
	return kind, nil
}

// kindFilter: форма показателей или категория услуг из query.
func kindFilter(ctx echo.Context, kind domain.ValueKind) *string {
	if kind == domain.KindService {
		return queryString(ctx, "category")
	}
	return queryString(ctx, "formCode")
}

func userID(identity domain.Identity) *int64 {
	id := identity.UserID()
	return &id
}
