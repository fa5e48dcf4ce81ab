package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/ougirez/muniportal/internal/api/controller"
	"github.com/ougirez/muniportal/internal/pkg/config"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/store"
	"github.com/ougirez/muniportal/internal/service/auth"
	"github.com/ougirez/muniportal/internal/service/dashboard"
	"github.com/ougirez/muniportal/internal/service/export"
	"github.com/ougirez/muniportal/internal/service/importer"
	"github.com/ougirez/muniportal/internal/service/reports"
	"github.com/ougirez/muniportal/internal/service/user"
)

type APIService struct {
	router   *echo.Echo
	cfg      config.Config
	sessions controller.Sessions
}

// Deps: внешние ресурсы сервера. Replica == nil, если реплика не настроена.
type Deps struct {
	Store    store.Store
	Sessions controller.Sessions
	Replica  controller.ReplicaProber
}

// Serve блокируется до Shutdown. Штатная остановка ошибкой не считается.
func (svc *APIService) Serve(addr string) error {
	if err := svc.router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (svc *APIService) Shutdown(ctx context.Context) error {
	return svc.router.Shutdown(ctx)
}

func (svc *APIService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	svc.router.ServeHTTP(w, r)
}

func NewAPIService(cfg config.Config, deps Deps) (*APIService, error) {
	svc := &APIService{router: echo.New(), cfg: cfg, sessions: deps.Sessions}

	svc.router.HideBanner = true
	svc.router.Logger.SetLevel(log.WARN)
	if cfg.Log.Development {
		svc.router.Logger.SetLevel(log.DEBUG)
	}

	svc.router.JSONSerializer = sonicSerializer{}
	svc.router.Validator = NewValidator()
	svc.router.Binder = NewBinder()
	svc.router.HTTPErrorHandler = newHTTPErrorHandler(cfg.Production())

	svc.router.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	svc.router.Use(svc.RequestContextMiddleware)
	svc.router.Use(middleware.Recover())
	svc.router.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info(c.Request().Context(), "request",
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency.String(),
			)
			return nil
		},
	}))
	svc.router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSOrigins,
		AllowMethods:     []string{echo.GET, echo.POST, echo.PATCH, echo.DELETE},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	if limit := strings.TrimSpace(cfg.HTTP.BodyLimit); limit != "" {
		svc.router.Use(middleware.BodyLimit(limit))
	}

	authService := auth.NewService(deps.Store, auth.Options{
		BcryptCost:     cfg.Auth.BcryptCost,
		MinPasswordLen: cfg.Auth.MinPasswordLen,
	})
	reportsService := reports.NewReportsService(deps.Store)

	cntrl := controller.NewController(controller.Services{
		Auth:      authService,
		Users:     user.NewUserService(deps.Store, authService),
		Reports:   reportsService,
		Importer:  importer.NewImporterService(deps.Store, reportsService, cfg.Import.SummaryPatterns),
		Dashboard: dashboard.NewDashboardService(deps.Store, cfg.Dashboard.RecentMaxLimit),
		Export:    export.NewExportService(deps.Store),
	}, deps.Store, deps.Sessions, deps.Replica, controller.Options{
		Cookie: controller.CookieOptions{
			Secret: cfg.Session.Secret,
			TTL:    cfg.Session.TTL,
			Secure: cfg.Session.CookieSecure,
		},
		MaxUploadSize: cfg.Import.MaxFileSize,
	})

	api := svc.router.Group("/api")
	api.GET("/health", cntrl.Health)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", cntrl.Login)
	authGroup.POST("/logout", cntrl.Logout)
	authGroup.GET("/me", cntrl.Me, svc.AuthMiddleware)
	authGroup.POST("/check-session", cntrl.CheckSession, svc.AuthMiddleware)
	authGroup.POST("/change-password", cntrl.ChangePassword, svc.AuthMiddleware)

	protected := api.Group("", svc.AuthMiddleware)
	protected.GET("/municipalities", cntrl.ListMunicipalities)
	protected.GET("/indicators/:formCode", cntrl.ListIndicators)
	protected.GET("/services/catalog", cntrl.ListServicesCatalog)
	protected.GET("/stats", cntrl.Stats)

	reportsGroup := protected.Group("/reports")
	reportsGroup.POST("/save", cntrl.SaveReport)
	reportsGroup.GET("/values", cntrl.GetValues)
	reportsGroup.GET("/periods", cntrl.ListPeriods)
	reportsGroup.POST("/import", cntrl.ImportReport)
	reportsGroup.POST("/export", cntrl.ExportReport)

	dashboardGroup := protected.Group("/dashboard")
	dashboardGroup.GET("/data", cntrl.DashboardData)
	dashboardGroup.GET("/recent", cntrl.DashboardRecent)

	admin := protected.Group("/admin", svc.AdminMiddleware)
	admin.GET("/users", cntrl.ListUsers)
	admin.POST("/users", cntrl.CreateUser)
	admin.GET("/users/:id", cntrl.GetUser)
	admin.PATCH("/users/:id", cntrl.UpdateUser)
	admin.DELETE("/users/:id", cntrl.DeleteUser)
	admin.POST("/users/:id/password", cntrl.SetUserPassword)
	admin.DELETE("/municipalities/:id", cntrl.DeleteMunicipality)

	return svc, nil
}
