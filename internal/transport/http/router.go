package http

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// RouterConfig holds what the relay API needs before any route is mounted.
type RouterConfig struct {
	AllowOrigins []string
	Logger       *zap.Logger
	// Ready reports whether the message store answers. Nil means always ready.
	Ready func(ctx context.Context) error
	// BodyLimit caps request bodies, in echo's size notation. Defaults to "64K".
	BodyLimit string
}

func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.BodyLimit
	if limit == "" {
		limit = "64K"
	}

	e.Use(middleware.RequestID())
	registerLogging(e, logger)
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit(limit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderAuthorization,
			echo.HeaderContentType,
			echo.HeaderAccept,
		},
		// Clients back off on 429 using Retry-After.
		ExposeHeaders:    []string{"Retry-After", echo.HeaderXRequestID},
		AllowCredentials: !slices.Contains(cfg.AllowOrigins, "*"),
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	e.GET("/ready", func(c echo.Context) error {
		if cfg.Ready == nil {
			return c.JSON(http.StatusOK, echo.Map{"ready": true})
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := cfg.Ready(ctx); err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"ready": false})
		}
		return c.JSON(http.StatusOK, echo.Map{"ready": true})
	})
	return e
}
