// Package server exposes the registry over HTTP: the JSON API under /api and,
// when configured, the spreadsheet store protocol at /exec.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"athletics-registry/internal/config"
	"athletics-registry/internal/endpoint"
	"athletics-registry/internal/policy"
	"athletics-registry/internal/repository"
	"athletics-registry/internal/session"
	"athletics-registry/internal/tabular"
)

// StorePath is where the store protocol is served.
const StorePath = "/exec"

// New wires the API and, if store is non-nil, the store endpoint.
func New(cfg config.Config, api *API, store *endpoint.Handler, log *zap.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewEcho(api, store, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func NewEcho(api *API, store *endpoint.Handler, log *zap.Logger) *echo.Echo {
	if log == nil {
		log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				log.Error("http request", fields...)
			case v.Status >= 400:
				log.Warn("http request", fields...)
			default:
				log.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	if api != nil {
		api.Register(e)
	}
	if store != nil {
		store.Register(e, StorePath)
	}
	return e
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	switch {
	case errors.Is(err, policy.ErrUnauthenticated), errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, policy.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrNoEventSelected):
		return http.StatusBadRequest
	}
	switch tabular.KindOf(err) {
	case tabular.KindNotFound:
		return http.StatusNotFound
	case tabular.KindConflict:
		return http.StatusConflict
	case tabular.KindValidation:
		return http.StatusBadRequest
	case tabular.KindTransport, tabular.KindRemote:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func httpError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(statusFor(err), err.Error())
}
