// Package server はechoの組み立てとHTTPサーバーの起動・停止。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/logging"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type Options struct {
	JWTSecret    string
	AllowOrigins []string
	Limiter      *middleware.RateLimiter
	// /metrics（nilなら出さない）
	Metrics http.Handler
	Log     logrus.FieldLogger
}

// NewRouter はミドルウェアとルートを載せたechoを返す。
func NewRouter(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	if len(opts.AllowOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: opts.AllowOrigins,
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Idempotency-Key"},
		}))
	}
	e.Use(httpRoute())
	if opts.Log != nil {
		e.Use(logging.RequestLogger(opts.Log))
	}

	RegisterRoutes(e, h, opts)
	return e
}

// httpRoute はルーティング後のパスをspanのhttp.routeに入れる（otelhttpはルートを知らない）。
func httpRoute() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p := c.Path(); p != "" {
				oteltrace.SpanFromContext(c.Request().Context()).SetAttributes(semconv.HTTPRoute(p))
			}
			return next(c)
		}
	}
}

type Server struct {
	http *http.Server
	log  logrus.FieldLogger
}

func New(addr string, e *echo.Echo, log logrus.FieldLogger) *Server {
	return &Server{
		http: &http.Server{
			Addr: addr,
			Handler: otelhttp.NewHandler(e, "storefront",
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return r.Method + " " + r.URL.Path
				}),
			),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
		log: log,
	}
}

// Run はctxが終わるまでサーバーを動かし、その後graceful shutdownする。
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.http.Addr).Info("starting http server")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
