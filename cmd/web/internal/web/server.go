package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"thirdcoast.systems/ytcomments/cmd/web/handlers/comments_api"
	"thirdcoast.systems/ytcomments/cmd/web/handlers/content"
	"thirdcoast.systems/ytcomments/cmd/web/internal/metrics"
	staticpkg "thirdcoast.systems/ytcomments/cmd/web/internal/web/utils/static"
	"thirdcoast.systems/ytcomments/static"
)

const streamPath = "/api/comments/stream"

type Webserver struct {
	*echo.Echo
	downloader  comments_api.Downloader
	staticCache *staticpkg.StaticCache
}

func NewWebserver(ctx context.Context, downloader comments_api.Downloader) (*Webserver, error) {
	staticCache, err := staticpkg.NewStaticCache(static.FS)
	if err != nil {
		return nil, err
	}

	webserver := &Webserver{
		Echo:        echo.New(),
		downloader:  downloader,
		staticCache: staticCache,
	}

	if err := webserver.setupMiddleware(); err != nil {
		return nil, err
	}
	if err := webserver.registerRoutes(); err != nil {
		return nil, err
	}

	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("2M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.CORS())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Path() == streamPath
		},
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			switch c.Path() {
			case "/health", "/metrics":
				return true
			default:
				return false
			}
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
	s.Use(requestMetrics)
	return nil
}

// requestMetrics records request counts and latency by route pattern.
func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request().Method

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}

func (s *Webserver) registerRoutes() error {
	s.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	s.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.GET("/", content.HandleHomePage(streamPath))
	s.GET("/static/*", s.staticCache.ServeStaticFile("/static/"))

	api := s.Group("/api")
	api.GET("/comments", comments_api.HandleDownload(s.downloader))
	api.GET("/comments/stream", comments_api.HandleStream(s.downloader))
	return nil
}
