package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/mamed-gasimov/photo-albums/internal/modules/activity"
	"github.com/mamed-gasimov/photo-albums/internal/modules/albums"
)

type Options struct {
	Albums *albums.AlbumHandler
	// Activity is nil when the activity log is disabled.
	Activity *activity.Handler

	Logger    zerolog.Logger
	BodyLimit string
}

func New(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(opts.Logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	{
		api.GET("/albums", opts.Albums.ListAlbums)
		api.POST("/albums", opts.Albums.CreateAlbum)
		api.GET("/albums/:album", opts.Albums.ViewAlbum)
		api.DELETE("/albums/:album", opts.Albums.DeleteAlbum)
		api.POST("/albums/:album/photos", opts.Albums.AddPhoto)
		api.DELETE("/albums/:album/photos", opts.Albums.DeletePhoto)
		api.GET("/albums/:album/photos/url", opts.Albums.PhotoURL)
		api.GET("/albums/:album/summary", opts.Albums.SummarizeAlbum)

		if opts.Activity != nil {
			api.GET("/activity", opts.Activity.List)
		}
	}

	return e
}

func requestLogger(l zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := l.Info()
			if v.Error != nil {
				ev = l.Error().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
