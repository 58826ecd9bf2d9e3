package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/agrihub/farm-backend/internal/agro"
	httpapi "github.com/agrihub/farm-backend/internal/api/http"
	"github.com/agrihub/farm-backend/internal/config"
	"github.com/agrihub/farm-backend/internal/location"
	"github.com/agrihub/farm-backend/internal/observers"
	"github.com/agrihub/farm-backend/internal/realtime"
	"github.com/agrihub/farm-backend/internal/scheduler"
	"github.com/agrihub/farm-backend/internal/weather"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Upstream adapters.
	fetcher := weather.NewOpenWeatherFetcher(httpClient, cfg.OpenWeatherAPIKey)

	advisor, err := agro.NewOpenAIAdvisor(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure AI advisor")
	}

	var geo location.Geocoder
	if cfg.GeocoderAPIKey != "" {
		geo, err = location.NewGoogleGeocoder(cfg.GeocoderAPIKey)
		if err != nil {
			logrus.WithError(err).Fatal("failed to configure geocoder")
		}
	} else {
		logrus.Warn("GEOCODER_API_KEY not set; geocoding serves approximate fallbacks only")
		geo = location.UnconfiguredGeocoder{}
	}

	// Domain services.
	weatherSvc := weather.NewService(fetcher,
		weather.WithTTL(cfg.WeatherTTL),
		weather.WithWorkers(cfg.FetchWorkers),
		weather.WithBatchTimeout(cfg.BatchTimeout),
	)

	agroSvc, err := agro.NewService(advisor, agro.WithTTL(cfg.AgroTTL))
	if err != nil {
		logrus.WithError(err).Fatal("failed to create agro service")
	}

	locationSvc := location.NewService(geo, location.NewGeoAPISource(httpClient),
		location.WithTTL(cfg.LocationTTL),
		location.WithDivisionsTTL(cfg.DivisionsTTL),
	)

	// Observers shared by every service bus.
	hub := realtime.NewHub()
	logObs := observers.NewLog()
	alertObs := observers.NewAlert()
	pushObs := realtime.NewPushObserver(hub)

	weatherSvc.Attach(logObs)
	weatherSvc.Attach(alertObs)
	weatherSvc.Attach(pushObs)

	agroSvc.Attach(logObs)
	agroSvc.Attach(alertObs)
	agroSvc.Attach(pushObs)

	locationSvc.Attach(logObs)
	locationSvc.Attach(alertObs)
	locationSvc.Attach(pushObs)

	// Scheduler keeping the weather cache warm for configured locations.
	sched := scheduler.New(cfg.Locations, cfg.RefreshInterval, weatherSvc)
	if err := sched.Start(); err != nil {
		logrus.WithError(err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "farm-backend",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "farm-backend",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Services{
		Weather:  weatherSvc,
		Agro:     agroSvc,
		Location: locationSvc,
		LogStats: logObs,
		Hub:      hub,
	})
	realtime.RegisterRoutes(app, hub)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.WithError(err).Error("server stopped")
		}
	}()
	logrus.WithField("port", cfg.Port).Info("farm-backend listening")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.WithError(err).Error("error during shutdown")
	}
}
