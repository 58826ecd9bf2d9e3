package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/agrihub/farm-backend/internal/agro"
	"github.com/agrihub/farm-backend/internal/location"
	"github.com/agrihub/farm-backend/internal/observers"
	"github.com/agrihub/farm-backend/internal/realtime"
	"github.com/agrihub/farm-backend/internal/weather"
)

var validate = validator.New()

// Services bundles everything the HTTP layer needs.
type Services struct {
	Weather  *weather.Service
	Agro     *agro.Service
	Location *location.Service
	LogStats *observers.Log
	Hub      *realtime.Hub
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Services) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		req, err := parseWeatherQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshot, err := svc.Weather.Get(c.UserContext(), req)
		if err != nil {
			if errors.Is(err, weather.ErrInvalidCoordinates) || errors.Is(err, weather.ErrEmptyLocation) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(snapshot)
	})

	v1.Post("/weather/batch", func(c *fiber.Ctx) error {
		var body batchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots := svc.Weather.GetMany(c.UserContext(), body.Locations)

		return c.JSON(fiber.Map{
			"total_requested": len(body.Locations),
			"total_fetched":   len(snapshots),
			"snapshots":       snapshots,
		})
	})

	v1.Post("/agro/analyze", func(c *fiber.Ctx) error {
		var body analyzeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshot, err := svc.Weather.Get(c.UserContext(), weather.Request{
			Name: body.Location,
			Lat:  body.Latitude,
			Lon:  body.Longitude,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		suggestion, err := svc.Agro.Analyze(c.UserContext(), snapshot)
		if err != nil {
			// No fabricated fallback for AI output; absence is the contract.
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"suggestion": nil,
				"message":    "could not generate suggestions",
			})
		}

		return c.JSON(fiber.Map{
			"suggestion": suggestion,
			"weather":    snapshot,
		})
	})

	v1.Get("/locations/geocode", func(c *fiber.Ctx) error {
		address := c.Query("address")
		place, err := svc.Location.Geocode(c.UserContext(), address)
		if err != nil {
			if errors.Is(err, location.ErrEmptyQuery) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to resolve location")
		}
		return c.JSON(place)
	})

	v1.Get("/locations/reverse", func(c *fiber.Ctx) error {
		lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
		lon, err2 := strconv.ParseFloat(c.Query("lon"), 64)
		if err1 != nil || err2 != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lon query parameters are required")
		}

		place, err := svc.Location.ReverseGeocode(c.UserContext(), lat, lon)
		if err != nil {
			if errors.Is(err, location.ErrInvalidCoordinates) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to resolve location")
		}
		return c.JSON(place)
	})

	v1.Get("/locations/divisions", func(c *fiber.Ctx) error {
		hierarchy, err := svc.Location.Divisions(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch divisions")
		}
		return c.JSON(hierarchy)
	})

	v1.Get("/system/cache", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"weather":   svc.Weather.CacheInfo(),
			"agro":      svc.Agro.CacheInfo(),
			"locations": svc.Location.CacheInfo(),
			"divisions": svc.Location.DivisionsCacheInfo(),
		})
	})

	v1.Post("/system/cache/clear", func(c *fiber.Ctx) error {
		svc.Weather.ClearCache()
		svc.Agro.ClearCache()
		svc.Location.ClearCache()
		return c.JSON(fiber.Map{"message": "all caches cleared"})
	})

	v1.Get("/system/events", func(c *fiber.Ctx) error {
		return c.JSON(svc.LogStats.Stats())
	})

	v1.Get("/system/realtime", func(c *fiber.Ctx) error {
		return c.JSON(svc.Hub.Stats())
	})
}

type batchRequest struct {
	Locations []weather.Request `json:"locations" validate:"required,min=1,max=50,dive"`
}

type analyzeRequest struct {
	Location  string  `json:"location" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

func parseWeatherQuery(c *fiber.Ctx) (weather.Request, error) {
	var req weather.Request

	req.Name = c.Query("name")

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return req, errors.New("lat query parameter is required")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return req, errors.New("lon query parameter is required")
	}
	req.Lat = lat
	req.Lon = lon

	if err := validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}
