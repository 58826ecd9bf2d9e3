package weather

import (
	"math"
	"math/rand"
	"time"
)

var descriptions = []string{
	"Clear sky",
	"Few clouds",
	"Scattered clouds",
	"Light rain",
	"Overcast",
}

// Simulate generates a plausible snapshot for a location. It is the fallback
// when the upstream provider is unavailable: latitude drives the base
// temperature so values stay geographically coherent.
func Simulate(req Request) Snapshot {
	baseTemp := 20 - math.Abs(req.Lat)*0.5

	return Snapshot{
		Location:    req.Name,
		Latitude:    req.Lat,
		Longitude:   req.Lon,
		Temperature: baseTemp + rand.Float64()*15 - 5, // base -5..+10
		Humidity:    30 + rand.Float64()*50,           // 30..80
		Pressure:    1000 + rand.Float64()*25,         // 1000..1025
		Description: descriptions[rand.Intn(len(descriptions))],
		Timestamp:   time.Now().UTC(),
		Simulated:   true,
	}
}
