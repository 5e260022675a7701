package openweather

import (
	"fmt"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
)

// OpenWeatherMap API response types. Every field the snapshot needs is a
// pointer so an absent field can be told apart from a zero reading.

type response struct {
	Main    *mainBlock  `json:"main"`
	Weather []condition `json:"weather"`
	Clouds  *clouds     `json:"clouds"`
	Wind    *wind       `json:"wind"`
}

type mainBlock struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	Humidity  *int     `json:"humidity"`
	Pressure  *int     `json:"pressure"`
}

type condition struct {
	Main        *string `json:"main"`
	Description *string `json:"description"`
}

type clouds struct {
	All *int `json:"all"`
}

type wind struct {
	Speed *float64 `json:"speed"`
	Deg   *int     `json:"deg"`
}

// snapshot converts the response, failing with domain.ErrDecode on the first
// missing field so that a partial snapshot is never produced.
func (r response) snapshot() (domain.WeatherSnapshot, error) {
	if r.Main == nil {
		return domain.WeatherSnapshot{}, missing("main")
	}
	m := r.Main
	switch {
	case m.Temp == nil:
		return domain.WeatherSnapshot{}, missing("main.temp")
	case m.FeelsLike == nil:
		return domain.WeatherSnapshot{}, missing("main.feels_like")
	case m.Humidity == nil:
		return domain.WeatherSnapshot{}, missing("main.humidity")
	case m.Pressure == nil:
		return domain.WeatherSnapshot{}, missing("main.pressure")
	}

	if len(r.Weather) == 0 {
		return domain.WeatherSnapshot{}, missing("weather[0]")
	}
	cond := r.Weather[0]
	switch {
	case cond.Main == nil:
		return domain.WeatherSnapshot{}, missing("weather[0].main")
	case cond.Description == nil:
		return domain.WeatherSnapshot{}, missing("weather[0].description")
	}

	if r.Clouds == nil || r.Clouds.All == nil {
		return domain.WeatherSnapshot{}, missing("clouds.all")
	}
	if r.Wind == nil || r.Wind.Speed == nil {
		return domain.WeatherSnapshot{}, missing("wind.speed")
	}
	if r.Wind.Deg == nil {
		return domain.WeatherSnapshot{}, missing("wind.deg")
	}

	return domain.WeatherSnapshot{
		TempC:            *m.Temp,
		TempF:            domain.CelsiusToFahrenheit(*m.Temp),
		FeelsLikeC:       *m.FeelsLike,
		FeelsLikeF:       domain.CelsiusToFahrenheit(*m.FeelsLike),
		Main:             *cond.Main,
		Description:      *cond.Description,
		HumidityPct:      *m.Humidity,
		CloudinessPct:    *r.Clouds.All,
		WindSpeedMPS:     *r.Wind.Speed,
		WindDirectionDeg: *r.Wind.Deg,
		PressureHPa:      *m.Pressure,
	}, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: weather response missing %s", domain.ErrDecode, field)
}
