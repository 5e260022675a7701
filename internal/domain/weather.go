package domain

import "context"

// WeatherSnapshot is one point-in-time observation of ambient conditions.
// A snapshot is either complete or not returned at all.
type WeatherSnapshot struct {
	TempC            float64 `json:"weather_temp_c"`
	TempF            float64 `json:"weather_temp_f"`
	FeelsLikeC       float64 `json:"feels_like_c"`
	FeelsLikeF       float64 `json:"feels_like_f"`
	Main             string  `json:"weather_main"`
	Description      string  `json:"weather_description"`
	HumidityPct      int     `json:"humidity"`
	CloudinessPct    int     `json:"cloudiness_pct"`
	WindSpeedMPS     float64 `json:"wind_speed_mps"`
	WindDirectionDeg int     `json:"wind_direction_deg"`
	PressureHPa      int     `json:"pressure_hpa"`
}

// WeatherProvider fetches the current conditions at a fixed location.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context) (WeatherSnapshot, error)
}
