// Package domain models pool temperature telemetry and the ambient weather
// it is correlated with.
//
// # Receiver Output
//
// Readings come from rtl_433 running with "-F json", which prints one JSON
// object per decoded radio packet:
//
//	{"time":"2024-01-01 12:00:00","model":"Inkbird-ITH20R","id":42,"temperature_C":26.0, ...}
//
// Only model, id, time and temperature_C are used; every other field is
// ignored. Packets from unrelated devices (car key fobs, neighbours' weather
// stations, tyre pressure sensors) are interleaved on the same stream, so
// most lines are expected to be skipped by the [Filter].
//
// The "time" field is a naive local timestamp in the fixed layout
// [ReadingTimeLayout]. It carries no zone; callers supply the location the
// receiver clock runs in.
//
// The "id" field is usually an integer but some decoders emit strings or
// omit it entirely. A reading without an integer id never matches the
// filter and is skipped, not rejected.
//
// # Weather Conventions
//
// Snapshots follow the OpenWeatherMap "current weather" response with
// units=metric: temperatures in Celsius, wind speed in m/s, wind direction
// in meteorological degrees, pressure in hPa at sea level, humidity and
// cloudiness as whole percentages.
//
// # Fahrenheit Values
//
// Every Fahrenheit value stored alongside a Celsius one is derived with
// [CelsiusToFahrenheit] so rounding is identical across columns.
package domain
