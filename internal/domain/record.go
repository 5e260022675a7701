package domain

import "time"

// LogRecord is the persisted row: one accepted reading plus the weather at
// the time it was processed.
type LogRecord struct {
	SensorID     int64     `json:"sensor_id,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
	TemperatureC float64   `json:"temperature_c"`
	TemperatureF float64   `json:"temperature_f"`
	WeatherSnapshot
}

// NewLogRecord combines a pool temperature with a weather snapshot, deriving
// the Fahrenheit column.
func NewLogRecord(recordedAt time.Time, poolTempC float64, weather WeatherSnapshot) LogRecord {
	return LogRecord{
		RecordedAt:      recordedAt,
		TemperatureC:    poolTempC,
		TemperatureF:    CelsiusToFahrenheit(poolTempC),
		WeatherSnapshot: weather,
	}
}
