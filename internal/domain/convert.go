package domain

import "strconv"

// CelsiusToFahrenheit converts a Celsius temperature to Fahrenheit rounded to
// two decimal places. Rounding is applied to the exact binary value, with
// exact ties going to the even digit, so 33.125 becomes 33.12.
func CelsiusToFahrenheit(c float64) float64 {
	return roundTo(c*9/5+32, 2)
}

func roundTo(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
