package utils

import "errors"

// ErrImplausibleMeasurement rejects profile measurements no human has, so a
// typo in the profile cannot skew the generated plan.
var ErrImplausibleMeasurement = errors.New("height or weight outside plausible range")

// CalculateBMI computes the body mass index from a height in centimeters and
// a weight in kilograms.
func CalculateBMI(heightCm, weightKg float64) (float64, error) {
	if heightCm < 50 || heightCm > 250 || weightKg < 10 || weightKg > 400 {
		return 0, ErrImplausibleMeasurement
	}
	meters := heightCm / 100
	return weightKg / (meters * meters), nil
}

var bmiBands = []struct {
	upper float64
	label string
}{
	{18.5, "Underweight"},
	{25.0, "Normal weight"},
	{30.0, "Overweight"},
	{35.0, "Obesity class I"},
	{40.0, "Obesity class II"},
}

// BMICategory maps a BMI value onto the WHO classification bands.
func BMICategory(bmi float64) string {
	for _, band := range bmiBands {
		if bmi < band.upper {
			return band.label
		}
	}
	return "Obesity class III"
}
