// Package units provides shared constants and validation for length units
package units

import "strings"

// Length unit constants
const (
	MM = "mm"
	CM = "cm"
	M  = "m"
)

// ValidLengthUnits contains all valid length unit values
var ValidLengthUnits = []string{MM, CM, M}

// metres per unit
var lengthScale = map[string]float64{
	MM: 0.001,
	CM: 0.01,
	M:  1,
}

// IsValidLength checks if the given unit is in the list of valid length units
func IsValidLength(unit string) bool {
	_, ok := lengthScale[unit]
	return ok
}

// GetValidLengthUnitsString returns a comma-separated string of valid units for error messages
func GetValidLengthUnitsString() string {
	return strings.Join(ValidLengthUnits, ", ")
}

// LengthScale returns the factor converting a length in from units into to
// units. Unknown units are treated as millimetres, the usual marker unit.
func LengthScale(from, to string) float64 {
	f, ok := lengthScale[from]
	if !ok {
		f = lengthScale[MM]
	}
	t, ok := lengthScale[to]
	if !ok {
		t = lengthScale[MM]
	}
	return f / t
}

// ConvertLength converts a length between units
func ConvertLength(v float64, from, to string) float64 {
	return v * LengthScale(from, to)
}
