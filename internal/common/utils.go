package common

import (
	"math"
	"strconv"
)

// OneDecimal formats v with one decimal place. NaN and infinities render
// as "0.0".
func OneDecimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.0"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Plain formats v with the shortest exact representation ("3", "2.75").
// NaN and infinities render as "0".
func Plain(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
