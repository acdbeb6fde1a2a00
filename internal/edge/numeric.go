package edge

import (
	"math"
	"strconv"
	"strings"
)

var numberNoise = strings.NewReplacer("%", "", ",", "")

// ParseDecimal reads a table cell as a number, percent signs and thousands
// separators are ignored. Anything that still isn't a number is absent (nil).
func ParseDecimal(text string) *float64 {
	return parseFloat(numberNoise.Replace(text))
}

// ParseDecimalStrict reads a cell that is expected to already be a plain
// number, "84%" or "1,234" are absent rather than cleaned up.
func ParseDecimalStrict(text string) *float64 {
	return parseFloat(text)
}

func parseFloat(text string) *float64 {
	text = strings.TrimSpace(text)
	// hex floats, "NaN" and "Inf" parse but are not table numbers
	if text == "" || strings.ContainsAny(text, "xXpP") {
		return nil
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	return &value
}
