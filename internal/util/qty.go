package util

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"slipscan/internal"
)

var (
	currencyReplacer = strings.NewReplacer("¥", "", "$", "", "円", "")
	reThousandsRun   = regexp.MustCompile(`^[+-]?\d{1,3}(?:,\d{3})+`)
	rePlainNumber    = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d+)?|\.\d+)$`)
	reLeadingNumber  = regexp.MustCompile(`^([+-]?\d+(?:\.\d+)?)\s*([^0-9]+)$`)
)

// ParseQuantity splits a raw quantity fragment and an optional unit into a
// QuantityUnit. It never fails: anything it cannot read comes back with the
// original text in Raw and the unit trimmed.
func ParseQuantity(raw, unit string) internal.QuantityUnit {
	unit = strings.TrimSpace(unit)
	passthrough := internal.QuantityUnit{Raw: raw, Unit: unit}
	clean := cleanQuantity(raw)
	if clean == "" {
		return passthrough
	}

	if unit != "" {
		if v, ok := parseNumber(clean); ok {
			return internal.QuantityUnit{Quantity: FloatPtr(v), Raw: raw, Unit: unit}
		}
		return passthrough
	}

	if v, ok := parseNumber(clean); ok {
		return internal.QuantityUnit{Quantity: FloatPtr(v), Raw: raw}
	}

	// "200g" -> 200 + "g". The remainder must be digit-free, so "1/2" stays opaque.
	if m := reLeadingNumber.FindStringSubmatch(clean); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			return internal.QuantityUnit{Quantity: FloatPtr(v), Raw: raw, Unit: strings.TrimSpace(m[2])}
		}
	}

	return passthrough
}

// ParsePrice reads an amount token such as "¥1,200" or "$3.50", rounded to
// two decimal places.
func ParsePrice(raw string) (float64, bool) {
	clean := cleanQuantity(raw)
	if !rePlainNumber.MatchString(clean) {
		return 0, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, false
	}
	v, _ := d.Round(2).Float64()
	return v, true
}

func cleanQuantity(raw string) string {
	s := FoldWidth(raw)
	s = currencyReplacer.Replace(s)
	s = strings.TrimSpace(s)
	if loc := reThousandsRun.FindStringIndex(s); loc != nil {
		s = strings.ReplaceAll(s[:loc[1]], ",", "") + s[loc[1]:]
	}
	return s
}

func parseNumber(token string) (float64, bool) {
	if !rePlainNumber.MatchString(token) {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
