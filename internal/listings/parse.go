package listings

import (
	"regexp"
	"strconv"
	"time"
)

var (
	numberPattern    = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
	fourDigitPattern = regexp.MustCompile(`\d{4}`)
	agePattern       = regexp.MustCompile(`(\d+)\s*years?`)
)

// ExtractNumber pulls the first numeric token out of a free-text measurement
// such as "105.40 m²" or "120坪 (396.69m²)". Nil when no digits appear.
func ExtractNumber(raw string) *float64 {
	match := numberPattern.FindString(raw)
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}

// ExtractConstructionYear derives a year from a construction date string. A
// 4-digit run anywhere wins ("March 1985" → 1985); otherwise an "N years"
// age is subtracted from the current year. Nil when neither form appears.
func ExtractConstructionYear(raw string, now time.Time) *int {
	if raw == "" {
		return nil
	}
	if match := fourDigitPattern.FindString(raw); match != "" {
		year, err := strconv.Atoi(match)
		if err == nil {
			return &year
		}
	}
	if groups := agePattern.FindStringSubmatch(raw); groups != nil {
		age, err := strconv.Atoi(groups[1])
		if err == nil {
			year := now.Year() - age
			return &year
		}
	}
	return nil
}
