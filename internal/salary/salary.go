// Package salary estimates a minimum monthly amount in euros from the free-form
// salary text of a posting.
package salary

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// HoursPerMonth converts hourly rates (35h weeks).
const HoursPerMonth = 151.67

const amount = `(\d+(?:[ .,]\d+)*)`

var (
	// France Travail labels: "Annuel de 38000,00 Euros à 42000,00 Euros sur 12 mois".
	euroWord = regexp.MustCompile(`\beuros?\b`)

	kiloAnnual = regexp.MustCompile(amount + `\s*k\s*€`)
	annual     = regexp.MustCompile(amount + `\s*€[^\n]{0,30}?(?:/\s*an\b|par an|annuel)`)
	monthly    = regexp.MustCompile(amount + `\s*€[^\n]{0,30}?(?:/\s*mois|par mois|mensuel)`)
	hourly     = regexp.MustCompile(amount + `\s*€[^\n]{0,30}?(?:/\s*h\b|/\s*heure|par heure|horaire)`)
	generic    = regexp.MustCompile(amount + `\s*€`)

	// "30 000 à 35 000 €" and "35-40k€" carry the unit on the upper bound only.
	openRange = regexp.MustCompile(amount + `\s*(à|a|-|–|to)\s*` + amount + `\s*(k\s*)?€`)

	// The period may also lead the label.
	leadingAnnual  = regexp.MustCompile(`^\s*annuel\b`)
	leadingMonthly = regexp.MustCompile(`^\s*mensuel\b`)
	leadingHourly  = regexp.MustCompile(`^\s*horaire\b`)
)

// ParseMinMonthly returns the lowest monthly estimate found in text, rounded to
// cents. Ranges yield their lower bound. ok is false when nothing plausible is found.
func ParseMinMonthly(text string) (value float64, ok bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return 0, false
	}
	t = strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(t)
	t = euroWord.ReplaceAllString(t, "€")
	t = openRange.ReplaceAllString(t, "${1} ${4}€ ${2} ${3} ${4}€")

	var vals []float64
	collect := func(re *regexp.Regexp, scale func(float64) float64) {
		for _, m := range re.FindAllStringSubmatch(t, -1) {
			if v, ok := toFloat(m[1]); ok {
				vals = append(vals, scale(v))
			}
		}
	}

	collect(kiloAnnual, func(v float64) float64 { return v * 1000 / 12 })

	switch {
	case leadingAnnual.MatchString(t):
		collect(generic, func(v float64) float64 { return v / 12 })
	case leadingMonthly.MatchString(t):
		collect(generic, func(v float64) float64 { return v })
	case leadingHourly.MatchString(t):
		collect(generic, func(v float64) float64 { return v * HoursPerMonth })
	default:
		collect(annual, func(v float64) float64 { return v / 12 })
		collect(monthly, func(v float64) float64 { return v })
		collect(hourly, func(v float64) float64 { return v * HoursPerMonth })
		if len(vals) == 0 {
			// No unit: very large amounts are annual, smaller plausible ones monthly.
			collect(generic, func(v float64) float64 {
				switch {
				case v > 20000:
					return v / 12
				case v >= 800:
					return v
				}
				return math.NaN()
			})
		}
	}

	best := math.Inf(1)
	for _, v := range vals {
		if !math.IsNaN(v) && v > 0 && v < best {
			best = v
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return math.Round(best*100) / 100, true
}

// toFloat reads French and English number formats: "38 000,50", "38.000",
// "38,000.50", "2600,00".
func toFloat(raw string) (float64, bool) {
	s := strings.ReplaceAll(raw, " ", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// The rightmost separator is the decimal one.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = decimalOrThousands(s, ",")
	case lastDot >= 0:
		s = decimalOrThousands(s, ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// decimalOrThousands treats a single separator followed by exactly three digits
// as a thousands separator, anything else as the decimal point.
func decimalOrThousands(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) > 2 {
		return strings.Join(parts, "")
	}
	if len(parts[1]) == 3 {
		return parts[0] + parts[1]
	}
	return parts[0] + "." + parts[1]
}
