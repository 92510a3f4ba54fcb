// Package numfmt parses and formats numbers written with Argentine separators:
// dots group thousands and a comma marks the decimals.
package numfmt

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/chaintracker/chain-tracker/internal/constants"
)

var (
	// pricePattern matches price-like tokens such as "$ 1.250,50".
	pricePattern = regexp.MustCompile(`\$?[\s\x{00a0}]*\d[\d.,]*`)
	// signedPattern matches signed figures such as "-1.234,5".
	signedPattern = regexp.MustCompile(`[-+]?\d[\d.,]*`)

	plainNumber = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)$`)
)

// Parse converts a number token using mixed separators into a float.
//
// When both separators are present, dots are thousands separators and the comma is the decimal mark.
// A lone comma is a decimal mark. Dots alone are thousands separators when every group after
// the first has exactly three digits, otherwise the dot is a decimal mark.
func Parse(raw string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '$' || r == '%' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return 0, false
	}

	switch {
	case strings.Contains(cleaned, ",") && strings.Contains(cleaned, "."):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case strings.Contains(cleaned, ","):
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	default:
		parts := strings.Split(cleaned, ".")
		if len(parts) > 1 && allThousandGroups(parts[1:]) {
			cleaned = strings.Join(parts, "")
		}
	}

	if !plainNumber.MatchString(cleaned) {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func allThousandGroups(groups []string) bool {
	for _, g := range groups {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// Extract returns every parseable price-like number of text, in order.
func Extract(text string) []float64 {
	return extract(pricePattern, text)
}

// ExtractSigned returns every parseable signed number of text, in order.
func ExtractSigned(text string) []float64 {
	return extract(signedPattern, text)
}

func extract(re *regexp.Regexp, text string) []float64 {
	var numbers []float64
	for _, m := range re.FindAllString(text, -1) {
		if v, ok := Parse(m); ok {
			numbers = append(numbers, v)
		}
	}
	return numbers
}

// Format renders v with dot thousands and comma decimals, rounding to decimals places.
func Format(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	raw := strconv.FormatFloat(math.Abs(v), 'f', decimals, 64)
	integer, decimal, _ := strings.Cut(raw, ".")

	out := groupThousands(integer)
	if decimal != "" {
		out += "," + decimal
	}
	if v < 0 {
		return "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatSigned is like Format but prefixes positive values with a plus sign.
func FormatSigned(v float64, decimals int) string {
	if v > 0 {
		return "+" + Format(v, decimals)
	}
	return Format(v, decimals)
}

// Display renders an optional value for the dashboard.
// A nil value renders as a dash and integers are truncated rather than rounded.
func Display(v *float64, decimals int) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return constants.Missing
	}
	if decimals <= 0 {
		return Format(math.Trunc(*v), 0)
	}
	return Format(*v, decimals)
}

// DisplayPct is like Display with a trailing percent sign.
func DisplayPct(v *float64, decimals int) string {
	if v == nil {
		return constants.Missing
	}
	return Display(v, decimals) + "%"
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
