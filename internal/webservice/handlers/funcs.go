package handlers

import (
	"encoding/json"
	"html/template"

	"github.com/chaintracker/chain-tracker/internal/numfmt"
)

// Funcs are the template functions of the dashboard pages.
var Funcs = template.FuncMap{
	"fmt_ar":  FormatAR,
	"fmt_pct": FormatPct,
	"to_json": ToJSON,
}

// FormatAR renders a number with dot thousands and comma decimals, 2 decimals by default.
// Missing values render as a dash and integers are truncated.
func FormatAR(v any, decimals ...int) string {
	d := 2
	if len(decimals) > 0 {
		d = decimals[0]
	}
	return numfmt.Display(toFloat(v), d)
}

// FormatPct is like FormatAR with 1 decimal by default and a trailing percent sign.
func FormatPct(v any, decimals ...int) string {
	d := 1
	if len(decimals) > 0 {
		d = decimals[0]
	}
	return numfmt.DisplayPct(toFloat(v), d)
}

// ToJSON serializes v for embedding in a script.
func ToJSON(v any) (template.JS, error) {
	// json.Marshal escapes <, > and &, which keeps the output safe inside a script element.
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	// #nosec:G203 The JSON encoding is escaped for HTML.
	return template.JS(b), nil
}

func toFloat(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case *float64:
		return n
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}
