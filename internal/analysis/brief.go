package analysis

import (
	"fmt"
	"strings"

	"github.com/chaintracker/chain-tracker/internal/numfmt"
)

// Brief writes the Markdown daily brief from the figures that were found.
func Brief(current Metrics, changes Changes, chain []LayerState) string {
	lines := []string{
		"Resumen automatico generado desde fuentes activas (FRED, BCRA, DolarHoy).",
		"",
	}

	var primary []string
	if current.BlueVenta != nil && current.OficialVenta != nil {
		primary = append(primary, fmt.Sprintf("Blue %s vs Oficial %s",
			numfmt.Format(*current.BlueVenta, 0), numfmt.Format(*current.OficialVenta, 0)))
	}
	if current.BrechaPct != nil {
		s := fmt.Sprintf("Brecha %s%%", numfmt.Format(*current.BrechaPct, 1))
		if changes.BrechaPP != nil {
			s += fmt.Sprintf(" (%s pp d/d)", numfmt.FormatSigned(*changes.BrechaPP, 1))
		}
		primary = append(primary, s)
	}
	if current.ReservesUSDMM != nil {
		s := fmt.Sprintf("Reservas USD %s M", numfmt.Format(*current.ReservesUSDMM, 0))
		if changes.ReservesMM != nil {
			s += fmt.Sprintf(" (%s M d/d)", numfmt.FormatSigned(*changes.ReservesMM, 0))
		}
		primary = append(primary, s)
	}
	if current.US10Y != nil {
		s := fmt.Sprintf("US 10Y %s%%", numfmt.Format(*current.US10Y, 2))
		if changes.Y10Bps != nil {
			s += fmt.Sprintf(" (%s bp d/d)", numfmt.FormatSigned(*changes.Y10Bps, 0))
		}
		primary = append(primary, s)
	}

	if len(primary) > 0 {
		lines = append(lines, strings.Join(primary, " | ")+".")
	} else {
		lines = append(lines, "No hay datos suficientes para resumen numerico hoy.")
	}

	lines = append(lines, "", "**Puntos de atencion:**")
	alerts := 0
	for _, l := range chain {
		if l.Status != StatusElevated && l.Status != StatusStressed {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", l.LayerName, l.Description))
		alerts++
	}
	if alerts == 0 {
		lines = append(lines, "- Sin alertas fuertes por reglas automaticas en este corte.")
	}
	lines = append(lines, "- Capa regulatoria se mantiene en monitoreo manual hasta activar pullers de normas.")

	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}
