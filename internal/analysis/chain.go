package analysis

import (
	"fmt"
	"math"

	"github.com/chaintracker/chain-tracker/internal/numfmt"
)

// Layer statuses.
const (
	StatusNeutral  = "neutral"
	StatusElevated = "elevated"
	StatusStressed = "stressed"
)

// Change directions of a daily change row.
const (
	ChangeUp    = "up"
	ChangeDown  = "dn"
	ChangeEqual = "eq"
)

// changeEpsilon is the smallest variation that is not considered flat.
const changeEpsilon = 0.0001

// LayerState is the reading of one layer of the transmission chain.
type LayerState struct {
	Layer       int    `json:"layer"`
	LayerName   string `json:"layer_name"`
	Status      string `json:"status"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ChangeRow is a line of the daily changes list.
type ChangeRow struct {
	Type   string `json:"type"`
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

// ChainState reads the five layers of the chain from today's figures and their changes.
func ChainState(current, previous Metrics, changes Changes) []LayerState {
	return []LayerState{
		globalLayer(current, changes),
		transmissionLayer(current, changes),
		monetaryLayer(current, previous),
		marketsLayer(current, changes),
		{
			Layer:       5,
			LayerName:   "Regulatorio",
			Status:      StatusNeutral,
			Label:       "manual",
			Description: "Sin ingesta automatica regulatoria todavia. Revisar Boletin Oficial y BCRA manualmente.",
		},
	}
}

func globalLayer(current Metrics, changes Changes) LayerState {
	l := LayerState{Layer: 1, LayerName: "Global", Status: StatusNeutral}
	switch {
	case current.US10Y == nil:
		l.Label = "sin datos"
		l.Description = "No hay lectura de yields globales en el corte actual."
		return l
	case changes.Y10Bps == nil:
		l.Label = "estable"
		l.Description = fmt.Sprintf("US 10Y en %s%%, sin comparacion diaria.", numfmt.Format(*current.US10Y, 2))
		return l
	}

	bps := *changes.Y10Bps
	switch move := math.Abs(bps); {
	case move >= 10:
		l.Status, l.Label = StatusStressed, "movimiento fuerte"
	case move >= 4:
		l.Status, l.Label = StatusElevated, "movimiento moderado"
	default:
		l.Label = "estable"
	}
	l.Description = fmt.Sprintf("US 10Y %s %s bp y cierra en %s%%.",
		direction(bps, "subio", "bajo"), numfmt.Format(math.Abs(bps), 0), numfmt.Format(*current.US10Y, 2))
	return l
}

func transmissionLayer(current Metrics, changes Changes) LayerState {
	l := LayerState{Layer: 2, LayerName: "Transmision", Status: StatusNeutral}
	switch {
	case current.ReservesUSDMM == nil:
		l.Label = "sin datos"
		l.Description = "No hay dato de reservas para evaluar transmision."
		return l
	case changes.ReservesMM == nil:
		l.Label = "estable"
		l.Description = fmt.Sprintf("Reservas en USD %s M, sin comparacion diaria.", numfmt.Format(*current.ReservesUSDMM, 0))
		return l
	}

	delta := *changes.ReservesMM
	switch {
	case delta <= -200:
		l.Status, l.Label = StatusStressed, "presion alta"
	case delta <= -50:
		l.Status, l.Label = StatusElevated, "presion moderada"
	default:
		l.Label = "estable"
	}
	l.Description = fmt.Sprintf("Reservas %s %s M hasta USD %s M.",
		direction(delta, "subieron", "cayeron"), numfmt.Format(math.Abs(delta), 0), numfmt.Format(*current.ReservesUSDMM, 0))
	return l
}

func monetaryLayer(current, previous Metrics) LayerState {
	l := LayerState{Layer: 3, LayerName: "Monetario", Status: StatusNeutral}
	switch {
	case current.MonetaryBaseARSMM == nil:
		l.Label = "sin datos"
		l.Description = "No hay dato de base monetaria para este corte."
		return l
	case previous.MonetaryBaseARSMM == nil:
		l.Label = "estable"
		l.Description = fmt.Sprintf("Base monetaria en ARS %s M, sin comparacion diaria.", numfmt.Format(*current.MonetaryBaseARSMM, 0))
		return l
	}

	delta := *current.MonetaryBaseARSMM - *previous.MonetaryBaseARSMM
	if math.Abs(delta) >= 300000 {
		l.Status, l.Label = StatusElevated, "movimiento moderado"
	} else {
		l.Label = "estable"
	}
	l.Description = fmt.Sprintf("Base monetaria %s %s M y queda en ARS %s M.",
		direction(delta, "subio", "bajo"), numfmt.Format(math.Abs(delta), 0), numfmt.Format(*current.MonetaryBaseARSMM, 0))
	return l
}

func marketsLayer(current Metrics, changes Changes) LayerState {
	l := LayerState{Layer: 4, LayerName: "Mercados", Status: StatusNeutral}
	if current.BrechaPct == nil {
		l.Label = "sin datos"
		l.Description = "No hay brecha disponible para lectura de mercado local."
		return l
	}

	brecha := *current.BrechaPct
	delta := changes.BrechaPP
	switch {
	case brecha >= 25 || (delta != nil && *delta >= 2):
		l.Status, l.Label = StatusStressed, "tension alta"
	case brecha >= 15 || (delta != nil && *delta >= 0.5):
		l.Status, l.Label = StatusElevated, "cauteloso"
	default:
		l.Label = "estable"
	}

	l.Description = fmt.Sprintf("Brecha en %s%%", numfmt.Format(brecha, 1))
	if delta != nil {
		l.Description += fmt.Sprintf(" (%s pp)", numfmt.FormatSigned(*delta, 1))
	}
	if changes.BluePct != nil {
		l.Description += fmt.Sprintf(", Blue %s%% d/d", numfmt.FormatSigned(*changes.BluePct, 1))
	}
	l.Description += "."
	return l
}

func direction(v float64, up, down string) string {
	switch {
	case v > 0:
		return up
	case v < 0:
		return down
	}
	return "sin cambio"
}

// DailyChanges lists the day over day moves of the headline figures.
func DailyChanges(current, previous Metrics, changes Changes) []ChangeRow {
	var rows []ChangeRow

	if current.BlueVenta != nil && previous.BlueVenta != nil {
		detail := fmt.Sprintf("$ %s -> %s", numfmt.Format(*previous.BlueVenta, 0), numfmt.Format(*current.BlueVenta, 0))
		if changes.BluePct != nil {
			detail += fmt.Sprintf(" (%s%%)", numfmt.FormatSigned(*changes.BluePct, 1))
		}
		rows = append(rows, ChangeRow{Type: changeType(changes.BluePct), Label: "Blue", Detail: detail})
	}

	if current.ReservesUSDMM != nil && previous.ReservesUSDMM != nil {
		detail := fmt.Sprintf("USD %s -> %s M", numfmt.Format(*previous.ReservesUSDMM, 0), numfmt.Format(*current.ReservesUSDMM, 0))
		if changes.ReservesMM != nil {
			detail += fmt.Sprintf(" (%s M)", numfmt.FormatSigned(*changes.ReservesMM, 0))
		}
		rows = append(rows, ChangeRow{Type: changeType(changes.ReservesMM), Label: "Reservas", Detail: detail})
	}

	if current.BrechaPct != nil && previous.BrechaPct != nil {
		detail := fmt.Sprintf("%s%% -> %s%%", numfmt.Format(*previous.BrechaPct, 1), numfmt.Format(*current.BrechaPct, 1))
		if changes.BrechaPP != nil {
			detail += fmt.Sprintf(" (%s pp)", numfmt.FormatSigned(*changes.BrechaPP, 1))
		}
		rows = append(rows, ChangeRow{Type: changeType(changes.BrechaPP), Label: "Brecha", Detail: detail})
	}

	if current.US10Y != nil && previous.US10Y != nil {
		detail := fmt.Sprintf("%s%% -> %s%%", numfmt.Format(*previous.US10Y, 2), numfmt.Format(*current.US10Y, 2))
		if changes.Y10Bps != nil {
			detail += fmt.Sprintf(" (%s bp)", numfmt.FormatSigned(*changes.Y10Bps, 0))
		}
		rows = append(rows, ChangeRow{Type: changeType(changes.Y10Bps), Label: "10Y Yield", Detail: detail})
	}

	if len(rows) == 0 {
		rows = append(rows, ChangeRow{Type: ChangeEqual, Label: "Estado", Detail: "Sin historial suficiente para cambios diarios."})
	}
	return rows
}

func changeType(v *float64) string {
	switch {
	case v == nil:
		return ChangeEqual
	case *v > changeEpsilon:
		return ChangeUp
	case *v < -changeEpsilon:
		return ChangeDown
	}
	return ChangeEqual
}
