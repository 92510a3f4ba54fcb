package dashboard

import (
	"slices"

	"github.com/chaintracker/chain-tracker/internal/analysis"
	"github.com/chaintracker/chain-tracker/internal/puller"
)

// HistoryRow holds the headline figures of one day.
type HistoryRow struct {
	Date      string   `json:"date"`
	Blue      *float64 `json:"blue"`
	Oficial   *float64 `json:"oficial"`
	Brecha    *float64 `json:"brecha"`
	Reservas  *float64 `json:"reservas"`
	US10Y     *float64 `json:"us10y"`
	FXStatus  string   `json:"fx_status"`
	ResStatus string   `json:"res_status"`
	YldStatus string   `json:"yld_status"`
}

// History returns the headline figures of the limit newest days, newest first.
func (d Dashboard) History(limit int) []HistoryRow {
	dates, err := d.store.Dates()
	if err != nil {
		d.log.Warn("Could not list data folders", "error", err)
	}
	dates = slices.Clone(dates)
	slices.Reverse(dates)
	if limit >= 0 && len(dates) > limit {
		dates = dates[:limit]
	}

	rows := make([]HistoryRow, 0, len(dates))
	for _, date := range dates {
		s := analysis.ReadSnapshots(d.store, date)
		rows = append(rows, HistoryRow{
			Date:      date,
			Blue:      s.FXData.BlueVenta,
			Oficial:   s.FXData.OficialVenta,
			Brecha:    s.FXData.BrechaPct,
			Reservas:  s.ReservesData.ReservesUSDMM,
			US10Y:     s.YieldsData.US10Y,
			FXStatus:  statusOr(s.FX, HealthMissing),
			ResStatus: statusOr(s.Reserves, HealthMissing),
			YldStatus: statusOr(s.Yields, HealthMissing),
		})
	}
	return rows
}

// statusOr returns the status of a snapshot, or fallback for a missing one.
func statusOr(r puller.Result, fallback string) string {
	if r.Status == "" {
		return fallback
	}
	return string(r.Status)
}
