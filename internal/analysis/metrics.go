package analysis

import (
	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/chaintracker/chain-tracker/internal/puller/bcra"
	"github.com/chaintracker/chain-tracker/internal/puller/dolarhoy"
	"github.com/chaintracker/chain-tracker/internal/puller/fred"
	"github.com/chaintracker/chain-tracker/internal/store"
)

// Metrics are the figures of one day, read from the snapshots of the three sources.
type Metrics struct {
	BlueVenta         *float64 `json:"dolar_blue_venta"`
	OficialVenta      *float64 `json:"dolar_oficial_venta"`
	MEP               *float64 `json:"dolar_mep"`
	CCL               *float64 `json:"dolar_ccl"`
	BrechaPct         *float64 `json:"brecha_pct"`
	ReservesUSDMM     *float64 `json:"reservas_usd_mm"`
	MonetaryBaseARSMM *float64 `json:"base_monetaria_ars_mm"`
	US2Y              *float64 `json:"us_2y_yield"`
	US10Y             *float64 `json:"us_10y_yield"`
	US30Y             *float64 `json:"us_30y_yield"`
}

// Snapshots are the snapshots of one day. Missing or unreadable ones are left empty.
type Snapshots struct {
	FX       puller.Result
	Reserves puller.Result
	Yields   puller.Result

	FXData       dolarhoy.Data
	ReservesData bcra.Data
	YieldsData   fred.Data
}

// ReadSnapshots loads the snapshots of the three sources for a date.
func ReadSnapshots(st store.Store, date string) Snapshots {
	var s Snapshots
	s.FX, _ = st.Load(date, dolarhoy.SourceID)
	s.Reserves, _ = st.Load(date, bcra.SourceID)
	s.Yields, _ = st.Load(date, fred.SourceID)

	// A payload that does not decode is as good as missing.
	if err := puller.DecodeData(s.FX, &s.FXData); err != nil {
		s.FXData = dolarhoy.Data{}
	}
	if err := puller.DecodeData(s.Reserves, &s.ReservesData); err != nil {
		s.ReservesData = bcra.Data{}
	}
	if err := puller.DecodeData(s.Yields, &s.YieldsData); err != nil {
		s.YieldsData = fred.Data{}
	}
	return s
}

// Metrics extracts the figures used by the daily package.
func (s Snapshots) Metrics() Metrics {
	return Metrics{
		BlueVenta:         s.FXData.BlueVenta,
		OficialVenta:      s.FXData.OficialVenta,
		MEP:               s.FXData.MEP,
		CCL:               s.FXData.CCL,
		BrechaPct:         s.FXData.BrechaPct,
		ReservesUSDMM:     s.ReservesData.ReservesUSDMM,
		MonetaryBaseARSMM: s.ReservesData.MonetaryBaseARSMM,
		US2Y:              s.YieldsData.US2Y,
		US10Y:             s.YieldsData.US10Y,
		US30Y:             s.YieldsData.US30Y,
	}
}

// ReadMetrics loads the figures of a date.
func ReadMetrics(st store.Store, date string) Metrics {
	return ReadSnapshots(st, date).Metrics()
}

// Changes are the day over day variations of the headline figures.
type Changes struct {
	BluePct    *float64 `json:"blue_pct"`
	BrechaPP   *float64 `json:"brecha_pp"`
	ReservesMM *float64 `json:"reserves_mm"`
	Y10Bps     *float64 `json:"y10_bps"`
}

// ComputeChanges compares the figures of two days.
func ComputeChanges(current, previous Metrics) Changes {
	c := Changes{
		BluePct:    PctChange(current.BlueVenta, previous.BlueVenta),
		BrechaPP:   Delta(current.BrechaPct, previous.BrechaPct),
		ReservesMM: Delta(current.ReservesUSDMM, previous.ReservesUSDMM),
	}
	if d := Delta(current.US10Y, previous.US10Y); d != nil {
		bps := *d * 100
		c.Y10Bps = &bps
	}
	return c
}

// PctChange returns the variation of current over previous in percent.
func PctChange(current, previous *float64) *float64 {
	if current == nil || previous == nil || *previous == 0 {
		return nil
	}
	v := (*current / *previous - 1) * 100
	return &v
}

// Delta returns current minus previous.
func Delta(current, previous *float64) *float64 {
	if current == nil || previous == nil {
		return nil
	}
	v := *current - *previous
	return &v
}
