// Package fred pulls the latest US Treasury constant maturity yields from the FRED API.
package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/puller"
)

const (
	// Module is the name under which this puller is registered.
	Module = "fred"
	// SourceID is the identifier of the snapshots produced by this puller.
	SourceID = "fred_us_yields"
	// SourceName is the human readable name of the source.
	SourceName = "FRED U.S. Treasury Yields"

	defaultBaseURL = "https://api.stlouisfed.org/fred/series/observations"
	// observationWindow is the number of most recent observations requested per series.
	observationWindow = 10
)

// Data is the payload of a FRED snapshot. Yields are in percent.
type Data struct {
	US2Y     *float64 `json:"us_2y_yield"`
	US10Y    *float64 `json:"us_10y_yield"`
	US30Y    *float64 `json:"us_30y_yield"`
	DataDate *string  `json:"data_date"`
}

type series struct {
	id    string
	field func(*Data) **float64
}

var treasurySeries = []series{
	{id: "DGS2", field: func(d *Data) **float64 { return &d.US2Y }},
	{id: "DGS10", field: func(d *Data) **float64 { return &d.US10Y }},
	{id: "DGS30", field: func(d *Data) **float64 { return &d.US30Y }},
}

// Puller fetches the DGS2, DGS10 and DGS30 series.
type Puller struct {
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

type options struct {
	baseURL string
}

// Options represents an optional function to override Puller default values.
type Options func(*options)

func init() {
	puller.Register(Module, func(cfg puller.Config) puller.Puller {
		return New(cfg)
	})
}

// New returns a FRED puller authenticating with cfg.FREDAPIKey.
func New(cfg puller.Config, args ...Options) *Puller {
	opts := options{
		baseURL: defaultBaseURL,
	}
	for _, opt := range args {
		opt(&opts)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultPullTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Puller{
		apiKey:  cfg.FREDAPIKey,
		baseURL: opts.baseURL,
		client:  &http.Client{Timeout: timeout},
		now:     now,
	}
}

// ID returns the source identifier.
func (p Puller) ID() string { return SourceID }

// Name returns the source name.
func (p Puller) Name() string { return SourceName }

// Pull fetches every series, one request each.
func (p Puller) Pull(ctx context.Context) puller.Result {
	pulledAt := puller.Timestamp(p.now())
	var data Data

	if p.apiKey == "" {
		return puller.Result{
			SourceID:   SourceID,
			SourceName: SourceName,
			PulledAt:   pulledAt,
			Status:     puller.StatusError,
			Data:       data,
			Errors:     []string{"FRED_API_KEY not configured in .env"},
		}
	}

	errs := []string{}
	var snippets []string
	var latest string
	found := 0
	for _, s := range treasurySeries {
		obs, err := p.pullSeries(ctx, s.id)
		if obs.snippet != "" {
			snippets = append(snippets, obs.snippet)
		}
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		*s.field(&data) = &obs.value
		found++
		if obs.date > latest {
			latest = obs.date
		}
	}
	if latest != "" {
		data.DataDate = &latest
	}

	return puller.Result{
		SourceID:           SourceID,
		SourceName:         SourceName,
		PulledAt:           pulledAt,
		Status:             puller.StatusFromCount(found, len(treasurySeries)),
		Data:               data,
		Errors:             errs,
		RawResponseSnippet: puller.Snippet(strings.Join(snippets, "\n---\n")),
	}
}

type observation struct {
	value   float64
	date    string
	snippet string
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value any    `json:"value"`
	} `json:"observations"`
}

// pullSeries returns the most recent numeric observation of a series.
// The returned snippet is set whenever a response body was received, even on error.
func (p Puller) pullSeries(ctx context.Context, id string) (obs observation, err error) {
	q := url.Values{}
	q.Set("series_id", id)
	q.Set("api_key", p.apiKey)
	q.Set("file_type", "json")
	q.Set("sort_order", "desc")
	q.Set("limit", strconv.Itoa(observationWindow))

	body, err := puller.Fetch(ctx, p.client, p.baseURL+"?"+q.Encode())
	if err != nil {
		var statusErr *puller.HTTPStatusError
		if errors.As(err, &statusErr) {
			return obs, fmt.Errorf("%s request failed: %s", id, statusErr.Status)
		}
		return obs, fmt.Errorf("%s request failed: %v", id, err)
	}
	obs.snippet = puller.Snippet(string(body))

	var payload observationsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return obs, fmt.Errorf("%s invalid JSON response: %v", id, err)
	}
	if len(payload.Observations) == 0 {
		return obs, fmt.Errorf("%s observations list is empty", id)
	}

	for _, item := range payload.Observations {
		v, ok := numericValue(item.Value)
		if !ok {
			continue
		}
		obs.value = v
		obs.date = item.Date
		return obs, nil
	}
	return obs, fmt.Errorf("%s has no numeric observation in returned window", id)
}

// numericValue reads an observation value. FRED marks missing values with ".".
func numericValue(raw any) (float64, bool) {
	var v float64
	switch raw := raw.(type) {
	case float64:
		v = raw
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
