// Package handlers provides the HTTP handlers of the dashboard: HTML pages, the JSON API and the version endpoint.
package handlers

import (
	"context"
	"html/template"

	"github.com/chaintracker/chain-tracker/internal/dashboard"
	"github.com/chaintracker/chain-tracker/internal/registry"
)

// Dashboard is the read side used by the handlers.
type Dashboard interface {
	Overview() dashboard.Overview
	PipelineStatus() dashboard.Pipeline
	SourceHealth() dashboard.SourceHealth
	History(limit int) []dashboard.HistoryRow
	LayerRollup() []dashboard.LayerCoverage
	Analysts() []registry.Analyst
	Brief() template.HTML
	Research() registry.Research
	Feed() []dashboard.FeedPost
}

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID returns a copy of ctx carrying the request id.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestIDKey, reqID)
}

// RequestID returns the request id carried by ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
