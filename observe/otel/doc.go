// Package otel reserves the observer slot for an OpenTelemetry
// exporter. Only the no-op implementation ships for now, so depending
// on it costs nothing.
package otel
