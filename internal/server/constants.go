// Package server provides HTTP and WebSocket handlers for the dashboard
package server

// Server configuration constants
const (
	// History query defaults
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500

	// Chart window defaults
	DefaultObservationsWindow = 20

	// Per-connection WebSocket message rate defaults
	DefaultWSRatePerSecond = 10
	DefaultWSRateBurst     = 20
)
