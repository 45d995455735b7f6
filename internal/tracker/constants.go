// Package tracker coordinates observations, forecasting, screen capture and
// recognition.
package tracker

// Tracker configuration constants
const (
	// Buffered events before the broadcaster starts dropping.
	EventBuffer = 100
)
