// Package tracker coordinates observations, forecasting, screen capture and
// recognition. It is the single mutator of the ledger: every observation,
// whether a manual command or an auto-detected frame, goes through Observe
// under one lock.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pr-poehali-dev/alpha-omega-bot/internal/capture"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/config"
	apperrors "github.com/pr-poehali-dev/alpha-omega-bot/internal/errors"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/forecast"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/ledger"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/metrics"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/outcome"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/recognizer"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/syncx"
)

// Source identifies where an observation came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceAuto   Source = "ocr"
)

// Event types pushed to dashboard clients.
const (
	EventObservation = "observation"
	EventState       = "state"
)

// Event is broadcast to WebSocket clients after every state change.
type Event struct {
	Type            string              `json:"type"`
	Source          Source              `json:"source,omitempty"`
	Record          *ledger.Record      `json:"record,omitempty"`
	Resolutions     []ledger.Resolution `json:"resolutions,omitempty"`
	Stats           ledger.Stats        `json:"stats"`
	NextForecasts   []outcome.Outcome   `json:"next_forecasts,omitempty"`
	Running         bool                `json:"running"`
	IntervalSeconds int                 `json:"interval_seconds"`
}

// Status is the dashboard snapshot.
type Status struct {
	Running          bool              `json:"running"`
	IntervalSeconds  int               `json:"interval_seconds"`
	AutoCapture      bool              `json:"auto_capture"`
	CountdownSeconds int               `json:"countdown_seconds"`
	Observations     int               `json:"observations"`
	Stats            ledger.Stats      `json:"stats"`
	NextForecasts    []outcome.Outcome `json:"next_forecasts,omitempty"`
}

// Recognizer submits a frame for outcome recognition.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (recognizer.Result, error)
}

// Tracker owns the session state. All fields behind mu are mutated only by
// the timer loop and the request handlers, one at a time.
type Tracker struct {
	cfg *config.Config
	rec Recognizer

	// Capturer factory, swappable in tests.
	newCapturer func() capture.Capturer

	mu          sync.Mutex
	led         *ledger.Ledger
	running     bool
	cancel      context.CancelFunc
	interval    time.Duration
	nextTick    time.Time
	autoCapture bool
	capturer    capture.Capturer

	skipper *frameSkipper
	frame   *syncx.RWGuard[[]byte]
	events  chan Event
}

// New creates a tracker with an empty ledger.
func New(cfg *config.Config, rec Recognizer, f forecast.Forecaster) *Tracker {
	return &Tracker{
		cfg:         cfg,
		rec:         rec,
		newCapturer: capture.New,
		led:         ledger.New(f, cfg.Horizon),
		interval:    cfg.Interval(),
		skipper:     newFrameSkipper(cfg.HashDistance),
		frame:       syncx.NewGuard[[]byte](nil),
		events:      make(chan Event, EventBuffer),
	}
}

// Events returns the channel of dashboard events.
func (t *Tracker) Events() <-chan Event {
	return t.events
}

// Observe appends one outcome to the ledger and broadcasts the result.
func (t *Tracker) Observe(v outcome.Outcome, src Source) (*ledger.Record, []ledger.Resolution, ledger.Stats) {
	t.mu.Lock()
	rec, resolutions := t.led.Observe(v)
	stats := t.led.Stats()
	next := t.led.NextForecasts()
	running := t.running
	intervalSec := int(t.interval / time.Second)
	accuracy := t.led.AccuracyPercent()
	t.mu.Unlock()

	metrics.ObserveOutcome(string(src), v.String())
	for _, r := range resolutions {
		metrics.ObserveResolution(r.Correct)
	}
	metrics.SetAccuracy(accuracy)

	slog.Info("observation recorded", "value", v.String(), "source", src,
		"resolved", len(resolutions), "accuracy", stats.Accuracy)

	t.emit(Event{
		Type:            EventObservation,
		Source:          src,
		Record:          rec,
		Resolutions:     resolutions,
		Stats:           stats,
		NextForecasts:   next,
		Running:         running,
		IntervalSeconds: intervalSec,
	})
	return rec, resolutions, stats
}

// Start launches the timer loop. Calling Start while running is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.nextTick = time.Now().Add(t.interval)
	interval := t.interval
	t.mu.Unlock()

	slog.Info("loop started", "interval", interval)
	go t.loop(ctx, interval)
	t.emitState()
}

// Stop halts the timer loop and cancels any in-flight recognition call.
// Calling Stop while stopped is a no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.cancel()
	t.running = false
	t.mu.Unlock()

	slog.Info("loop stopped")
	t.emitState()
}

func (t *Tracker) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			t.nextTick = time.Now().Add(interval)
			c, auto := t.capturer, t.autoCapture
			t.mu.Unlock()

			if auto && c != nil {
				t.tick(ctx, c)
			}
		}
	}
}

// tick runs one auto-detection attempt. Every failure path degrades to "no
// observation recorded this tick". A result arriving after ctx is cancelled
// is dropped: Stop and Reset must leave nothing behind.
func (t *Tracker) tick(ctx context.Context, c capture.Capturer) {
	frame, changed := c.Capture()
	if frame == nil || !changed {
		metrics.SkippedRecognition()
		return
	}
	t.frame.Set(frame)

	if t.skipper.similar(frame) {
		metrics.SkippedRecognition()
		slog.Debug("skipping recognition, frame unchanged")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.RecognizerTimeout)
	defer cancel()

	start := time.Now()
	result, err := t.rec.Recognize(callCtx, frame)
	if err != nil {
		metrics.ObserveRecognition(time.Since(start), metrics.RecognitionError)
		slog.Error("recognition failed", "error", err)
		return
	}
	if result.Value == nil {
		metrics.ObserveRecognition(time.Since(start), metrics.RecognitionEmpty)
		slog.Debug("no outcome on screen", "raw_text", result.RawText)
		return
	}
	if ctx.Err() != nil {
		metrics.SkippedRecognition()
		slog.Debug("recognition result discarded, session stopped")
		return
	}

	metrics.ObserveRecognition(time.Since(start), metrics.RecognitionDetected)
	t.Observe(*result.Value, SourceAuto)
}

// SetInterval changes the loop period. Effective only while stopped.
func (t *Tracker) SetInterval(seconds int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return apperrors.New(apperrors.CodeLoopRunning, "interval can only change while the loop is stopped")
	}
	if err := config.ValidateInterval(seconds); err != nil {
		return err
	}
	t.interval = time.Duration(seconds) * time.Second
	return nil
}

// SetAutoCapture turns the screen capture source on or off. Turning it on
// acquires the capturer and probes it once; a failed probe leaves capture
// off. Both directions are idempotent.
func (t *Tracker) SetAutoCapture(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !on {
		if t.capturer != nil {
			t.capturer.Close()
			t.capturer = nil
		}
		t.autoCapture = false
		return nil
	}

	if t.autoCapture && t.capturer != nil {
		return nil
	}

	c := t.newCapturer()
	probe := c.CaptureAlways()
	if probe == nil {
		c.Close()
		return apperrors.New(apperrors.CodeCaptureFailed, "screen capture unavailable")
	}
	t.frame.Set(probe)
	t.capturer = c
	t.autoCapture = true
	slog.Info("auto-capture enabled")
	return nil
}

// Frame returns the latest captured frame, nil if none.
func (t *Tracker) Frame() []byte {
	return t.frame.Get()
}

// Reset stops the loop and clears all accumulated state unconditionally.
func (t *Tracker) Reset() {
	t.Stop()

	t.mu.Lock()
	t.led.Reset()
	t.skipper.reset()
	t.mu.Unlock()
	t.frame.Set(nil)

	metrics.SetAccuracy(0)
	slog.Info("session reset")
	t.emitState()
}

// Running reports whether the loop is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Status returns the dashboard snapshot.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	countdown := 0
	if t.running {
		if remaining := time.Until(t.nextTick); remaining > 0 {
			countdown = int(remaining.Round(time.Second) / time.Second)
		}
	}
	return Status{
		Running:          t.running,
		IntervalSeconds:  int(t.interval / time.Second),
		AutoCapture:      t.autoCapture,
		CountdownSeconds: countdown,
		Observations:     t.led.Len(),
		Stats:            t.led.Stats(),
		NextForecasts:    t.led.NextForecasts(),
	}
}

// Stats returns the rolling accuracy snapshot.
func (t *Tracker) Stats() ledger.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.led.Stats()
}

// History returns up to limit most recent records, oldest first.
func (t *Tracker) History(limit int) []*ledger.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.led.Records(limit)
}

// Observations returns the last window outcomes for charting.
func (t *Tracker) Observations(window int) []outcome.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.led.Recent(window)
}

func (t *Tracker) emitState() {
	t.mu.Lock()
	evt := Event{
		Type:            EventState,
		Stats:           t.led.Stats(),
		NextForecasts:   t.led.NextForecasts(),
		Running:         t.running,
		IntervalSeconds: int(t.interval / time.Second),
	}
	t.mu.Unlock()
	t.emit(evt)
}

func (t *Tracker) emit(evt Event) {
	select {
	case t.events <- evt:
	default:
		slog.Debug("event channel full, dropping event", "type", evt.Type)
	}
}
