// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package sched paces repaints of one output.
//
// A Scheduler is a passive state machine: the event loop reports damage,
// refresh signals and fence outcomes, and the return values tell it when
// to render. Timers are armed through a callback so the machine itself
// never blocks or spawns goroutines.
package sched

import (
	"context"
	"log/slog"
	"time"
)

// State is a scheduler state.
type State uint8

const (
	// Idle: no damage, nothing in flight.
	Idle State = iota
	// DamagePending: damage waits for the next refresh signal.
	DamagePending
	// Scheduled: a frame is being built for this refresh.
	Scheduled
	// Presenting: the frame was submitted and its fence is pending.
	Presenting
	// Terminated: the output is gone. Every input is ignored.
	Terminated
)

var stateNames = [...]string{"idle", "damage-pending", "scheduled", "presenting", "terminated"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

const (
	// DefaultRefresh is used for outputs that report no refresh rate.
	DefaultRefresh = time.Second / 60
	// MinWatchdog is the shortest vsync watchdog timeout.
	MinWatchdog = 50 * time.Millisecond
	// WatchdogPeriods is the watchdog timeout in refresh periods.
	WatchdogPeriods = 3
)

// RefreshPeriod converts a refresh rate in millihertz into a period.
// Zero or negative rates give DefaultRefresh.
func RefreshPeriod(milliHz int32) time.Duration {
	if milliHz <= 0 {
		return DefaultRefresh
	}
	return time.Duration(int64(time.Second) * 1000 / int64(milliHz))
}

// ArmFunc schedules WatchdogExpired(gen) to be delivered after d.
type ArmFunc func(gen uint64, d time.Duration)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWatchdog sets the callback arming the vsync watchdog. Without it
// the watchdog is never armed.
func WithWatchdog(arm ArmFunc) Option {
	return func(s *Scheduler) { s.arm = arm }
}

// WithTimeout overrides the watchdog timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// WithLogger sets the logger. Passing nil keeps the scheduler silent.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l == nil {
			l = slog.New(nopHandler{})
		}
		s.log = l
	}
}

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Stats counts scheduler cycles.
type Stats struct {
	Frames  int
	Forced  int
	Failed  int
	Skipped int
	VSyncs  int
}

// Scheduler is the repaint state machine of one output.
type Scheduler struct {
	state     State
	refresh   time.Duration
	timeout   time.Duration
	arm       ArmFunc
	watchdog  uint64
	seq       uint64
	lastVSync time.Time
	log       *slog.Logger
	stats     Stats
}

// New creates an idle scheduler for an output refreshing every refresh.
func New(refresh time.Duration, opts ...Option) *Scheduler {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	s := &Scheduler{
		refresh: refresh,
		timeout: max(WatchdogPeriods*refresh, MinWatchdog),
		log:     slog.New(nopHandler{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// Refresh returns the refresh period.
func (s *Scheduler) Refresh() time.Duration { return s.refresh }

// Timeout returns the watchdog timeout.
func (s *Scheduler) Timeout() time.Duration { return s.timeout }

// LastVSync returns the timestamp of the last refresh signal.
func (s *Scheduler) LastVSync() time.Time { return s.lastVSync }

// Stats returns the cycle counters.
func (s *Scheduler) Stats() Stats { return s.stats }

// Damage reports new work for the output. It reports whether the
// scheduler left Idle; in any other state the work is picked up by the
// frame in progress or the next one.
func (s *Scheduler) Damage() bool {
	if s.state != Idle {
		return false
	}
	s.pend()
	return true
}

func (s *Scheduler) pend() {
	s.state = DamagePending
	s.watchdog++
	if s.arm != nil {
		s.arm(s.watchdog, s.timeout)
	}
}

// VSync reports a refresh signal. It reports whether a frame must be
// built now.
func (s *Scheduler) VSync(ts time.Time) bool {
	if s.state == Terminated {
		return false
	}
	s.stats.VSyncs++
	s.lastVSync = ts
	if s.state != DamagePending {
		return false
	}
	s.schedule()
	return true
}

// WatchdogExpired reports that the watchdog armed with generation gen
// fired. While damage is pending it forces a frame without waiting for a
// refresh signal. Expiries of disarmed watchdogs are ignored.
func (s *Scheduler) WatchdogExpired(gen uint64) bool {
	if s.state != DamagePending || gen != s.watchdog {
		return false
	}
	s.stats.Forced++
	s.log.Debug("sched: vsync watchdog fired", "timeout", s.timeout)
	s.schedule()
	return true
}

func (s *Scheduler) schedule() {
	s.state = Scheduled
	// Disarm: any pending expiry now has a stale generation.
	s.watchdog++
}

// Skip ends a scheduled cycle that had nothing to draw. more reports
// whether work arrived meanwhile.
func (s *Scheduler) Skip(more bool) {
	if s.state != Scheduled {
		return
	}
	s.stats.Skipped++
	s.finish(more)
}

// Submitted reports that the scheduled frame was handed to the backend.
// It returns the sequence number identifying the frame.
func (s *Scheduler) Submitted() uint64 {
	if s.state != Scheduled {
		return 0
	}
	s.seq++
	s.state = Presenting
	return s.seq
}

// Signaled reports that frame seq completed. more reports whether damage
// or frame requests remain for the next cycle.
func (s *Scheduler) Signaled(seq uint64, more bool) {
	if s.state != Presenting || seq != s.seq {
		return
	}
	s.stats.Frames++
	s.finish(more)
}

// Failed reports that the current frame could not be built or
// presented. Damage is kept, so the scheduler waits for the next
// refresh signal.
func (s *Scheduler) Failed(seq uint64) {
	switch {
	case s.state == Scheduled:
	case s.state == Presenting && seq == s.seq:
	default:
		return
	}
	s.stats.Failed++
	s.pend()
}

func (s *Scheduler) finish(more bool) {
	if more {
		s.pend()
		return
	}
	s.state = Idle
}

// Terminate stops the scheduler for good.
func (s *Scheduler) Terminate() {
	s.state = Terminated
	s.watchdog++
}
