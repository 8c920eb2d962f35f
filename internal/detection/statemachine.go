// Package detection converts a per-window confidence stream into discrete
// detection events, enforcing a confidence threshold and a cooldown
// between triggered reactions.
package detection

import (
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Event is the result of classifying one analysis window. Triggered is
// true only when the confidence met the threshold outside the cooldown;
// a suppressed detection still reports its confidence.
type Event struct {
	SessionID  string
	Timestamp  time.Time
	Confidence float32
	Triggered  bool
}

// Detected reports whether the window met the threshold, regardless of
// cooldown suppression.
func (e Event) Detected(threshold float32) bool {
	return e.Confidence >= threshold
}

// state of the per-session machine.
type state int

const (
	stateIdle state = iota
	stateCooldown
)

// StateMachine holds per-session trigger state. Not safe for concurrent
// use; each session goroutine owns its own instance.
type StateMachine struct {
	threshold   float32
	cooldown    time.Duration
	clock       Clock
	state       state
	lastTrigger time.Time
}

// NewStateMachine creates a machine with the given threshold and cooldown.
// A nil clock defaults to the system clock.
func NewStateMachine(threshold float32, cooldown time.Duration, clock Clock) *StateMachine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &StateMachine{
		threshold: threshold,
		cooldown:  cooldown,
		clock:     clock,
		state:     stateIdle,
	}
}

// Observe applies the transition rule for one classified window and
// returns the resulting event. The cooldown is checked lazily against the
// stored trigger timestamp; a window at exactly lastTrigger+cooldown may
// fire again (inclusive boundary).
func (sm *StateMachine) Observe(sessionID string, confidence float32) Event {
	now := sm.clock.Now()

	if sm.state == stateCooldown && now.Sub(sm.lastTrigger) >= sm.cooldown {
		sm.state = stateIdle
	}

	ev := Event{
		SessionID:  sessionID,
		Timestamp:  now,
		Confidence: confidence,
	}

	if confidence >= sm.threshold && sm.state == stateIdle {
		ev.Triggered = true
		sm.state = stateCooldown
		sm.lastTrigger = now
	}

	return ev
}

// Threshold returns the configured confidence threshold.
func (sm *StateMachine) Threshold() float32 {
	return sm.threshold
}

// InCooldown reports whether a trigger within the cooldown window is
// still pending, evaluated lazily against the clock.
func (sm *StateMachine) InCooldown() bool {
	return sm.state == stateCooldown && sm.clock.Now().Sub(sm.lastTrigger) < sm.cooldown
}
