// Package banner decides when the install and notification banners are
// shown and routes the user's answers to the capturer and negotiator.
package banner

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the callback. It reports false if it already ran or
	// was already stopped.
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock schedules on the runtime timer.
type RealClock struct{}

// AfterFunc wraps time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
