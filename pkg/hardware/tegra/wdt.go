// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tegra

// Free-running timer block, shared by both watchdog generations.
const (
	TIMER_PTV uintptr = 0x0
	TIMER_PCR uintptr = 0x4

	TIMER_EN       uint32 = 1 << 31
	TIMER_PERIODIC uint32 = 1 << 30
	TIMER_PCR_INTR uint32 = 1 << 30
)

// Wdt is one hardware watchdog unit. The two Tegra generations lay out
// functionally equivalent timer/reset hardware incompatibly; everything
// above this interface is generation-agnostic.
//
// Ack must stay safe to call from the interrupt dispatch path: register
// writes only, no allocation, no locks.
type Wdt interface {
	// Arm programs the countdown for the given period in seconds and
	// enables the system reset on expiry. Re-arming while armed just
	// reprograms the period.
	Arm(timeoutSeconds int)
	// Disarm stops the countdown and disables the reset path.
	Disarm()
	// Ack acknowledges the countdown without changing the armed state.
	Ack()
	// ClearExpiry clears a latched expiry interrupt condition.
	ClearExpiry()
	// ExpiryPending reports whether an expiry interrupt is latched.
	ExpiryPending() bool
}
