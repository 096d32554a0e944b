// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tegra

// Tegra 2 generation. The watchdog is a plain free-running timer paired
// with the reset source register of the clock/reset controller. No unlock
// sequence, a single write disables it.
const (
	RST_SOURCE uintptr = 0x60006000
	TMR1_BASE  uintptr = 0x60005000

	WDT_EN       uint32 = 1 << 5
	WDT_SEL_TMR1 uint32 = 0 << 4
	WDT_SYS_RST  uint32 = 1 << 2

	// Set when the last system reset was caused by the watchdog.
	RST_SOURCE_WDT_RST uint32 = 1 << 12
)

type SimpleWdt struct {
	mem     memProvider
	source  uintptr // reset source register
	timer   uintptr // free-running timer block
	timeout int
}

func (s *Soc) NewSimpleWdt(source, timer uintptr) *SimpleWdt {
	return &SimpleWdt{mem: s.mem, source: source, timer: timer}
}

func (w *SimpleWdt) Arm(timeoutSeconds int) {
	// The hardware resets when a second interrupt is asserted before the
	// first one is processed, so the timer period is programmed to
	// one-half of the watchdog period.
	w.timeout = timeoutSeconds
	val := uint32(timeoutSeconds) * 1000000 / 2
	val |= TIMER_EN | TIMER_PERIODIC
	w.mem.MustWrite32(w.timer+TIMER_PTV, val)

	w.mem.MustWrite32(w.source, WDT_EN|WDT_SEL_TMR1|WDT_SYS_RST)
}

func (w *SimpleWdt) Disarm() {
	w.mem.MustWrite32(w.source, 0)
	w.mem.MustWrite32(w.timer+TIMER_PTV, 0)
}

// Ack reprograms the full arm sequence; an expiry event leaves the timer
// registers in an undefined state on this generation.
func (w *SimpleWdt) Ack() {
	w.Arm(w.timeout)
}

func (w *SimpleWdt) ClearExpiry() {
	w.mem.MustWrite32(w.timer+TIMER_PCR, TIMER_PCR_INTR)
}

func (w *SimpleWdt) ExpiryPending() bool {
	return w.mem.MustRead32(w.timer+TIMER_PCR)&TIMER_PCR_INTR != 0
}

// LastResetByWatchdog reports whether the previous system reset was
// triggered by watchdog expiry. Only this generation latches the reason
// in the reset source register.
func (w *SimpleWdt) LastResetByWatchdog() bool {
	return w.mem.MustRead32(w.source)&RST_SOURCE_WDT_RST != 0
}
