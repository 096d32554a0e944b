// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tegra

// Tegra 3 generation. Each core has a self-contained watchdog counter block
// fed by one of the free-running timers TMR7..TMR10. Disabling the counter
// requires an unlock pattern write first, so a single stray write cannot
// disarm it.
const (
	WDT0_BASE uintptr = 0x60005100
	TMR7_BASE uintptr = 0x60005068

	// Per-instance register block strides.
	WDT_STRIDE uintptr = 0x20
	TMR_STRIDE uintptr = 0x8

	WDT_CFG    uintptr = 0x0
	WDT_STATUS uintptr = 0x4
	WDT_CMD    uintptr = 0x8
	WDT_UNLOCK uintptr = 0xC

	WDT_CFG_PERIOD         uint32 = 1 << 4
	WDT_CFG_INT_EN         uint32 = 1 << 12
	WDT_CFG_FIQ_INT_EN     uint32 = 1 << 13
	WDT_CFG_SYS_RST_EN     uint32 = 1 << 14
	WDT_CFG_PMC2CAR_RST_EN uint32 = 1 << 15

	WDT_INTR_STAT            uint32 = 1 << 1
	WDT_STATUS_EXPIR_COUNTER uint32 = 3 << 12

	WDT_CMD_START_COUNTER   uint32 = 1 << 0
	WDT_CMD_DISABLE_COUNTER uint32 = 1 << 1

	WDT_UNLOCK_PATTERN uint32 = 0xC45A

	// Legacy interrupt controller, used to keep the watchdog interrupt
	// in the IRQ class when a FIQ debugger claimed FIQ priority for it.
	ICTLR_IEP_CLASS uintptr = 0x2C
	INT_WDT_CPU     uint32  = 123
)

type GuardedWdt struct {
	mem     memProvider
	base    uintptr // watchdog counter block
	timer   uintptr // free-running timer block feeding the counter
	intBase uintptr // interrupt controller block, 0 if unused
	tmrsrc  uint32
	fiq     bool
}

// NewGuardedWdt binds one watchdog counter block to the free-running timer
// selected by tmrsrc. When fiq is set the counter is configured to raise a
// FIQ on expiry and intBase must point at the interrupt controller block
// owning INT_WDT_CPU.
func (s *Soc) NewGuardedWdt(base, timer uintptr, tmrsrc int, intBase uintptr, fiq bool) *GuardedWdt {
	return &GuardedWdt{
		mem:     s.mem,
		base:    base,
		timer:   timer,
		intBase: intBase,
		tmrsrc:  uint32(tmrsrc),
		fiq:     fiq,
	}
}

func (w *GuardedWdt) Arm(timeoutSeconds int) {
	w.mem.MustWrite32(w.timer+TIMER_PCR, TIMER_PCR_INTR)

	// The counter trips the reset on the fourth unacknowledged timer
	// expiry, so the timer period is a quarter of the watchdog period.
	val := uint32(timeoutSeconds) * 1000000 / 4
	val |= TIMER_EN | TIMER_PERIODIC
	w.mem.MustWrite32(w.timer+TIMER_PTV, val)

	w.mem.MustWrite32(w.base+WDT_CMD, WDT_CMD_START_COUNTER)

	// A plain IRQ on expiry is left disabled: the line is shared between
	// all instances, and a warning a quarter period before the reset is
	// of no use to user space anyway. The reset is routed through the
	// power controller since the SoC has no external reset.
	cfg := w.tmrsrc | WDT_CFG_PERIOD | WDT_CFG_PMC2CAR_RST_EN
	if w.fiq {
		cfg |= WDT_CFG_FIQ_INT_EN
	}
	w.mem.MustWrite32(w.base+WDT_CFG, cfg)
}

func (w *GuardedWdt) Disarm() {
	w.mem.MustWrite32(w.base+WDT_UNLOCK, WDT_UNLOCK_PATTERN)
	w.mem.MustWrite32(w.base+WDT_CMD, WDT_CMD_DISABLE_COUNTER)

	w.mem.MustWrite32(w.timer+TIMER_PTV, 0)
}

// Ack restarts the counter. The timer period register is untouched by an
// expiry event on this generation, so no reprogram is needed.
func (w *GuardedWdt) Ack() {
	w.mem.MustWrite32(w.base+WDT_CMD, WDT_CMD_START_COUNTER)
}

func (w *GuardedWdt) ClearExpiry() {
	w.mem.MustWrite32(w.timer+TIMER_PCR, TIMER_PCR_INTR)
}

func (w *GuardedWdt) ExpiryPending() bool {
	return w.mem.MustRead32(w.base+WDT_STATUS)&WDT_INTR_STAT != 0
}

// SetIntPriority moves INT_WDT_CPU back to the IRQ class. A FIQ debugger
// claims FIQ priority for the whole class, which would starve the IRQ
// handler of its chance to restart the counter before expiry.
func (w *GuardedWdt) SetIntPriority() {
	if w.intBase == 0 {
		return
	}
	val := w.mem.MustRead32(w.intBase + ICTLR_IEP_CLASS)
	val &^= 1 << (INT_WDT_CPU & 31)
	w.mem.MustWrite32(w.intBase+ICTLR_IEP_CLASS, val)
}
