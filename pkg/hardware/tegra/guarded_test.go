// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tegra

import (
	"testing"
)

func TestGuardedArm(t *testing.T) {
	fm := fakeMemory(t)
	s := OpenWithMemory(fm)
	w := s.NewGuardedWdt(WDT0_BASE, TMR7_BASE, 7, 0, false)

	// 60 s period -> 15 s timer, reset on fourth unacknowledged expiry
	fm.ExpectWrite32(0x6000506c, TIMER_PCR_INTR)
	fm.ExpectWrite32(0x60005068, 15000000|TIMER_EN|TIMER_PERIODIC)
	fm.ExpectWrite32(0x60005108, WDT_CMD_START_COUNTER)
	fm.ExpectWrite32(0x60005100, 7|WDT_CFG_PERIOD|WDT_CFG_PMC2CAR_RST_EN)
	w.Arm(60)
	fm.Drained()
}

func TestGuardedArmFiq(t *testing.T) {
	fm := fakeMemory(t)
	s := OpenWithMemory(fm)
	w := s.NewGuardedWdt(WDT0_BASE, TMR7_BASE, 7, 0x60004300, true)

	fm.ExpectWrite32(0x6000506c, TIMER_PCR_INTR)
	fm.ExpectWrite32(0x60005068, 15000000|TIMER_EN|TIMER_PERIODIC)
	fm.ExpectWrite32(0x60005108, WDT_CMD_START_COUNTER)
	fm.ExpectWrite32(0x60005100, 7|WDT_CFG_PERIOD|WDT_CFG_FIQ_INT_EN|WDT_CFG_PMC2CAR_RST_EN)
	w.Arm(60)
	fm.Drained()
}

func TestGuardedDisarmUnlocks(t *testing.T) {
	fm := fakeMemory(t)
	s := OpenWithMemory(fm)
	w := s.NewGuardedWdt(WDT0_BASE, TMR7_BASE, 7, 0, false)

	// Unlock pattern first, then the disable command
	fm.ExpectWrite32(0x6000510c, 0xC45A)
	fm.ExpectWrite32(0x60005108, WDT_CMD_DISABLE_COUNTER)
	fm.ExpectWrite32(0x60005068, 0)
	w.Disarm()
	fm.Drained()
}

func TestGuardedAckIsLightweight(t *testing.T) {
	fm := fakeMemory(t)
	s := OpenWithMemory(fm)
	w := s.NewGuardedWdt(WDT0_BASE, TMR7_BASE, 7, 0, false)

	// No timer reprogram, just a counter restart
	fm.ExpectWrite32(0x60005108, WDT_CMD_START_COUNTER)
	w.Ack()
	fm.Drained()
}

func TestGuardedExpiryPending(t *testing.T) {
	fm := fakeMemory(t)
	s := OpenWithMemory(fm)
	w := s.NewGuardedWdt(WDT0_BASE, TMR7_BASE, 7, 0, false)

	fm.FakeRead32(0x60005104, WDT_INTR_STAT)
	if !w.ExpiryPending() {
		t.Errorf("Expected pending expiry")
	}
	fm.FakeRead32(0x60005104, WDT_STATUS_EXPIR_COUNTER)
	if w.ExpiryPending() {
		t.Errorf("Expected no pending expiry")
	}
	fm.Drained()
}

func TestGuardedSecondInstanceStride(t *testing.T) {
	fm := fakeMemory(t)
	s := OpenWithMemory(fm)
	w := s.NewGuardedWdt(WDT0_BASE+WDT_STRIDE, TMR7_BASE+TMR_STRIDE, 8, 0, false)

	fm.ExpectWrite32(0x6000508c, TIMER_PCR_INTR)
	fm.ExpectWrite32(0x60005088, 2500000|TIMER_EN|TIMER_PERIODIC)
	fm.ExpectWrite32(0x60005128, WDT_CMD_START_COUNTER)
	fm.ExpectWrite32(0x60005120, 8|WDT_CFG_PERIOD|WDT_CFG_PMC2CAR_RST_EN)
	w.Arm(10)
	fm.Drained()
}

func TestGuardedSetIntPriority(t *testing.T) {
	fm := fakeMemory(t)
	s := OpenWithMemory(fm)
	w := s.NewGuardedWdt(WDT0_BASE, TMR7_BASE, 7, 0x60004300, true)

	// INT_WDT_CPU (123) & 31 = bit 27 cleared back to IRQ class
	fm.FakeRead32(0x6000432c, 0xffffffff)
	fm.ExpectWrite32(0x6000432c, 0xf7ffffff)
	w.SetIntPriority()
	fm.Drained()
}

func TestGuardedSetIntPriorityWithoutController(t *testing.T) {
	fm := fakeMemory(t)
	s := OpenWithMemory(fm)
	w := s.NewGuardedWdt(WDT0_BASE, TMR7_BASE, 7, 0, false)

	// No interrupt controller block mapped, must not touch anything
	w.SetIntPriority()
	fm.Drained()
}
