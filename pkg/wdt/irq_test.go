// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"sync"
	"testing"

	"golang.org/x/sys/unix"
)

func TestHeartbeatSelfFeeds(t *testing.T) {
	i, hw, _ := testInstance("watchdog0")
	i.markHeartbeat(60)

	// Interrupts at twice the expected rate, no explicit pings: the
	// handler must feed the hardware itself every time and the latched
	// count must never accumulate towards the reset condition.
	for n := 0; n < 8; n++ {
		i.HandleExpiry()
		if got := i.irqCounter.Load(); got != 0 {
			t.Fatalf("irqCounter = %d after interrupt %d, want 0", got, n)
		}
	}
	if hw.acks != 8 {
		t.Errorf("acks = %d, want 8", hw.acks)
	}
}

func TestUserOwnedExpiryDoesNotSelfHeal(t *testing.T) {
	i, hw, _ := testInstance("watchdog0")
	line := &fakeLine{}
	i.line = line
	i.Enable(60)
	acksAfterEnable := hw.acks

	i.HandleExpiry()
	if hw.acks != acksAfterEnable {
		t.Errorf("Handler acknowledged a user-owned instance")
	}
	if line.masked != 1 {
		t.Errorf("masked = %d, want 1", line.masked)
	}
	if got := i.irqCounter.Load(); got != 1 {
		t.Errorf("irqCounter = %d, want 1", got)
	}
	select {
	case <-i.notify:
	default:
		t.Errorf("No deferred expiry notification")
	}

	// The second unacknowledged interrupt is the hardware reset; the
	// software state must still not have healed itself.
	i.HandleExpiry()
	if hw.acks != acksAfterEnable {
		t.Errorf("Handler acknowledged on second expiry")
	}
	if got := i.irqCounter.Load(); got != 2 {
		t.Errorf("irqCounter = %d, want 2", got)
	}
}

// Expiry interrupts keep landing while a session reprograms the period;
// the status reads on the interrupt path must be safe against the locked
// writers. Run with the race detector.
func TestExpiryRacesReprogram(t *testing.T) {
	i, _, _ := testInstance("watchdog0")
	i.line = &fakeLine{}
	i.Enable(60)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for n := 0; n < 1000; n++ {
			i.SetTimeout(60)
		}
	}()
	go func() {
		defer wg.Done()
		for n := 0; n < 1000; n++ {
			i.HandleExpiry()
		}
	}()
	wg.Wait()

	if i.Status()&StatusEnabled == 0 {
		t.Errorf("Status = %#x after concurrent reprogram, want enabled", i.Status())
	}
}

func TestRegistry(t *testing.T) {
	var r Registry
	a, _, _ := testInstance("watchdog0")
	b, _, _ := testInstance("watchdog1")

	if err := r.Add(0, a); err != nil {
		t.Fatalf("Add(0): %v", err)
	}
	if err := r.Add(0, b); err != unix.EEXIST {
		t.Errorf("Duplicate Add = %v, want EEXIST", err)
	}
	if err := r.Add(4, b); err != unix.EINVAL {
		t.Errorf("Add(4) = %v, want EINVAL", err)
	}
	if err := r.Add(-2, b); err != unix.EINVAL {
		t.Errorf("Add(-2) = %v, want EINVAL", err)
	}
	if r.Get(-2) != nil {
		t.Errorf("Get(-2) returned an instance")
	}
	if err := r.Add(1, b); err != nil {
		t.Fatalf("Add(1): %v", err)
	}
	if r.Get(0) != a || r.Get(1) != b {
		t.Errorf("Get returned wrong instances")
	}
	if len(r.Instances()) != 2 {
		t.Errorf("Instances() = %d, want 2", len(r.Instances()))
	}
}

func TestRegistryLegacySlot(t *testing.T) {
	var r Registry
	a, _, _ := testInstance("watchdog")
	if err := r.Add(-1, a); err != nil {
		t.Fatalf("Add(-1): %v", err)
	}
	if r.Get(-1) != a || r.Get(0) != a {
		t.Errorf("Legacy instance not in slot 0")
	}
}

func TestSharedExpiryScansStatusRegisters(t *testing.T) {
	var r Registry

	hb, hbhw, _ := testInstance("watchdog0")
	hb.markHeartbeat(60)
	hbhw.pending = true

	quiet, quiethw, _ := testInstance("watchdog1")
	quiet.Enable(60)
	quiethw.pending = false

	off, offhw, _ := testInstance("watchdog2")
	offhw.pending = true // latched but the instance is disabled

	r.Add(0, hb)
	r.Add(1, quiet)
	r.Add(2, off)

	acksBefore := hbhw.acks
	r.HandleSharedExpiry()

	if hbhw.acks != acksBefore+1 {
		t.Errorf("Heartbeat instance not fed: acks = %d", hbhw.acks)
	}
	if quiet.irqCounter.Load() != 0 {
		t.Errorf("Instance without pending expiry was handled")
	}
	if off.irqCounter.Load() != 0 {
		t.Errorf("Disabled instance was handled")
	}
}
