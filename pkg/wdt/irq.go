// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"context"

	"golang.org/x/sys/unix"
)

// MaxInstances is the number of per-core watchdog units on multi-instance
// hardware.
const MaxInstances = 4

// HandleExpiry is the expiry interrupt path for this instance. It never
// takes the subsystem lock, allocates, or blocks: a heartbeat-owned
// instance feeds itself with plain register writes, anything else masks
// its line and defers a diagnostic out of interrupt context.
func (i *Instance) HandleExpiry() {
	i.irqCounter.Inc()
	i.expiries.Inc()

	if i.status.Load()&StatusHeartbeat != 0 {
		// Interrupts still being delivered and this path still running
		// is the liveness proof; no user space cooperation needed.
		i.hw.Ack()
		i.hw.ClearExpiry()
		i.irqCounter.Store(0)
		i.pings.Inc()
		return
	}

	// The user did not reload the timer in time. Do not acknowledge:
	// the next expiry resets the system, which is the whole point. Mask
	// the line so a shared line does not storm until then.
	if i.line != nil {
		i.line.Mask()
	}
	select {
	case i.notify <- struct{}{}:
	default:
	}
}

// watchExpiry drains the deferred expiry notifications. Runs outside
// interrupt context so it may log.
func (i *Instance) watchExpiry(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-i.notify:
			log.Warnf("%s: expiry interrupt received, system will reset soon if no ping arrives", i.name)
		}
	}
}

// Registry maps stable instance indexes to instances so a shared
// interrupt line can fan out to all of them. The legacy single instance
// occupies slot 0.
type Registry struct {
	slots [MaxInstances]*Instance
}

// slot maps an instance id to its registry slot, -1 for ids that have
// none. Only the legacy id -1 aliases slot 0.
func slot(id int) int {
	if id == -1 {
		return 0
	}
	if id < 0 || id >= MaxInstances {
		return -1
	}
	return id
}

func (r *Registry) Add(id int, inst *Instance) error {
	s := slot(id)
	if s < 0 {
		return unix.EINVAL
	}
	if r.slots[s] != nil {
		return unix.EEXIST
	}
	r.slots[s] = inst
	return nil
}

func (r *Registry) Get(id int) *Instance {
	s := slot(id)
	if s < 0 {
		return nil
	}
	return r.slots[s]
}

func (r *Registry) Instances() []*Instance {
	var out []*Instance
	for _, inst := range r.slots {
		if inst != nil {
			out = append(out, inst)
		}
	}
	return out
}

// HandleSharedExpiry fans one shared interrupt out to every registered
// instance whose own status register latched an expiry. Interrupt path
// rules apply.
func (r *Registry) HandleSharedExpiry() {
	for _, inst := range r.slots {
		if inst == nil {
			continue
		}
		if inst.status.Load()&StatusEnabled != 0 && inst.hw.ExpiryPending() {
			inst.HandleExpiry()
		}
	}
}

// Dispatcher couples one interrupt line to either a single instance or,
// for the shared-line hardware, the whole registry.
type Dispatcher struct {
	line *UioLine
	reg  *Registry
	solo *Instance
}

func NewDispatcher(line *UioLine, inst *Instance) *Dispatcher {
	return &Dispatcher{line: line, solo: inst}
}

func NewSharedDispatcher(line *UioLine, reg *Registry) *Dispatcher {
	return &Dispatcher{line: line, reg: reg}
}

func (d *Dispatcher) dispatch() {
	if d.solo != nil {
		d.solo.HandleExpiry()
		return
	}
	d.reg.HandleSharedExpiry()
}

// Serve blocks delivering expiry interrupts until ctx is canceled or the
// line fails.
func (d *Dispatcher) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		d.line.Close()
	}()
	if err := d.line.Unmask(); err != nil {
		return err
	}
	for {
		if _, err := d.line.Wait(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		d.dispatch()
	}
}
