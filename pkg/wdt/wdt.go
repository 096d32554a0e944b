// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wdt drives the hardware watchdog units of Tegra series SoCs:
// the per-instance arm/disarm/acknowledge state machine, expiry interrupt
// dispatch, the watchdog character device control protocol and the
// subsystem lifecycle.
package wdt

import (
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/u-root/u-wdt/pkg/hardware/tegra"
	"github.com/u-root/u-wdt/pkg/logger"
	"go.uber.org/atomic"
)

var log = logger.LogContainer.GetSimpleLogger()

// Watchdog trigger period bounds, in seconds.
const (
	MinPeriod = 5
	MaxPeriod = 1000

	// For spinlock lockup detection to work, the heartbeat should be
	// twice the lockup timeout. Must be between MinPeriod and MaxPeriod.
	DefaultPeriod = 60
)

// Instance status flags. StatusDisabled never coexists with the other two.
const (
	StatusDisabled = 1 << 0
	StatusEnabled  = 1 << 1
	// StatusHeartbeat marks the instance whose expiry interrupt re-arms
	// the hardware itself. Set once at probe, never from a session.
	StatusHeartbeat = 1 << 2
)

// Clamp bounds a requested watchdog period to [MinPeriod, MaxPeriod].
func Clamp(timeout int) int {
	if timeout < MinPeriod {
		return MinPeriod
	}
	if timeout > MaxPeriod {
		return MaxPeriod
	}
	return timeout
}

type irqMasker interface {
	Mask() error
	Unmask() error
}

// Instance owns one hardware timer/counter pair. Thread-context callers
// (sessions, lifecycle, reboot path) serialize on mu, which is shared
// across the whole subsystem. The interrupt path never takes mu: it only
// re-arms through idempotent register writes, mutates irqCounter and
// loads status atomically.
type Instance struct {
	name string
	hw   tegra.Wdt
	line irqMasker // nil when the instance has no early-warning interrupt

	mu  *sync.Mutex
	clk clock.Clock

	timeout  int // seconds, always within [MinPeriod, MaxPeriod] when armed
	wayOutOk bool // armed by the magic close character, session scoped
	lastPing time.Time

	// status is written under mu only, but the interrupt path reads it
	// without the lock.
	status atomic.Int32

	// users is the control handle exclusivity bit.
	users atomic.Bool
	// irqCounter counts expiry interrupts taken since the last ping.
	// Written on the interrupt path, drained under mu.
	irqCounter atomic.Int32

	// notify defers expiry diagnostics out of interrupt context.
	notify chan struct{}

	pings    prometheus.Counter
	expiries prometheus.Counter
	enabled  prometheus.Gauge
	period   prometheus.Gauge
}

func newInstance(name string, hw tegra.Wdt, mu *sync.Mutex, clk clock.Clock, timeout int) *Instance {
	i := &Instance{
		name:     name,
		hw:       hw,
		mu:       mu,
		clk:      clk,
		timeout:  Clamp(timeout),
		notify:   make(chan struct{}, 1),
		pings:    pingsTotal.WithLabelValues(name),
		expiries: expiriesTotal.WithLabelValues(name),
		enabled:  enabledGauge.WithLabelValues(name),
		period:   periodGauge.WithLabelValues(name),
	}
	i.status.Store(StatusDisabled)
	return i
}

func (i *Instance) Name() string {
	return i.name
}

// Enable arms the hardware with the clamped timeout and returns the value
// actually applied. Re-enabling while enabled just reprograms the period.
func (i *Instance) Enable(timeout int) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.enableLocked(timeout)
}

func (i *Instance) enableLocked(timeout int) int {
	i.timeout = Clamp(timeout)
	i.hw.Arm(i.timeout)
	st := i.status.Load()
	st |= StatusEnabled
	st &^= StatusDisabled
	i.status.Store(st)
	i.lastPing = i.clk.Now()
	i.enabled.Set(1)
	i.period.Set(float64(i.timeout))
	return i.timeout
}

// Disable disarms the hardware. It has no preconditions and is callable
// from the shutdown and reboot paths with no session open.
func (i *Instance) Disable() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.disableLocked()
}

func (i *Instance) disableLocked() {
	i.hw.Disarm()
	i.status.Store(StatusDisabled)
	i.enabled.Set(0)
}

// Ping acknowledges the countdown. If an expiry interrupt was taken since
// the last acknowledgment, the latched condition is cleared and the
// interrupt line re-enabled. A disabled instance is left untouched.
func (i *Instance) Ping() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.pingLocked()
}

func (i *Instance) pingLocked() {
	if i.status.Load()&StatusEnabled == 0 {
		return
	}
	i.hw.Ack()
	if i.irqCounter.Swap(0) > 0 {
		i.hw.ClearExpiry()
		if i.line != nil {
			if err := i.line.Unmask(); err != nil {
				log.Errorf("%s: unmask irq: %v", i.name, err)
			}
		}
	}
	i.lastPing = i.clk.Now()
	i.pings.Inc()
}

// SetTimeout disables, reprograms and re-enables the hardware with the
// clamped timeout, atomically for other thread-context callers, and
// returns the value actually applied.
func (i *Instance) SetTimeout(timeout int) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hw.Disarm()
	return i.enableLocked(timeout)
}

func (i *Instance) Timeout() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.timeout
}

// TimeLeft estimates the seconds remaining until expiry from the time of
// the last acknowledgment.
func (i *Instance) TimeLeft() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status.Load()&StatusEnabled == 0 {
		return 0
	}
	left := i.timeout - int(i.clk.Now().Sub(i.lastPing)/time.Second)
	if left < 0 {
		return 0
	}
	return left
}

func (i *Instance) Status() int {
	return int(i.status.Load())
}

// markHeartbeat nominates the instance as kernel heartbeat owner: it is
// held open so no session can claim it, and armed immediately.
func (i *Instance) markHeartbeat(timeout int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status.Store(i.status.Load() | StatusHeartbeat)
	i.users.Store(true)
	i.enableLocked(timeout)
}

// suspend disarms the hardware but keeps the status bits, so resume knows
// whether to re-arm.
func (i *Instance) suspend() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hw.Disarm()
	i.enabled.Set(0)
}

func (i *Instance) resume() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status.Load()&StatusEnabled != 0 {
		i.hw.Arm(i.timeout)
		i.lastPing = i.clk.Now()
		i.enabled.Set(1)
	}
}
