// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmhodges/clock"
	"github.com/spf13/afero"
	"github.com/u-root/u-wdt/config"
	"github.com/u-root/u-wdt/pkg/hardware/tegra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Timer sources TMR7..TMR10 back WDT0..WDT3 on the shared-line hardware.
const tmrSrcStart = 7

// uioOpen is swapped out by tests.
var uioOpen = OpenUioLine

// Subsystem owns every probed instance, the interrupt dispatchers and the
// control devices. One lock serializes all thread-context hardware access
// across instances.
type Subsystem struct {
	cfg *config.Config

	mu  sync.Mutex
	reg Registry

	instances   []*Instance
	devices     []*Device
	dispatchers []*Dispatcher
	lines       []*UioLine
}

func deviceName(id int) string {
	if id < 0 {
		return "watchdog"
	}
	return fmt.Sprintf("watchdog%d", id)
}

// Probe validates the configured register resources, maps them through
// soc, force-disables all hardware as the safe starting state, claims the
// interrupt lines and, when configured, nominates the first instance as
// kernel heartbeat owner and arms it. Partial acquisitions are unwound in
// reverse on failure.
func Probe(fs afero.Fs, soc *tegra.Soc, cfg *config.Config) (*Subsystem, error) {
	return probe(fs, soc, cfg, clock.New())
}

func probe(fs afero.Fs, soc *tegra.Soc, cfg *config.Config, clk clock.Clock) (*Subsystem, error) {
	s := &Subsystem{cfg: cfg}
	heartbeat := Clamp(cfg.Heartbeat)

	for _, wc := range cfg.Watchdogs {
		if wc.ID < -1 || wc.ID >= MaxInstances {
			s.unwind()
			return nil, unix.ENODEV
		}
		if wc.ID == -1 && len(cfg.Watchdogs) != 1 {
			// The legacy form is single instance by definition
			s.unwind()
			return nil, unix.EINVAL
		}
		if wc.SourceBase == 0 || wc.TimerBase == 0 {
			log.Errorf("%s: incorrect resources", deviceName(wc.ID))
			s.unwind()
			return nil, unix.ENOENT
		}

		var hw tegra.Wdt
		var guarded *tegra.GuardedWdt
		switch wc.Variant {
		case config.Simple:
			w := soc.NewSimpleWdt(wc.SourceBase, wc.TimerBase)
			if w.LastResetByWatchdog() {
				log.Infof("%s: last reset due to watchdog timeout", deviceName(wc.ID))
			}
			hw = w
		case config.Guarded:
			intBase := uintptr(0)
			if cfg.FiqDebugger {
				// Only the irq-carrying first instance needs the
				// interrupt controller block.
				if wc.IntBase == 0 && wc.ID <= 0 {
					log.Errorf("%s: interrupt controller base not defined", deviceName(wc.ID))
					s.unwind()
					return nil, unix.ENOENT
				}
				intBase = wc.IntBase
			}
			id := wc.ID
			if id < 0 {
				id = 0
			}
			tmrsrc := (tmrSrcStart + id) % 10
			guarded = soc.NewGuardedWdt(wc.SourceBase, wc.TimerBase, tmrsrc, intBase, cfg.FiqDebugger)
			hw = guarded
		default:
			s.unwind()
			return nil, unix.EINVAL
		}

		inst := newInstance(deviceName(wc.ID), hw, &s.mu, clk, heartbeat)

		// Safe starting state, whatever the bootloader left behind
		hw.Disarm()
		hw.ClearExpiry()

		// The legacy instance and instance 0 carry the early warning
		// interrupt; the rest share the line of instance 0.
		needLine := wc.ID <= 0
		if wc.UioName != "" {
			path, err := FindUio(fs, wc.UioName)
			if err == nil {
				var line *UioLine
				line, err = uioOpen(path)
				if err == nil {
					if guarded != nil {
						guarded.SetIntPriority()
					}
					inst.line = line
					s.lines = append(s.lines, line)
					if guarded != nil {
						s.dispatchers = append(s.dispatchers, NewSharedDispatcher(line, &s.reg))
					} else {
						s.dispatchers = append(s.dispatchers, NewDispatcher(line, inst))
					}
				}
			}
			if err != nil {
				log.Errorf("%s: unable to configure IRQ: %v", inst.name, err)
				s.unwind()
				return nil, unix.ENOENT
			}
		} else if needLine {
			log.Errorf("%s: incorrect irq", inst.name)
			s.unwind()
			return nil, unix.ENOENT
		}

		if err := s.reg.Add(wc.ID, inst); err != nil {
			s.unwind()
			return nil, err
		}
		s.instances = append(s.instances, inst)
		s.devices = append(s.devices, &Device{
			inst:      inst,
			noWayOut:  cfg.NoWayOut,
			heartbeat: heartbeat,
		})
	}

	if cfg.KernelHeartbeat && len(s.instances) > 0 {
		s.instances[0].markHeartbeat(heartbeat)
		log.Infof("%s: kernel heartbeat enabled on probe", s.instances[0].name)
	}
	return s, nil
}

// unwind releases everything acquired so far, most recent first.
func (s *Subsystem) unwind() {
	for n := len(s.instances) - 1; n >= 0; n-- {
		s.instances[n].hw.Disarm()
	}
	for n := len(s.lines) - 1; n >= 0; n-- {
		s.lines[n].Close()
	}
}

// Device returns the control device for the given instance id, nil if not
// probed.
func (s *Subsystem) Device(id int) *Device {
	for _, d := range s.devices {
		if d.Name() == deviceName(id) {
			return d
		}
	}
	return nil
}

func (s *Subsystem) Devices() []*Device {
	return s.devices
}

// Serve runs the interrupt dispatchers and the deferred expiry loggers
// until ctx is canceled.
func (s *Subsystem) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, d := range s.dispatchers {
		d := d
		g.Go(func() error {
			return d.Serve(ctx)
		})
	}
	for _, i := range s.instances {
		i := i
		g.Go(func() error {
			i.watchExpiry(ctx)
			return nil
		})
	}
	return g.Wait()
}

// RebootNotify force-disables all hardware on an orderly system down or
// halt, bypassing the control protocol.
func (s *Subsystem) RebootNotify() {
	for _, i := range s.instances {
		i.Disable()
	}
}

// Suspend disarms all hardware; status is kept so Resume knows what to
// re-arm.
func (s *Subsystem) Suspend() {
	for _, i := range s.instances {
		i.suspend()
	}
}

// Resume re-arms every instance that was enabled before suspend.
func (s *Subsystem) Resume() {
	for _, i := range s.instances {
		i.resume()
	}
}

// Remove shuts the subsystem down: hardware disabled, lines released.
func (s *Subsystem) Remove() {
	for _, i := range s.instances {
		i.Disable()
	}
	for _, l := range s.lines {
		l.Close()
	}
}
