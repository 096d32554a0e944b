// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

// Watchdog character device protocol, mirroring linux/watchdog.h. The
// ioctl numbers are the kernel encodings so consumers written against the
// chardev ABI translate one to one.
const (
	WDIOC_GETSUPPORT    uint32 = 0x80285700
	WDIOC_GETSTATUS     uint32 = 0x80045701
	WDIOC_GETBOOTSTATUS uint32 = 0x80045702
	WDIOC_SETOPTIONS    uint32 = 0x80045704
	WDIOC_KEEPALIVE     uint32 = 0x80045705
	WDIOC_SETTIMEOUT    uint32 = 0xc0045706
	WDIOC_GETTIMEOUT    uint32 = 0x80045707
	WDIOC_GETTIMELEFT   uint32 = 0x8004570a

	WDIOF_SETTIMEOUT uint32 = 0x0080

	WDIOS_DISABLECARD = 0x0001
	WDIOS_ENABLECARD  = 0x0002

	// MagicChar as trailing byte of a write authorizes disabling on the
	// next close.
	MagicChar = 'V'

	identity = "Tegra Watchdog"
	infoSize = 40 // packed struct watchdog_info
)

// Device is the per-instance control node, named watchdog or watchdog0..3.
type Device struct {
	inst     *Instance
	noWayOut bool
	// heartbeat is the period applied on open.
	heartbeat int
}

func (d *Device) Name() string {
	return d.inst.name
}

// Open claims the single control handle. Opening is itself an implicit
// enable with the default period: protection activates the instant a
// monitoring process attaches.
func (d *Device) Open() (*Session, error) {
	if !d.inst.users.CAS(false, true) {
		return nil, unix.EBUSY
	}
	i := d.inst
	i.mu.Lock()
	// A fresh session needs a new magic
	i.wayOutOk = false
	i.enableLocked(d.heartbeat)
	i.mu.Unlock()
	return &Session{dev: d}, nil
}

// Session is one open/close cycle on a Device.
type Session struct {
	dev    *Device
	closed atomic.Bool
}

// Write of any nonzero length acknowledges the countdown. The way out is
// armed iff the last byte written is the magic close character.
func (s *Session) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, unix.EBADF
	}
	if len(p) == 0 {
		return 0, nil
	}
	i := s.dev.inst
	i.mu.Lock()
	i.pingLocked()
	i.wayOutOk = p[len(p)-1] == MagicChar
	i.mu.Unlock()
	return len(p), nil
}

func getInt(arg []byte) (int, error) {
	if len(arg) < 4 {
		return 0, unix.EFAULT
	}
	return int(int32(NativeEndian().Uint32(arg))), nil
}

func putInt(arg []byte, v int) error {
	if len(arg) < 4 {
		return unix.EFAULT
	}
	NativeEndian().PutUint32(arg, uint32(int32(v)))
	return nil
}

// Ioctl implements the control commands. arg carries the user buffer; a
// buffer too small for the command payload fails with EFAULT and changes
// no state. SETTIMEOUT writes the applied (clamped) value back into arg.
func (s *Session) Ioctl(req uint32, arg []byte) error {
	if s.closed.Load() {
		return unix.EBADF
	}
	i := s.dev.inst

	switch req {
	case WDIOC_GETSUPPORT:
		if len(arg) < infoSize {
			return unix.EFAULT
		}
		ne := NativeEndian()
		ne.PutUint32(arg[0:], WDIOF_SETTIMEOUT)
		ne.PutUint32(arg[4:], 0) // firmware version
		id := arg[8:infoSize]
		for n := range id {
			id[n] = 0
		}
		copy(id, identity)
		return nil

	case WDIOC_GETSTATUS, WDIOC_GETBOOTSTATUS:
		// No last-reset reason is surfaced at this layer.
		return putInt(arg, 0)

	case WDIOC_KEEPALIVE:
		i.Ping()
		return nil

	case WDIOC_SETTIMEOUT:
		v, err := getInt(arg)
		if err != nil {
			return err
		}
		return putInt(arg, i.SetTimeout(v))

	case WDIOC_GETTIMEOUT:
		return putInt(arg, i.Timeout())

	case WDIOC_GETTIMELEFT:
		return putInt(arg, i.TimeLeft())

	case WDIOC_SETOPTIONS:
		v, err := getInt(arg)
		if err != nil {
			return err
		}
		if v&WDIOS_DISABLECARD != 0 && !s.dev.noWayOut {
			i.Disable()
		} else if v&WDIOS_ENABLECARD != 0 {
			i.Enable(i.Timeout())
		} else {
			return unix.EINVAL
		}
		return nil
	}
	return unix.ENOTTY
}

// Close releases the handle. Hardware is disarmed only when the session
// armed the way out and no global no-way-out policy is configured: an
// unclean close must not silently drop protection.
func (s *Session) Close() error {
	if !s.closed.CAS(false, true) {
		return unix.EBADF
	}
	i := s.dev.inst
	i.mu.Lock()
	if i.status.Load()&StatusEnabled != 0 && !s.dev.noWayOut {
		if i.wayOutOk {
			i.disableLocked()
		} else {
			log.Infof("%s: no magic close received, watchdog not disabled", i.name)
		}
	} else if s.dev.noWayOut {
		log.Infof("%s: no way out is enabled, watchdog not disabled", i.name)
	}
	i.mu.Unlock()
	i.users.Store(false)
	return nil
}
