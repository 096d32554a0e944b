// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"github.com/u-root/u-wdt/pkg/hardware/tegra"
)

type Variant int

const (
	// Simple is the first generation: a free-running timer paired with
	// the reset source register, no unlock sequence.
	Simple Variant = iota
	// Guarded is the second generation: a per-core counter block that
	// requires an unlock pattern write before it accepts a disable.
	Guarded
)

// Watchdog describes the register resources of one hardware instance.
type Watchdog struct {
	// ID selects the device node name: -1 is the legacy single-instance
	// form named "watchdog", 0..3 become "watchdog0".."watchdog3".
	ID      int
	Variant Variant

	// SourceBase is the reset source register (Simple) or the watchdog
	// counter block (Guarded). TimerBase is the free-running timer block
	// backing the instance.
	SourceBase uintptr
	TimerBase  uintptr

	// IntBase is the legacy interrupt controller block owning the
	// watchdog interrupt. Only needed on Guarded FIQ-debugger builds.
	IntBase uintptr

	// UioName selects the UIO device delivering expiry interrupts.
	// Empty means no early-warning path for this instance.
	UioName string
}

type Config struct {
	// Heartbeat is the default watchdog period in seconds, applied on
	// open and at probe for the kernel heartbeat instance.
	Heartbeat int

	// NoWayOut forbids every session from ever disabling the watchdog
	// once it is armed, magic close included.
	NoWayOut bool

	// KernelHeartbeat nominates the first instance as heartbeat owner at
	// probe: it is held open and fed from the interrupt path, proving
	// system liveness without any user space cooperation.
	KernelHeartbeat bool

	// FiqDebugger configures the Guarded instances for FIQ delivery and
	// reprograms the interrupt priority class at probe.
	FiqDebugger bool

	MetricsAddr string

	Watchdogs []Watchdog
}

// DefaultConfig describes the four-core second generation layout: four
// independent counter blocks fed by TMR7..TMR10, sharing one interrupt
// line.
var DefaultConfig = &Config{
	Heartbeat:       60,
	KernelHeartbeat: true,
	MetricsAddr:     "[::]:9371",
	Watchdogs: []Watchdog{
		{ID: 0, Variant: Guarded, SourceBase: tegra.WDT0_BASE, TimerBase: tegra.TMR7_BASE, IntBase: 0x60004300, UioName: "tegra_wdt"},
		{ID: 1, Variant: Guarded, SourceBase: tegra.WDT0_BASE + 1*tegra.WDT_STRIDE, TimerBase: tegra.TMR7_BASE + 1*tegra.TMR_STRIDE},
		{ID: 2, Variant: Guarded, SourceBase: tegra.WDT0_BASE + 2*tegra.WDT_STRIDE, TimerBase: tegra.TMR7_BASE + 2*tegra.TMR_STRIDE},
		{ID: 3, Variant: Guarded, SourceBase: tegra.WDT0_BASE + 3*tegra.WDT_STRIDE, TimerBase: tegra.TMR7_BASE + 3*tegra.TMR_STRIDE},
	},
}

// LegacyConfig describes the first generation single-instance layout.
var LegacyConfig = &Config{
	Heartbeat:       60,
	KernelHeartbeat: true,
	MetricsAddr:     "[::]:9371",
	Watchdogs: []Watchdog{
		{ID: -1, Variant: Simple, SourceBase: tegra.RST_SOURCE, TimerBase: tegra.TMR1_BASE, UioName: "tegra_wdt"},
	},
}
