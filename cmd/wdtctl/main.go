// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// wdtctl pokes the watchdog hardware directly, for bring-up and
// debugging. It bypasses the wdtd state machine entirely, so do not use
// it while wdtd is running.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/u-root/u-wdt/config"
	"github.com/u-root/u-wdt/pkg/hardware/tegra"
)

var (
	legacy = flag.Bool("legacy", false, "First generation single-instance hardware")
	id     = flag.Int("id", 0, "Instance id (multi-instance hardware only)")
	arm    = flag.Int("arm", 0, "Arm the countdown with the given period in seconds")
	disarm = flag.Bool("disarm", false, "Disarm the countdown")
	ack    = flag.Bool("ack", false, "Acknowledge the countdown")
	status = flag.Bool("status", false, "Dump the instance status")
)

func pick() config.Watchdog {
	cfg := config.DefaultConfig
	if *legacy {
		return config.LegacyConfig.Watchdogs[0]
	}
	for _, w := range cfg.Watchdogs {
		if w.ID == *id {
			return w
		}
	}
	log.Fatalf("no instance with id %d", *id)
	return config.Watchdog{}
}

func main() {
	flag.Parse()

	wc := pick()
	soc := tegra.Open()
	defer soc.Close()

	var w tegra.Wdt
	if wc.Variant == config.Simple {
		sw := soc.NewSimpleWdt(wc.SourceBase, wc.TimerBase)
		if *status {
			fmt.Printf("last reset by watchdog: %v\n", sw.LastResetByWatchdog())
		}
		w = sw
	} else {
		tmrsrc := (7 + wc.ID) % 10
		w = soc.NewGuardedWdt(wc.SourceBase, wc.TimerBase, tmrsrc, 0, false)
	}

	switch {
	case *arm > 0:
		w.Arm(*arm)
		fmt.Printf("armed, %d s\n", *arm)
	case *disarm:
		w.Disarm()
		fmt.Println("disarmed")
	case *ack:
		w.Ack()
		fmt.Println("acknowledged")
	case *status:
		fmt.Printf("expiry pending: %v\n", w.ExpiryPending())
	default:
		flag.Usage()
	}
}
