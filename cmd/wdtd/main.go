// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// wdtd probes the watchdog instances, runs the expiry interrupt
// dispatchers and exposes metrics. With -feed it additionally keeps a
// control session of its own and acknowledges the countdown on a timer,
// like a minimal watchdog daemon would.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/jpillora/backoff"
	"github.com/spf13/afero"
	"github.com/u-root/u-wdt/config"
	"github.com/u-root/u-wdt/pkg/hardware/tegra"
	"github.com/u-root/u-wdt/pkg/logger"
	"github.com/u-root/u-wdt/pkg/wdt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

var log = logger.LogContainer.GetSimpleLogger()

var (
	legacy    = flag.Bool("legacy", false, "Drive the first generation single-instance hardware")
	heartbeat = flag.Int("heartbeat", 0, "Watchdog heartbeat period in seconds (default 60)")
	nowayout  = flag.Bool("nowayout", false, "Watchdog cannot be stopped once started")
	feed      = flag.Bool("feed", false, "Feed the first instance from a control session instead of the kernel heartbeat path")
	metrics   = flag.String("metrics", "", "Metrics listen address override")
)

// The UIO node may show up after we do on early boot.
func waitForUio(fs afero.Fs, name string) error {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	for {
		if _, err := wdt.FindUio(fs, name); err == nil {
			return nil
		}
		d := b.Duration()
		if b.Attempt() > 20 {
			return unix.ENOENT
		}
		log.Infof("waiting %v for uio device %s", d, name)
		time.Sleep(d)
	}
}

// feedSession acknowledges the countdown at half the period and disarms
// with a magic close on the way out.
func feedSession(ctx context.Context, d *wdt.Device) error {
	s, err := d.Open()
	if err != nil {
		return err
	}
	var arg [4]byte
	if err := s.Ioctl(wdt.WDIOC_GETTIMEOUT, arg[:]); err != nil {
		s.Close()
		return err
	}
	period := time.Duration(wdt.NativeEndian().Uint32(arg[:])) * time.Second

	t := time.NewTicker(period / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			if _, err := s.Write([]byte{wdt.MagicChar}); err != nil {
				log.Errorf("%s: magic close write: %v", d.Name(), err)
			}
			return s.Close()
		case <-t.C:
			if err := s.Ioctl(wdt.WDIOC_KEEPALIVE, nil); err != nil {
				s.Close()
				return err
			}
		}
	}
}

func main() {
	flag.Parse()

	cfg := *config.DefaultConfig
	if *legacy {
		cfg = *config.LegacyConfig
	}
	if *heartbeat != 0 {
		cfg.Heartbeat = *heartbeat
	}
	if *nowayout {
		cfg.NoWayOut = true
	}
	if *metrics != "" {
		cfg.MetricsAddr = *metrics
	}
	if *feed {
		cfg.KernelHeartbeat = false
	}

	fs := afero.NewOsFs()
	for _, w := range cfg.Watchdogs {
		if w.UioName == "" {
			continue
		}
		if err := waitForUio(fs, w.UioName); err != nil {
			log.Fatalf("uio device %s never appeared: %v", w.UioName, err)
		}
	}

	soc := tegra.Open()
	defer soc.Close()

	sub, err := wdt.Probe(fs, soc, &cfg)
	if err != nil {
		log.Fatalf("probe failed: %v", err)
	}
	defer sub.Remove()

	if err := wdt.StartMetrics(cfg.MetricsAddr); err != nil {
		log.Errorf("metrics: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sub.Serve(ctx)
	})
	if *feed {
		g.Go(func() error {
			return feedSession(ctx, sub.Devices()[0])
		})
	}
	g.Go(func() error {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, unix.SIGTERM)
		select {
		case sig := <-c:
			log.Infof("%v: disabling watchdogs for orderly shutdown", sig)
			sub.RebootNotify()
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
