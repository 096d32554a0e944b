// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uwdt",
		Name:      "pings_total",
		Help:      "Watchdog acknowledgments, from sessions and the heartbeat path.",
	}, []string{"device"})
	expiriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uwdt",
		Name:      "expiry_interrupts_total",
		Help:      "Expiry interrupts taken.",
	}, []string{"device"})
	enabledGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "uwdt",
		Name:      "enabled",
		Help:      "Whether the hardware countdown is armed.",
	}, []string{"device"})
	periodGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "uwdt",
		Name:      "timeout_seconds",
		Help:      "Currently applied watchdog period.",
	}, []string{"device"})
)

func init() {
	prometheus.MustRegister(pingsTotal, expiriesTotal, enabledGauge, periodGauge)
}

// StartMetrics exposes the watchdog metrics over HTTP on addr.
func StartMetrics(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not listen: %v", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		err := http.Serve(l, mux)
		if err != nil {
			log.Error(err)
		}
	}()
	return nil
}
