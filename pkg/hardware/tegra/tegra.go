// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Library for programming the watchdog/timer units of Tegra series SoCs.
//
// The library writes straight to the timer and reset controller registers
// and does not save whatever was there before, so it is in direct
// competition with any kernel driver bound to the same units. Only use it
// on systems where the kernel watchdog driver is not loaded.
//
// Call tegra.Open() and tegra.Close() as the first and last thing
// before and after you want to run any library commands.

package tegra

type Soc struct {
	mem memProvider
}

func Open() *Soc {
	return &Soc{openMem()}
}

func OpenWithMemory(mem memProvider) *Soc {
	return &Soc{mem}
}

func (s *Soc) Close() {
	s.mem.Close()
}

func (s *Soc) Mem() memProvider {
	return s.mem
}
