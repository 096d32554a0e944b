// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tegra

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

type hostMem struct {
	mf *os.File
}

func openHostMemory() *hostMem {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0600)
	if err != nil {
		panic(err)
	}
	return &hostMem{f}
}

// The register blocks this library touches are a handful of words, so
// mapping one page per access is cheap enough and keeps the provider
// stateless.
func (m *hostMem) access(address uintptr, prot int, f func(unsafe.Pointer)) {
	ps := uintptr(unix.Getpagesize())
	page := address & ^(ps - 1)
	offset := address - page
	mem, err := unix.Mmap(int(m.mf.Fd()), int64(page), int(ps), prot, unix.MAP_SHARED)
	if err != nil {
		panic(err)
	}
	f(unsafe.Pointer(&mem[offset]))
	if err := unix.Munmap(mem); err != nil {
		panic(err)
	}
}

func (m *hostMem) MustRead32(address uintptr) uint32 {
	var v uint32
	m.access(address, unix.PROT_READ, func(p unsafe.Pointer) {
		v = *(*uint32)(p)
	})
	return v
}

func (m *hostMem) MustRead8(address uintptr) uint8 {
	var v uint8
	m.access(address, unix.PROT_READ, func(p unsafe.Pointer) {
		v = *(*uint8)(p)
	})
	return v
}

func (m *hostMem) MustWrite32(address uintptr, data uint32) {
	m.access(address, unix.PROT_WRITE, func(p unsafe.Pointer) {
		*(*uint32)(p) = data
	})
}

func (m *hostMem) MustWrite8(address uintptr, data uint8) {
	m.access(address, unix.PROT_WRITE, func(p unsafe.Pointer) {
		*(*uint8)(p) = data
	})
}

func (m *hostMem) Close() {
	m.mf.Close()
}
