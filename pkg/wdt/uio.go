// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

const uioClassDir = "/sys/class/uio"

// UioLine is one hardware interrupt delivered through a UIO device.
// Wait blocks on the event counter; Mask and Unmask write the irqcontrol
// word, the user space equivalents of disable_irq_nosync/enable_irq.
type UioLine struct {
	f *os.File
}

func OpenUioLine(devPath string) (*UioLine, error) {
	f, err := os.OpenFile(devPath, os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	return &UioLine{f}, nil
}

// Wait blocks until the next interrupt and returns the total event count.
func (l *UioLine) Wait() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(l.f, buf[:]); err != nil {
		return 0, err
	}
	return NativeEndian().Uint32(buf[:]), nil
}

func (l *UioLine) irqcontrol(v uint32) error {
	var buf [4]byte
	NativeEndian().PutUint32(buf[:], v)
	_, err := l.f.Write(buf[:])
	return err
}

func (l *UioLine) Mask() error {
	return l.irqcontrol(0)
}

func (l *UioLine) Unmask() error {
	return l.irqcontrol(1)
}

func (l *UioLine) Close() error {
	return l.f.Close()
}

// FindUio resolves the /dev path of the UIO node carrying the given name
// by scanning the UIO class directory.
func FindUio(fs afero.Fs, name string) (string, error) {
	entries, err := afero.ReadDir(fs, uioClassDir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		b, err := afero.ReadFile(fs, path.Join(uioClassDir, e.Name(), "name"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(b)) == name {
			return fmt.Sprintf("/dev/%s", e.Name()), nil
		}
	}
	return "", unix.ENOENT
}
