//go:build linux

package grid

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential hints the kernel that the workbook is read front to back.
func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_WILLNEED)
}
