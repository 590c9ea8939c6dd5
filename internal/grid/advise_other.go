//go:build !linux

package grid

import "os"

func adviseSequential(*os.File) {}
