//go:build linux

package batch

import "golang.org/x/sys/unix"

// systemMemoryBytes returns total system RAM, or 0 when it cannot be read
// (which disables the memory budget check).
func systemMemoryBytes() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return uint64(info.Totalram) * uint64(info.Unit)
}
