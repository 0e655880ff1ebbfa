//go:build !windows
// +build !windows

package common

import (
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile memory maps f read-only for its full size. The returned slice
// is valid until MunmapFile is called; callers must not hold it past that.
func MmapFile(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return data, nil
}

// MunmapFile unmaps memory obtained from MmapFile. Safe to call once.
func MunmapFile(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Munmap(data)
}
