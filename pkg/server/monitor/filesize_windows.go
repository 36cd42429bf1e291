//go:build windows

package monitor

import (
	"os"
	"syscall"
	"unsafe"
)

var getCompressedFileSize = syscall.NewLazyDLL("kernel32.dll").NewProc("GetCompressedFileSizeW")

// allocatedSize returns the bytes allocated to a file as reported by
// GetCompressedFileSizeW.
func allocatedSize(path string, info os.FileInfo) (int64, error) {
	p, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return info.Size(), nil
	}

	var high uint32
	low, _, _ := getCompressedFileSize.Call(uintptr(unsafe.Pointer(p)), uintptr(unsafe.Pointer(&high)))
	if low == 0xFFFFFFFF {
		return info.Size(), nil
	}
	return int64(high)<<32 | int64(low), nil
}
