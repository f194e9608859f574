//go:build windows

package rtl

// openByFd is unavailable on platforms without POSIX file descriptors.
func openByFd(fd int) (*gousbDevice, error) {
	return nil, newErr(KindNotSupported, "fd selector is not supported on this platform")
}
