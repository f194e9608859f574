//go:build !windows

package rtl

import "golang.org/x/sys/unix"

// openByFd resolves a Selector built with ByFd. On Unix we can at least
// validate the descriptor via fstat before reporting that gousb has no
// "wrap an inherited fd as a USB device" entry point (unlike libusb's
// libusb_wrap_sys_device, which the original driver relies on for this
// selector on Android).
func openByFd(fd int) (*gousbDevice, error) {
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return nil, wrapErr(KindInvalid, "fd selector: not an open file descriptor", err)
	}
	return nil, newErr(KindNotSupported, "fd selector: gousb has no wrap-sys-device equivalent")
}
