//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package multicast

import "syscall"

func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
