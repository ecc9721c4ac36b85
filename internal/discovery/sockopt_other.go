//go:build !unix

package discovery

import "syscall"

// The runtime already enables broadcast on UDP sockets on these platforms.
func broadcastControl(network, address string, c syscall.RawConn) error {
	return nil
}

func reuseControl(network, address string, c syscall.RawConn) error {
	return nil
}
