package vellum

import (
	"context"
	"net"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// reuseportListen opens a TCP listener with SO_REUSEPORT set before bind,
// letting multiple processes/goroutine groups share one port (SPEC_FULL.md
// §6 "Reuseport"). No pack dependency wraps SO_REUSEPORT (DESIGN.md); the
// socket option itself is a three-line syscall, so it's set directly
// through a net.ListenConfig.Control hook rather than a hand-rolled accept
// loop.
func reuseportListen(addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(context.Background(), "tcp", addr)
}

// socketListen builds the server's TCP listener honoring both
// Config.Reuseport and Config.BacklogSize (spec.md §6 "backlogSize").
// net.ListenConfig.Control only ever runs before bind and Go always
// calls listen(2) itself afterward with its own default backlog, so
// there is no stdlib hook to override the value the kernel queues
// pending connections to; a non-default backlog is therefore built by
// hand with golang.org/x/sys/unix (the same package reuseportListen
// already depends on) and handed back to the standard library via
// net.FileListener. The cheap paths — no custom backlog at all — still
// go through net.Listen/reuseportListen above.
func socketListen(addr string, backlog int, reuseport bool) (net.Listener, error) {
	if backlog <= 0 {
		if reuseport {
			return reuseportListen(addr)
		}
		return net.Listen("tcp", addr)
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "vellum: resolve listen address")
	}

	domain := unix.AF_INET
	if tcpAddr.IP != nil && tcpAddr.IP.To4() == nil {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errors.Wrap(err, "vellum: socket")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "vellum: SO_REUSEADDR")
	}
	if reuseport {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			unix.Close(fd)
			return nil, errors.Wrap(err, "vellum: SO_REUSEPORT")
		}
	}

	if domain == unix.AF_INET6 {
		sa := &unix.SockaddrInet6{Port: tcpAddr.Port}
		if tcpAddr.IP != nil {
			copy(sa.Addr[:], tcpAddr.IP.To16())
		}
		err = unix.Bind(fd, sa)
	} else {
		sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
		if ip4 := tcpAddr.IP.To4(); ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		err = unix.Bind(fd, sa)
	}
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "vellum: bind")
	}

	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "vellum: listen")
	}

	f := os.NewFile(uintptr(fd), "vellum-listener")
	ln, err := net.FileListener(f)
	f.Close()
	if err != nil {
		return nil, errors.Wrap(err, "vellum: file listener")
	}
	return ln, nil
}
