package relay

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// listenNonblocking creates a non-blocking, SO_REUSEPORT TCP listening
// socket bound to host:port. family is unix.AF_INET or unix.AF_INET6.
func listenNonblocking(family int, host string, port int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return -1, fmt.Errorf("relay: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("relay: SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("relay: SO_REUSEPORT: %w", err)
	}

	sa, err := sockaddrFor(family, host, port)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("relay: bind %s:%d: %w", host, port, err)
	}
	if err := unix.Listen(fd, 256); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("relay: listen: %w", err)
	}
	return fd, nil
}

func sockaddrFor(family int, host string, port int) (unix.Sockaddr, error) {
	ip := net.ParseIP(host)
	if family == unix.AF_INET6 {
		sa := &unix.SockaddrInet6{Port: port}
		if ip != nil {
			copy(sa.Addr[:], ip.To16())
		}
		return sa, nil
	}
	sa := &unix.SockaddrInet4{Port: port}
	if ip != nil {
		v4 := ip.To4()
		if v4 == nil {
			return nil, fmt.Errorf("relay: %s is not an IPv4 address", host)
		}
		copy(sa.Addr[:], v4)
	}
	return sa, nil
}

// familyForHost picks AF_INET6 for "::"  and any address containing ':',
// AF_INET otherwise. The SOCKS5 listener defaults to "::" per spec §6.
func familyForHost(host string) int {
	ip := net.ParseIP(host)
	if ip != nil && ip.To4() == nil {
		return unix.AF_INET6
	}
	for _, c := range host {
		if c == ':' {
			return unix.AF_INET6
		}
	}
	return unix.AF_INET
}

// socketConnect creates a non-blocking socket and issues connect(2) toward
// ip:port, returning immediately with EINPROGRESS expected.
func socketConnect(ip net.IP, port int) (int, error) {
	family := unix.AF_INET
	if ip.To4() == nil {
		family = unix.AF_INET6
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return -1, err
	}
	var sa unix.Sockaddr
	if family == unix.AF_INET6 {
		s6 := &unix.SockaddrInet6{Port: port}
		copy(s6.Addr[:], ip.To16())
		sa = s6
	} else {
		s4 := &unix.SockaddrInet4{Port: port}
		copy(s4.Addr[:], ip.To4())
		sa = s4
	}
	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// socketError reads SO_ERROR off fd, returning nil when the pending
// connect succeeded.
func socketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

// localAddr returns the local (bound) address of fd, used to fill
// BND.ADDR/BND.PORT in the CONNECT success reply.
func localAddr(fd int) (net.IP, uint16, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, 0, err
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(a.Addr[:]), uint16(a.Port), nil
	case *unix.SockaddrInet6:
		return net.IP(a.Addr[:]), uint16(a.Port), nil
	default:
		return nil, 0, fmt.Errorf("relay: unsupported sockaddr type %T", sa)
	}
}

func peerAddr(fd int) net.Addr {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return nil
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}
