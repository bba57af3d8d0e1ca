package socks5

import (
	"context"
	"errors"
	"net"
	"sort"
)

// Resolver resolves a SOCKS5 DOMAIN (ATYP=0x03) target to candidate IP
// addresses. It exists as an interface so tests can substitute a
// deterministic double instead of hitting the platform resolver.
type Resolver interface {
	ResolveHost(ctx context.Context, host string) ([]net.IP, error)
}

// DefaultResolver resolves via the platform resolver with SOCK_STREAM,
// per spec §4.5: "For ATYP=0x03 DOMAIN, name resolution uses the platform
// resolver with SOCK_STREAM."
type DefaultResolver struct{}

// ResolveHost looks up host using net.DefaultResolver.
func (DefaultResolver) ResolveHost(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, classifyResolveErr(err)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// ResolveErr wraps a resolution failure with the classification needed to
// pick a SOCKS5 reply code (spec §4.5: "Errors map: name-not-found -> reply
// 0x04, family-not-supported -> reply 0x08, other -> 0x01").
type ResolveErr struct {
	NotFound          bool
	FamilyUnsupported bool
	Err               error
}

func (e *ResolveErr) Error() string { return "socks5: resolve: " + e.Err.Error() }
func (e *ResolveErr) Unwrap() error { return e.Err }

func classifyResolveErr(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return &ResolveErr{NotFound: true, Err: err}
	}
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return &ResolveErr{FamilyUnsupported: true, Err: err}
	}
	return &ResolveErr{Err: err}
}

// OrderPreferred sorts resolved addresses IPv6-first, then IPv4, preserving
// relative order within each family — the iteration order spec §4.5's
// CONNECTING state requires: "iterate through resolved addresses preferring
// IPv6 first, then IPv4."
func OrderPreferred(ips []net.IP) []net.IP {
	out := make([]net.IP, len(ips))
	copy(out, ips)
	sort.SliceStable(out, func(i, j int) bool {
		return isIPv6(out[i]) && !isIPv6(out[j])
	})
	return out
}

func isIPv6(ip net.IP) bool {
	return ip.To4() == nil && ip.To16() != nil
}
