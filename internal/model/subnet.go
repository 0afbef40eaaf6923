package model

import (
	"fmt"
	"net/netip"
)

// NormalizeCIDR parses a CIDR string into the canonical prefix form used as
// a subnet identity everywhere in the engine: the address is masked down to
// the network portion and the prefix length is clamped to the family width
// (32 for IPv4, 128 for IPv6). Two prefixes describing the same network
// therefore compare equal and hash identically.
func NormalizeCIDR(s string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid CIDR %q: %w", s, err)
	}
	return NormalizePrefix(prefix), nil
}

// NormalizePrefix clamps and masks an already-parsed prefix.
func NormalizePrefix(prefix netip.Prefix) netip.Prefix {
	addr := prefix.Addr().Unmap()
	bits := prefix.Bits()
	if max := addr.BitLen(); bits > max || bits < 0 {
		bits = max
	}
	return netip.PrefixFrom(addr, bits).Masked()
}

// HostPrefix returns the single-address prefix for a host, /32 or /128.
func HostPrefix(addr netip.Addr) netip.Prefix {
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen())
}
