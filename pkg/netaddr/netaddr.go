// Package netaddr provides IPv4 address arithmetic for subnet scanning:
// conversions between dotted-quad text and 32-bit integers, prefix length
// derivation from subnet masks, and usable host range enumeration.
package netaddr

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// MaxHosts bounds the number of candidate addresses a single scan may
// enumerate. Ranges wider than this are narrowed to a /24.
const MaxHosts = 254

// fallbackPrefix is the prefix a too-wide range is narrowed to.
const fallbackPrefix = 24

// ParseIPv4 converts a dotted-quad string to its 32-bit big-endian value.
// Unlike net.ParseIP it rejects anything that is not exactly four base-10
// octets in [0,255].
func ParseIPv4(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("invalid IPv4 address %q: want 4 octets, got %d", s, len(parts))
	}

	var v uint32
	for _, part := range parts {
		octet, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid IPv4 address %q: bad octet %q", s, part)
		}
		v = v<<8 | uint32(octet)
	}
	return v, nil
}

// FormatIPv4 converts a 32-bit value back to dotted-quad form. It is the
// exact inverse of ParseIPv4 for every uint32.
func FormatIPv4(v uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", v>>24&0xff, v>>16&0xff, v>>8&0xff, v&0xff)
}

// PrefixLength returns the number of set bits in a dotted-quad subnet mask.
// The count is best-effort: bit contiguity is not validated, and octets that
// fail to parse contribute zero. Result is in [0,32].
func PrefixLength(mask string) int {
	var length int
	for _, part := range strings.Split(mask, ".") {
		octet, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			continue
		}
		length += bits.OnesCount8(uint8(octet))
	}
	return length
}

// HostRange returns the candidate host addresses of the subnet containing
// ip, in ascending order. Emitted offsets run from 1 up to (but not
// including) size-2: the network address, the broadcast address, and the
// highest usable address are all excluded. A /24 therefore yields .1
// through .253.
//
// Ranges wider than MaxHosts are narrowed to a /24 around ip. This caps the
// worst-case scan at 254 probes; for subnets genuinely larger than /24 the
// returned range does not cover the whole subnet.
//
// Prefixes 31 and 32 have no candidate addresses and yield an empty slice.
func HostRange(ip string, prefix int) ([]string, error) {
	if prefix < 0 || prefix > 32 {
		return nil, fmt.Errorf("invalid prefix length %d", prefix)
	}

	if prefix < fallbackPrefix {
		if count := uint64(1) << (32 - prefix); count > MaxHosts {
			prefix = fallbackPrefix
		}
	}

	addr, err := ParseIPv4(ip)
	if err != nil {
		return nil, err
	}

	var mask uint32
	if prefix > 0 {
		mask = ^uint32(0) << (32 - prefix)
	}
	base := addr & mask

	count := uint64(1) << (32 - prefix)
	if count <= 2 {
		return []string{}, nil
	}

	hosts := make([]string, 0, count-3)
	for i := uint64(1); i < count-2; i++ {
		hosts = append(hosts, FormatIPv4(base+uint32(i)))
	}
	return hosts, nil
}
