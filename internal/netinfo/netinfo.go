// Package netinfo determines the local device's IPv4 address and subnet
// mask. It is the scan engine's only source of network identity: when it
// cannot produce an address, the engine aborts before issuing any probes.
package netinfo

import (
	"errors"
	"fmt"
	"net"
)

// Sentinel errors distinguishing "cannot enumerate interfaces at all" from
// "interfaces exist but none carries a usable IPv4 address".
var (
	ErrUnavailable = errors.New("netinfo: interface enumeration unavailable")
	ErrNoAddress   = errors.New("netinfo: no usable IPv4 address")
)

// Info describes the device's active IPv4 configuration.
type Info struct {
	Interface string // interface name, e.g. "eth0"
	IP        string // dotted-quad IPv4 address
	Mask      string // dotted-quad subnet mask, may be empty
}

// Provider supplies the local device's network info. The concrete Detector
// reads the OS interface table; tests substitute fixed values.
type Provider interface {
	Current() (*Info, error)
}

// Compile-time interface guard.
var _ Provider = (*Detector)(nil)

// Detector resolves the device address from the OS interface table.
type Detector struct {
	// interfaces is swappable for tests; defaults to net.Interfaces.
	interfaces func() ([]net.Interface, error)
}

// NewDetector returns a Detector backed by the real interface table.
func NewDetector() *Detector {
	return &Detector{interfaces: net.Interfaces}
}

// Current returns the first up, non-loopback interface carrying a private
// IPv4 address, falling back to any up non-loopback IPv4 interface. It
// returns ErrUnavailable when the interface table cannot be read and
// ErrNoAddress when no candidate interface exists.
func (d *Detector) Current() (*Info, error) {
	ifaces, err := d.interfaces()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var fallback *Info
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || ip4.IsUnspecified() {
				continue
			}

			info := &Info{
				Interface: iface.Name,
				IP:        ip4.String(),
				Mask:      maskString(ipnet.Mask),
			}
			if ip4.IsPrivate() {
				return info, nil
			}
			if fallback == nil {
				fallback = info
			}
		}
	}

	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrNoAddress
}

// maskString renders a 4-byte mask as dotted-quad; other lengths yield "".
func maskString(mask net.IPMask) string {
	m4 := net.IP(mask).To4()
	if m4 == nil {
		return ""
	}
	return m4.String()
}

// Static is a Provider returning fixed values, for tests and manual
// configuration overrides.
type Static struct {
	Info *Info
	Err  error
}

// Current implements Provider.
func (s Static) Current() (*Info, error) {
	return s.Info, s.Err
}
