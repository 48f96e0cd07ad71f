// Package identity derives per-device fingerprints from client network addresses.
package identity

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"
)

// Normalize maps a raw remote address to a device fingerprint.
//
// IPv4 addresses (anything without a colon) are returned unchanged,
// surrounding whitespace included. IPv6
// addresses collapse to their /64 network prefix rendered as four
// zero-padded lowercase groups, so privacy-extension rotations of the
// interface identifier keep the same fingerprint:
//
//	2601:19b:1082:76b0:1bf0:57bd:2cdf:5156 -> 2601:019b:1082:76b0
//
// Blank or unparsable input reports ok == false.
func Normalize(address string) (fingerprint string, ok bool) {
	if strings.TrimSpace(address) == "" {
		return "", false
	}

	if !strings.Contains(address, ":") {
		return address, true
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(address))
	if err != nil || !addr.Is6() {
		return "", false
	}

	raw := addr.WithZone("").As16()
	prefix := binary.BigEndian.Uint64(raw[:8])

	return fmt.Sprintf("%04x:%04x:%04x:%04x",
		uint16(prefix>>48), uint16(prefix>>32), uint16(prefix>>16), uint16(prefix)), true
}
