// Package privacy masks personal data before it reaches logs.
package privacy

import (
	"fmt"
	"net"
	"strings"
)

// AnonymizeIP truncates an address to its network prefix: /24 for IPv4,
// /48 for IPv6. Returns "invalid" for unparseable input and "unknown" for
// empty input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

// RemoteIP extracts the host from an http.Request RemoteAddr and anonymizes it.
func RemoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return AnonymizeIP(host)
}

// visibleDigits is how many trailing characters of a number stay readable.
const visibleDigits = 3

// MaskURN hides all but the last digits of a contact URN, keeping the
// scheme: "tel:+27831234567" becomes "tel:***********567".
func MaskURN(urn string) string {
	scheme, path, ok := strings.Cut(urn, ":")
	if !ok {
		scheme, path = "", urn
	}
	if len(path) <= visibleDigits {
		path = strings.Repeat("*", len(path))
	} else {
		path = strings.Repeat("*", len(path)-visibleDigits) + path[len(path)-visibleDigits:]
	}
	if scheme == "" {
		return path
	}
	return scheme + ":" + path
}

// MaskURNs applies MaskURN to every entry.
func MaskURNs(urns []string) []string {
	out := make([]string, len(urns))
	for i, u := range urns {
		out[i] = MaskURN(u)
	}
	return out
}
