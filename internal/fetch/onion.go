package fetch

import (
	"encoding/base32"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// OnionSuffix is the top-level domain of Tor onion services.
const OnionSuffix = ".onion"

// onionVersion is the only onion service version the Tor network serves.
const onionVersion = 0x03

// onionV3Pattern matches a v3 host: 56 base32 characters and the suffix.
var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

var checksumPrefix = []byte(".onion checksum")

// IsOnionURL reports whether rawURL points at an onion service. Such URLs
// can only be reached through Tor.
func IsOnionURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return IsOnionHost(u.Hostname())
}

// IsOnionHost reports whether host is in the .onion domain, including
// subdomains of an onion service.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), OnionSuffix)
}

// ValidOnionHost reports whether host is a well-formed v3 onion address
// with a matching checksum. A subdomain is allowed in front of the
// address.
//
// The address is base32(pubkey || checksum || version), where checksum is
// the first two bytes of SHA3-256(".onion checksum" || pubkey || version).
func ValidOnionHost(host string) bool {
	host = strings.ToLower(host)
	if i := strings.LastIndexByte(strings.TrimSuffix(host, OnionSuffix), '.'); i >= 0 {
		host = host[i+1:]
	}
	if !onionV3Pattern.MatchString(host) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(host, OnionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionVersion {
		return false
	}

	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)
	sum := sha3.Sum256(data)
	return checksum[0] == sum[0] && checksum[1] == sum[1]
}
