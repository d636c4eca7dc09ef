// Package urlguard implements a pure SSRF-defense predicate checked before
// every outbound HTTP call made by a source adapter.
package urlguard

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
)

var privateNetworks = mustParseCIDRs(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("urlguard: invalid literal CIDR %q: %v", c, err))
		}
		nets = append(nets, n)
	}
	return nets
}

// Allow checks rawURL against the SSRF-defense predicate: only http/https
// schemes, no localhost, and no literal IP in a loopback, private,
// link-local, or unique-local range.
//
// Resolution is literal: a hostname that isn't itself an IP literal is not
// DNS-resolved here, so a non-IP hostname that resolves to a private
// address at request time is not caught by this check.
func Allow(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return newssparkerrors.NewUrlNotAllowed(rawURL, fmt.Sprintf("unparseable url: %v", err))
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return newssparkerrors.NewUrlNotAllowed(rawURL, fmt.Sprintf("disallowed scheme %q", u.Scheme))
	}

	host := u.Hostname()
	if host == "" {
		return newssparkerrors.NewUrlNotAllowed(rawURL, "url is missing a hostname")
	}

	lowerHost := strings.ToLower(host)
	if lowerHost == "localhost" || lowerHost == "localhost.localdomain" {
		return newssparkerrors.NewUrlNotAllowed(rawURL, "localhost is not an allowed host")
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Non-IP hostname: passes the literal check.
		return nil
	}
	for _, n := range privateNetworks {
		if n.Contains(ip) {
			return newssparkerrors.NewUrlNotAllowed(rawURL, fmt.Sprintf("address %s is in disallowed range %s", ip, n))
		}
	}
	return nil
}
