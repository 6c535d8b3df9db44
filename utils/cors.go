package utils

import (
	"net"
	"net/url"
	"strings"
)

// privateNetworks covers RFC1918, loopback, and link-local ranges. A
// personal calendar serves a browser on the same machine or LAN; public
// internet origins are never trusted.
var privateNetworks = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, network)
	}
	return nets
}()

// IsAllowedOrigin checks whether an Origin header value should be trusted.
// Localhost, private/link-local IPs, .local hostnames, and single-label LAN
// hostnames are allowed.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()
	if hostname == "localhost" || strings.HasSuffix(hostname, ".local") {
		return true
	}
	// Single-label hostnames (no dots) are LAN names.
	if !strings.Contains(hostname, ".") {
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		for _, network := range privateNetworks {
			if network.Contains(ip) {
				return true
			}
		}
	}
	return false
}
