package nets

import (
	"context"
	"net"
	"net/netip"
	"strings"
)

// IsLocalAddr reports whether addr, with or without port, is on this machine or a private network.
// Local model servers such as ollama are reached directly, never through the proxy.
type IsLocalAddr func(ctx context.Context, addr string) bool

func (Module) IsLocalAddr() IsLocalAddr {
	return func(ctx context.Context, addr string) bool {
		host := addr
		if h, _, err := net.SplitHostPort(addr); err == nil {
			host = h
		}
		if host == "localhost" || strings.HasSuffix(host, ".localhost") {
			return true
		}
		if ip, err := netip.ParseAddr(host); err == nil {
			return isLocalIP(ip)
		}
		ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			// unresolvable here, let the proxy try
			return false
		}
		for _, ip := range ips {
			if isLocalIP(ip) {
				return true
			}
		}
		return false
	}
}

func isLocalIP(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
