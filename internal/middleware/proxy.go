package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// DefaultTrustedProxies covers loopback and the private ranges Docker and
// most LANs use.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
	"fd00::/8",
}

// TrustedProxies configures Echo to trust X-Forwarded-For and X-Real-IP only
// when the peer is inside trustedCIDRs. Without this, c.RealIP() behind a
// reverse proxy returns the proxy's IP and per-IP rate limiting throttles
// every client as one.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	e.IPExtractor = buildIPExtractor(trustedCIDRs)
}

func buildIPExtractor(trustedCIDRs []string) echo.IPExtractor {
	var trusted []*net.IPNet
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR", slog.String("cidr", cidr))
			continue
		}
		trusted = append(trusted, network)
	}

	return func(req *http.Request) string {
		directIP := extractDirectIP(req.RemoteAddr)
		if !isTrusted(directIP, trusted) {
			return directIP
		}

		// Walk X-Forwarded-For right to left; the first hop that is not a
		// trusted proxy is the client.
		if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop := strings.TrimSpace(hops[i])
				if hop == "" {
					continue
				}
				if !isTrusted(hop, trusted) || i == 0 {
					return hop
				}
			}
		}

		if realIP := strings.TrimSpace(req.Header.Get(echo.HeaderXRealIP)); realIP != "" {
			return realIP
		}
		return directIP
	}
}

// extractDirectIP extracts the IP address from a "host:port" RemoteAddr string.
func extractDirectIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// isTrusted reports whether ipStr falls within any of the trusted networks.
func isTrusted(ipStr string, trusted []*net.IPNet) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
