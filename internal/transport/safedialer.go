package transport

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// privateCIDRs are the RFC1918 / link-local / metadata ranges a driver
// pointed at an untrusted --url should not silently follow into, unless the
// operator opts in.
var privateCIDRs = mustParseCIDRs([]string{
	"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16",
	"169.254.0.0/16", "::1/128", "fc00::/7", "fe80::/10",
	"169.254.169.254/32", // cloud metadata endpoint
})

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err == nil {
			nets = append(nets, n)
		}
	}
	return nets
}

func isIPBlocked(ip net.IP) bool {
	for _, n := range privateCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// newSafeDialer returns a DialContext that resolves the host then refuses to
// connect into a private/link-local/metadata range, unless allowPrivate is
// set (e.g. for tests against a local mock server).
func newSafeDialer(allowPrivate bool) func(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
		if err != nil {
			return nil, err
		}
		if !allowPrivate {
			for _, ip := range ips {
				if isIPBlocked(ip) {
					return nil, NewClientError("refusing to connect to private/metadata address: " + ip.String())
				}
			}
		}
		return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
	}
}

// buildCheckRedirect implements the redirect policy §10/§12 supplements:
// deny, same_origin, or allowlist_only, bounded by MaxRedirects.
func buildCheckRedirect(policy RedirectPolicy) func(req *http.Request, via []*http.Request) error {
	max := policy.MaxRedirects
	if max <= 0 {
		max = 3
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return NewClientError("stopped after too many redirects")
		}
		switch policy.Mode {
		case "deny":
			return NewClientError("redirects are disabled")
		case "allowlist_only":
			for _, allowed := range policy.Allowlist {
				if sameHost(req.URL, allowed) {
					return nil
				}
			}
			return NewClientError("redirect target not in allowlist: " + req.URL.Host)
		default: // same_origin
			if req.URL.Host != via[0].URL.Host {
				return NewClientError("redirect left original origin: " + req.URL.Host)
			}
			return nil
		}
	}
}

func sameHost(u *url.URL, allowed string) bool {
	return strings.EqualFold(u.Host, allowed)
}
