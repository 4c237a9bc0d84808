// Package validator rejects backend endpoint URLs that would enable
// server-side request forgery or otherwise point at private infrastructure.
package validator

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
)

// blockedPorts are well-known internal service ports an operator should
// never be able to register as an inference backend.
var blockedPorts = map[int]bool{
	22:    true,
	23:    true,
	25:    true,
	110:   true,
	143:   true,
	3306:  true,
	5432:  true,
	6379:  true,
	27017: true,
}

// blockedCIDRs are the private, loopback, and link-local ranges a backend
// endpoint must not resolve into.
var blockedCIDRs = mustParseCIDRs(
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
			panic("validator: invalid built-in CIDR " + c)
		}
		nets = append(nets, n)
	}
	return nets
}

var blockedHostSuffixes = []string{".local", ".internal", ".lan", ".corp"}

// Resolver is satisfied by net.Resolver; it is abstracted so tests can
// supply a deterministic fake.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Validator checks candidate endpoint URLs for SSRF safety.
type Validator struct {
	resolver Resolver
}

// New returns a Validator using the standard library's DNS resolver.
func New() *Validator {
	return &Validator{resolver: net.DefaultResolver}
}

// NewWithResolver returns a Validator using a caller-supplied resolver,
// primarily for tests.
func NewWithResolver(r Resolver) *Validator {
	return &Validator{resolver: r}
}

// Validate rejects rawURL if it is structurally invalid, uses a disallowed
// scheme or port, names a blocked host, or resolves to a blocked IP range.
// DNS resolution is attempted on a best-effort basis: if it fails for
// reasons other than the host being blocked, literal and suffix checks
// alone are sufficient to satisfy the contract.
func (v *Validator) Validate(ctx context.Context, rawURL string) *apierrors.Error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return apierrors.New(apierrors.KindInvalidURL, "endpoint_url is not a valid absolute URL")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return apierrors.New(apierrors.KindInvalidURL, "endpoint_url scheme must be http or https")
	}

	host := u.Hostname()
	if host == "" {
		return apierrors.New(apierrors.KindInvalidURL, "endpoint_url is missing a host")
	}

	if portErr := v.checkPort(u); portErr != nil {
		return portErr
	}

	if hostErr := v.checkHostLiteral(host); hostErr != nil {
		return hostErr
	}

	// If the host is itself an IP literal, check it directly.
	if ip := net.ParseIP(host); ip != nil {
		if blockedIP(ip) {
			return apierrors.New(apierrors.KindInvalidURL, "endpoint_url resolves to a blocked IP range")
		}
		return nil
	}

	// Best-effort DNS resolution of the hostname.
	addrs, err := v.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		if blockedIP(addr.IP) {
			return apierrors.New(apierrors.KindInvalidURL, "endpoint_url resolves to a blocked IP range")
		}
	}
	return nil
}

func (v *Validator) checkPort(u *url.URL) *apierrors.Error {
	portStr := u.Port()
	if portStr == "" {
		return nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return apierrors.New(apierrors.KindInvalidURL, "endpoint_url has a malformed port")
	}
	if blockedPorts[port] {
		return apierrors.New(apierrors.KindInvalidURL, "endpoint_url uses a blocked port")
	}
	return nil
}

func (v *Validator) checkHostLiteral(host string) *apierrors.Error {
	lower := strings.ToLower(host)
	if lower == "localhost" {
		return apierrors.New(apierrors.KindInvalidURL, "endpoint_url must not target localhost")
	}
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return apierrors.New(apierrors.KindInvalidURL, "endpoint_url host suffix is blocked")
		}
	}
	return nil
}

func blockedIP(ip net.IP) bool {
	for _, n := range blockedCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
