package security

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/appforge/flowcore/pkg/runfail"
)

// Ports that never make sense as user-configured HTTP targets and are
// common pivot points for SSRF.
var blockedPorts = map[int]bool{
	22:    true, // ssh
	23:    true, // telnet
	25:    true, // smtp
	135:   true,
	139:   true,
	445:   true, // smb
	1433:  true, // mssql
	3306:  true, // mysql
	5432:  true, // postgres
	6379:  true, // redis
	9200:  true, // elasticsearch
	11211: true, // memcached
	27017: true, // mongodb
}

// lookupHost is swapped in tests to avoid real DNS.
var lookupHost = net.LookupIP

// GuardURL validates a user-configured outbound URL before any network
// dial. It rejects non-HTTP schemes, blocked ports, and hosts that
// resolve to loopback, link-local, private, or otherwise non-public
// addresses. Every resolved address must be public, one bad A record
// fails the whole URL.
func GuardURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return runfail.Wrap(runfail.CodeValidation, fmt.Errorf("invalid URL %q: %w", raw, err))
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return runfail.New(runfail.CodeValidation, fmt.Sprintf("scheme %q is not allowed", parsed.Scheme))
	}

	host := parsed.Hostname()
	if host == "" {
		return runfail.New(runfail.CodeValidation, "URL has no host")
	}

	if portStr := parsed.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || blockedPorts[port] {
			return runfail.New(runfail.CodeValidation, fmt.Sprintf("port %s is blocked", portStr))
		}
	}

	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".internal") {
		return runfail.New(runfail.CodeValidation, fmt.Sprintf("host %q is not allowed", host))
	}

	if ip := net.ParseIP(host); ip != nil {
		return checkIP(ip)
	}

	ips, err := lookupHost(host)
	if err != nil {
		return runfail.Wrap(runfail.CodeValidation, fmt.Errorf("cannot resolve host %q: %w", host, err))
	}

	for _, ip := range ips {
		if err := checkIP(ip); err != nil {
			return err
		}
	}

	return nil
}

func checkIP(ip net.IP) error {
	switch {
	case ip.IsLoopback(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsPrivate(),
		ip.IsMulticast(),
		ip.IsUnspecified():
		return runfail.New(runfail.CodeValidation, fmt.Sprintf("address %s is not publicly routable", ip))
	}

	// Cloud metadata endpoint, reachable even when not link-local on
	// some virtual networks.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return runfail.New(runfail.CodeValidation, "metadata endpoint is not allowed")
	}

	// IPv6 unique-local fc00::/7.
	if len(ip) == net.IPv6len && (ip[0]&0xfe) == 0xfc {
		return runfail.New(runfail.CodeValidation, fmt.Sprintf("address %s is not publicly routable", ip))
	}

	return nil
}
