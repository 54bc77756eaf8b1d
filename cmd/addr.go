package cmd

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// resolveListenAddr picks the serve listen address. Precedence: positional
// argument, -addr flag, then the configured default. Shorthands are
// expanded by normalizeAddr.
func resolveListenAddr(args []string, configured string) (string, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", "", "listen address (host:port, :port or a bare port)")

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		*addr = args[0]
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("parsing serve flags: %w", err)
	}

	candidate := *addr
	if candidate == "" {
		candidate = configured
	}

	normalized, err := normalizeAddr(candidate)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", candidate, err)
	}
	return normalized, nil
}

// normalizeAddr expands the accepted address shorthands to host:port form
// and validates the parts. A bare port number binds all interfaces.
func normalizeAddr(addr string) (string, error) {
	if strings.TrimSpace(addr) == "" {
		return "", errors.New("address cannot be empty")
	}
	if !strings.Contains(addr, ":") {
		if _, err := strconv.Atoi(addr); err != nil {
			return "", errors.New("must be host:port, :port or a bare port number")
		}
		addr = ":" + addr
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("must be in host:port format: %w", err)
	}

	n, err := strconv.Atoi(port)
	if err != nil {
		return "", fmt.Errorf("port must be numeric: %w", err)
	}
	if n < 0 || n > 65535 {
		return "", fmt.Errorf("port must be 0-65535 (0 picks a free port), got %d", n)
	}

	if host != "" && net.ParseIP(host) == nil {
		// Hostnames pass through, but reject anything that cannot appear
		// in a DNS name.
		if strings.ContainsAny(host, " \t\n/") {
			return "", fmt.Errorf("invalid host %q", host)
		}
	}

	return net.JoinHostPort(host, port), nil
}
