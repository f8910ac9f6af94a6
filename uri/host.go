package uri

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"

	"github.com/kbukum/httpkit/errors"
)

// normalizeHost brackets IPv6 literals and converts internationalized names
// to their ASCII form.
func normalizeHost(host string) (string, error) {
	if strings.HasPrefix(host, "[") {
		return "", errors.InvalidArgument("host starts with a bracket")
	}
	if strings.HasSuffix(host, "]") {
		return "", errors.InvalidArgument("host ends with a bracket")
	}
	if strings.Contains(host, ":") {
		return bracketIPv6(host), nil
	}
	if !isASCII(host) {
		ascii, err := idna.Punycode.ToASCII(host)
		if err != nil {
			return "", errors.InvalidArgument("invalid internationalized host %q", host).WithCause(err)
		}
		return ascii, nil
	}
	return host, nil
}

// bracketIPv6 brackets an IPv6 literal, escaping the '%' that introduces a
// zone identifier.
func bracketIPv6(host string) string {
	if addr, zone, ok := strings.Cut(host, "%"); ok {
		return "[" + addr + "%25" + url.PathEscape(zone) + "]"
	}
	return "[" + host + "]"
}

// splitHostPort parses "host", "host:port", "[v6]", "[v6]:port" and bare
// IPv6 literals. The returned host is bracketed when it is an IPv6 literal;
// port is -1 when absent.
func splitHostPort(hostPort string) (string, int, error) {
	if hostPort == "" {
		return "", 0, errors.InvalidArgument("host and port is empty")
	}

	if strings.HasPrefix(hostPort, "[") {
		end := strings.IndexByte(hostPort, ']')
		if end < 0 {
			return "", 0, errors.InvalidArgument("invalid bracketed host/port: %s", hostPort)
		}
		host := hostPort[:end+1]
		rest := hostPort[end+1:]
		if rest == "" {
			return host, -1, nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", 0, errors.InvalidArgument("only a colon may follow a close bracket: %s", hostPort)
		}
		port, err := parsePort(rest[1:])
		return host, port, err
	}

	switch strings.Count(hostPort, ":") {
	case 0:
		h, err := normalizeHost(hostPort)
		return h, -1, err
	case 1:
		host, rawPort, _ := strings.Cut(hostPort, ":")
		port, err := parsePort(rawPort)
		if err != nil {
			return "", 0, err
		}
		h, err := normalizeHost(host)
		return h, port, err
	default:
		// bare IPv6 literal, no port
		return bracketIPv6(hostPort), -1, nil
	}
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.InvalidArgument("port is not a number: %q", s)
	}
	if err := checkPort(port); err != nil {
		return 0, err
	}
	return port, nil
}

func checkPort(port int) error {
	if port < 1 || port > 65535 {
		return errors.InvalidArgument("port must be in the range 1-65535")
	}
	return nil
}

func defaultPortFor(scheme string) int {
	switch strings.ToLower(scheme) {
	case "http":
		return 80
	case "https":
		return 443
	}
	return -1
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
