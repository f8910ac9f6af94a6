package uri

import (
	"strings"
	"unicode/utf8"

	"github.com/kbukum/httpkit/errors"
)

const upperhex = "0123456789ABCDEF"

// pchar from RFC 3986 without '+', which some servers decode as a space.
const pchar = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"-._~!$'()*,;=:@"

var (
	allowedPath  = newCharset(pchar + "/&")
	allowedQuery = newCharset(strings.ReplaceAll(pchar, "=", "") + "/")
)

type charset [256]bool

func newCharset(chars string) *charset {
	var cs charset
	for i := 0; i < len(chars); i++ {
		cs[chars[i]] = true
	}
	return &cs
}

// encode percent-encodes every UTF-8 byte of s that is not in allowed.
func encode(s string, allowed *charset) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !allowed[s[i]] {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if allowed[c] {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&0x0F])
	}
	return sb.String()
}

// decode reverses percent-encoding. The input must be ASCII and the decoded
// bytes must form valid UTF-8.
func decode(encoded string) (string, error) {
	if !strings.Contains(encoded, "%") {
		for i := 0; i < len(encoded); i++ {
			if encoded[i] >= utf8.RuneSelf {
				return "", errors.InvalidArgument("string must be ASCII: %q", encoded)
			}
		}
		return encoded, nil
	}

	out := make([]byte, 0, len(encoded))
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		switch {
		case c >= utf8.RuneSelf:
			return "", errors.InvalidArgument("string must be ASCII: %q", encoded)
		case c == '%':
			if i+2 >= len(encoded) {
				return "", errors.InvalidArgument("percent encoded value is truncated: %q", encoded)
			}
			hi, ok1 := unhex(encoded[i+1])
			lo, ok2 := unhex(encoded[i+2])
			if !ok1 || !ok2 {
				return "", errors.InvalidArgument("percent encoded value is not a valid hex string: %q", encoded[i:i+3])
			}
			out = append(out, hi<<4|lo)
			i += 2
		default:
			out = append(out, c)
		}
	}
	if !utf8.Valid(out) {
		return "", errors.InvalidArgument("input does not represent a proper UTF-8 encoded string: %q", encoded)
	}
	return string(out), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// parseQuery splits a raw query into decoded parameters, keeping order.
// Pairs without '=' become flag parameters.
func parseQuery(raw string) ([]param, error) {
	var params []param
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, value, hasValue := strings.Cut(pair, "=")
		dn, err := decode(name)
		if err != nil {
			return nil, err
		}
		p := param{name: dn, flag: !hasValue}
		if hasValue {
			if p.value, err = decode(value); err != nil {
				return nil, err
			}
		}
		params = append(params, p)
	}
	return params, nil
}
