package types

import (
	"regexp"
	"strings"
)

var (
	bareCode     = regexp.MustCompile(`^\d{6}$`)
	prefixedCode = regexp.MustCompile(`^(SH|SZ)\d{6}$`)
)

// NormalizeSymbol maps bare and SH/SZ-prefixed A-share codes to EXCHANGE:CODE.
// Anything else is upper-cased and returned as is.
func NormalizeSymbol(input string) string {
	raw := strings.ToUpper(strings.TrimSpace(input))
	if raw == "" || strings.Contains(raw, ":") {
		return raw
	}
	if bareCode.MatchString(raw) {
		if strings.HasPrefix(raw, "6") {
			return "SSE:" + raw
		}
		return "SZSE:" + raw
	}
	if prefixedCode.MatchString(raw) {
		code := raw[2:]
		if strings.HasPrefix(raw, "SH") {
			return "SSE:" + code
		}
		return "SZSE:" + code
	}
	return raw
}

// SymbolCode strips the exchange prefix, if any.
func SymbolCode(symbol string) string {
	s := strings.ToUpper(symbol)
	if i := strings.Index(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}
