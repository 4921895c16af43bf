package credentialexchange

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Encoding selects how query values are escaped before being put on the wire
type Encoding string

const (
	// EncodingLegacy is what existing LDAP identity endpoints have been fed so far,
	// alphanumerics pass through and everything else is %<hex> without zero padding.
	EncodingLegacy Encoding = "legacy"
	// EncodingRFC3986 is standard query escaping
	EncodingRFC3986 Encoding = "rfc3986"
)

func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(s)) {
	case "", EncodingLegacy:
		return EncodingLegacy, nil
	case EncodingRFC3986:
		return EncodingRFC3986, nil
	}
	return "", fmt.Errorf("encoding: %s, %w", s, ErrUnknownEncoding)
}

// EncodePassword escapes every UTF-16 code unit that is not an ASCII letter or digit
// as `%` followed by its lowercase hex value, e.g. `@` => `%40`, `\n` => `%a`.
func EncodePassword(s string) string {
	var b strings.Builder
	for _, c := range utf16.Encode([]rune(s)) {
		if isAlphaNum(c) {
			b.WriteByte(byte(c))
			continue
		}
		b.WriteByte('%')
		b.WriteString(strconv.FormatUint(uint64(c), 16))
	}
	return b.String()
}

func isAlphaNum(c uint16) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// EncodeQueryValue escapes s according to enc
func EncodeQueryValue(s string, enc Encoding) string {
	if enc == EncodingRFC3986 {
		return url.QueryEscape(s)
	}
	return EncodePassword(s)
}
