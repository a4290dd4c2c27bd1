package conn

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// LookupEncoding resolves an IANA encoding name. An empty name resolves to
// the platform's preferred encoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return PreferredEncoding(), nil
	}
	if isUTF8(name) {
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// PreferredEncoding returns the encoding named by the charset suffix of the
// first non-empty of LC_ALL, LC_CTYPE and LANG ("en_US.ISO-8859-1"), or
// UTF-8 when none is set or the charset is not recognised.
func PreferredEncoding() encoding.Encoding {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		locale := os.Getenv(key)
		if locale == "" {
			continue
		}
		charset := localeCharset(locale)
		if charset == "" || isUTF8(charset) {
			return unicode.UTF8
		}
		enc, err := ianaindex.IANA.Encoding(charset)
		if err != nil || enc == nil {
			return unicode.UTF8
		}
		return enc
	}
	return unicode.UTF8
}

func localeCharset(locale string) string {
	_, charset, ok := strings.Cut(locale, ".")
	if !ok {
		return ""
	}
	charset, _, _ = strings.Cut(charset, "@")
	return charset
}

func isUTF8(name string) bool {
	n := strings.ToLower(name)
	n = strings.NewReplacer("-", "", "_", "").Replace(n)
	return n == "utf8"
}
