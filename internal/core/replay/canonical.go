package replay

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// CanonicalizePath resolves a path recorded in the log against the table
// root. Relative paths are joined with root, percent-escapes are decoded,
// separators become '/', and "file:" URIs collapse to plain paths, so every
// spelling of one file yields the same key. Other URI schemes keep their
// scheme and host.
func CanonicalizePath(root, raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty path")
	}
	p := strings.ReplaceAll(raw, `\`, "/")

	scheme, host := "", ""
	if i := strings.Index(p, "://"); i > 0 || strings.HasPrefix(p, "file:") {
		u, err := url.Parse(p)
		if err != nil {
			return "", fmt.Errorf("parse %q: %w", raw, err)
		}
		if u.Scheme != "file" {
			scheme, host = u.Scheme, u.Host
		}
		p = u.Path
	} else {
		unescaped, err := url.PathUnescape(p)
		if err != nil {
			return "", fmt.Errorf("unescape %q: %w", raw, err)
		}
		p = unescaped
	}

	if !path.IsAbs(p) && scheme == "" {
		p = path.Join(strings.ReplaceAll(root, `\`, "/"), p)
	}
	p = path.Clean(p)

	if scheme != "" {
		return scheme + "://" + host + p, nil
	}
	return p, nil
}
