package logger

import (
	"log/slog"
	"maps"
	"net/url"
	"strings"
)

// Key fragments marking table configuration entries and log attributes
// that carry credentials, e.g. fs.azure.account.key.<acct> or
// fs.s3a.secret.key.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"account.key",
	"access.key",
	"accesskey",
	"sas",
	"bearer",
}

// Query parameters of signed storage URLs.
var signedURLParams = []string{"sig", "signature", "x-amz-signature", "x-goog-signature"}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if masked, ok := maskSignedURL(v); ok {
			return slog.String(a.Key, masked)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// maskSignedURL replaces signature query parameters of a URL.
func maskSignedURL(v string) (string, bool) {
	if !strings.Contains(v, "://") || !strings.Contains(v, "?") {
		return v, false
	}
	u, err := url.Parse(v)
	if err != nil {
		return v, false
	}
	q := u.Query()
	masked := false
	for key := range q {
		for _, p := range signedURLParams {
			if strings.EqualFold(key, p) {
				q.Set(key, "***")
				masked = true
			}
		}
	}
	if !masked {
		return v, false
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// RedactConfiguration returns a copy of a table configuration with
// credential values replaced. The input is not modified.
func RedactConfiguration(conf map[string]string) map[string]string {
	if conf == nil {
		return nil
	}
	out := maps.Clone(conf)
	for k, v := range out {
		if v == "" {
			continue
		}
		if IsSensitiveKey(k) {
			out[k] = redactedValue
		} else if masked, ok := maskSignedURL(v); ok {
			out[k] = masked
		}
	}
	return out
}

// MaskURL hides the signature of a signed storage URL and returns any
// other value unchanged.
func MaskURL(v string) string {
	masked, _ := maskSignedURL(v)
	return masked
}
