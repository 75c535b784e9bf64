package client

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CacheTTL derives how long a response may be reused from its caching headers,
// following shared-cache rules: s-maxage wins over max-age, the Age header is
// subtracted, and no-store, no-cache or private forbid storing. Without an
// explicit lifetime, Expires minus Date is used; failing that, fallback.
func CacheTTL(h http.Header, now time.Time, fallback time.Duration) time.Duration {
	directives := parseCacheControl(h.Values("Cache-Control"))
	for _, d := range []string{"no-store", "no-cache", "private"} {
		if _, ok := directives[d]; ok {
			return 0
		}
	}

	if lifetime, ok := deltaSeconds(directives, "s-maxage"); ok {
		return lifetime - age(h)
	}
	if lifetime, ok := deltaSeconds(directives, "max-age"); ok {
		return lifetime - age(h)
	}

	if exp := h.Get("Expires"); exp != "" {
		expires, err := http.ParseTime(exp)
		if err != nil {
			// An invalid Expires means "already expired".
			return 0
		}
		date := now
		if d, err := http.ParseTime(h.Get("Date")); err == nil {
			date = d
		}
		return expires.Sub(date)
	}
	return fallback
}

func parseCacheControl(values []string) map[string]string {
	directives := make(map[string]string)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, val, _ := strings.Cut(part, "=")
			directives[strings.ToLower(strings.TrimSpace(name))] = strings.Trim(strings.TrimSpace(val), `"`)
		}
	}
	return directives
}

// maxDeltaSeconds is the largest delta-seconds value honored (RFC 9111 §1.2.2).
const maxDeltaSeconds = 2147483648

func deltaSeconds(directives map[string]string, name string) (time.Duration, bool) {
	v, ok := directives[name]
	if !ok {
		return 0, false
	}
	d, ok := parseDeltaSeconds(v)
	if !ok {
		return 0, true
	}
	return d, true
}

// parseDeltaSeconds parses a non-negative integer number of seconds, clamping
// values past maxDeltaSeconds.
func parseDeltaSeconds(v string) (time.Duration, bool) {
	if v == "" || strings.TrimLeft(v, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n > maxDeltaSeconds {
		// Only ErrRange is possible for a digit string.
		n = maxDeltaSeconds
	}
	return time.Duration(n) * time.Second, true
}

func age(h http.Header) time.Duration {
	d, ok := parseDeltaSeconds(strings.TrimSpace(h.Get("Age")))
	if !ok {
		return 0
	}
	return d
}
