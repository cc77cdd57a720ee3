package storage

import (
	"net/url"
	"strings"
)

// CDN rewrites B2 object URLs to the Bunny pull zone that fronts the bucket.
type CDN struct {
	Enabled bool
	BaseURL string // e.g. https://prontotv.b-cdn.net
	Bucket  string
	Origin  string // B2 S3 endpoint, used to expand relative URLs
}

// Rewrite returns the CDN URL for raw, or raw unchanged when it cannot be
// mapped onto the pull zone.
func (c CDN) Rewrite(raw string) string {
	if !c.Enabled || c.BaseURL == "" || raw == "" {
		return raw
	}
	if strings.Contains(raw, "b-cdn.net") {
		return raw
	}

	full := raw
	if strings.HasPrefix(raw, "/") {
		full = strings.TrimSuffix(c.Origin, "/") + raw
	}
	u, err := url.Parse(full)
	if err != nil || u.Host == "" {
		return raw
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	for i, p := range parts {
		if p != c.Bucket {
			continue
		}
		rest := strings.Join(parts[i+1:], "/")
		if rest == "" {
			return raw
		}
		return strings.TrimSuffix(c.BaseURL, "/") + "/" + rest
	}
	return raw
}

// Eligible reports whether raw is a B2 or relative URL that Rewrite may map.
func (c CDN) Eligible(raw string) bool {
	return c.Enabled && c.BaseURL != "" && !strings.Contains(raw, "b-cdn.net") &&
		(strings.Contains(raw, "backblazeb2.com") || strings.HasPrefix(raw, "/"))
}
