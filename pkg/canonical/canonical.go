package canonical

import (
	"net/url"
	"path"
	"strings"
)

const scheme = "https://"

// Canonicalizer converts mirror proxy references into origin asset URLs
type Canonicalizer struct {
	marker      string
	originHost  string
	defaultHost string
}

// New creates a Canonicalizer for the given proxy marker and hosts
func New(marker, originHost, defaultHost string) *Canonicalizer {
	return &Canonicalizer{
		marker:      marker,
		originHost:  strings.TrimSuffix(originHost, "/"),
		defaultHost: strings.TrimSuffix(defaultHost, "/"),
	}
}

// Marker returns the proxy path marker
func (c *Canonicalizer) Marker() string {
	return c.marker
}

// ToCanonical returns the origin URL behind a proxy reference, or nil when
// the reference carries no asset: no marker, or nothing after the marker.
func (c *Canonicalizer) ToCanonical(ref string) *string {
	idx := strings.Index(ref, c.marker)
	if idx < 0 {
		return nil
	}

	decoded := ref[idx+len(c.marker):]
	if unescaped, err := url.PathUnescape(decoded); err == nil {
		decoded = unescaped
	}
	decoded = stripQuery(decoded)
	decoded = stripScheme(decoded)
	if decoded == "" {
		return nil
	}

	var out string
	switch {
	case strings.HasPrefix(decoded, c.originHost+"/"):
		out = scheme + decoded
	case strings.HasPrefix(decoded, c.defaultHost+"/"):
		// placeholder assets keep their own host
		out = scheme + decoded
	default:
		out = scheme + c.originHost + "/" + strings.TrimPrefix(decoded, "/")
	}
	return &out
}

// IsBareProxy reports whether ref is the proxy marker with nothing after it
func (c *Canonicalizer) IsBareProxy(ref string) bool {
	return strings.Contains(ref, c.marker) && strings.HasSuffix(stripQuery(ref), c.marker)
}

// Repair collapses known double-prefix corruptions into one well-formed URL.
// It is applied until nothing changes, so Repair(Repair(x)) == Repair(x).
func (c *Canonicalizer) Repair(raw string) string {
	for {
		next := c.repairOnce(raw)
		if next == raw {
			return next
		}
		raw = next
	}
}

func (c *Canonicalizer) repairOnce(s string) string {
	s = stripQuery(s)

	origin := c.originHost + "/"
	def := c.defaultHost + "/"

	s = strings.ReplaceAll(s, scheme+origin+scheme+origin, scheme+origin)
	s = strings.ReplaceAll(s, origin+origin, origin)
	s = strings.ReplaceAll(s, scheme+origin+scheme+def, scheme+def)
	s = strings.ReplaceAll(s, origin+def, def)

	if strings.HasPrefix(s, origin) || strings.HasPrefix(s, def) {
		s = scheme + s
	}
	return s
}

// Filename derives a file name from a canonical URL path, defaulting the
// extension to .jpg. It returns "" when the URL has no usable path.
func Filename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return ""
	}
	if !strings.Contains(name, ".") {
		name += ".jpg"
	}
	return name
}

func stripQuery(s string) string {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i]
	}
	return s
}

func stripScheme(s string) string {
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, prefix) {
			return s[len(prefix):]
		}
	}
	return s
}
