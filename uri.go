package vcr

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// NormalizeURI returns raw in normalized absolute form.
//
// A missing scheme defaults to http. The scheme and host are lower-cased,
// internationalized hosts are converted to their ASCII form, default ports
// are dropped and an empty path becomes "/". The query string is kept
// exactly as given: parameters are never decoded or reordered.
func NormalizeURI(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("parse uri %q: missing host", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	host, err := normalizeHost(u.Hostname())
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", raw, err)
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	if port != "" {
		b.WriteString(net.JoinHostPort(host, port))
	} else {
		b.WriteString(bracketIPv6(host))
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	b.WriteString(path)
	if u.RawQuery != "" || u.ForceQuery {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	return b.String(), nil
}

func normalizeHost(host string) (string, error) {
	for i := 0; i < len(host); i++ {
		if host[i] >= utf8.RuneSelf {
			ascii, err := idna.Lookup.ToASCII(host)
			if err != nil {
				return "", fmt.Errorf("invalid host %q: %w", host, err)
			}
			return ascii, nil
		}
	}
	return strings.ToLower(host), nil
}

func bracketIPv6(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// URIMatch identifies how a URICriterion compares URIs.
type URIMatch int

// URI match strategies.
const (
	// URIMatchAll matches every URI.
	URIMatchAll URIMatch = iota
	// URIMatchExact requires identical URIs.
	URIMatchExact
	// URIMatchMinusOAuth compares URIs with trailing oauth query
	// parameters removed.
	URIMatchMinusOAuth
	// URIMatchHost matches any URI on the same host, regardless of scheme
	// and path.
	URIMatchHost
	// URIMatchPath matches any URI with the same path, regardless of host
	// and query.
	URIMatchPath
	// URIMatchHostPath requires both host and path to match.
	URIMatchHostPath
)

func (m URIMatch) String() string {
	switch m {
	case URIMatchAll:
		return "all"
	case URIMatchExact:
		return "uri"
	case URIMatchMinusOAuth:
		return "uri_minus_oauth"
	case URIMatchHost:
		return "host"
	case URIMatchPath:
		return "path"
	case URIMatchHostPath:
		return "host+path"
	default:
		return fmt.Sprintf("URIMatch(%d)", int(m))
	}
}

// URICriterion is a predicate over request URIs.
//
// It is a comparable value: two criteria built from the same strategy and
// the same URI parts are equal, so criteria can be compared with == and
// used inside map keys.
type URICriterion struct {
	Kind URIMatch
	// URI is the full URI for URIMatchExact and the URI with its oauth
	// parameters removed for URIMatchMinusOAuth.
	URI  string
	Host string
	Path string
}

func newURICriterion(kind URIMatch, uri string) URICriterion {
	c := URICriterion{Kind: kind}
	if uri == "" || kind == URIMatchAll {
		return c
	}
	switch kind {
	case URIMatchExact:
		c.URI = uri
	case URIMatchMinusOAuth:
		c.URI = stripOAuth(uri)
	case URIMatchHost, URIMatchPath, URIMatchHostPath:
		u, err := url.Parse(uri)
		if err != nil {
			// Fall back to an exact comparison on URIs the parser rejects.
			return URICriterion{Kind: URIMatchExact, URI: uri}
		}
		if kind != URIMatchPath {
			c.Host = bracketIPv6(u.Hostname())
		}
		if kind != URIMatchHost {
			c.Path = u.EscapedPath()
		}
	}
	return c
}

// oauthParams matches a query tail made only of oauth*=value parameters.
var oauthParams = regexp.MustCompile(`^(oauth.+=[^&]+)*$`)

// stripOAuth removes trailing oauth*=value query parameters from uri. The
// result is the shortest prefix extending past the path whose remainder is
// nothing but oauth parameters.
func stripOAuth(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	scheme := strings.Index(uri, "://")
	if scheme < 0 {
		return uri
	}
	slash := strings.IndexByte(uri[scheme+3:], '/')
	if slash <= 0 {
		return uri
	}
	start := scheme + 3 + slash
	path := u.EscapedPath()
	if !strings.HasPrefix(uri[start:], path) {
		return uri
	}
	for i := start + len(path); i < len(uri); i++ {
		if oauthParams.MatchString(uri[i:]) {
			return uri[:i]
		}
	}
	return uri
}

// Match reports whether uri satisfies the criterion. Pattern criteria are
// compiled on every call; a Matcher compiles its criterion once.
func (c URICriterion) Match(uri string) bool {
	switch c.Kind {
	case URIMatchAll:
		return true
	case URIMatchExact:
		return uri == c.URI
	}
	re := c.pattern()
	return re != nil && re.MatchString(uri)
}

func (c URICriterion) String() string {
	switch c.Kind {
	case URIMatchAll:
		return "*"
	case URIMatchExact, URIMatchMinusOAuth:
		return c.Kind.String() + "=" + c.URI
	case URIMatchHost:
		return "host=" + c.Host
	case URIMatchPath:
		return "path=" + c.Path
	default:
		return "host=" + c.Host + " path=" + c.Path
	}
}

// pattern compiles the regular expression behind host, path and
// uri_minus_oauth criteria. It returns nil for the other kinds.
func (c URICriterion) pattern() *regexp.Regexp {
	const userinfo = `((\w+:)?\w+@)?`
	var expr string
	switch c.Kind {
	case URIMatchMinusOAuth:
		expr = `(?i)^` + regexp.QuoteMeta(c.URI) + `.*$`
	case URIMatchHost:
		expr = `(?i)^https?://` + userinfo + regexp.QuoteMeta(c.Host) + `(:\d+)?/`
	case URIMatchPath:
		expr = `(?i)^https?://[^/]+` + regexp.QuoteMeta(c.Path) + `/?(\?.*)?$`
	case URIMatchHostPath:
		expr = `(?i)^https?://` + userinfo + regexp.QuoteMeta(c.Host) + `(:\d+)?` + regexp.QuoteMeta(c.Path) + `/?(\?.*)?$`
	default:
		return nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil
	}
	return re
}
