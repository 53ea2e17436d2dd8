package vcr

import (
	"bytes"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Attribute is a request attribute that can take part in matching.
type Attribute string

// Valid match attributes.
const (
	AttrMethod        Attribute = "method"
	AttrURI           Attribute = "uri"
	AttrURIMinusOAuth Attribute = "uri_minus_oauth"
	AttrHost          Attribute = "host"
	AttrPath          Attribute = "path"
	AttrHeaders       Attribute = "headers"
	AttrBody          Attribute = "body"
)

var vocabulary = []Attribute{
	AttrMethod,
	AttrURI,
	AttrURIMinusOAuth,
	AttrHost,
	AttrPath,
	AttrHeaders,
	AttrBody,
}

func (a Attribute) bit() (AttributeSet, bool) {
	for i, v := range vocabulary {
		if v == a {
			return 1 << uint(i), true
		}
	}
	return 0, false
}

// AttributeSet is a set of match attributes.
//
// The zero value is the empty set, which matches every request. Sets are
// comparable, and the order attributes were given in does not matter.
type AttributeSet uint8

// DefaultAttributes matches on method and full URI.
var DefaultAttributes = MustAttributes(AttrMethod, AttrURI)

// NewAttributeSet builds a set from attrs. Unknown attributes are reported
// together in a *ConfigError.
func NewAttributeSet(attrs ...Attribute) (AttributeSet, error) {
	var (
		set     AttributeSet
		invalid []string
	)
	for _, a := range attrs {
		b, ok := a.bit()
		if !ok {
			invalid = append(invalid, string(a))
			continue
		}
		set |= b
	}
	if len(invalid) > 0 {
		return 0, invalidAttributesError(invalid)
	}
	return set, nil
}

// ParseAttributes builds a set from attribute names, e.g. from a config
// file. Names are trimmed and a leading ':' is ignored.
func ParseAttributes(names ...string) (AttributeSet, error) {
	attrs := make([]Attribute, 0, len(names))
	for _, n := range names {
		n = strings.TrimPrefix(strings.TrimSpace(n), ":")
		if n == "" {
			continue
		}
		attrs = append(attrs, Attribute(n))
	}
	return NewAttributeSet(attrs...)
}

// MustAttributes is like NewAttributeSet but panics on error. It is meant
// for package-level variables.
func MustAttributes(attrs ...Attribute) AttributeSet {
	set, err := NewAttributeSet(attrs...)
	if err != nil {
		panic(err)
	}
	return set
}

// Has reports whether a is in the set.
func (s AttributeSet) Has(a Attribute) bool {
	b, ok := a.bit()
	return ok && s&b != 0
}

// Attributes returns the members in vocabulary order.
func (s AttributeSet) Attributes() []Attribute {
	var out []Attribute
	for _, a := range vocabulary {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// String returns the sorted, comma separated member names.
func (s AttributeSet) String() string {
	names := make([]string, 0, len(vocabulary))
	for _, a := range s.Attributes() {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// URIMatch returns the URI strategy selected by the set. Combinations other
// than the documented ones return a *ConfigError naming the conflicting
// attributes.
func (s AttributeSet) URIMatch() (URIMatch, error) {
	var present []string
	for _, a := range []Attribute{AttrURI, AttrURIMinusOAuth, AttrHost, AttrPath} {
		if s.Has(a) {
			present = append(present, string(a))
		}
	}

	switch strings.Join(present, ",") {
	case "":
		return URIMatchAll, nil
	case "uri":
		return URIMatchExact, nil
	case "uri_minus_oauth":
		return URIMatchMinusOAuth, nil
	case "host":
		return URIMatchHost, nil
	case "path":
		return URIMatchPath, nil
	case "host,path":
		return URIMatchHostPath, nil
	default:
		return 0, conflictingAttributesError(present)
	}
}

// Validate checks that the URI attributes in the set can be combined.
func (s AttributeSet) Validate() error {
	_, err := s.URIMatch()
	return err
}

// Matcher decides whether requests match a stored request under a set of
// attributes.
type Matcher struct {
	req *Request
	set AttributeSet
	uri URICriterion

	// compile guards re, the URI pattern compiled on first use.
	compile sync.Once
	re      *regexp.Regexp
}

// NewMatcher returns a matcher for req. A nil req yields a matcher that
// compares against zero values, which is useful for validating a set on its
// own.
func NewMatcher(req *Request, set AttributeSet) (*Matcher, error) {
	kind, err := set.URIMatch()
	if err != nil {
		return nil, err
	}
	m := &Matcher{req: req, set: set}
	uri := ""
	if req != nil {
		uri = req.URI
	}
	m.uri = newURICriterion(kind, uri)
	return m, nil
}

// Attributes returns the attribute set of the matcher.
func (m *Matcher) Attributes() AttributeSet { return m.set }

// URICriterion returns the URI predicate of the matcher.
func (m *Matcher) URICriterion() URICriterion { return m.uri }

// MethodCriterion returns the method to match and whether method is
// considered at all.
func (m *Matcher) MethodCriterion() (Method, bool) {
	if !m.set.Has(AttrMethod) {
		return "", false
	}
	if m.req == nil {
		return "", true
	}
	return m.req.Method, true
}

// HeaderCriterion returns the headers to match and whether headers are
// considered at all.
func (m *Matcher) HeaderCriterion() (Header, bool) {
	if !m.set.Has(AttrHeaders) {
		return nil, false
	}
	if m.req == nil {
		return nil, true
	}
	return m.req.Header, true
}

// BodyCriterion returns the body to match and whether the body is
// considered at all.
func (m *Matcher) BodyCriterion() ([]byte, bool) {
	if !m.set.Has(AttrBody) {
		return nil, false
	}
	if m.req == nil {
		return nil, true
	}
	return m.req.Body, true
}

// Matches reports whether req satisfies every attribute of the matcher.
func (m *Matcher) Matches(req *Request) bool {
	if method, ok := m.MethodCriterion(); ok && method != req.Method {
		return false
	}
	if !m.matchURI(req.URI) {
		return false
	}
	if h, ok := m.HeaderCriterion(); ok && h.canonical() != req.Header.canonical() {
		return false
	}
	if body, ok := m.BodyCriterion(); ok && !bytes.Equal(body, req.Body) {
		return false
	}
	return true
}

func (m *Matcher) matchURI(uri string) bool {
	switch m.uri.Kind {
	case URIMatchAll:
		return true
	case URIMatchExact:
		return uri == m.uri.URI
	}
	m.compile.Do(func() { m.re = m.uri.pattern() })
	return m.re != nil && m.re.MatchString(uri)
}

// Fingerprint returns the comparable key of the matcher.
func (m *Matcher) Fingerprint() Fingerprint {
	fp := Fingerprint{Attributes: m.set, URI: m.uri}
	if method, ok := m.MethodCriterion(); ok {
		fp.Method = method
	}
	if h, ok := m.HeaderCriterion(); ok {
		fp.Header = h.canonical()
	}
	if body, ok := m.BodyCriterion(); ok {
		fp.Body = string(body)
	}
	return fp
}

// Equal reports whether m and other have the same fingerprint.
func (m *Matcher) Equal(other *Matcher) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Fingerprint() == other.Fingerprint()
}

// Hash returns a hash consistent with Equal.
func (m *Matcher) Hash() uint64 {
	return m.Fingerprint().Hash()
}

// Fingerprint is the comparable key of a request under an attribute set.
// Attributes that are not in the set hold their zero value. Headers are
// stored in sorted canonical form, so permutations of the same header set
// yield equal fingerprints.
type Fingerprint struct {
	Attributes AttributeSet
	Method     Method
	URI        URICriterion
	Header     string
	Body       string
}

// FingerprintOf computes the fingerprint of req under set.
func FingerprintOf(req *Request, set AttributeSet) (Fingerprint, error) {
	m, err := NewMatcher(req, set)
	if err != nil {
		return Fingerprint{}, err
	}
	return m.Fingerprint(), nil
}

// Hash returns a stable 64-bit hash of the fingerprint. Equal fingerprints
// always hash equally, across processes too.
func (f Fingerprint) Hash() uint64 {
	d := xxhash.New()
	for _, part := range []string{
		f.Attributes.String(),
		string(f.Method),
		strconv.Itoa(int(f.URI.Kind)),
		f.URI.URI,
		f.URI.Host,
		f.URI.Path,
		f.Header,
		f.Body,
	} {
		_, _ = d.WriteString(strconv.Itoa(len(part)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(part)
	}
	return d.Sum64()
}
