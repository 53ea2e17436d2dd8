package vcr

import (
	"bytes"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Method is an upper-case HTTP method such as GET or POST.
type Method string

// Common methods.
const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodOptions Method = http.MethodOptions
)

// ParseMethod returns the method in its canonical upper-case form.
func ParseMethod(s string) Method {
	return Method(strings.ToUpper(strings.TrimSpace(s)))
}

// Header maps header names to their values. Names are case-insensitive and
// kept in canonical MIME form.
type Header map[string][]string

// NewHeader copies h into a Header, canonicalizing the names and merging
// values of names that differ only by case.
func NewHeader(h map[string][]string) Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	for k, vv := range h {
		name := http.CanonicalHeaderKey(k)
		out[name] = append(out[name], vv...)
	}
	return out
}

// Get returns the first value for name, or "" if there is none.
func (h Header) Get(name string) string {
	vv := h[http.CanonicalHeaderKey(name)]
	if len(vv) == 0 {
		return ""
	}
	return vv[0]
}

// Values returns all values for name.
func (h Header) Values(name string) []string {
	return h[http.CanonicalHeaderKey(name)]
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	for k, vv := range h {
		out[k] = append([]string(nil), vv...)
	}
	return out
}

// HTTP converts h into an http.Header.
func (h Header) HTTP() http.Header {
	return http.Header(h.Clone())
}

// canonical renders h with names sorted and the values of each name sorted,
// so header sets that differ only in ordering render identically.
func (h Header) canonical() string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, strings.ToLower(k))
	}
	sort.Strings(names)

	lower := make(map[string][]string, len(h))
	for k, vv := range h {
		lower[strings.ToLower(k)] = append(lower[strings.ToLower(k)], vv...)
	}

	var b strings.Builder
	for i, name := range names {
		if i > 0 && names[i-1] == name {
			continue
		}
		vv := append([]string(nil), lower[name]...)
		sort.Strings(vv)
		b.WriteString(name)
		b.WriteByte(':')
		for _, v := range vv {
			b.WriteString(v)
			b.WriteByte(0)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Request is the transport-agnostic form of an outgoing HTTP request.
//
// Use NewRequest to construct one; a Request must not be modified once it
// has been handed to a Store or Engine.
type Request struct {
	Method Method
	URI    string
	Header Header
	// Body is nil when the request has no body.
	Body []byte
}

// NewRequest builds a Request with a normalized URI. Inputs are copied.
func NewRequest(method, uri string, header map[string][]string, body []byte) (*Request, error) {
	normalized, err := NormalizeURI(uri)
	if err != nil {
		return nil, err
	}
	return &Request{
		Method: ParseMethod(method),
		URI:    normalized,
		Header: NewHeader(header),
		Body:   cloneBytes(body),
	}, nil
}

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	return &Request{
		Method: r.Method,
		URI:    r.URI,
		Header: r.Header.Clone(),
		Body:   cloneBytes(r.Body),
	}
}

// String returns "METHOD URI".
func (r *Request) String() string {
	return string(r.Method) + " " + r.URI
}

// Response is the transport-agnostic form of an HTTP response.
type Response struct {
	StatusCode int
	// Status is the optional status message, e.g. "OK".
	Status string
	Header Header
	Body   []byte
}

// Clone returns a deep copy of r.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	return &Response{
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Header:     r.Header.Clone(),
		Body:       cloneBytes(r.Body),
	}
}

// Interaction is a single recorded request-response pair.
type Interaction struct {
	ID         string
	Request    *Request
	Response   *Response
	RecordedAt time.Time
}

// NewInteraction pairs copies of req and resp under a fresh ID, stamped
// with the current time.
func NewInteraction(req *Request, resp *Response) Interaction {
	return Interaction{
		ID:         uuid.NewString(),
		Request:    req.Clone(),
		Response:   resp.Clone(),
		RecordedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy of i.
func (i Interaction) Clone() Interaction {
	return Interaction{
		ID:         i.ID,
		Request:    i.Request.Clone(),
		Response:   i.Response.Clone(),
		RecordedAt: i.RecordedAt,
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}
