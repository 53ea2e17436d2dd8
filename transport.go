package vcr

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
)

// Transport performs real HTTP calls on behalf of the Engine. Every client
// binding implements it.
type Transport interface {
	Send(ctx context.Context, method Method, uri string, header Header, body []byte) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, method Method, uri string, header Header, body []byte) (*Response, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, method Method, uri string, header Header, body []byte) (*Response, error) {
	return f(ctx, method, uri, header, body)
}

// HTTPTransport sends requests with an http.RoundTripper.
type HTTPTransport struct {
	// RoundTripper defaults to http.DefaultTransport.
	RoundTripper http.RoundTripper
}

var _ Transport = (*HTTPTransport)(nil)

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, method Method, uri string, header Header, body []byte) (*Response, error) {
	rt := t.RoundTripper
	if rt == nil {
		rt = http.DefaultTransport
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, string(method), uri, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header = header.HTTP()
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	resp, err := rt.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNoResponse
	}
	return readResponse(resp)
}

// readResponse drains and closes resp.Body.
func readResponse(resp *http.Response) (*Response, error) {
	var (
		b   []byte
		err error
	)
	if resp.Body != nil {
		b, err = io.ReadAll(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		if err := resp.Body.Close(); err != nil {
			return nil, err
		}
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     statusMessage(resp),
		Header:     NewHeader(resp.Header),
		Body:       b,
	}, nil
}

// statusMessage strips the code from resp.Status, e.g. "200 OK" -> "OK".
func statusMessage(resp *http.Response) string {
	s := resp.Status
	if len(s) > 4 && s[3] == ' ' {
		return s[4:]
	}
	if s == "" {
		return http.StatusText(resp.StatusCode)
	}
	return s
}

// httpResponse builds an http.Response for req from r.
func httpResponse(req *http.Request, r *Response) *http.Response {
	status := r.Status
	if status == "" {
		status = http.StatusText(r.StatusCode)
	}
	header := r.Header.HTTP()
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        strconv.Itoa(r.StatusCode) + " " + status,
		StatusCode:    r.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}
