package vcr

import "net/http"

// A Filter modifies an interaction before it is recorded.
//
// Filters run after the real request, with the primary purpose being to
// remove sensitive data from the recorded interaction. The response returned
// to the caller is the filtered one.
type Filter func(i *Interaction)

// RemoveRequestHeader removes a header with the given name from the request.
// The name is case-insensitive.
func RemoveRequestHeader(name string) Filter {
	return func(i *Interaction) {
		if i.Request != nil {
			delete(i.Request.Header, http.CanonicalHeaderKey(name))
		}
	}
}

// RemoveResponseHeader removes a header with the given name from the
// response. The name is case-insensitive.
func RemoveResponseHeader(name string) Filter {
	return func(i *Interaction) {
		if i.Response != nil {
			delete(i.Response.Header, http.CanonicalHeaderKey(name))
		}
	}
}
