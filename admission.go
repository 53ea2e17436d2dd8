package vcr

import (
	"net/url"
	"strings"
	"sync"
)

// LocalhostAliases are the hosts treated as localhost.
var LocalhostAliases = []string{"localhost", "127.0.0.1", "0.0.0.0", "::1"}

// Admit is the outcome of an admission decision that allowed a request.
type Admit struct {
	// Record is false for traffic the recorder must not see, such as
	// ignored localhost requests.
	Record bool
}

// Admission decides whether a request without a recorded interaction may
// reach the real network.
//
// HTTP connections are disallowed until SetHTTPConnectionsAllowed(true) is
// called. An Admission is safe for concurrent use.
type Admission struct {
	mu              sync.RWMutex
	allowed         *bool
	ignoreLocalhost bool
}

// SetHTTPConnectionsAllowed sets whether real HTTP connections are allowed.
func (a *Admission) SetHTTPConnectionsAllowed(allowed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.allowed = &allowed
}

// ResetHTTPConnectionsAllowed returns the toggle to its unset state, which
// disallows connections.
func (a *Admission) ResetHTTPConnectionsAllowed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.allowed = nil
}

// HTTPConnectionsAllowed reports whether real HTTP connections are allowed.
func (a *Admission) HTTPConnectionsAllowed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.allowed != nil && *a.allowed
}

// SetIgnoreLocalhost sets whether localhost requests bypass admission and
// recording.
func (a *Admission) SetIgnoreLocalhost(ignore bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ignoreLocalhost = ignore
}

// IgnoreLocalhost reports whether localhost requests are ignored.
func (a *Admission) IgnoreLocalhost() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ignoreLocalhost
}

// Decide decides whether req may be sent over the network. A denied request
// yields a *ConnectionNotAllowedError.
func (a *Admission) Decide(req *Request) (Admit, error) {
	if a.IgnoreLocalhost() && IsLocalhost(req.URI) {
		return Admit{Record: false}, nil
	}
	if a.HTTPConnectionsAllowed() {
		return Admit{Record: true}, nil
	}
	return Admit{}, &ConnectionNotAllowedError{Request: req}
}

// IsLocalhost reports whether the host of uri is one of LocalhostAliases.
func IsLocalhost(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, alias := range LocalhostAliases {
		if host == alias {
			return true
		}
	}
	return false
}
