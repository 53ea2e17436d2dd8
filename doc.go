// Package vcr records HTTP interactions and replays them.
//
// The primary use-case is for tests where HTTP requests are sent and can be
// replayed without needing to reach out to the network. An Engine matches
// each outgoing request against recorded interactions on a configurable set
// of attributes (method, uri, uri_minus_oauth, host, path, headers, body).
// A match replays the recorded response. Without a match the request is
// either sent for real and recorded, or rejected when real connections are
// disabled.
//
// Several interactions recorded for the same request are replayed in order,
// after which the last one keeps being replayed. Checkpoints snapshot the
// recorded interactions so a test can roll back to an earlier state.
//
// Recorder wraps the engine in an http.RoundTripper that persists recorded
// interactions to a YAML fixture file.
package vcr
