package vcr

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/akupila/vcr/internal/logging"
)

// Mode controls the mode of the recorder.
type Mode int

// Possible values:
const (
	// Auto replays recorded interactions. If none matches, the request is
	// performed and the result appended to the fixture file.
	Auto Mode = iota

	// ReplayOnly only allows replaying without network traffic. A request
	// without a recorded interaction fails with a
	// *ConnectionNotAllowedError.
	ReplayOnly

	// Record records all traffic even if a recorded interaction exists.
	// The fixture file is overwritten on the first request.
	Record

	// Passthrough disables replay and passes through all traffic directly
	// to the transport. Interactions are not written to disk but can be
	// retrieved with Lookup.
	Passthrough
)

// ParseMode parses "auto", "replay_only", "record" or "passthrough".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "", "auto":
		return Auto, nil
	case "replay_only", "replay":
		return ReplayOnly, nil
	case "record":
		return Record, nil
	case "passthrough":
		return Passthrough, nil
	default:
		return 0, &ConfigError{Msg: "unknown recorder mode " + s, Invalid: []string{s}}
	}
}

func (m Mode) String() string {
	switch m {
	case Auto:
		return "auto"
	case ReplayOnly:
		return "replay_only"
	case Record:
		return "record"
	case Passthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// New is a convenience function for creating a new recorder.
func New(filename string, filters ...Filter) *Recorder {
	return &Recorder{
		Filename:  filename,
		Mode:      Auto,
		Transport: http.DefaultTransport,
		Filters:   filters,
	}
}

// Recorder wraps a http.RoundTripper by recording requests that go through it.
//
// Recorded interactions are loaded from Filename on first use and replayed
// by an Engine. In Auto and Record mode new interactions are written to disk
// after the response.
type Recorder struct {
	// Filename to use for saved interactions. A .yml extension is added if
	// not set. Any subdirectories are created if needed.
	//
	// Required if mode is not Passthrough.
	Filename string

	// Mode to use. Default mode is Auto.
	Mode Mode

	// Filters to apply before saving to disk.
	// Filters are executed in the order specified.
	Filters []Filter

	// Transport to use for real request.
	// If nil, http.DefaultTransport is used.
	Transport http.RoundTripper

	// MatchOn lists the request attributes used to find a recorded
	// interaction. If empty, DefaultAttributes is used.
	MatchOn []Attribute

	// IgnoreLocalhost lets requests to localhost through without recording
	// them, in every mode.
	IgnoreLocalhost bool

	// Logger receives debug and info logs. If nil, nothing is logged.
	Logger *slog.Logger

	once    sync.Once
	initErr error
	engine  *Engine
	writer  *FixtureWriter
}

var _ http.RoundTripper = (*Recorder)(nil)

func (r *Recorder) init() {
	if r.Mode > Passthrough {
		panic("Unsupported mode")
	}

	set := DefaultAttributes
	if len(r.MatchOn) > 0 {
		var err error
		if set, err = NewAttributeSet(r.MatchOn...); err != nil {
			r.initErr = err
			return
		}
	}

	engine, err := NewEngine(
		WithAttributes(set),
		WithFilters(r.Filters...),
		WithLogger(r.Logger),
	)
	if err != nil {
		r.initErr = err
		return
	}
	engine.Admission().SetHTTPConnectionsAllowed(r.Mode != ReplayOnly)
	engine.Admission().SetIgnoreLocalhost(r.IgnoreLocalhost)
	r.engine = engine

	if r.Mode == Passthrough {
		return
	}
	if !strings.HasSuffix(r.Filename, ".yml") {
		r.Filename += ".yml"
	}
	existing := 0
	if r.Mode != Record {
		interactions, err := LoadFixture(r.Filename)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.initErr = err
			return
		}
		engine.Store().Load(interactions...)
		existing = len(interactions)
		logging.OrNop(r.Logger).Debug("loaded fixture", "file", r.Filename, "interactions", existing)
	}
	r.writer = NewFixtureWriter(r.Filename, existing)
}

// Engine returns the engine backing the recorder, loading the fixture file
// if that has not happened yet. It gives access to checkpoints and the
// interaction store.
func (r *Recorder) Engine() (*Engine, error) {
	r.once.Do(r.init)
	return r.engine, r.initErr
}

// RoundTrip implements http.RoundTripper and does the actual request.
//
// The behavior depends on the mode set:
//
//	Auto:          If a recorded interaction matches, its response is
//	               returned. Otherwise the request is performed and
//	               recorded.
//	ReplayOnly:    Returns a previously recorded response. Returns
//	               *ConnectionNotAllowedError if none matches.
//	Record:        Always send real request and record the response.
//	Passthrough:   The request is passed through to the underlying
//	               transport.
//
// Attempting to set another mode will cause a panic.
func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	engine, err := r.Engine()
	if err != nil {
		return nil, err
	}

	// Construct request
	var bodyOut bytes.Buffer
	if req.Body != nil {
		if _, err := io.Copy(&bodyOut, req.Body); err != nil {
			return nil, err
		}
		req.Body.Close()
	}
	req.Body = io.NopCloser(&bodyOut)
	var body []byte
	if bodyOut.Len() > 0 {
		body = bodyOut.Bytes()
	}
	out, err := NewRequest(req.Method, req.URL.String(), req.Header, body)
	if err != nil {
		return nil, err
	}

	ctx := req.Context()
	var d Decision
	switch r.Mode {
	case Record, Passthrough:
		d = Decision{Action: ActionPerform, Record: true}
		if r.IgnoreLocalhost && IsLocalhost(out.URI) {
			d.Record = false
		}
	default:
		if d, err = engine.Decide(ctx, out); err != nil {
			return nil, err
		}
	}
	if d.Action == ActionReplay {
		return httpResponse(req, d.Response), nil
	}

	// Send request
	transport := &HTTPTransport{RoundTripper: r.Transport}
	in, err := transport.Send(ctx, out.Method, out.URI, out.Header, out.Body)
	if err != nil {
		return nil, err
	}

	// Record, applying filters
	i, ok := engine.Complete(ctx, d, out, in)
	if !ok {
		return httpResponse(req, in), nil
	}
	if r.Mode == Auto || r.Mode == Record {
		if err := r.writer.Write(i); err != nil {
			return nil, err
		}
	}
	return httpResponse(req, i.Response), nil
}

// Lookup returns the first recorded interaction matching the given method
// and url.
//
// The method and url are case-insensitive.
//
// Returns false if no such interaction exists.
func (r *Recorder) Lookup(method, url string) (Interaction, bool) {
	engine, err := r.Engine()
	if err != nil {
		return Interaction{}, false
	}
	if normalized, err := NormalizeURI(url); err == nil {
		url = normalized
	}
	for _, i := range engine.Store().Interactions() {
		if strings.EqualFold(string(i.Request.Method), method) && strings.EqualFold(i.Request.URI, url) {
			return i, true
		}
	}
	return Interaction{}, false
}
