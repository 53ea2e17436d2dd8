package vcr

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/akupila/vcr/internal/logging"
)

const tracerName = "github.com/akupila/vcr"

// Action tells the caller of Engine.Decide what to do with a request.
type Action int

// Possible actions:
const (
	// ActionReplay means a recorded response was found; Decision.Response
	// holds it and the network must not be used.
	ActionReplay Action = iota

	// ActionPerform means the caller should perform the real request and
	// hand the result to Engine.Complete.
	ActionPerform
)

func (a Action) String() string {
	switch a {
	case ActionReplay:
		return "replay"
	case ActionPerform:
		return "perform"
	default:
		return "unknown"
	}
}

// Decision is the result of Engine.Decide.
type Decision struct {
	Action   Action
	Response *Response
	// Record is set for ActionPerform when the interaction should be
	// recorded once performed.
	Record bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithAttributes sets the attributes requests are matched on. The default is
// DefaultAttributes.
func WithAttributes(set AttributeSet) Option {
	return func(e *Engine) { e.set = set }
}

// WithLogger sets the logger. Nil disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// WithTracerProvider sets the tracer provider used for spans around Do. The
// global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// WithRecordHook registers fn to be called with every recorded interaction.
func WithRecordHook(fn func(Interaction)) Option {
	return func(e *Engine) { e.onRecord = fn }
}

// WithFilters adds filters applied to interactions before they are
// recorded.
func WithFilters(filters ...Filter) Option {
	return func(e *Engine) { e.filters = append(e.filters, filters...) }
}

// WithStore makes the engine use store instead of a fresh one.
func WithStore(store *Store) Option {
	return func(e *Engine) { e.store = store }
}

// Engine replays recorded interactions and records new ones.
//
// An Engine owns its store, checkpoints and admission state, so separate
// tests should use separate engines. All methods are safe for concurrent use.
type Engine struct {
	store       *Store
	checkpoints *Checkpoints
	admission   *Admission

	mu        sync.RWMutex
	set       AttributeSet
	recording bool

	filters  []Filter
	onRecord func(Interaction)
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewEngine returns an engine with an empty store. Real HTTP connections
// are disallowed until enabled through Admission.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		set:       DefaultAttributes,
		recording: true,
		admission: &Admission{},
		logger:    logging.Nop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.set.Validate(); err != nil {
		return nil, err
	}
	if e.store == nil {
		e.store = NewStore()
	}
	e.checkpoints = NewCheckpoints(e.store)
	return e, nil
}

// Store returns the interaction store.
func (e *Engine) Store() *Store { return e.store }

// Checkpoints returns the checkpoint manager of the store.
func (e *Engine) Checkpoints() *Checkpoints { return e.checkpoints }

// Admission returns the admission policy.
func (e *Engine) Admission() *Admission { return e.admission }

// Attributes returns the attributes requests are matched on.
func (e *Engine) Attributes() AttributeSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.set
}

// SetAttributes changes the attributes requests are matched on.
func (e *Engine) SetAttributes(set AttributeSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set = set
	return nil
}

// SetRecording enables or disables recording of performed requests. It is
// enabled by default.
func (e *Engine) SetRecording(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recording = enabled
}

// Recording reports whether performed requests are recorded.
func (e *Engine) Recording() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.recording
}

// StubRequests matches future requests on set and loads interactions to be
// replayed.
func (e *Engine) StubRequests(set AttributeSet, interactions ...Interaction) error {
	if err := e.SetAttributes(set); err != nil {
		return err
	}
	e.store.Load(interactions...)
	return nil
}

// RequestStubbed reports whether a recorded response exists for req.
func (e *Engine) RequestStubbed(req *Request) (bool, error) {
	return e.store.RequestStubbed(req, e.Attributes())
}

// Decide looks up req. It returns a replay decision on a hit, a perform
// decision when the request may reach the network, or a
// *ConnectionNotAllowedError.
func (e *Engine) Decide(ctx context.Context, req *Request) (Decision, error) {
	resp, ok, err := e.store.FindAndConsume(req, e.Attributes())
	if err != nil {
		return Decision{}, err
	}
	if ok {
		e.logger.DebugContext(ctx, "replaying recorded response",
			"method", req.Method, "uri", req.URI, "status", resp.StatusCode)
		return Decision{Action: ActionReplay, Response: resp}, nil
	}
	return e.admit(ctx, req)
}

func (e *Engine) admit(ctx context.Context, req *Request) (Decision, error) {
	admit, err := e.admission.Decide(req)
	if err != nil {
		e.logger.WarnContext(ctx, "real http connection denied", "method", req.Method, "uri", req.URI)
		return Decision{}, err
	}
	return Decision{Action: ActionPerform, Record: admit.Record && e.Recording()}, nil
}

// Complete records the interaction of a performed request if d asks for it,
// after running it through the engine's filters. It reports whether the
// interaction was recorded.
func (e *Engine) Complete(ctx context.Context, d Decision, req *Request, resp *Response) (Interaction, bool) {
	if d.Action != ActionPerform || !d.Record {
		return Interaction{}, false
	}
	i := NewInteraction(req, resp)
	for _, apply := range e.filters {
		apply(&i)
	}
	e.store.RecordNew(i)
	e.logger.InfoContext(ctx, "recorded interaction",
		"id", i.ID, "method", req.Method, "uri", req.URI, "status", resp.StatusCode)
	if e.onRecord != nil {
		e.onRecord(i)
	}
	return i, true
}

// Do replays a recorded response for req or, if allowed, sends req with t
// and records the result.
func (e *Engine) Do(ctx context.Context, req *Request, t Transport) (*Response, error) {
	ctx, span := e.startSpan(ctx, "vcr.Do", req)
	defer span.End()

	d, err := e.Decide(ctx, req)
	if err != nil {
		return nil, endWithError(span, err)
	}
	if d.Action == ActionReplay {
		span.SetAttributes(attribute.String("vcr.action", d.Action.String()))
		return d.Response, nil
	}
	return e.perform(ctx, span, d, req, t)
}

// Perform skips the lookup: it sends req with t if admission allows it and
// records the result.
func (e *Engine) Perform(ctx context.Context, req *Request, t Transport) (*Response, error) {
	ctx, span := e.startSpan(ctx, "vcr.Perform", req)
	defer span.End()

	d, err := e.admit(ctx, req)
	if err != nil {
		return nil, endWithError(span, err)
	}
	return e.perform(ctx, span, d, req, t)
}

func (e *Engine) perform(ctx context.Context, span trace.Span, d Decision, req *Request, t Transport) (*Response, error) {
	span.SetAttributes(
		attribute.String("vcr.action", d.Action.String()),
		attribute.Bool("vcr.record", d.Record),
	)
	resp, err := t.Send(ctx, req.Method, req.URI, req.Header.Clone(), cloneBytes(req.Body))
	if err != nil {
		return nil, endWithError(span, err)
	}
	if resp == nil {
		return nil, endWithError(span, ErrNoResponse)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if i, ok := e.Complete(ctx, d, req, resp); ok {
		// Filters may have rewritten the response.
		return i.Response, nil
	}
	return resp, nil
}

func (e *Engine) startSpan(ctx context.Context, name string, req *Request) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("http.request.method", string(req.Method)),
		attribute.String("url.full", req.URI),
	))
}

func endWithError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
