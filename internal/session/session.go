package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"edgestats-backend/internal/credentials"
	"edgestats-backend/internal/edge"
	"edgestats-backend/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	report_session_dial     = "session.dial"
	report_session_send     = "session.send"
	report_session_envelope = "session.envelope"
	report_session_close    = "session.close"
	report_session_frame    = "session.frame"
	report_session_target   = "session.target"
)

var tracer = telemetry.Tracer("edgestats/session")

var (
	meter               = telemetry.Meter("edgestats/session")
	framesCounter, _    = meter.Int64Counter("edge.session.frames")
	fragmentsCounter, _ = meter.Int64Counter("edge.session.fragments")
	malformedCounter, _ = meter.Int64Counter("edge.session.malformed")
)

var (
	errAborted         = errors.New("session aborted")
	errSessionDeadline = errors.New("session deadline exceeded")
)

// Extractor turns one fragment into a section payload, it must not fail.
type Extractor interface {
	Extract(markup string, target edge.Target) edge.SectionPayload
}

// Archive receives every inbound text frame verbatim.
type Archive interface {
	Write(id string, contents string)
}

type Option func(s *Session)

func WithArchive(a Archive) Option {
	return func(s *Session) {
		s.archive = a
	}
}

func WithExtractor(x Extractor) Option {
	return func(s *Session) {
		s.extractor = x
	}
}

// Session drives a single pass over the stats page of a single player. A
// Session is used once, concurrent fetches each need their own.
type Session struct {
	cfg       Config
	dialer    Dialer
	extractor Extractor
	archive   Archive
	tel       telemetry.API

	state    atomic.Int32
	archived int

	mu       sync.Mutex
	started  bool
	aborted  bool
	cancel   context.CancelCauseFunc
	conn     Conn
	received []edge.Target
}

func New(cfg Config, dialer Dialer, tel telemetry.API, opts ...Option) *Session {
	s := &Session{
		cfg:       cfg,
		dialer:    dialer,
		extractor: edge.NewExtractor(tel),
		tel:       telemetry.NewScopedAPI("session", tel),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	prev := State(s.state.Swap(int32(state)))
	s.tel.ReportDebug("state", prev.String(), state.String())
}

// Received lists the expected targets that have arrived so far.
func (s *Session) Received() []edge.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]edge.Target(nil), s.received...)
}

// Abort stops the session at its next suspension point. Start then returns
// whatever was collected without an error. Calling Abort before Start makes
// Start return immediately, calling it after the session ended does nothing.
func (s *Session) Abort() {
	s.mu.Lock()
	if s.State().Terminal() {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	cancel := s.cancel
	conn := s.conn
	if !s.started {
		s.setState(StateAborted)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel(errAborted)
	}
	if conn != nil {
		err := conn.Close()
		if err != nil {
			s.tel.ReportDebug(report_session_close, err)
		}
	}
}

func (s *Session) begin(cancel context.CancelCauseFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return errAborted
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.cancel = cancel
	return nil
}

func (s *Session) attach(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

func (s *Session) markReceived(t edge.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.received {
		if r == t {
			return
		}
	}
	s.received = append(s.received, t)
}

// Start connects, requests every section for playerID and collects fragments
// until every expected target arrived, the remote closes, or something fatal
// happens. The returned aggregate is valid in every case, it may be partial:
// use Aggregate.Complete to tell. The error is a *ConnectionError,
// *ProtocolTimeout or *ServerError, an abort is not an error.
func (s *Session) Start(ctx context.Context, playerID string, creds credentials.Credentials) (edge.Aggregate, error) {
	agg := &edge.Aggregate{}
	if strings.TrimSpace(playerID) == "" {
		return *agg, ErrInvalidPlayer
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	err := s.begin(cancel)
	if errors.Is(err, errAborted) {
		return *agg, nil
	}
	if err != nil {
		return *agg, err
	}
	if s.cfg.SessionTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeoutCause(ctx, s.cfg.SessionTimeout, errSessionDeadline)
		defer cancelTimeout()
	}

	ctx, span := tracer.Start(ctx, "session.Start", trace.WithAttributes(
		attribute.String("player", playerID),
	))
	defer span.End()

	err = s.run(ctx, playerID, creds, agg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("state", s.State().String()))
	return *agg, err
}

func (s *Session) run(ctx context.Context, playerID string, creds credentials.Credentials, agg *edge.Aggregate) error {
	s.setState(StateConnecting)

	endpoint, err := s.cfg.Endpoint(playerID)
	if err != nil {
		s.setState(StateAborted)
		return &ConnectionError{URL: s.cfg.URLTemplate, Err: err}
	}

	conn, err := s.dialer.Dial(ctx, endpoint.String(), s.header(creds))
	if err != nil {
		if ctx.Err() != nil {
			return s.interrupted(ctx, nil)
		}
		s.tel.ReportWarning(report_session_dial, err, endpoint.String())
		s.setState(StateAborted)
		return &ConnectionError{URL: endpoint.String(), Err: err}
	}
	s.attach(conn)
	defer conn.Close()

	requests := BuildRequests(playerID, endpoint, s.cfg)
	limit := rate.Inf
	if s.cfg.SendInterval > 0 {
		limit = rate.Every(s.cfg.SendInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for i, req := range requests {
		if i == 0 {
			s.setState(StateHandshaking)
		} else if i == 1 {
			s.setState(StateRequesting)
		}
		err := s.send(ctx, conn, limiter, req)
		if ctx.Err() != nil {
			return s.interrupted(ctx, conn)
		}
		if err != nil {
			s.tel.ReportBroken(report_session_send, err, req.String())
			s.setState(StateAborted)
			return &ServerError{Err: fmt.Errorf("send %s: %w", req, err)}
		}
	}

	return s.listen(ctx, conn, agg)
}

func (s *Session) send(ctx context.Context, conn Conn, limiter *rate.Limiter, req Request) error {
	err := limiter.Wait(ctx)
	if err != nil {
		return err
	}
	payload, err := req.Encode()
	if err != nil {
		return err
	}
	s.tel.ReportDebug("send", req.String())
	return conn.Send(ctx, payload)
}

func (s *Session) listen(ctx context.Context, conn Conn, agg *edge.Aggregate) error {
	s.setState(StateListening)

	expected := s.cfg.expected()
	received := edge.NewTargetSet()

	var timeout <-chan time.Time
	var timer *time.Timer
	if s.cfg.ReceiveTimeout > 0 {
		timer = time.NewTimer(s.cfg.ReceiveTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return s.interrupted(ctx, conn)

		case <-timeout:
			s.setState(StateAborted)
			return &ProtocolTimeout{Wait: s.cfg.ReceiveTimeout}

		case frame, ok := <-conn.Frames():
			if ctx.Err() != nil {
				return s.interrupted(ctx, conn)
			}
			if !ok {
				s.tel.ReportDebug("inbound channel closed", len(received), len(expected))
				s.setState(StateClosed)
				return nil
			}
			if timer != nil {
				resetTimer(timer, s.cfg.ReceiveTimeout)
			}
			framesCounter.Add(ctx, 1)

			switch frame.Kind {
			case FrameClose:
				s.tel.ReportDebug("closed by remote", frame.Err, len(received), len(expected))
				s.setState(StateClosed)
				return nil
			case FrameError:
				s.tel.ReportBroken(report_session_frame, frame.Err)
				s.setState(StateAborted)
				return &ServerError{Err: frame.Err}
			case FrameText:
				s.handleText(ctx, frame.Data, agg, received, expected)
			default:
				s.tel.ReportDebug("ignoring non-text frame", len(frame.Data))
			}

			if received.Superset(expected) {
				s.tel.ReportDebug("all expected fragments received")
				s.drain(conn)
				s.setState(StateClosed)
				return nil
			}
		}
	}
}

func (s *Session) handleText(ctx context.Context, data []byte, agg *edge.Aggregate, received, expected edge.TargetSet) {
	if s.archive != nil {
		s.archived++
		s.archive.Write(fmt.Sprintf("message-%06d.json", s.archived), string(data))
	}

	env, err := ParseEnvelope(data)
	if err != nil {
		malformedCounter.Add(ctx, 1)
		s.tel.ReportWarning(report_session_envelope, err)
		return
	}
	if !env.IsHTML() {
		s.tel.ReportDebug("ignoring message", env.Type)
		return
	}

	target := edge.ParseSelector(env.Target)
	if !target.Known() {
		s.tel.ReportWarning(report_session_target, env.Target, len(env.HTML))
	}
	fragmentsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target.String())))
	trace.SpanFromContext(ctx).AddEvent("fragment", trace.WithAttributes(
		attribute.String("target", env.Target),
		attribute.Int("size", len(env.HTML)),
	))

	payload := s.extractor.Extract(env.HTML, target)
	edge.Merge(agg, payload)

	if expected.Has(target) {
		received.Add(target)
		s.markReceived(target)
	}
}

// drain closes the connection and waits (briefly) for the remote to
// acknowledge, anything that still arrives is discarded.
func (s *Session) drain(conn Conn) {
	s.setState(StateDraining)
	err := conn.Close()
	if err != nil {
		s.tel.ReportDebug(report_session_close, err)
	}

	deadline := time.NewTimer(s.cfg.DrainTimeout)
	defer deadline.Stop()
	for {
		select {
		case _, ok := <-conn.Frames():
			if !ok {
				return
			}
		case <-deadline.C:
			return
		}
	}
}

// interrupted handles the context ending, which is either an abort (no
// error) or the session deadline.
func (s *Session) interrupted(ctx context.Context, conn Conn) error {
	if conn != nil {
		err := conn.Close()
		if err != nil {
			s.tel.ReportDebug(report_session_close, err)
		}
	}
	s.setState(StateAborted)

	if errors.Is(context.Cause(ctx), errSessionDeadline) {
		return &ProtocolTimeout{Wait: s.cfg.SessionTimeout, Session: true}
	}
	return nil
}

func (s *Session) header(creds credentials.Credentials) http.Header {
	header := http.Header{}
	for k, v := range s.cfg.Headers {
		header.Set(k, v)
	}
	if cookie := creds.CookieHeader(); cookie != "" {
		header.Set("Cookie", cookie)
	}
	return header
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
