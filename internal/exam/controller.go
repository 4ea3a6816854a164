package exam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fundprep/examgen/internal/llm"
)

const (
	// DefaultTimeout bounds one action end to end.
	DefaultTimeout = 120 * time.Second

	// finalGrace bounds how long a finished stream waits for its receiver
	// to take the final Update.
	finalGrace = 5 * time.Second

	purpose = "exam-questions"
)

// Result is the complete body of a non-streaming action.
type Result struct {
	Text    string
	Model   string
	Usage   llm.Usage
	Latency time.Duration
}

// Update is one step of a streaming action. Text is always the running
// concatenation of every fragment received so far. The last update of an
// action has Final set; if the action failed, Err is set and Text holds
// what was rendered before the failure.
type Update struct {
	Fragment string
	Text     string
	Final    bool
	Err      error
	Model    string
	Usage    llm.Usage
}

// Controller turns a GenerationRequest into exactly one provider call and
// reports the outcome. It is safe for concurrent use; actions sharing a
// session key are serialized by the Guard.
type Controller struct {
	provider    llm.Provider
	cred        llm.Credential
	guard       Guard
	timeout     time.Duration
	maxTokens   int
	temperature float64
	log         *zap.Logger
	hook        PhaseHook
}

// Option configures a Controller.
type Option func(*Controller)

// WithGuard replaces the in-process guard.
func WithGuard(g Guard) Option {
	return func(c *Controller) { c.guard = g }
}

// WithTimeout sets the per-action deadline. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLimits sets the token budget and temperature sent with every request.
func WithLimits(maxTokens int, temperature float64) Option {
	return func(c *Controller) {
		c.maxTokens = maxTokens
		c.temperature = temperature
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithPhaseHook registers an observer for phase transitions.
func WithPhaseHook(h PhaseHook) Option {
	return func(c *Controller) { c.hook = h }
}

// NewController creates a Controller. p may be nil when no credential is
// available; every action then fails with llm.ErrMissingCredential.
func NewController(p llm.Provider, cred llm.Credential, opts ...Option) *Controller {
	c := &Controller{
		provider:    p,
		cred:        cred,
		guard:       NewLocalGuard(),
		timeout:     DefaultTimeout,
		maxTokens:   8192,
		temperature: 0.7,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports whether an action can reach the provider.
func (c *Controller) Ready() bool {
	return c.provider != nil && c.cred.Present()
}

// ModelID returns the provider's model, or "" when not ready.
func (c *Controller) ModelID() string {
	if c.provider == nil {
		return ""
	}
	return c.provider.ModelID()
}

// Submit runs one non-streaming action and returns the full body.
func (c *Controller) Submit(ctx context.Context, req GenerationRequest) (*Result, error) {
	session, release, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	actx, cancel := c.actionContext(ctx)
	defer cancel()

	c.enter(session, PhaseRequesting)
	start := time.Now()
	resp, err := c.provider.Generate(actx, c.request(req))
	if err != nil {
		err = c.classify(ctx, actx, err)
		c.finish(actx, session, start, false, err)
		return nil, err
	}

	c.enter(session, PhaseRendering)
	c.finish(actx, session, start, false, nil)
	return &Result{
		Text:    resp.Text,
		Model:   resp.Model,
		Usage:   resp.Usage,
		Latency: time.Since(start),
	}, nil
}

// Stream runs one streaming action. Errors that stop the action before any
// fragment can arrive are returned directly; later failures arrive as the
// final Update. The channel is closed after the final Update.
func (c *Controller) Stream(ctx context.Context, req GenerationRequest) (<-chan Update, error) {
	session, release, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}

	actx, cancel := c.actionContext(ctx)
	c.enter(session, PhaseRequesting)
	start := time.Now()
	in, err := c.provider.Stream(actx, c.request(req))
	if err != nil {
		err = c.classify(ctx, actx, err)
		c.finish(actx, session, start, true, err)
		cancel()
		release()
		return nil, err
	}

	c.enter(session, PhaseStreaming)
	out := make(chan Update)
	go func() {
		defer close(out)

		var (
			text  strings.Builder
			usage llm.Usage
		)
		// end releases the session before the final update is delivered so
		// the receiver can start the next action right away. A receiver that
		// stopped reading gets finalGrace before the channel is closed.
		end := func(err error) {
			c.finish(actx, session, start, true, err)
			cancel()
			release()
			final := Update{Text: text.String(), Final: true, Err: err, Model: c.provider.ModelID(), Usage: usage}
			grace := time.NewTimer(finalGrace)
			defer grace.Stop()
			select {
			case out <- final:
			case <-ctx.Done():
			case <-grace.C:
				c.log.Warn("final update not received", zap.String("session", session))
			}
		}

		for {
			select {
			case chunk, ok := <-in:
				if !ok {
					end(nil)
					return
				}
				if chunk.Usage != nil {
					usage = *chunk.Usage
				}
				if chunk.Err != nil {
					end(c.classify(ctx, actx, chunk.Err))
					return
				}
				if chunk.Text == "" {
					continue
				}
				text.WriteString(chunk.Text)
				c.enter(session, PhaseRendering)
				select {
				case out <- Update{Fragment: chunk.Text, Text: text.String()}:
				case <-ctx.Done():
					end(c.classify(ctx, actx, ctx.Err()))
					return
				case <-actx.Done():
					end(c.classify(ctx, actx, actx.Err()))
					return
				}
			case <-actx.Done():
				end(c.classify(ctx, actx, actx.Err()))
				return
			}
		}
	}()
	return out, nil
}

// begin runs the credential check and takes the session guard.
func (c *Controller) begin(ctx context.Context) (string, func(), error) {
	session := SessionFrom(ctx)
	c.enter(session, PhaseCredentialCheck)
	if !c.Ready() {
		c.enter(session, PhaseBlocked)
		return "", nil, llm.ErrMissingCredential
	}

	release, err := c.guard.Acquire(ctx, session)
	if err != nil {
		c.enter(session, PhaseBlocked)
		if errors.Is(err, ErrBusy) {
			c.log.Info("generation rejected", zap.String("session", session), zap.Error(err))
			return "", nil, err
		}
		return "", nil, fmt.Errorf("acquire session %q: %w", session, err)
	}
	return session, release, nil
}

func (c *Controller) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = llm.WithPurpose(ctx, purpose)
	ctx = llm.WithRequestID(ctx, uuid.NewString())
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Controller) request(req GenerationRequest) llm.Request {
	return llm.NewRequest(req.SystemInstruction, req.UserPrompt, c.maxTokens, c.temperature)
}

// classify maps err into the taxonomy. An expired action deadline always
// yields a timeout, whatever the SDK wrapped it in.
func (c *Controller) classify(parent, actx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		var nf *llm.ErrNetworkFailure
		if errors.As(err, &nf) && nf.Timeout {
			return nf
		}
		return &llm.ErrNetworkFailure{Timeout: true, Err: fmt.Errorf("no complete response within %s: %w", c.timeout, err)}
	}
	return llm.Classify(err)
}

func (c *Controller) finish(actx context.Context, session string, start time.Time, streamed bool, err error) {
	fields := []zap.Field{
		zap.String("session", session),
		zap.String("request_id", llm.RequestIDFrom(actx)),
		zap.Bool("streamed", streamed),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		c.enter(session, PhaseFailed)
		c.log.Warn("generation failed", append(fields,
			zap.Stringer("kind", llm.KindOf(err)),
			zap.Error(err))...)
		return
	}
	c.enter(session, PhaseComplete)
	c.log.Info("generation complete", fields...)
}

func (c *Controller) enter(session string, p Phase) {
	if c.hook != nil {
		c.hook(session, p)
	}
}
