package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fundprep/examgen/internal/store"
)

// LoggingProvider is a decorator that logs every LLM request and, when a
// repo is given, records it in the history ledger.
type LoggingProvider struct {
	inner     Provider
	provider  string
	log       *zap.Logger
	eventRepo store.EventRepo
}

// WithLogging wraps a Provider with request logging. repo may be nil.
func WithLogging(p Provider, name string, log *zap.Logger, repo store.EventRepo) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingProvider{inner: p, provider: name, log: log, eventRepo: repo}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	data := l.event(ctx, req, time.Since(start), err)
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		data.ResponseBody = resp.Text
	}
	l.record(ctx, data)

	return resp, err
}

func (l *LoggingProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	start := time.Now()
	in, err := l.inner.Stream(ctx, req)
	if err != nil {
		data := l.event(ctx, req, time.Since(start), err)
		data.Streamed = true
		l.record(ctx, data)
		return nil, err
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		var (
			body    strings.Builder
			usage   Usage
			lastErr error
			count   int
		)
		for c := range in {
			body.WriteString(c.Text)
			if c.Usage != nil {
				usage = *c.Usage
			}
			if c.Err != nil {
				lastErr = c.Err
			}
			if c.Text != "" {
				count++
			}
			// Forward unconditionally; inner closes when ctx is done.
			select {
			case out <- c:
			case <-ctx.Done():
			}
		}
		// Inner streams close without an error chunk when ctx ends.
		if lastErr == nil && ctx.Err() != nil {
			lastErr = Classify(ctx.Err())
		}

		data := l.event(ctx, req, time.Since(start), lastErr)
		data.Streamed = true
		data.InputTokens = usage.InputTokens
		data.OutputTokens = usage.OutputTokens
		data.ResponseBody = body.String()
		l.log.Debug("stream finished", zap.Int("fragments", count))
		l.record(ctx, data)
	}()
	return out, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func (l *LoggingProvider) event(ctx context.Context, req Request, latency time.Duration, err error) store.LLMRequestEventData {
	data := store.LLMRequestEventData{
		RequestID:   RequestIDFrom(ctx),
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if err != nil {
		data.ErrorKind = KindOf(err).String()
		data.ErrorMessage = err.Error()
	}
	return data
}

// record writes the log line and the ledger row. Ledger failures never
// fail the request.
func (l *LoggingProvider) record(ctx context.Context, data store.LLMRequestEventData) {
	fields := []zap.Field{
		zap.String("request_id", data.RequestID),
		zap.String("provider", data.Provider),
		zap.String("model", data.Model),
		zap.String("purpose", data.Purpose),
		zap.Bool("streamed", data.Streamed),
		zap.Int("input_tokens", data.InputTokens),
		zap.Int("output_tokens", data.OutputTokens),
		zap.Int64("latency_ms", data.LatencyMs),
	}
	if data.Success {
		l.log.Info("llm request", fields...)
	} else {
		l.log.Warn("llm request failed", append(fields,
			zap.String("error_kind", data.ErrorKind),
			zap.String("error", data.ErrorMessage))...)
	}

	if l.eventRepo == nil {
		return
	}
	// The action context may already be expired when a stream ends.
	if err := l.eventRepo.AppendLLMRequest(context.WithoutCancel(ctx), data); err != nil {
		l.log.Warn("failed to record llm request", zap.Error(err))
	}
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		b.WriteString(fmt.Sprintf("[%s]\n", m.Role))
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	return b.String()
}
