package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/llm"
)

var errUnknownVariant = errors.New("unknown variant")

// GenerateRequest is the body of both generate endpoints. A zero Count
// means the variant's default.
type GenerateRequest struct {
	Variant string `json:"variant"`
	Subject string `json:"subject"`
	Custom  string `json:"custom"`
	Count   int    `json:"count"`
	Focus   string `json:"focus"`
}

// GenerateResponse is the body of a successful non-streaming call.
type GenerateResponse struct {
	Text      string    `json:"text"`
	Model     string    `json:"model"`
	Usage     llm.Usage `json:"usage"`
	LatencyMs int64     `json:"latency_ms"`
}

type fragmentEvent struct {
	Fragment string `json:"fragment"`
	Text     string `json:"text"`
}

type doneEvent struct {
	Text  string    `json:"text"`
	Model string    `json:"model"`
	Usage llm.Usage `json:"usage"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"ready":  s.ctrl.Ready(),
		"model":  s.ctrl.ModelID(),
	})
}

func (s *Server) handleVariants(c *fiber.Ctx) error {
	return c.JSON(s.catalog)
}

// params decodes the body and resolves it against the catalog.
func (s *Server) params(c *fiber.Ctx) (exam.Params, error) {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return exam.Params{}, fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	id := req.Variant
	if id == "" {
		id = s.opts.DefaultVariant
	}
	var (
		v  exam.Variant
		ok bool
	)
	if id == "" {
		v, ok = s.catalog.Default(), true
	} else {
		v, ok = s.catalog.Variant(id)
	}
	if !ok {
		return exam.Params{}, fmt.Errorf("%w: %q", errUnknownVariant, id)
	}

	count := req.Count
	if count == 0 {
		count = v.DefaultCount
	}
	return exam.NewParams(v, req.Subject, req.Custom, count, req.Focus)
}

func (s *Server) handleGenerate(c *fiber.Ctx) error {
	p, err := s.params(c)
	if err != nil {
		return err
	}

	res, err := s.ctrl.Submit(c.UserContext(), exam.BuildPrompt(p))
	if err != nil {
		return err
	}
	return c.JSON(GenerateResponse{
		Text:      res.Text,
		Model:     res.Model,
		Usage:     res.Usage,
		LatencyMs: res.Latency.Milliseconds(),
	})
}

// handleGenerateStream answers with text/event-stream. Failures that stop
// the action before streaming starts get a regular JSON error response.
func (s *Server) handleGenerateStream(c *fiber.Ctx) error {
	p, err := s.params(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.UserContext())
	updates, err := s.ctrl.Stream(ctx, exam.BuildPrompt(p))
	if err != nil {
		cancel()
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set(fiber.HeaderTransferEncoding, "chunked")

	log := s.log
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for u := range updates {
			if err := writeUpdate(w, u); err != nil {
				// Client went away; cancelling ends the action.
				log.Info("stream client disconnected", zap.Error(err))
				cancel()
				for range updates {
				}
				return
			}
		}
	})
	return nil
}

func writeUpdate(w *bufio.Writer, u exam.Update) error {
	var (
		event string
		data  any
	)
	switch {
	case u.Final && u.Err != nil:
		status, code := statusFor(u.Err)
		event, data = "error", ErrorResponse{Code: code, Message: exam.Describe(u.Err), Status: status, Text: u.Text}
	case u.Final:
		event, data = "done", doneEvent{Text: u.Text, Model: u.Model, Usage: u.Usage}
	default:
		event, data = "fragment", fragmentEvent{Fragment: u.Fragment, Text: u.Text}
	}
	return writeEvent(w, event, data)
}

func writeEvent(w *bufio.Writer, event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	return w.Flush()
}
