package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/llm"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "examgen_session"

	sessionLocal = "session"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Text    string `json:"text,omitempty"`
}

func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		log.Info("http request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.IP()),
		)
		return err
	}
}

// sessionMiddleware resolves the caller's session from the header or the
// cookie, issuing a new cookie when neither is present.
func sessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(SessionHeader)
		if id == "" {
			id = c.Cookies(SessionCookie)
		}
		if id == "" {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(sessionLocal, id)
		c.SetUserContext(exam.WithSession(c.UserContext(), id))
		return c.Next()
	}
}

// statusFor maps an action error to its HTTP status and stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, exam.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, exam.ErrUnknownSubject), errors.Is(err, exam.ErrEmptySubject), errors.Is(err, errUnknownVariant):
		return http.StatusBadRequest, "bad_request"
	}

	kind := llm.KindOf(err)
	switch kind {
	case llm.KindMissingCredential:
		return http.StatusServiceUnavailable, kind.String()
	case llm.KindInvalidCredential:
		return http.StatusBadGateway, kind.String()
	case llm.KindQuotaExhausted:
		return http.StatusTooManyRequests, kind.String()
	case llm.KindNetworkFailure:
		return http.StatusGatewayTimeout, kind.String()
	default:
		return http.StatusBadGateway, llm.KindUnknown.String()
	}
}

// errorHandler renders every error returned by a handler as ErrorResponse.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			log.Warn("fiber error", zap.Int("code", fiberErr.Code), zap.String("message", fiberErr.Message))
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Code:    "http_error",
				Message: fiberErr.Message,
				Status:  fiberErr.Code,
			})
		}

		status, code := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("generation request failed", zap.String("code", code), zap.Error(err))
		} else {
			log.Warn("generation request rejected", zap.String("code", code), zap.Error(err))
		}
		return c.Status(status).JSON(ErrorResponse{
			Code:    code,
			Message: exam.Describe(err),
			Status:  status,
		})
	}
}
