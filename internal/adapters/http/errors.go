package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, or a domain error kind
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errDomain maps a classified core error to a status code. The code field
// carries the error kind so clients can branch on it.
func errDomain(c *fiber.Ctx, err error) error {
	if errors.Is(err, usecases.ErrInvalidObjectID) {
		return errBadRequest(c, err.Error())
	}

	kind := domain.KindOf(err)
	status := 500
	switch kind {
	case domain.KindGeocodeNotFound:
		status = 404
	case domain.KindUpstreamUnauthorized:
		status = 401
	case domain.KindSearchInProgress:
		status = 409
	case domain.KindGeocodeTransport, domain.KindUpstreamUnavailable,
		domain.KindMalformedResponse, domain.KindDetailLoad:
		status = 502
	}
	return newError(c, status, string(kind), err.Error())
}
