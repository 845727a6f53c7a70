package gateway

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

func newErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Error:     err.Error(),
		Kind:      wxerrors.KindOf(err).String(),
		Retryable: wxerrors.IsRetryable(err),
	}
}

// statusFor picks the HTTP status for err: the upstream status when the
// error carries one, otherwise one derived from the error kind.
func statusFor(err error) int {
	if status := wxerrors.StatusOf(err); status > 0 {
		return status
	}

	var nf history.NotFoundError
	if errors.As(err, &nf) {
		return fiber.StatusNotFound
	}

	switch wxerrors.KindOf(err) {
	case wxerrors.KindInvalidInput:
		return fiber.StatusBadRequest
	case wxerrors.KindAuthentication:
		return fiber.StatusUnauthorized
	case wxerrors.KindRateLimit:
		return fiber.StatusTooManyRequests
	case wxerrors.KindTimeout:
		return fiber.StatusGatewayTimeout
	case wxerrors.KindNetwork, wxerrors.KindSerialization:
		return fiber.StatusBadGateway
	case wxerrors.KindModelNotFound, wxerrors.KindProjectNotFound:
		return fiber.StatusNotFound
	case wxerrors.KindConfiguration:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(newErrorResponse(err))
}

// handleFiberError renders errors returned by fiber itself, such as unknown
// routes, in the gateway's error shape.
func handleFiberError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error(), Kind: wxerrors.KindUnknown.String()})
}
