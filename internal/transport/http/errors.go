package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rootseed/pos-otp-relay/internal/rate"
	"github.com/rootseed/pos-otp-relay/internal/service"
	"github.com/rootseed/pos-otp-relay/internal/util"
)

// writeError maps service errors onto status codes. Anything unrecognised is
// logged and answered with a generic 500.
func writeError(c echo.Context, err error) error {
	var partial *service.PartialFailureError
	if errors.As(err, &partial) {
		c.Logger().Errorf("partial otp generation: %v", err)
		return c.JSON(http.StatusBadGateway,
			util.Rejection("otp generation incomplete, repair required", "partial_failure").WithRequestID(partial.RequestID))
	}

	var limited *rate.LimitError
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())))
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, util.Error("internal server error"))
	}
	return c.JSON(status, util.Rejection(err.Error(), service.RejectionReason(err)))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrMessageValidation),
		errors.Is(err, service.ErrMessageInvalidID),
		errors.Is(err, service.ErrNotAnOTPRequest),
		errors.Is(err, service.ErrNotAnOTPResponse),
		errors.Is(err, service.ErrPasswordTooWeak),
		errors.Is(err, service.ErrCodeInvalid),
		errors.Is(err, service.ErrResetOTPInvalid),
		errors.Is(err, service.ErrArchiveFormat):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotRecipient),
		errors.Is(err, service.ErrNotCashier),
		errors.Is(err, service.ErrNotDefaultAdmin),
		errors.Is(err, service.ErrMessageForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRequestAlreadyGenerated),
		errors.Is(err, service.ErrRequestConsumed),
		errors.Is(err, service.ErrRequestNotGenerated),
		errors.Is(err, service.ErrMessageConflict),
		errors.Is(err, service.ErrCodeUsed):
		return http.StatusConflict
	case errors.Is(err, service.ErrRequestExpired),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrResetOTPExpired):
		return http.StatusGone
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrMailDelivery),
		errors.Is(err, service.ErrActivityUnavailable),
		errors.Is(err, service.ErrArchiveUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
