package client

import (
	"context"
	"errors"
	"net"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

const (
	ErrorCategoryTimeout         ErrorCategory = "timeout"
	ErrorCategoryCanceled        ErrorCategory = "canceled"
	ErrorCategoryNetwork         ErrorCategory = "network"
	ErrorCategoryStationNotFound ErrorCategory = "station_not_found"
	ErrorCategoryUpstream4xx     ErrorCategory = "upstream_4xx"
	ErrorCategoryUpstream5xx     ErrorCategory = "upstream_5xx"
	ErrorCategoryMalformed       ErrorCategory = "malformed"
	ErrorCategoryUnknown         ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorCategoryCanceled
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorCategoryTimeout
		}
		return ErrorCategoryNetwork
	}

	if errors.Is(err, ErrStationNotFound) {
		return ErrorCategoryStationNotFound
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 500 {
			return ErrorCategoryUpstream5xx
		}
		return ErrorCategoryUpstream4xx
	}

	if errors.Is(err, ErrMalformedResponse) {
		return ErrorCategoryMalformed
	}
	if errors.Is(err, ErrUpstreamFailure) {
		return ErrorCategoryNetwork
	}
	return ErrorCategoryUnknown
}
