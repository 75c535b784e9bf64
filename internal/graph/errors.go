package graph

import (
	"errors"

	"github.com/kjstillabower/metar-gateway/internal/client"
)

// Error codes reported in a GraphQL error's extensions.code.
const (
	CodeBadUserInput        = "BAD_USER_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamContract    = "UPSTREAM_CONTRACT"
)

// QueryError is a resolver error carrying a stable code. graphql-go copies
// Extensions into the formatted error, so clients see extensions.code.
type QueryError struct {
	Code    string
	Status  int // upstream HTTP status, 0 when there was no response
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Extensions implements gqlerrors.ExtendedError.
func (e *QueryError) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.Code}
	if e.Status != 0 {
		ext["status"] = e.Status
	}
	return ext
}

func badUserInput(err error) *QueryError {
	return &QueryError{Code: CodeBadUserInput, Message: err.Error(), Err: err}
}

// upstreamError translates an upstream client error into a query error.
func upstreamError(id string, err error) *QueryError {
	qe := &QueryError{Code: CodeUpstreamUnavailable, Message: "upstream request failed for station " + id, Err: err}
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		qe.Status = statusErr.StatusCode
	}
	switch {
	case errors.Is(err, client.ErrStationNotFound):
		qe.Code = CodeNotFound
		qe.Message = "station " + id + " not found upstream"
	case errors.Is(err, client.ErrMalformedResponse):
		qe.Code = CodeUpstreamContract
		qe.Message = "upstream returned malformed data for station " + id
	}
	return qe
}

func contractError(id string, err error) *QueryError {
	return &QueryError{
		Code:    CodeUpstreamContract,
		Message: "upstream report for station " + id + " violates schema: " + err.Error(),
		Err:     err,
	}
}
