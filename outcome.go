package webmetrics

import (
	"context"
	"errors"
)

// Outcome classifies how a dispatch ended, for tagging purposes only.
// Classification never suppresses or converts the underlying result.
type Outcome string

const (
	// OutcomeSuccess covers informational, successful and redirect
	// statuses.
	OutcomeSuccess Outcome = "success"

	// OutcomeClientError covers 4xx statuses on matched routes.
	OutcomeClientError Outcome = "client-error"

	// OutcomeServerError covers 5xx statuses written by handlers.
	OutcomeServerError Outcome = "server-error"

	// OutcomeNoRouteMatch covers requests the router could not route,
	// regardless of the status the router answered with (404, 406, ...).
	OutcomeNoRouteMatch Outcome = "no-route-match"

	// OutcomeCanceled covers dispatches cut short by context
	// cancellation or deadline expiry. Canceled dispatches still record
	// exactly one sample; keeping them out of the error series stops
	// client-initiated aborts from polluting error rates.
	OutcomeCanceled Outcome = "canceled"

	// OutcomeError covers unhandled failures: handler panics on the
	// server, transport errors on the client.
	OutcomeError Outcome = "error"
)

// String implements fmt.Stringer.
func (o Outcome) String() string { return string(o) }

// classifyStatus maps a response status to an Outcome. routeMatched
// reports whether the router resolved a route for the request.
func classifyStatus(status int, routeMatched bool) Outcome {
	if !routeMatched {
		return OutcomeNoRouteMatch
	}

	switch {
	case status >= 500:
		return OutcomeServerError
	case status >= 400:
		return OutcomeClientError
	default:
		return OutcomeSuccess
	}
}

// classifyError maps a dispatch error to an Outcome. Cancellation is
// detected through the error chain so wrapped url.Error values from
// net/http classify correctly.
func classifyError(err error) Outcome {
	if isCanceled(err) {
		return OutcomeCanceled
	}
	return OutcomeError
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
